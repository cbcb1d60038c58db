package watch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint computes the stable identity of a document: a sha256
// hex digest over its name, detail URL and full text. Each part is
// lowercased with whitespace runs collapsed first, so formatting
// drift between re-scrapes does not mint a new identity while any
// real content change does.
func Fingerprint(doc Document) string {
	content := fmt.Sprintf("%s|%s|%s",
		canonicalize(doc.Name),
		canonicalize(doc.DetailURL),
		canonicalize(doc.FullText))

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func canonicalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
