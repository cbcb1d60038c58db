package fetch

import (
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// decodeBody wraps r with a decoder for the charset declared in the
// Content-Type header. Unknown or missing charsets pass through
// unchanged; page content is predominantly UTF-8 already.
func decodeBody(r io.Reader, contentType string) io.Reader {
	if contentType == "" {
		return r
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r
	}

	name := params["charset"]
	if name == "" || strings.EqualFold(name, "utf-8") {
		return r
	}

	enc, err := htmlindex.Get(name)
	if err != nil || enc == nil {
		return r
	}

	return transform.NewReader(r, enc.NewDecoder())
}
