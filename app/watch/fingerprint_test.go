package watch

import (
	"strings"
	"testing"
)

func TestFingerprintKnownValue(t *testing.T) {
	doc := Document{
		Candidate: Candidate{
			Name:      "Drug Alpha",
			DetailURL: "https://example.com/node/101",
		},
		FullText: "Alphazumab is approved for adult patients with advanced renal cell carcinoma.",
	}

	expected := "ef483d832999306d39e8695e9ee7db6e7bcf63a4362c5532e9420357c4ceace3"
	if got := Fingerprint(doc); got != expected {
		t.Errorf("Expected fingerprint %s, got: %s", expected, got)
	}
}

func TestFingerprintShape(t *testing.T) {
	doc := Document{
		Candidate: Candidate{Name: "Drug Alpha", DetailURL: "https://example.com/node/101"},
		FullText:  "Some announcement text.",
	}

	fingerprint := Fingerprint(doc)
	if len(fingerprint) != 64 {
		t.Fatalf("Expected 64 hex characters, got: %d", len(fingerprint))
	}
	if fingerprint != strings.ToLower(fingerprint) {
		t.Errorf("Expected lowercase hex, got: %s", fingerprint)
	}
}

func TestFingerprintIgnoresFormattingDrift(t *testing.T) {
	base := Document{
		Candidate: Candidate{Name: "Drug Alpha", DetailURL: "https://example.com/node/101"},
		FullText:  "Alphazumab is approved for adult patients.",
	}

	variants := []Document{
		{
			Candidate: Candidate{Name: "drug alpha", DetailURL: "https://example.com/node/101"},
			FullText:  "Alphazumab is approved for adult patients.",
		},
		{
			Candidate: Candidate{Name: "Drug  Alpha", DetailURL: "https://example.com/node/101"},
			FullText:  "Alphazumab is approved\n\nfor adult patients.",
		},
		{
			Candidate: Candidate{Name: "  Drug Alpha  ", DetailURL: "HTTPS://EXAMPLE.COM/node/101"},
			FullText:  "ALPHAZUMAB IS APPROVED FOR ADULT PATIENTS.",
		},
	}

	expected := Fingerprint(base)
	for i, variant := range variants {
		if got := Fingerprint(variant); got != expected {
			t.Errorf("Expected variant %d to match base fingerprint, got: %s", i, got)
		}
	}
}

func TestFingerprintSensitiveToContent(t *testing.T) {
	base := Document{
		Candidate: Candidate{Name: "Drug Alpha", DetailURL: "https://example.com/node/101"},
		FullText:  "The recommended dosage is 200 mg.",
	}
	changed := Document{
		Candidate: Candidate{Name: "Drug Alpha", DetailURL: "https://example.com/node/101"},
		FullText:  "The recommended dosage is 400 mg.",
	}

	if Fingerprint(base) == Fingerprint(changed) {
		t.Error("Expected different fingerprints for different full text")
	}
}

func TestFingerprintSensitiveToURL(t *testing.T) {
	base := Document{
		Candidate: Candidate{Name: "Drug Alpha", DetailURL: "https://example.com/node/101"},
		FullText:  "Same announcement text.",
	}
	moved := Document{
		Candidate: Candidate{Name: "Drug Alpha", DetailURL: "https://example.com/node/102"},
		FullText:  "Same announcement text.",
	}

	if Fingerprint(base) == Fingerprint(moved) {
		t.Error("Expected different fingerprints for different detail URLs")
	}
}

func TestFingerprintIgnoresVolatileFields(t *testing.T) {
	base := Document{
		Candidate: Candidate{
			Name:         "Drug Alpha",
			DetailURL:    "https://example.com/node/101",
			ApprovalDate: "01/15/2025",
			Description:  "for advanced renal cell carcinoma",
		},
		FullText: "Same announcement text.",
	}
	redated := base
	redated.ApprovalDate = "01/16/2025"
	redated.Description = "description rewritten by the site"

	// Only name, detail URL and full text participate
	if Fingerprint(base) != Fingerprint(redated) {
		t.Error("Expected fingerprint to ignore approval date and description")
	}
}
