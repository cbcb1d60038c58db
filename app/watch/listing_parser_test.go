package watch

import (
	"errors"
	"strings"
	"testing"
)

func TestListingParserRun(t *testing.T) {
	html := `
<html>
<body>
<h1>Hematology/Oncology Approval Notifications</h1>
<table>
  <thead>
    <tr><th>Drug Name</th><th>Approved Use</th><th>Date</th></tr>
  </thead>
  <tbody>
    <tr>
      <td><a href="/node/101">Alphazumab (Alphex)</a></td>
      <td>for adult patients with advanced renal cell carcinoma</td>
      <td>01/15/2025</td>
    </tr>
    <tr>
      <td><a href="https://example.com/node/102">Betatinib (Betaro)</a></td>
      <td>for relapsed or refractory mantle cell lymphoma</td>
      <td>12/02/2024</td>
    </tr>
  </tbody>
</table>
</body>
</html>`

	parser := NewListingParser()
	candidates, skipped, err := parser.Run([]byte(html), "https://example.com/approvals")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if skipped != 0 {
		t.Errorf("Expected 0 skipped rows, got: %d", skipped)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got: %d", len(candidates))
	}

	first := candidates[0]
	if first.Name != "Alphazumab (Alphex)" {
		t.Errorf("Expected name 'Alphazumab (Alphex)', got: %s", first.Name)
	}
	if first.Description != "for adult patients with advanced renal cell carcinoma" {
		t.Errorf("Expected description from second cell, got: %s", first.Description)
	}
	if first.ApprovalDate != "01/15/2025" {
		t.Errorf("Expected approval date '01/15/2025', got: %s", first.ApprovalDate)
	}
	// Relative links resolve against the listing page URL
	if first.DetailURL != "https://example.com/node/101" {
		t.Errorf("Expected resolved detail URL 'https://example.com/node/101', got: %s", first.DetailURL)
	}

	second := candidates[1]
	if second.Name != "Betatinib (Betaro)" {
		t.Errorf("Expected name 'Betatinib (Betaro)', got: %s", second.Name)
	}
	if second.DetailURL != "https://example.com/node/102" {
		t.Errorf("Expected absolute detail URL unchanged, got: %s", second.DetailURL)
	}
}

func TestListingParserSkipsMalformedRows(t *testing.T) {
	html := `
<html>
<body>
<table>
  <tr><th>Drug</th><th>Use</th><th>Date</th></tr>
  <tr>
    <td><a href="/node/201">Gammaclib</a></td>
    <td>for unresectable hepatocellular carcinoma</td>
    <td>03/04/2025</td>
  </tr>
  <tr>
    <td>Deltasone</td>
    <td>missing its link</td>
    <td>02/11/2025</td>
  </tr>
  <tr>
    <td><a href="/node/203"></a></td>
    <td>missing its name</td>
    <td>01/30/2025</td>
  </tr>
  <tr><td colspan="3">Older approvals are in the archive.</td></tr>
</table>
</body>
</html>`

	parser := NewListingParser()
	candidates, skipped, err := parser.Run([]byte(html), "https://example.com/approvals")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// The linkless and nameless rows are counted; header and spacer
	// rows with fewer than three cells are not.
	if skipped != 2 {
		t.Errorf("Expected 2 skipped rows, got: %d", skipped)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got: %d", len(candidates))
	}
	if candidates[0].Name != "Gammaclib" {
		t.Errorf("Expected name 'Gammaclib', got: %s", candidates[0].Name)
	}
}

func TestListingParserNoTable(t *testing.T) {
	html := `<html><body><p>This page is temporarily unavailable.</p></body></html>`

	parser := NewListingParser()
	_, _, err := parser.Run([]byte(html), "https://example.com/approvals")
	if err == nil {
		t.Fatal("Expected error for page without a table, got none")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got: %T", err)
	}
	if !strings.Contains(parseErr.Message, "no table") {
		t.Errorf("Expected message to mention the missing table, got: %s", parseErr.Message)
	}
	if parseErr.URL != "https://example.com/approvals" {
		t.Errorf("Expected page URL in error, got: %s", parseErr.URL)
	}
}

func TestListingParserFirstTableOnly(t *testing.T) {
	html := `
<html>
<body>
<table>
  <tr>
    <td><a href="/node/301">Epsilomab</a></td>
    <td>for metastatic urothelial carcinoma</td>
    <td>05/22/2025</td>
  </tr>
</table>
<table>
  <tr>
    <td><a href="/node/999">Unrelated sidebar entry</a></td>
    <td>from a navigation widget</td>
    <td>01/01/2020</td>
  </tr>
</table>
</body>
</html>`

	parser := NewListingParser()
	candidates, _, err := parser.Run([]byte(html), "https://example.com/approvals")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate from the first table, got: %d", len(candidates))
	}
	if candidates[0].Name != "Epsilomab" {
		t.Errorf("Expected name 'Epsilomab', got: %s", candidates[0].Name)
	}
}

func TestListingParserWhitespaceTrimmed(t *testing.T) {
	html := `
<html>
<body>
<table>
  <tr>
    <td>
      <a href=" /node/401 ">
        Zetaglutide
      </a>
    </td>
    <td>
      for previously treated gastric adenocarcinoma
    </td>
    <td>  04/18/2025  </td>
  </tr>
</table>
</body>
</html>`

	parser := NewListingParser()
	candidates, _, err := parser.Run([]byte(html), "https://example.com/approvals")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got: %d", len(candidates))
	}
	if candidates[0].Name != "Zetaglutide" {
		t.Errorf("Expected trimmed name 'Zetaglutide', got: %q", candidates[0].Name)
	}
	if candidates[0].ApprovalDate != "04/18/2025" {
		t.Errorf("Expected trimmed date '04/18/2025', got: %q", candidates[0].ApprovalDate)
	}
	if candidates[0].DetailURL != "https://example.com/node/401" {
		t.Errorf("Expected trimmed resolved URL, got: %q", candidates[0].DetailURL)
	}
}
