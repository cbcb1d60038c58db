package watch

import "testing"

func filterCandidates() []Candidate {
	return []Candidate{
		{
			Name:         "Alphazumab (Alphex)",
			Description:  "for adult patients with advanced renal cell carcinoma",
			DetailURL:    "https://example.com/node/101",
			ApprovalDate: "01/15/2025",
		},
		{
			Name:         "Betatinib-bxcl, a biosimilar to betatinib",
			Description:  "for relapsed or refractory mantle cell lymphoma",
			DetailURL:    "https://example.com/node/102",
			ApprovalDate: "12/02/2024",
		},
		{
			Name:         "Gammaclib (Gammex)",
			Description:  "labeling supplement for pediatric use",
			DetailURL:    "https://example.com/archive/203",
			ApprovalDate: "11/20/2024",
		},
	}
}

func TestFiltererNoFilters(t *testing.T) {
	filterer := NewFilterer()
	sourceConfig := &Config{Name: "test-source"}

	kept, dropped := filterer.Run(filterCandidates(), sourceConfig)
	if dropped != 0 {
		t.Errorf("Expected 0 dropped candidates, got: %d", dropped)
	}
	if len(kept) != 3 {
		t.Errorf("Expected all 3 candidates kept, got: %d", len(kept))
	}
}

func TestFiltererExcludes(t *testing.T) {
	filterer := NewFilterer()
	sourceConfig := &Config{
		Name: "test-source",
		Filters: []ConfigFilter{
			{Field: "name", Excludes: []string{"biosimilar"}},
		},
	}

	kept, dropped := filterer.Run(filterCandidates(), sourceConfig)
	if dropped != 1 {
		t.Errorf("Expected 1 dropped candidate, got: %d", dropped)
	}
	if len(kept) != 2 {
		t.Fatalf("Expected 2 candidates kept, got: %d", len(kept))
	}
	for _, candidate := range kept {
		if candidate.Name == "Betatinib-bxcl, a biosimilar to betatinib" {
			t.Error("Expected biosimilar candidate to be dropped")
		}
	}
}

func TestFiltererIncludes(t *testing.T) {
	filterer := NewFilterer()
	sourceConfig := &Config{
		Name: "test-source",
		Filters: []ConfigFilter{
			{Field: "description", Includes: []string{"carcinoma", "lymphoma"}},
		},
	}

	kept, dropped := filterer.Run(filterCandidates(), sourceConfig)
	if dropped != 1 {
		t.Errorf("Expected 1 dropped candidate, got: %d", dropped)
	}
	if len(kept) != 2 {
		t.Fatalf("Expected 2 candidates kept, got: %d", len(kept))
	}
	if kept[0].Name != "Alphazumab (Alphex)" {
		t.Errorf("Expected carcinoma candidate kept first, got: %s", kept[0].Name)
	}
}

func TestFiltererExcludeWinsOverInclude(t *testing.T) {
	filterer := NewFilterer()
	sourceConfig := &Config{
		Name: "test-source",
		Filters: []ConfigFilter{
			{
				Field:    "name",
				Includes: []string{"betatinib"},
				Excludes: []string{"biosimilar"},
			},
		},
	}

	kept, dropped := filterer.Run(filterCandidates(), sourceConfig)
	// The biosimilar row matches both lists; excludes are checked
	// first. The two rows that match neither fail the include.
	if dropped != 3 {
		t.Errorf("Expected 3 dropped candidates, got: %d", dropped)
	}
	if len(kept) != 0 {
		t.Errorf("Expected 0 candidates kept, got: %d", len(kept))
	}
}

func TestFiltererURLField(t *testing.T) {
	filterer := NewFilterer()
	sourceConfig := &Config{
		Name: "test-source",
		Filters: []ConfigFilter{
			{Field: "url", Excludes: []string{"/archive/"}},
		},
	}

	kept, dropped := filterer.Run(filterCandidates(), sourceConfig)
	if dropped != 1 {
		t.Errorf("Expected 1 dropped candidate, got: %d", dropped)
	}
	for _, candidate := range kept {
		if candidate.Name == "Gammaclib (Gammex)" {
			t.Error("Expected archived candidate to be dropped")
		}
	}
}

func TestFiltererCaseInsensitive(t *testing.T) {
	filterer := NewFilterer()
	sourceConfig := &Config{
		Name: "test-source",
		Filters: []ConfigFilter{
			{Field: "name", Excludes: []string{"BIOSIMILAR"}},
		},
	}

	_, dropped := filterer.Run(filterCandidates(), sourceConfig)
	if dropped != 1 {
		t.Errorf("Expected case-insensitive match to drop 1 candidate, got: %d", dropped)
	}
}
