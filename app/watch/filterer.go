package watch

import (
	"fmt"
	"log/slog"
	"strings"
)

// Filterer narrows a broad listing to the candidates a source config
// cares about, before any detail page is fetched.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the candidates that pass the config's filters and the
// number dropped.
func (f *Filterer) Run(candidates []Candidate, sourceConfig *Config) ([]Candidate, int) {
	if len(sourceConfig.Filters) == 0 {
		return candidates, 0
	}

	kept := make([]Candidate, 0, len(candidates))
	dropped := 0
	for _, candidate := range candidates {
		excluded, reason := f.applyFilters(candidate, sourceConfig.Filters)
		if excluded {
			dropped++
			slog.Debug("Candidate filtered out", "source", sourceConfig.Name, "name", candidate.Name, "reason", reason)
			continue
		}
		kept = append(kept, candidate)
	}

	return kept, dropped
}

func (f *Filterer) applyFilters(candidate Candidate, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(candidate, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(candidate Candidate, field string) string {
	switch field {
	case "name":
		return candidate.Name
	case "description":
		return candidate.Description
	case "url":
		return candidate.DetailURL
	default:
		return ""
	}
}
