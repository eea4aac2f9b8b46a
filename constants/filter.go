package constants

import (
	"fmt"
	"strings"
)

// StatusFilter is the single-select triage filter of the review list.
type StatusFilter string

const (
	FilterAll        StatusFilter = "all"
	FilterValidated  StatusFilter = "validated"
	FilterReview     StatusFilter = "review"
	FilterSuspicious StatusFilter = "suspicious"
)

var allFilters = []StatusFilter{
	FilterAll,
	FilterValidated,
	FilterReview,
	FilterSuspicious,
}

func FilterStrings() []string {
	result := make([]string, len(allFilters))
	for i, f := range allFilters {
		result[i] = string(f)
	}
	return result
}

// ParseStatusFilter canonicalizes user input. Empty input means FilterAll;
// anything unrecognized is an error rather than a silent match.
func ParseStatusFilter(input string) (StatusFilter, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return FilterAll, nil
	}

	synonyms := map[string]StatusFilter{
		"any":          FilterAll,
		"needs_review": FilterReview,
		"needs-review": FilterReview,
		"needsreview":  FilterReview,
		"flagged":      FilterSuspicious,
		"valid":        FilterValidated,
	}
	if f, ok := synonyms[normalized]; ok {
		return f, nil
	}
	for _, f := range allFilters {
		if normalized == string(f) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown status filter %q (want one of %s)", input, strings.Join(FilterStrings(), ", "))
}
