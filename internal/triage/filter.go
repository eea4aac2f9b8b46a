package triage

import (
	"strings"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/entity"
)

// Filter returns, in input order, the providers that match both the search
// text and the status filter. The input slice is not modified.
func Filter(providers []entity.Provider, search string, status constants.StatusFilter) []entity.Provider {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]entity.Provider, 0, len(providers))
	for _, p := range providers {
		if MatchesSearch(p, needle) && MatchesStatus(p, status) {
			out = append(out, p)
		}
	}
	return out
}

// MatchesSearch does a case-insensitive substring match over name, NPI and
// specialty. needle must already be lower-cased; empty matches everything.
func MatchesSearch(p entity.Provider, needle string) bool {
	if needle == "" {
		return true
	}
	for _, field := range []*string{p.Name, p.NPI, p.Specialty} {
		if field != nil && strings.Contains(strings.ToLower(*field), needle) {
			return true
		}
	}
	return false
}

// MatchesStatus reports whether p passes the status filter. Unknown filters match nothing.
func MatchesStatus(p entity.Provider, status constants.StatusFilter) bool {
	switch status {
	case constants.FilterAll, "":
		return true
	case constants.FilterValidated:
		return p.IsValidated
	case constants.FilterReview:
		return p.NeedsReview
	case constants.FilterSuspicious:
		return p.IsSuspicious
	default:
		return false
	}
}
