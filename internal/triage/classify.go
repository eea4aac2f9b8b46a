package triage

import (
	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/entity"
)

// Badge is a reviewer-facing status marker.
type Badge string

const (
	BadgeValidated   Badge = "validated"
	BadgeNeedsReview Badge = "needs_review"
	BadgeSuspicious  Badge = "suspicious"
)

var badgeLabels = map[Badge]string{
	BadgeValidated:   "Validated",
	BadgeNeedsReview: "Needs Review",
	BadgeSuspicious:  "Suspicious",
}

func (b Badge) Label() string {
	if l, ok := badgeLabels[b]; ok {
		return l
	}
	return string(b)
}

// Classification is the presentation of a provider's backend flags.
type Classification struct {
	Badges          []Badge
	DefaultTemplate constants.TemplateKind
}

// Classify maps the backend flags to badges in a fixed order. Confidence
// numbers are displayed elsewhere and never influence the badges.
func Classify(p entity.Provider) Classification {
	badges := make([]Badge, 0, 3)
	if p.IsValidated {
		badges = append(badges, BadgeValidated)
	}
	if p.NeedsReview {
		badges = append(badges, BadgeNeedsReview)
	}
	if p.IsSuspicious {
		badges = append(badges, BadgeSuspicious)
	}
	return Classification{Badges: badges, DefaultTemplate: constants.DefaultTemplate}
}

// Labels returns the badge labels in order.
func (c Classification) Labels() []string {
	out := make([]string, len(c.Badges))
	for i, b := range c.Badges {
		out[i] = b.Label()
	}
	return out
}
