// Package classify scores invoices against a static category taxonomy
// and reranks factor candidates by category fit.
package classify

import (
	"strings"

	"github.com/verdantlabs/factormatch/internal/model"
	"github.com/verdantlabs/factormatch/internal/normalize"
)

// Classifier detects the best-matching category for an invoice.
// Construct once; safe for concurrent use.
type Classifier struct {
	profiles []model.CategoryProfile
}

// New creates a Classifier with the built-in taxonomy.
func New() *Classifier {
	return NewWithProfiles(DefaultProfiles())
}

// NewWithProfiles creates a Classifier over the given taxonomy.
func NewWithProfiles(profiles []model.CategoryProfile) *Classifier {
	return &Classifier{profiles: profiles}
}

// Profile returns the named profile, or nil when unknown.
func (c *Classifier) Profile(name string) *model.CategoryProfile {
	for i := range c.profiles {
		if c.profiles[i].Name == name {
			return &c.profiles[i]
		}
	}
	return nil
}

// Detect returns the name of the highest-scoring category for the
// invoice, or "" when no profile scores above zero. Keyword substring
// matches score 2 points, individual keyword tokens longer than two
// characters score 1. Ties resolve to the first profile in taxonomy
// order; that tie-break is deliberate and load-bearing for determinism.
func (c *Classifier) Detect(invoice model.InvoiceRecord) string {
	var fields []string
	for _, value := range []string{invoice.InvoiceType, invoice.TransportMode, invoice.Location} {
		if value != "" {
			fields = append(fields, value)
		}
	}
	if len(fields) == 0 {
		return ""
	}

	normalized := normalize.Fold(strings.Join(fields, " "))

	best := ""
	bestScore := 0
	for _, profile := range c.profiles {
		score := 0
		for _, keyword := range profile.Keywords {
			folded := normalize.Fold(keyword)
			if strings.Contains(normalized, folded) {
				score += 2
			}
			for _, token := range strings.Fields(folded) {
				if len(token) > 2 && strings.Contains(normalized, token) {
					score++
				}
			}
		}
		if score > bestScore {
			best = profile.Name
			bestScore = score
		}
	}
	return best
}
