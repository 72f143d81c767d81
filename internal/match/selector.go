package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/model"
	"github.com/verdantlabs/factormatch/internal/service"
)

// Priorities assigned to strict-mapping hits. Exact name matches always
// outrank partial ones, regardless of the order results arrive in.
const (
	strictExactScore   = 1.0
	strictPartialScore = 0.99
)

// strictSearchTop is how many results a strict-mapping search examines
// when hunting for the exact catalogue name.
const strictSearchTop = 10

// Selector picks one candidate per invoice using the strict table first
// and heuristics second.
type Selector struct {
	source service.CandidateSource
	table  StrictTable
}

// NewSelector creates a Selector searching strict targets via source.
func NewSelector(source service.CandidateSource, table StrictTable) *Selector {
	return &Selector{source: source, table: table}
}

// FindStrict resolves the invoice through the strict-mapping table.
// It returns nil when the invoice type is unmapped or the mapped factor
// name cannot be found in the catalogue.
func (s *Selector) FindStrict(ctx context.Context, invoice model.InvoiceRecord) (*model.MatchCandidate, error) {
	target, ok := s.table.Lookup(invoice.InvoiceType)
	if !ok {
		return nil, nil
	}

	results, err := s.source.Search(ctx, target, strictSearchTop)
	if err != nil {
		return nil, fmt.Errorf("strict mapping search for %q failed: %w", target, err)
	}

	// Exact name match wins outright, before any partial is considered.
	for i := range results {
		if results[i].Factor.NameFR == target {
			return &model.MatchCandidate{Factor: results[i].Factor, Score: strictExactScore}, nil
		}
	}
	for i := range results {
		if strings.Contains(results[i].Factor.NameFR, target) ||
			strings.Contains(results[i].Factor.NameEN, target) {
			return &model.MatchCandidate{Factor: results[i].Factor, Score: strictPartialScore}, nil
		}
	}
	return nil, nil
}

// Choose selects one candidate from a ranked list. An override pin wins
// when present among candidates; otherwise the first candidate whose
// status contains "valide" is preferred, falling back to ranked order.
// Choosing from an empty list is a hard error.
func Choose(candidates []model.MatchCandidate, override *model.DecisionOverride) (model.MatchCandidate, error) {
	if len(candidates) == 0 {
		return model.MatchCandidate{}, common.ErrNoCandidates
	}

	if override != nil && override.SelectedRowIndex != nil {
		if pinned := model.Candidates(candidates).ByRowIndex(*override.SelectedRowIndex); pinned != nil {
			return *pinned, nil
		}
	}

	for _, candidate := range candidates {
		if strings.Contains(strings.ToLower(candidate.Factor.Status), "valide") {
			return candidate, nil
		}
	}
	return candidates[0], nil
}

// ReviewRequired reports whether the selection needs human confirmation.
// The conditions are independent and OR-combined.
func ReviewRequired(selected model.MatchCandidate, override *model.DecisionOverride) bool {
	if override != nil {
		if override.ReviewRequired || len(override.Alternates) > 0 {
			return true
		}
	}
	return selected.Factor.Total == nil
}
