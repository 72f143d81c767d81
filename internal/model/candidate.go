package model

import "sort"

// MatchCandidate pairs a factor with a retrieval or combined score.
// Candidates are transient: recomputed per invoice, never persisted.
type MatchCandidate struct {
	Factor FactorRecord
	Score  float64
}

// Candidates is a slice of MatchCandidate with ranking helpers.
type Candidates []MatchCandidate

// Sort orders candidates by score descending. The sort is stable so that
// source ordering breaks ties, keeping selection deterministic.
func (c Candidates) Sort() {
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].Score > c[j].Score
	})
}

// Top returns the highest-scoring candidate, or nil if empty.
func (c Candidates) Top() *MatchCandidate {
	if len(c) == 0 {
		return nil
	}
	c.Sort()
	return &c[0]
}

// ByRowIndex returns the candidate with the given catalogue row index,
// or nil when no candidate matches.
func (c Candidates) ByRowIndex(rowIndex int) *MatchCandidate {
	for i := range c {
		if c[i].Factor.RowIndex == rowIndex {
			return &c[i]
		}
	}
	return nil
}
