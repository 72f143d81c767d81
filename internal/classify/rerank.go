package classify

import (
	"strings"

	"github.com/verdantlabs/factormatch/internal/model"
	"github.com/verdantlabs/factormatch/internal/normalize"
	"github.com/verdantlabs/factormatch/internal/units"
)

// Weights blending retrieval similarity with category fit.
const (
	similarityWeight = 0.6
	categoryWeight   = 0.4
)

// FitScore measures how well a factor matches a category profile,
// in [0, 1]. Tag overlap weighs 0.4, unit-pattern overlap 0.3 and
// keyword overlap 0.3; factors with a "valide" status earn an extra
// 0.1 added to both numerator and denominator.
func FitScore(factor *model.FactorRecord, profile *model.CategoryProfile) float64 {
	if profile == nil {
		return 0.0
	}

	score := 0.0
	weightsSum := 0.0

	weightsSum += 0.4
	if factor.TagsFR != "" {
		tags := normalize.Fold(factor.TagsFR)
		for _, tag := range profile.Tags {
			if strings.Contains(tags, normalize.Fold(tag)) {
				score += 0.4
				break
			}
		}
	}

	weightsSum += 0.3
	if factor.UnitFR != "" {
		unit := units.Normalize(factor.UnitFR)
		for _, pattern := range profile.UnitPatterns {
			if strings.Contains(unit, units.Normalize(pattern)) {
				score += 0.3
				break
			}
		}
	}

	weightsSum += 0.3
	searchable := strings.Join([]string{factor.NameFR, factor.NameEN, factor.Category}, " ")
	if strings.TrimSpace(searchable) != "" {
		folded := normalize.Fold(searchable)
		for _, keyword := range profile.Keywords {
			if strings.Contains(folded, normalize.Fold(keyword)) {
				score += 0.3
				break
			}
		}
	}

	if strings.Contains(strings.ToLower(factor.Status), "valide") {
		score += 0.1
		weightsSum += 0.1
	}

	if weightsSum == 0 {
		return 0.0
	}
	fit := score / weightsSum
	if fit > 1.0 {
		fit = 1.0
	}
	return fit
}

// Rerank recombines each candidate's retrieval similarity with its
// category fit and re-sorts descending by the combined score. When the
// category is empty or unknown, candidates pass through unchanged.
func (c *Classifier) Rerank(candidates []model.MatchCandidate, category string) []model.MatchCandidate {
	profile := c.Profile(category)
	if category == "" || profile == nil {
		return candidates
	}

	reranked := make(model.Candidates, 0, len(candidates))
	for _, candidate := range candidates {
		fit := FitScore(&candidate.Factor, profile)
		reranked = append(reranked, model.MatchCandidate{
			Factor: candidate.Factor,
			Score:  candidate.Score*similarityWeight + fit*categoryWeight,
		})
	}
	reranked.Sort()
	return reranked
}
