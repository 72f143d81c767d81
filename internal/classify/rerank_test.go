package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/factormatch/internal/model"
)

func TestFitScore(t *testing.T) {
	classifier := New()
	airProfile := classifier.Profile("transportation_air")
	require.NotNil(t, airProfile)

	tests := []struct {
		name    string
		factor  model.FactorRecord
		profile *model.CategoryProfile
		want    float64
	}{
		{
			name: "full match with valid status",
			factor: model.FactorRecord{
				TagsFR: "transport, aérien, passager",
				UnitFR: "kgCO2e/passager.km",
				NameFR: "Avion passagers court-courrier",
				Status: "Valide générique",
			},
			profile: airProfile,
			want:    1.0,
		},
		{
			name: "tags only",
			factor: model.FactorRecord{
				TagsFR: "transport routier",
			},
			profile: airProfile,
			want:    0.4,
		},
		{
			name: "valid status only",
			factor: model.FactorRecord{
				Status: "Valide spécifique",
			},
			profile: airProfile,
			want:    0.1 / 1.1,
		},
		{
			name:    "empty factor",
			factor:  model.FactorRecord{},
			profile: airProfile,
			want:    0.0,
		},
		{
			name:    "nil profile",
			factor:  model.FactorRecord{TagsFR: "transport"},
			profile: nil,
			want:    0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factor := tt.factor
			assert.InDelta(t, tt.want, FitScore(&factor, tt.profile), 1e-9)
		})
	}
}

func TestRerank(t *testing.T) {
	classifier := New()

	strongFit := model.FactorRecord{
		RowIndex: 1,
		TagsFR:   "transport, aérien",
		UnitFR:   "kgCO2e/passager.km",
		NameFR:   "Avion passagers",
		Status:   "Valide générique",
	}
	noFit := model.FactorRecord{
		RowIndex: 2,
	}

	candidates := []model.MatchCandidate{
		{Factor: noFit, Score: 0.9},
		{Factor: strongFit, Score: 0.5},
	}

	reranked := classifier.Rerank(candidates, "transportation_air")
	require.Len(t, reranked, 2)

	// noFit combined: 0.9*0.6 + 0.0*0.4 = 0.54
	// strongFit combined: 0.5*0.6 + 1.0*0.4 = 0.70
	assert.Equal(t, 1, reranked[0].Factor.RowIndex)
	assert.InDelta(t, 0.70, reranked[0].Score, 1e-9)
	assert.Equal(t, 2, reranked[1].Factor.RowIndex)
	assert.InDelta(t, 0.54, reranked[1].Score, 1e-9)
}

func TestRerankPassthroughWithoutCategory(t *testing.T) {
	classifier := New()

	candidates := []model.MatchCandidate{
		{Factor: model.FactorRecord{RowIndex: 7}, Score: 0.2},
		{Factor: model.FactorRecord{RowIndex: 8}, Score: 0.9},
	}

	got := classifier.Rerank(candidates, "")
	assert.Equal(t, candidates, got)

	got = classifier.Rerank(candidates, "no_such_category")
	assert.Equal(t, candidates, got)
}
