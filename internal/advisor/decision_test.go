package advisor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/model"
)

func TestParseDecision(t *testing.T) {
	output := `{
		"selected_row_index": 42,
		"review_required": true,
		"rationale": "only candidate with an activity denominator",
		"notes": "invoice currency is EUR",
		"detected_scope": "Scope 3, category 6: Business travel",
		"inferred_activity_value": 350.5,
		"inferred_unit": "passenger.km",
		"conversion_ratio": 0.001,
		"alternate_candidates": [
			{"row_index": 43, "reason": "broader category"},
			{"row_index": 44, "reason": "older publication"}
		],
		"blocking_errors": []
	}`

	override, err := parseDecision(output)
	require.NoError(t, err)

	require.NotNil(t, override.SelectedRowIndex)
	assert.Equal(t, 42, *override.SelectedRowIndex)
	assert.True(t, override.ReviewRequired)
	assert.Equal(t, "only candidate with an activity denominator", override.Rationale)
	assert.Equal(t, "invoice currency is EUR", override.Notes)
	assert.Equal(t, model.ScopeBusinessTravel, override.DetectedScope)
	require.NotNil(t, override.ActivityValue)
	assert.InDelta(t, 350.5, *override.ActivityValue, 0.0001)
	assert.Equal(t, "passenger.km", override.ActivityUnit)
	require.NotNil(t, override.ConversionRatio)
	assert.InDelta(t, 0.001, *override.ConversionRatio, 0.0000001)
	require.Len(t, override.Alternates, 2)
	assert.Equal(t, 43, override.Alternates[0].RowIndex)
	assert.Equal(t, "broader category", override.Alternates[0].Reason)
	assert.False(t, override.HasBlockingErrors())
}

func TestParseDecisionFenced(t *testing.T) {
	output := "```json\n{\"selected_row_index\": null, \"review_required\": false, \"rationale\": \"keep ranked order\"}\n```"

	override, err := parseDecision(output)
	require.NoError(t, err)

	assert.Nil(t, override.SelectedRowIndex)
	assert.False(t, override.ReviewRequired)
	assert.Equal(t, "keep ranked order", override.Rationale)
	assert.Empty(t, override.Alternates)
}

func TestParseDecisionBlockingErrors(t *testing.T) {
	output := `{"review_required": true, "blocking_errors": ["factor list is stale", "invoice date missing"]}`

	override, err := parseDecision(output)
	require.NoError(t, err)

	assert.True(t, override.HasBlockingErrors())
	assert.Len(t, override.BlockingErrors, 2)
}

func TestParseDecisionBadPayload(t *testing.T) {
	_, err := parseDecision("no structured output here")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAdvisorBadPayload)
}

func TestBuildPayload(t *testing.T) {
	activity := 1389.96
	total := 75.0

	invoice := model.InvoiceRecord{
		SourceFile:   "invoice_001.pdf",
		InvoiceType:  "billet d'avion",
		ActivityData: &activity,
		Unit:         "EUR",
		Date:         "2024-03-12",
	}
	candidates := []model.MatchCandidate{
		{
			Factor: model.FactorRecord{
				RowIndex: 7,
				NameFR:   "Avion passagers",
				Status:   "valide",
				UnitFR:   "kgCO2e/passager.km",
				Total:    &total,
				ExtraGases: []model.GasValue{
					{Code: "CO2b", Value: &total},
					{Code: ""},
				},
			},
			Score: 0.91,
		},
	}

	payload, err := buildPayload(invoice, candidates)
	require.NoError(t, err)

	var parsed struct {
		Invoice struct {
			SourceFile  string   `json:"source_file"`
			InvoiceType string   `json:"invoice_type"`
			Description string   `json:"description"`
			Activity    *float64 `json:"activity_data"`
		} `json:"invoice"`
		Candidates []struct {
			RowIndex       int          `json:"row_index"`
			NameFR         string       `json:"name_fr"`
			Similarity     float64      `json:"similarity"`
			ActivityFactor bool         `json:"is_activity_factor"`
			ExtraGases     []gasPayload `json:"extra_gases"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(payload, &parsed))

	assert.Equal(t, "invoice_001.pdf", parsed.Invoice.SourceFile)
	assert.Contains(t, parsed.Invoice.Description, "invoice_type: billet d'avion")
	assert.Contains(t, parsed.Invoice.Description, "activity: 1389.96 EUR")
	require.NotNil(t, parsed.Invoice.Activity)
	assert.InDelta(t, 1389.96, *parsed.Invoice.Activity, 0.0001)

	require.Len(t, parsed.Candidates, 1)
	assert.Equal(t, 7, parsed.Candidates[0].RowIndex)
	assert.Equal(t, "Avion passagers", parsed.Candidates[0].NameFR)
	assert.InDelta(t, 0.91, parsed.Candidates[0].Similarity, 0.0001)
	assert.True(t, parsed.Candidates[0].ActivityFactor)
	// Gas values without a code are dropped.
	assert.Len(t, parsed.Candidates[0].ExtraGases, 1)
}
