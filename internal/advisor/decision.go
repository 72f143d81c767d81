package advisor

import (
	"encoding/json"
	"fmt"

	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/model"
)

// candidatePayload is one factor candidate as presented to the advisor.
type candidatePayload struct {
	Total          *float64     `json:"total_co2e"`
	CO2Fossil      *float64     `json:"co2f"`
	CH4Fossil      *float64     `json:"ch4f"`
	CH4Biogenic    *float64     `json:"ch4b"`
	N2O            *float64     `json:"n2o"`
	NameFR         string       `json:"name_fr"`
	NameEN         string       `json:"name_en"`
	Category       string       `json:"category"`
	TagsFR         string       `json:"tags_fr"`
	Status         string       `json:"status"`
	UnitFR         string       `json:"unit_fr"`
	Contributor    string       `json:"contributor"`
	Programme      string       `json:"programme"`
	Source         string       `json:"source"`
	Location       string       `json:"location"`
	ExtraGases     []gasPayload `json:"extra_gases"`
	RowIndex       int          `json:"row_index"`
	Similarity     float64      `json:"similarity"`
	ActivityFactor bool         `json:"is_activity_factor"`
}

type gasPayload struct {
	Value *float64 `json:"value"`
	Code  string   `json:"code"`
}

type invoicePayload struct {
	ActivityData       *float64 `json:"activity_data"`
	Description        string   `json:"description"`
	SourceFile         string   `json:"source_file"`
	InvoiceType        string   `json:"invoice_type"`
	Unit               string   `json:"unit"`
	Location           string   `json:"location"`
	Date               string   `json:"date"`
	DepartureCity      string   `json:"departure_city"`
	DepartureCountry   string   `json:"departure_country"`
	DestinationCity    string   `json:"destination_city"`
	DestinationCountry string   `json:"destination_country"`
	TravelClass        string   `json:"travel_class"`
	TransportMode      string   `json:"transportation_type"`
	PassengersOrNights string   `json:"passengers_or_nights"`
}

// buildPayload serializes the invoice and its candidates for the advisor.
func buildPayload(invoice model.InvoiceRecord, candidates []model.MatchCandidate) ([]byte, error) {
	blob := make([]candidatePayload, 0, len(candidates))
	for _, candidate := range candidates {
		factor := candidate.Factor
		gases := make([]gasPayload, 0, len(factor.ExtraGases))
		for _, gas := range factor.ExtraGases {
			if gas.Code == "" {
				continue
			}
			gases = append(gases, gasPayload{Code: gas.Code, Value: gas.Value})
		}
		blob = append(blob, candidatePayload{
			RowIndex:       factor.RowIndex,
			NameFR:         factor.NameFR,
			NameEN:         factor.NameEN,
			Category:       factor.Category,
			TagsFR:         factor.TagsFR,
			Status:         factor.Status,
			UnitFR:         factor.UnitFR,
			Total:          factor.Total,
			CO2Fossil:      factor.CO2Fossil,
			CH4Fossil:      factor.CH4Fossil,
			CH4Biogenic:    factor.CH4Biogenic,
			N2O:            factor.N2O,
			ExtraGases:     gases,
			Contributor:    factor.Contributor,
			Programme:      factor.Programme,
			Source:         factor.Source,
			Location:       factor.Location,
			Similarity:     candidate.Score,
			ActivityFactor: factor.IsActivityBased(),
		})
	}

	payload := struct {
		Invoice    invoicePayload     `json:"invoice"`
		Candidates []candidatePayload `json:"candidates"`
	}{
		Invoice: invoicePayload{
			Description:        invoice.Description(),
			SourceFile:         invoice.SourceFile,
			InvoiceType:        invoice.InvoiceType,
			ActivityData:       invoice.ActivityData,
			Unit:               invoice.Unit,
			Location:           invoice.Location,
			Date:               invoice.Date,
			DepartureCity:      invoice.DepartureCity,
			DepartureCountry:   invoice.DepartureCountry,
			DestinationCity:    invoice.DestinationCity,
			DestinationCountry: invoice.DestinationCountry,
			TravelClass:        invoice.TravelClass,
			TransportMode:      invoice.TransportMode,
			PassengersOrNights: invoice.PassengersOrNights,
		},
		Candidates: blob,
	}
	return json.Marshal(payload)
}

// decisionPayload is the JSON contract the advisor must answer with.
type decisionPayload struct {
	SelectedRowIndex *int               `json:"selected_row_index"`
	ActivityValue    *float64           `json:"inferred_activity_value"`
	ConversionRatio  *float64           `json:"conversion_ratio"`
	Rationale        string             `json:"rationale"`
	Notes            string             `json:"notes"`
	DetectedScope    string             `json:"detected_scope"`
	ActivityUnit     string             `json:"inferred_unit"`
	Alternates       []alternatePayload `json:"alternate_candidates"`
	BlockingErrors   []string           `json:"blocking_errors"`
	ReviewRequired   bool               `json:"review_required"`
}

type alternatePayload struct {
	RowIndex int    `json:"row_index"`
	Reason   string `json:"reason"`
}

// parseDecision turns raw advisor output into a DecisionOverride.
func parseDecision(output string) (*model.DecisionOverride, error) {
	raw, ok := ExtractJSON(output)
	if !ok {
		snippet := output
		if len(snippet) > 120 {
			snippet = snippet[:120]
		}
		return nil, fmt.Errorf("%w: %q", common.ErrAdvisorBadPayload, snippet)
	}

	var payload decisionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAdvisorBadPayload, err)
	}

	alternates := make([]model.AlternateCandidate, 0, len(payload.Alternates))
	for _, alt := range payload.Alternates {
		alternates = append(alternates, model.AlternateCandidate{
			RowIndex: alt.RowIndex,
			Reason:   alt.Reason,
		})
	}

	return &model.DecisionOverride{
		SelectedRowIndex: payload.SelectedRowIndex,
		ReviewRequired:   payload.ReviewRequired,
		Rationale:        payload.Rationale,
		Notes:            payload.Notes,
		DetectedScope:    payload.DetectedScope,
		ActivityValue:    payload.ActivityValue,
		ActivityUnit:     payload.ActivityUnit,
		ConversionRatio:  payload.ConversionRatio,
		Alternates:       alternates,
		BlockingErrors:   payload.BlockingErrors,
	}, nil
}
