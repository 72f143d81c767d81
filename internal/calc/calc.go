// Package calc computes emission values and resolves activity amounts
// for selected factors.
package calc

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/verdantlabs/factormatch/internal/model"
	"github.com/verdantlabs/factormatch/internal/units"
)

// precision is the fixed number of decimal places for every calculated
// or displayed value.
const precision = 3

// Round rounds a value to the output precision.
func Round(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(precision).Float64()
	return rounded
}

// RoundPtr rounds a nullable value, passing nil through.
func RoundPtr(value *float64) *float64 {
	if value == nil {
		return nil
	}
	rounded := Round(*value)
	return &rounded
}

// Emissions computes activity x factor x ratio in kgCO2e, rounded to the
// output precision. Nil activity or factor value yields nil.
func Emissions(activity, factorValue *float64, ratio float64) *float64 {
	if activity == nil || factorValue == nil {
		return nil
	}
	result, _ := decimal.NewFromFloat(*activity).
		Mul(decimal.NewFromFloat(*factorValue)).
		Mul(decimal.NewFromFloat(ratio)).
		Round(precision).
		Float64()
	return &result
}

// ActivitySummary is the resolved activity amount for one invoice,
// after override application and unit reconciliation.
type ActivitySummary struct {
	Value        *float64
	Unit         string
	Ratio        float64
	Notes        string
	UnitMismatch bool
}

// SummarizeActivity resolves the activity value, unit and conversion
// ratio for an invoice against the selected factor. When no numeric
// activity is available the value defaults to 1.0 with a generic
// occurrence unit, recorded in the notes; the mapping is still emitted
// as a low-confidence placeholder rather than failing.
func SummarizeActivity(invoice model.InvoiceRecord, factor *model.FactorRecord, override *model.DecisionOverride) ActivitySummary {
	var notes []string

	unit := units.InferLabel(invoice.Unit)
	value := invoice.ActivityScalar()

	if override != nil {
		if override.ActivityValue != nil {
			value = override.ActivityValue
		}
		if override.ActivityUnit != "" {
			unit = override.ActivityUnit
		}
	}

	if value == nil {
		notes = append(notes, "No numeric activity provided; defaulted to 1.0")
		fallback := 1.0
		value = &fallback
		if unit == "" {
			unit = units.Occurrence
		}
	}

	ratio := 1.0
	mismatch := false
	if override != nil && override.ConversionRatio != nil {
		ratio = *override.ConversionRatio
	} else {
		conversion := units.Reconcile(unit, factor.DenominatorUnit())
		ratio = conversion.Ratio
		mismatch = conversion.Mismatch
		if conversion.Note != "" {
			notes = append(notes, conversion.Note)
		}
	}

	if !factor.IsActivityBased() {
		notes = append(notes, "Selected factor is monetary or lacks activity denominator; review.")
	}

	return ActivitySummary{
		Value:        value,
		Unit:         unit,
		Ratio:        ratio,
		Notes:        strings.Join(notes, "; "),
		UnitMismatch: mismatch,
	}
}

// DefaultScope classifies the invoice into the two-valued scope
// taxonomy. Travel-related keywords take precedence.
func DefaultScope(invoice model.InvoiceRecord) string {
	mode := strings.ToLower(invoice.TransportMode)
	for _, token := range []string{"air", "flight"} {
		if strings.Contains(mode, token) {
			return model.ScopeBusinessTravel
		}
	}
	invoiceType := strings.ToLower(invoice.InvoiceType)
	for _, token := range []string{"air", "flight", "hotel", "accommodation", "travel"} {
		if strings.Contains(invoiceType, token) {
			return model.ScopeBusinessTravel
		}
	}
	return model.ScopePurchasedGoods
}
