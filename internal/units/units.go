// Package units normalizes unit text and reconciles invoice activity
// units against factor denominator units.
package units

import (
	"fmt"
	"strings"
)

// Occurrence is the placeholder unit assigned when an invoice carries no
// usable activity unit.
const Occurrence = "occurrence"

// Normalize canonicalizes free-form unit text: trims, lower-cases,
// extracts a parenthesized inner token if present ("Euro (€)" -> "€"),
// removes spaces and hyphens, and folds currency spellings into one
// token family. Normalize is idempotent.
func Normalize(value string) string {
	text := strings.ToLower(strings.TrimSpace(value))
	if text == "" {
		return ""
	}
	if open := strings.Index(text, "("); open != -1 {
		if closing := strings.Index(text[open+1:], ")"); closing != -1 {
			inner := strings.TrimSpace(text[open+1 : open+1+closing])
			if inner != "" {
				text = inner
			}
		}
	}
	text = strings.ReplaceAll(text, " ", "")
	text = strings.ReplaceAll(text, "-", "")
	text = strings.ReplaceAll(text, "€", "eur")
	text = strings.ReplaceAll(text, "euro", "eur")
	text = strings.ReplaceAll(text, "keur", "keuro")
	return text
}

// member reports whether token is one of the given candidates.
func member(token string, candidates ...string) bool {
	for _, c := range candidates {
		if token == c {
			return true
		}
	}
	return false
}

// Conversion is the outcome of reconciling an invoice activity unit
// against a factor denominator unit. Mismatch is set when no conversion
// was found and the ratio is a 1.0 placeholder.
type Conversion struct {
	Ratio    float64
	Note     string
	Mismatch bool
}

// Reconcile computes the conversion ratio between an invoice activity
// unit and a factor denominator unit. It never fails: when no conversion
// is known the ratio defaults to 1.0 and the mismatch is surfaced in the
// note for downstream review.
func Reconcile(invoiceUnit, factorDenom string) Conversion {
	if invoiceUnit == "" || factorDenom == "" {
		return Conversion{Ratio: 1.0}
	}

	invoice := Normalize(invoiceUnit)
	factor := Normalize(factorDenom)

	if invoice == factor {
		return Conversion{Ratio: 1.0}
	}

	// Currency
	if member(factor, "keuro", "keur") {
		if member(invoice, "eur") {
			return Conversion{Ratio: 0.001, Note: "Converted from EUR to kEUR"}
		}
		if member(invoice, "cent", "cents", "centime") {
			return Conversion{Ratio: 0.00001, Note: "Converted from cents to kEUR"}
		}
	}

	// Distance
	if member(factor, "km", "kilometre", "kilometer") {
		if member(invoice, "m", "metre", "meter") {
			return Conversion{Ratio: 0.001, Note: "Converted from meters to km"}
		}
		if member(invoice, "mile", "miles", "mi") {
			return Conversion{Ratio: 1.60934, Note: "Converted from miles to km"}
		}
	}

	// Passenger-distance units match only within the same family.
	if containsAny(factor, "passager", "passenger") && containsAny(invoice, "passager", "passenger") {
		if strings.Contains(factor, "km") && strings.Contains(invoice, "km") {
			return Conversion{Ratio: 1.0}
		}
		if strings.Contains(factor, "km") && strings.Contains(invoice, "m") {
			return Conversion{Ratio: 0.001, Note: "Converted from passenger-m to passenger-km"}
		}
	}

	// Mass
	if member(factor, "kg", "kilogram") {
		if member(invoice, "g", "gram", "gramme") {
			return Conversion{Ratio: 0.001, Note: "Converted from grams to kg"}
		}
		if member(invoice, "t", "ton", "tonne", "tonnes") {
			return Conversion{Ratio: 1000.0, Note: "Converted from tonnes to kg"}
		}
	}

	// Energy
	if member(factor, "kwh", "kilowattheure") {
		if member(invoice, "wh", "wattheure") {
			return Conversion{Ratio: 0.001, Note: "Converted from Wh to kWh"}
		}
		if member(invoice, "mwh", "megawattheure") {
			return Conversion{Ratio: 1000.0, Note: "Converted from MWh to kWh"}
		}
	}

	// Night-based units match only within the same family.
	if containsAny(factor, "nuitee", "night") && containsAny(invoice, "nuitee", "night") {
		return Conversion{Ratio: 1.0}
	}

	// Heuristic safety valve: substring containment of sufficiently long
	// unit names is treated as an approximate match, not a guarantee.
	if strings.Contains(factor, invoice) || strings.Contains(invoice, factor) {
		if len(invoice) > 3 && len(factor) > 3 {
			return Conversion{Ratio: 1.0, Note: fmt.Sprintf("Unit match (partial): %s ~ %s", invoiceUnit, factorDenom)}
		}
	}

	return Conversion{
		Ratio:    1.0,
		Note:     fmt.Sprintf("Unit mismatch: invoice=%s, factor=%s", invoiceUnit, factorDenom),
		Mismatch: true,
	}
}

func containsAny(text string, tokens ...string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

// labelMappings translates raw unit spellings into the canonical labels
// used in mapping output. Order matters: longer keys are listed before
// their substrings because matching also accepts suffixes.
var labelMappings = []struct {
	key   string
	label string
}{
	{"passager.km", "passenger.km"},
	{"passenger.km", "passenger.km"},
	{"pax.km", "passenger.km"},
	{"keuro", "kEUR"},
	{"k€", "kEUR"},
	{"euro", "EUR"},
	{"eur", "EUR"},
	{"€", "EUR"},
	{"usd", "USD"},
	{"$", "USD"},
	{"passenger", "times"},
	{"passager", "times"},
	{"personne", "times"},
	{"person", "times"},
	{"ticket", "times"},
	{"pax", "times"},
	{"kilometer", "km"},
	{"kilometre", "km"},
	{"km", "km"},
	{"nights", "guest night"},
	{"night", "guest night"},
	{"nuitée", "guest night"},
	{"nuitee", "guest night"},
	{"jour", "day"},
	{"day", "day"},
	{"heure", "hour"},
	{"hour", "hour"},
	{"kilowattheure", "kWh"},
	{"kwh", "kWh"},
	{"mwh", "MWh"},
	{"wh", "Wh"},
	{"kilogram", "kg"},
	{"kg", "kg"},
	{"gram", "g"},
	{"g", "g"},
	{"tonne", "tonne"},
	{"ton", "tonne"},
	{"t", "tonne"},
	{"litre", "litre"},
	{"liter", "litre"},
	{"l", "litre"},
	{"m3", "m³"},
}

// InferLabel maps free-form unit text to a canonical display label.
// Unrecognized units pass through unchanged; empty input yields "".
func InferLabel(value string) string {
	token := strings.ToLower(strings.TrimSpace(value))
	if token == "" {
		return ""
	}

	for _, m := range labelMappings {
		if token == m.key || strings.HasSuffix(token, m.key) {
			return m.label
		}
	}

	if strings.Contains(token, "passager") && strings.Contains(token, "km") {
		return "passenger.km"
	}
	if strings.Contains(token, "passenger") && strings.Contains(token, "km") {
		return "passenger.km"
	}

	return value
}
