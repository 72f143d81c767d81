package model

// Scope labels for the two-valued emission scope taxonomy.
const (
	ScopeBusinessTravel = "Scope 3, category 6: Business travel"
	ScopePurchasedGoods = "Scope 3, category 1: Purchased goods and services"
)

// RateQuote is one resolved currency exchange rate with its provenance.
type RateQuote struct {
	Rate     float64
	Currency string
	Source   string
	URL      string
}

// MappingResult is the final decision record for one invoice. It is
// created once by the engine, handed to the writer, and never mutated.
type MappingResult struct {
	Invoice          InvoiceRecord
	Selected         MatchCandidate
	Candidates       []MatchCandidate
	ReviewRequired   bool
	ActivityValue    *float64
	ActivityUnit     string
	ConversionRatio  float64
	Emissions        *float64 // kgCO2e, nil when activity or factor value is missing
	ActivityNotes    string
	Rate             *RateQuote
	Scope            string
	DetectedCategory string
	StrictMatch      bool
	AdvisorRationale string
	AdvisorNotes     string
	Alternates       []AlternateCandidate
}
