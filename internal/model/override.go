package model

// AlternateCandidate is one runner-up suggested by an advisor, with the
// reason it was considered.
type AlternateCandidate struct {
	RowIndex int
	Reason   string
}

// DecisionOverride is an externally supplied advisory result that can
// override the default selection and unit-inference heuristics. A nil
// override leaves every heuristic in place.
type DecisionOverride struct {
	SelectedRowIndex *int
	ReviewRequired   bool
	Rationale        string
	Notes            string
	DetectedScope    string
	ActivityValue    *float64
	ActivityUnit     string
	ConversionRatio  *float64
	Alternates       []AlternateCandidate
	BlockingErrors   []string
}

// HasBlockingErrors reports whether the advisor flagged conditions that
// invalidate its own decision.
func (o *DecisionOverride) HasBlockingErrors() bool {
	return o != nil && len(o.BlockingErrors) > 0
}
