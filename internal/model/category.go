package model

// CategoryProfile is one static taxonomy entry used for invoice
// classification and candidate reranking. Profiles are loaded once at
// process start and read-only for the lifetime of the process.
type CategoryProfile struct {
	Name          string
	Keywords      []string
	Tags          []string
	PreferredUnit string
	UnitPatterns  []string
}
