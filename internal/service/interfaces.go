// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/verdantlabs/factormatch/internal/model"
)

// CandidateSource returns ranked factor candidates for a free-text query.
// Implementations may be backed by vector search, keyword search, or a
// hybrid pipeline; callers treat the ranking as opaque.
type CandidateSource interface {
	Search(ctx context.Context, query string, topK int) ([]model.MatchCandidate, error)
}

// Advisor optionally reviews an invoice and its candidates and returns an
// override for the default selection heuristics. A nil override with a nil
// error means the advisor has no opinion.
type Advisor interface {
	Decide(ctx context.Context, invoice model.InvoiceRecord, candidates []model.MatchCandidate) (*model.DecisionOverride, error)
}

// RateSource resolves a currency exchange rate into EUR for a given date.
// A nil quote with a nil error means the rate is unknown.
type RateSource interface {
	Rate(ctx context.Context, date, currency string) (*model.RateQuote, error)
}

// ResultWriter receives one MappingResult per processed invoice, in input
// order, and persists the batch on Flush.
type ResultWriter interface {
	Append(result *model.MappingResult) error
	Flush() error
}

// FactorStore persists the factor catalogue and the strict-mapping table.
type FactorStore interface {
	SaveFactors(ctx context.Context, factors []model.FactorRecord) error
	GetFactor(ctx context.Context, rowIndex int) (*model.FactorRecord, error)
	SearchKeyword(ctx context.Context, query string, topK int) ([]model.MatchCandidate, error)
	SaveStrictMappings(ctx context.Context, mappings map[string]string) error
	StrictMappings(ctx context.Context) (map[string]string, error)
	FactorCount(ctx context.Context) (int, error)
	Close() error
}

// RetryOptions configures retry behavior for service operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// BatchSummary reports the outcome of one mapping batch.
type BatchSummary struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	TotalInvoices int
	Processed     int
	Skipped       int
	StrictMatches int
	AdvisorErrors int
}
