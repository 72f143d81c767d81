// Package engine orchestrates the invoice-to-factor mapping pipeline.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/verdantlabs/factormatch/internal/calc"
	"github.com/verdantlabs/factormatch/internal/classify"
	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/match"
	"github.com/verdantlabs/factormatch/internal/model"
	"github.com/verdantlabs/factormatch/internal/normalize"
	"github.com/verdantlabs/factormatch/internal/service"
)

// MappingEngine runs each invoice through search, disambiguation, unit
// reconciliation and emission calculation, and hands the decisions to the
// result writer in input order.
type MappingEngine struct {
	source     service.CandidateSource
	fallback   service.CandidateSource
	selector   *match.Selector
	classifier *classify.Classifier
	advisor    service.Advisor
	rates      service.RateSource
	writer     service.ResultWriter
	topK       int
	budget     int
	progress   bool
}

// Dependencies collects the services the engine drives. Source, selector
// and writer are required; the rest degrade gracefully when nil.
type Dependencies struct {
	Source     service.CandidateSource
	Fallback   service.CandidateSource
	Selector   *match.Selector
	Classifier *classify.Classifier
	Advisor    service.Advisor
	Rates      service.RateSource
	Writer     service.ResultWriter
}

// Config holds configuration options for the mapping engine.
type Config struct {
	// TopK is how many candidates each search returns.
	TopK int
	// AdvisorFailureBudget is the number of distinct advisor failure
	// messages tolerated before advisor assistance is disabled for the
	// remainder of the batch.
	AdvisorFailureBudget int
	// ShowProgress renders a terminal progress bar during the batch.
	ShowProgress bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TopK:                 5,
		AdvisorFailureBudget: 5,
	}
}

// New creates a mapping engine with the default configuration.
func New(deps Dependencies) *MappingEngine {
	return NewWithConfig(deps, DefaultConfig())
}

// NewWithConfig creates a mapping engine with custom configuration.
func NewWithConfig(deps Dependencies, config Config) *MappingEngine {
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if config.AdvisorFailureBudget <= 0 {
		config.AdvisorFailureBudget = 5
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = classify.New()
	}
	return &MappingEngine{
		source:     deps.Source,
		fallback:   deps.Fallback,
		selector:   deps.Selector,
		classifier: classifier,
		advisor:    deps.Advisor,
		rates:      deps.Rates,
		writer:     deps.Writer,
		topK:       config.TopK,
		budget:     config.AdvisorFailureBudget,
		progress:   config.ShowProgress,
	}
}

// Run maps every invoice in the batch. Invoices that cannot be mapped are
// skipped with a warning; the batch fails only when nothing was processed.
func (e *MappingEngine) Run(ctx context.Context, invoices []model.InvoiceRecord) (*service.BatchSummary, error) {
	summary := &service.BatchSummary{
		StartedAt:     time.Now(),
		TotalInvoices: len(invoices),
	}

	if len(invoices) == 0 {
		return summary, common.ErrNoInvoices
	}

	slog.Info("Starting mapping batch", "invoices", len(invoices))

	var bar *progressbar.ProgressBar
	if e.progress {
		bar = progressbar.NewOptions(len(invoices),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Mapping invoices..."),
		)
	}

	advisorDisabled := false
	seenFailures := make(map[string]struct{})

	for i := range invoices {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		invoice := invoices[i]
		result, advisorFailure, err := e.process(ctx, invoice, advisorDisabled)

		if advisorFailure != "" {
			if _, seen := seenFailures[advisorFailure]; !seen {
				seenFailures[advisorFailure] = struct{}{}
				summary.AdvisorErrors++
				slog.Warn("Advisor call failed", "invoice", invoice.SourceFile, "error", advisorFailure)
				if len(seenFailures) >= e.budget && !advisorDisabled {
					slog.Warn("Too many advisor failures; disabling assistance for remaining invoices")
					advisorDisabled = true
				}
			}
		}

		if err != nil {
			slog.Warn("Failed to process invoice",
				"invoice", invoice.SourceFile,
				"type", invoice.InvoiceType,
				"error", err)
			summary.Skipped++
			if bar != nil {
				_ = bar.Add(1)
			}
			continue
		}

		if writeErr := e.writer.Append(result); writeErr != nil {
			return summary, fmt.Errorf("failed to record result for %s: %w", invoice.SourceFile, writeErr)
		}

		summary.Processed++
		if result.StrictMatch {
			summary.StrictMatches++
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if summary.Processed == 0 {
		return summary, fmt.Errorf("%w: no invoices could be mapped", common.ErrEmptyBatch)
	}

	if err := e.writer.Flush(); err != nil {
		return summary, fmt.Errorf("failed to flush results: %w", err)
	}

	summary.CompletedAt = time.Now()
	slog.Info("Mapping batch completed",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"strict_matches", summary.StrictMatches)
	return summary, nil
}

// process maps one invoice. The returned advisorFailure is a non-empty
// message when the advisor call failed; the mapping itself still proceeds
// on the ranked candidates.
func (e *MappingEngine) process(ctx context.Context, invoice model.InvoiceRecord, advisorDisabled bool) (*model.MappingResult, string, error) {
	var candidates []model.MatchCandidate
	var category string
	strictMatch := false

	strict, err := e.selector.FindStrict(ctx, invoice)
	if err != nil {
		return nil, "", fmt.Errorf("strict lookup failed: %w", err)
	}

	if strict != nil {
		slog.Info("Strict match",
			"invoice_type", invoice.InvoiceType,
			"factor", strict.Factor.NameFR)
		candidates = []model.MatchCandidate{*strict}
		strictMatch = true
	} else {
		category = e.classifier.Detect(invoice)
		if category != "" {
			slog.Debug("Detected category", "category", category, "invoice_type", invoice.InvoiceType)
		}

		query := e.buildQuery(invoice, category)
		candidates = e.searchWithFallback(ctx, query)
		if len(candidates) == 0 {
			return nil, "", fmt.Errorf("%w for %q", common.ErrNoCandidates, invoice.InvoiceType)
		}

		if category != "" {
			candidates = e.classifier.Rerank(candidates, category)
			if top := model.Candidates(candidates).Top(); top != nil {
				slog.Info("Category reranking applied",
					"top_candidate", top.Factor.NameFR,
					"score", top.Score)
			}
		}
	}

	var override *model.DecisionOverride
	advisorFailure := ""
	if e.advisor != nil && !advisorDisabled {
		decision, advErr := e.advisor.Decide(ctx, invoice, candidates)
		switch {
		case advErr != nil:
			advisorFailure = advErr.Error()
		case decision.HasBlockingErrors():
			// The decision still applies, but the reported conditions
			// count toward the failure budget.
			advisorFailure = strings.Join(decision.BlockingErrors, "; ")
			override = decision
		default:
			override = decision
		}
	}

	selected, err := match.Choose(candidates, override)
	if err != nil {
		return nil, advisorFailure, err
	}

	activity := calc.SummarizeActivity(invoice, &selected.Factor, override)
	emissions := calc.Emissions(activity.Value, selected.Factor.Total, activity.Ratio)

	var rate *model.RateQuote
	if e.rates != nil {
		quote, rateErr := e.rates.Rate(ctx, invoice.Date, invoice.Unit)
		if rateErr != nil {
			slog.Warn("Rate lookup failed", "currency", invoice.Unit, "date", invoice.Date, "error", rateErr)
		} else {
			rate = quote
		}
	}

	scope := calc.DefaultScope(invoice)
	if override != nil && override.DetectedScope != "" {
		scope = override.DetectedScope
	}

	review := match.ReviewRequired(selected, override)
	if activity.UnitMismatch {
		review = true
	}

	result := &model.MappingResult{
		Invoice:          invoice,
		Selected:         selected,
		Candidates:       candidates,
		ReviewRequired:   review,
		ActivityValue:    activity.Value,
		ActivityUnit:     activity.Unit,
		ConversionRatio:  activity.Ratio,
		Emissions:        emissions,
		ActivityNotes:    activity.Notes,
		Rate:             rate,
		Scope:            scope,
		DetectedCategory: category,
		StrictMatch:      strictMatch,
	}
	if override != nil {
		result.AdvisorRationale = override.Rationale
		result.AdvisorNotes = override.Notes
		result.Alternates = override.Alternates
	}
	return result, advisorFailure, nil
}

// buildQuery enriches the invoice query with the detected category's top
// keywords so the search leans toward that family of factors.
func (e *MappingEngine) buildQuery(invoice model.InvoiceRecord, category string) string {
	query := normalize.BuildSearchQuery(invoice)
	if category == "" {
		return query
	}
	profile := e.classifier.Profile(category)
	if profile == nil || len(profile.Keywords) == 0 {
		return query
	}
	keywords := profile.Keywords
	if len(keywords) > 3 {
		keywords = keywords[:3]
	}
	return fmt.Sprintf("%s; catégorie détectée: %s", query, strings.Join(keywords, " "))
}

func (e *MappingEngine) searchWithFallback(ctx context.Context, query string) []model.MatchCandidate {
	candidates, err := e.source.Search(ctx, query, e.topK)
	if err != nil {
		slog.Warn("Candidate search failed; falling back to keyword search", "error", err)
		candidates = nil
	}
	if len(candidates) == 0 && e.fallback != nil {
		fallback, fbErr := e.fallback.Search(ctx, query, e.topK)
		if fbErr != nil {
			slog.Warn("Keyword fallback failed", "error", fbErr)
			return nil
		}
		candidates = fallback
	}
	return candidates
}
