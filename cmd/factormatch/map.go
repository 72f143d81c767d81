package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/verdantlabs/factormatch/internal/advisor"
	"github.com/verdantlabs/factormatch/internal/catalog"
	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/engine"
	"github.com/verdantlabs/factormatch/internal/export"
	"github.com/verdantlabs/factormatch/internal/match"
	"github.com/verdantlabs/factormatch/internal/rates"
	"github.com/verdantlabs/factormatch/internal/service"
	"github.com/verdantlabs/factormatch/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map an invoice batch to emission factors",
		Long: `Map every invoice line in a workbook to an emission factor, compute
the resulting emissions and write the mapping plus an audit trail into
the output workbook.

Invoices that cannot be matched are skipped with a warning. The run
fails only when no invoice at all could be mapped.

Examples:
  factormatch map --invoices invoices.xlsx --output mapping.xlsx
  factormatch map --invoices invoices.xlsx --template report_template.xlsx --output mapping.xlsx`,
		RunE: runMap,
	}

	cmd.Flags().StringP("invoices", "i", "", "Invoice batch workbook (.xlsx)")
	cmd.Flags().StringP("output", "o", "emission_mapping.xlsx", "Output workbook path")
	cmd.Flags().String("template", "", "Reporting template workbook to append into")
	cmd.Flags().String("strict", "", "Strict invoice-type mapping file (.json)")
	cmd.Flags().IntP("top-k", "k", 5, "Candidates returned per search")
	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	_ = cmd.MarkFlagRequired("invoices")

	_ = viper.BindPFlag("mapping.invoices", cmd.Flags().Lookup("invoices"))
	_ = viper.BindPFlag("mapping.output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("mapping.template", cmd.Flags().Lookup("template"))
	_ = viper.BindPFlag("mapping.strict_file", cmd.Flags().Lookup("strict"))
	_ = viper.BindPFlag("mapping.top_k", cmd.Flags().Lookup("top-k"))
	_ = viper.BindPFlag("mapping.no_progress", cmd.Flags().Lookup("no-progress"))

	return cmd
}

func runMap(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	invoicesPath := viper.GetString("mapping.invoices")
	outputPath := viper.GetString("mapping.output")
	templatePath := viper.GetString("mapping.template")
	strictPath := viper.GetString("mapping.strict_file")
	topK := viper.GetInt("mapping.top_k")
	noProgress := viper.GetBool("mapping.no_progress")

	slog.Info("Reading invoice batch", "path", invoicesPath)
	invoices, err := catalog.ReadInvoices(invoicesPath)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("failed to read invoices from %s", invoicesPath), err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			common.LogError(closeErr, "Failed to close database", nil)
		}
	}()

	count, err := store.FactorCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to query factor count: %w", err)
	}
	if count == 0 {
		return common.NewUserError("factor database is empty, run 'factormatch ingest' first", nil)
	}

	table, err := loadStrictTable(ctx, store, strictPath)
	if err != nil {
		return err
	}

	adv, closeAdvisor, err := buildAdvisor()
	if err != nil {
		return err
	}
	defer closeAdvisor()

	writer, err := export.NewWorkbook(templatePath, outputPath)
	if err != nil {
		return fmt.Errorf("failed to prepare output workbook: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil {
			common.LogError(closeErr, "Failed to close workbook", nil)
		}
	}()

	eng := engine.NewWithConfig(engine.Dependencies{
		Source:   store,
		Fallback: store,
		Selector: match.NewSelector(store, table),
		Advisor:  adv,
		Rates:    rates.NewECBFetcher(viper.GetString("rates.base_url")),
		Writer:   writer,
	}, engine.Config{
		TopK:                 topK,
		AdvisorFailureBudget: viper.GetInt("advisor.failure_budget"),
		ShowProgress:         !noProgress,
	})

	summary, err := eng.Run(ctx, invoices)
	if err != nil {
		return err
	}

	slog.Info("Mapping written",
		"output", outputPath,
		"run_id", writer.RunID(),
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"strict_matches", summary.StrictMatches,
		"advisor_errors", summary.AdvisorErrors,
		"duration", summary.CompletedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	return nil
}

// loadStrictTable prefers an explicit file and falls back to the mappings
// stored in the database.
func loadStrictTable(ctx context.Context, store *storage.SQLiteStore, path string) (match.StrictTable, error) {
	if path != "" {
		table, err := match.LoadStrictTable(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load strict mappings: %w", err)
		}
		return table, nil
	}

	stored, err := store.StrictMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load strict mappings: %w", err)
	}
	return match.StrictTable(stored), nil
}

// buildAdvisor wires the optional decision advisor. Without an API key
// the batch runs on ranked candidates alone.
func buildAdvisor() (service.Advisor, func(), error) {
	apiKey := viper.GetString("advisor.api_key")
	if apiKey == "" {
		slog.Warn("No advisor API key configured, running without advisor assistance")
		return nil, func() {}, nil
	}

	client, err := advisor.NewClient(advisor.Config{
		APIKey:      apiKey,
		Model:       viper.GetString("advisor.model"),
		BaseURL:     viper.GetString("advisor.base_url"),
		Temperature: viper.GetFloat64("advisor.temperature"),
		MaxTokens:   viper.GetInt("advisor.max_tokens"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure advisor: %w", err)
	}

	caching := advisor.NewCachingAdvisor(client, viper.GetDuration("advisor.cache_ttl"))
	return caching, caching.Close, nil
}
