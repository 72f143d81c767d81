package main

import (
	"fmt"
	"log/slog"

	"github.com/verdantlabs/factormatch/internal/catalog"
	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/verdantlabs/factormatch/internal/match"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load an emission factor catalogue into the database",
		Long: `Read a factor catalogue workbook and store its rows in the local
database used for candidate search.

Examples:
  factormatch ingest --factors base_carbone.xlsx
  factormatch ingest --factors base_carbone.xlsx --strict strict_mappings.json`,
		RunE: runIngest,
	}

	cmd.Flags().StringP("factors", "f", "", "Factor catalogue workbook (.xlsx)")
	cmd.Flags().String("strict", "", "Strict invoice-type mapping file (.json)")
	_ = cmd.MarkFlagRequired("factors")

	_ = viper.BindPFlag("ingest.factors", cmd.Flags().Lookup("factors"))
	_ = viper.BindPFlag("ingest.strict", cmd.Flags().Lookup("strict"))

	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	factorsPath := viper.GetString("ingest.factors")
	strictPath := viper.GetString("ingest.strict")

	slog.Info("Reading factor catalogue", "path", factorsPath)
	factors, err := catalog.ReadFactors(factorsPath)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("failed to read catalogue from %s", factorsPath), err)
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

	if err := store.SaveFactors(ctx, factors); err != nil {
		return fmt.Errorf("failed to store factors: %w", err)
	}
	slog.Info("Factor catalogue stored", "factors", len(factors))

	if strictPath != "" {
		table, loadErr := match.LoadStrictTable(strictPath)
		if loadErr != nil {
			return fmt.Errorf("failed to load strict mappings: %w", loadErr)
		}
		if err := store.SaveStrictMappings(ctx, table); err != nil {
			return fmt.Errorf("failed to store strict mappings: %w", err)
		}
		slog.Info("Strict mappings stored", "mappings", len(table))
	}

	return nil
}
