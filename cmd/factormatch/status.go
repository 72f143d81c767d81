package main

import (
	"fmt"

	"github.com/verdantlabs/factormatch/internal/common"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the factor database",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

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

	strict, err := store.StrictMappings(ctx)
	if err != nil {
		return fmt.Errorf("failed to query strict mappings: %w", err)
	}

	ingestedAt, err := store.IngestedAt(ctx)
	if err != nil {
		return fmt.Errorf("failed to query ingest time: %w", err)
	}

	lastIngest := "never"
	if !ingestedAt.IsZero() {
		lastIngest = ingestedAt.Format("2006-01-02 15:04:05")
	}

	common.LogInfo("Factor database status", common.Fields{
		"factors":         count,
		"strict_mappings": len(strict),
		"last_ingest":     lastIngest,
	})
	return nil
}
