package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohammed-Akramuddin/agegate/audit"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analyses from the Postgres history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.PostgresDSN == "" {
			return errors.New("no history database configured: set postgres_dsn or --db")
		}
		ctx := cmd.Context()
		hist, err := audit.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect analysis history: %w", err)
		}
		defer hist.Close(context.Background())

		records, err := hist.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no analyses recorded")
			return nil
		}
		for _, rec := range records {
			applied := "applied"
			if !rec.PolicyApplied {
				applied = "policy-locked"
			}
			fmt.Printf("%s  %-5s  p=%.3f  conf=%.3f  passes=%d  %s  %s\n",
				rec.DecidedAt.Local().Format(time.RFC3339),
				rec.Verdict, rec.Probability, rec.Confidence, rec.PassCount,
				applied, rec.CycleID[:8])
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of records to list")
	rootCmd.AddCommand(historyCmd)
}
