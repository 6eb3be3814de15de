package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/db"
)

var (
	statsSince time.Duration
	statsJSON  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recorded optimizations by reconciliation stage",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().DurationVar(&statsSince, "since", 7*24*time.Hour, "Only include optimizations newer than this")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("a database is required: set DATABASE_URL or database_url")
	}

	database, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	summaries, err := database.SummarizeStages(cmd.Context(), time.Now().Add(-statsSince))
	if err != nil {
		return err
	}

	if statsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if summaries == nil {
			summaries = []db.StageSummary{}
		}
		return enc.Encode(summaries)
	}
	return writeStatsTable(cmd.OutOrStdout(), summaries)
}

func writeStatsTable(w io.Writer, summaries []db.StageSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tCOUNT\tAVG ATS GAIN\tAVG CONTENT GAIN")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Stage, s.Count, formatGain(s.AvgATSGain), formatGain(s.AvgContentGain))
	}
	return tw.Flush()
}

func formatGain(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f", *v)
}
