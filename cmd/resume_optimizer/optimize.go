package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/observability"
	"github.com/jonathan/resume-optimizer/internal/pipeline"
	"github.com/jonathan/resume-optimizer/internal/tokenstore"
)

var (
	optimizeToken    string
	optimizeATS      int
	optimizeContent  int
	optimizeProgress bool
	optimizePretty   bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize a previously analyzed résumé",
	Long: `Redeem a token issued by "analyze" and print the optimized document as JSON.
The token store must outlive a single process, so the redis or bolt backend is required.`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeToken, "token", "", "Token returned by analyze")
	optimizeCmd.Flags().IntVar(&optimizeATS, "ats", 0, "Original ATS score")
	optimizeCmd.Flags().IntVar(&optimizeContent, "content", 0, "Original content score")
	optimizeCmd.Flags().BoolVar(&optimizeProgress, "progress", false, "Report progress on stderr")
	optimizeCmd.Flags().BoolVar(&optimizePretty, "pretty", false, "Print human-readable boxes instead of JSON")

	_ = optimizeCmd.MarkFlagRequired("token")
	_ = optimizeCmd.MarkFlagRequired("ats")
	_ = optimizeCmd.MarkFlagRequired("content")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.TokenStore.Backend == tokenstore.BackendMemory {
		return fmt.Errorf("the %s token store does not survive between processes; set token_store.backend to %s or %s, or use analyze --optimize",
			tokenstore.BackendMemory, tokenstore.BackendBolt, tokenstore.BackendRedis)
	}

	var onProgress pipeline.ProgressCallback
	if optimizeProgress {
		stderr := cmd.ErrOrStderr()
		onProgress = func(e pipeline.ProgressEvent) {
			fmt.Fprintf(stderr, "[%s] %s\n", e.Step, e.Message)
		}
	}

	a, err := newApp(cmd.Context(), cfg, onProgress)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.svc.Optimize(cmd.Context(), pipeline.OptimizeRequest{
		Token:           optimizeToken,
		OriginalATS:     optimizeATS,
		OriginalContent: optimizeContent,
	})
	if err != nil {
		return err
	}

	if optimizePretty {
		p := observability.NewPrinter(cmd.OutOrStdout())
		p.PrintScore(out.Score, optimizeATS, optimizeContent)
		p.PrintOptimization(out.Result)
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
