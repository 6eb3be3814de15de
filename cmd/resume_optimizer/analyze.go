package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-optimizer/internal/observability"
	"github.com/jonathan/resume-optimizer/internal/pipeline"
)

// stdinName selects standard input as a document source.
const stdinName = "-"

var (
	analyzeConcurrency int
	analyzeOptimize    bool
	analyzeOut         string
	analyzePretty      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file...]",
	Short: "Score one or more résumés",
	Long: `Score each résumé file and print one JSON line per document in argument order.
Use "-" to read a document from standard input. With --optimize each document is also
rewritten in the same process, so the token never has to outlive it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeConcurrency, "concurrency", "c", 4, "Number of documents processed in parallel")
	analyzeCmd.Flags().BoolVar(&analyzeOptimize, "optimize", false, "Also optimize each document after scoring it")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "Write results to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzePretty, "pretty", false, "Print human-readable boxes instead of JSON lines")
	rootCmd.AddCommand(analyzeCmd)
}

// batchResult is one output line. Exactly one of Error or Analysis is set.
type batchResult struct {
	File         string                   `json:"file"`
	Analysis     *pipeline.AnalysisOutput `json:"analysis,omitempty"`
	Optimization *pipeline.OptimizeOutput `json:"optimization,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

// document is a named input read before processing starts.
type document struct {
	name string
	text string
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}

	docs, err := readDocuments(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	results := analyzeDocuments(cmd.Context(), a.svc, docs, analyzeConcurrency, analyzeOptimize)

	out := cmd.OutOrStdout()
	if analyzeOut != "" {
		f, err := os.Create(analyzeOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if analyzePretty {
		printResults(out, results)
	} else if err := writeResults(out, results); err != nil {
		return err
	}

	if failed := countFailed(results); failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

// readDocuments loads every argument up front so that a missing file fails
// the command before any model call is made.
func readDocuments(stdin io.Reader, args []string) ([]document, error) {
	docs := make([]document, 0, len(args))
	usedStdin := false
	for _, name := range args {
		var (
			data []byte
			err  error
		)
		if name == stdinName {
			if usedStdin {
				return nil, fmt.Errorf("standard input can only be read once")
			}
			usedStdin = true
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		docs = append(docs, document{name: name, text: string(data)})
	}
	return docs, nil
}

// analyzeDocuments processes docs with at most concurrency in flight.
// Per-document failures are reported in the result, not returned.
func analyzeDocuments(ctx context.Context, svc *pipeline.Service, docs []document, concurrency int, optimize bool) []batchResult {
	results := make([]batchResult, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			results[i] = processDocument(ctx, svc, doc, optimize)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func processDocument(ctx context.Context, svc *pipeline.Service, doc document, optimize bool) batchResult {
	res := batchResult{File: doc.name}

	analysis, err := svc.Analyze(ctx, doc.text)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Analysis = analysis
	if !optimize {
		return res
	}

	opt, err := svc.Optimize(ctx, pipeline.OptimizeRequest{
		Token:           analysis.Token,
		OriginalATS:     analysis.Result.ATSScore.Total,
		OriginalContent: analysis.Result.ContentScore.Total,
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Optimization = opt
	// The token has been redeemed.
	res.Analysis.Token = ""
	return res
}

func writeResults(w io.Writer, results []batchResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write result for %s: %w", r.File, err)
		}
	}
	return nil
}

func printResults(w io.Writer, results []batchResult) {
	p := observability.NewPrinter(w)
	for _, r := range results {
		if r.Error != "" {
			p.PrintError(r.File, r.Error)
			continue
		}
		p.PrintAnalysis(r.File, r.Analysis.Result)
		if r.Optimization != nil {
			p.PrintScore(r.Optimization.Score, r.Analysis.Result.ATSScore.Total, r.Analysis.Result.ContentScore.Total)
			p.PrintOptimization(r.Optimization.Result)
		} else {
			fmt.Fprintf(w, "token: %s\n", r.Analysis.Token)
		}
	}
}

func countFailed(results []batchResult) int {
	n := 0
	for _, r := range results {
		if r.Error != "" {
			n++
		}
	}
	return n
}
