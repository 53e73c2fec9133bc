package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/recallq/recallq/internal/recall"
	"github.com/recallq/recallq/pkg/orchestrator"
)

// queryOptions holds CLI flags for one-shot queries.
type queryOptions struct {
	endpoint string
	limit    int
	format   string // "text", "json"
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a single search and print the results",
		Long: `Run one search against the recall service and print the results.

Examples:
  recallq query "debounce user input"
  recallq query "retry storm" --limit 5 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Recall service base URL")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runQuery(ctx context.Context, cmd *cobra.Command, text string, opts queryOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.endpoint != "" {
		cfg.Endpoint = opts.endpoint
	}
	if opts.limit > 0 {
		cfg.Limit = opts.limit
	}

	orchOpts := cfg.Query.Options()
	if utf8.RuneCountInString(orchestrator.Normalize(text)) < orchOpts.MinLength {
		return fmt.Errorf("query must be at least %d characters", orchOpts.MinLength)
	}

	client := recall.NewClient(recall.ClientConfig{
		Endpoint: cfg.Endpoint,
		Limit:    cfg.Limit,
	})
	defer client.Close()

	// One-shot mode still goes through the orchestrator so normalization
	// and the length gate behave exactly like interactive mode.
	var (
		results  recall.Results
		fetchErr error
		done     = make(chan struct{})
	)
	orch := orchestrator.New(client.Fetch,
		orchestrator.WithOptions[recall.Results](orchOpts),
		orchestrator.WithCacheCapacity[recall.Results](cfg.Query.CacheCapacity),
		orchestrator.WithCallbacks(orchestrator.Callbacks[recall.Results]{
			OnSuccess: func(_ string, r recall.Results, _ bool) { results = r },
			OnError:   func(_ string, err error) { fetchErr = err },
			OnFinally: func(_ string) { close(done) },
		}))
	defer orch.Close()

	orch.RunImmediate(text)

	select {
	case <-done:
	case <-ctx.Done():
		orch.Cancel()
		return ctx.Err()
	}
	if fetchErr != nil {
		return fetchErr
	}

	return printResults(cmd, results, opts.format)
}

func printResults(cmd *cobra.Command, results recall.Results, format string) error {
	out := cmd.OutOrStdout()

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		_, err := fmt.Fprintln(out, "No results.")
		return err
	}

	for i, r := range results {
		fmt.Fprintf(out, "%d. [%s] %s (%.2f)\n", i+1, r.Type, r.Title, r.Score)
		if r.Content != "" {
			fmt.Fprintf(out, "   %s\n", strings.Join(strings.Fields(r.Content), " "))
		}
		if len(r.Tags) > 0 {
			fmt.Fprintf(out, "   #%s\n", strings.Join(r.Tags, " #"))
		}
	}
	return nil
}
