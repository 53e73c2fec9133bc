package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/recallq/recallq/internal/service"
)

// serveOptions holds CLI flags for the demo recall service.
type serveOptions struct {
	addr      string
	transport string // "http", "stdio"
	items     string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a demo recall service over a YAML knowledge base",
		Long: `Serve a small recall service backed by a YAML knowledge base,
for trying RecallQ without a production backend.

Transports:
  http   REST endpoint compatible with the recallq client (default)
  stdio  MCP server exposing the recall_search tool`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":9321", "HTTP listen address")
	cmd.Flags().StringVar(&opts.transport, "transport", "http", "Transport: http, stdio")
	cmd.Flags().StringVar(&opts.items, "items", "configs/items.yaml", "Path to the knowledge base YAML")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	items, err := service.LoadItems(opts.items)
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	index, err := service.NewIndex()
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	defer func() { _ = index.Close() }()

	if err := index.Add(items...); err != nil {
		return fmt.Errorf("failed to index items: %w", err)
	}

	logger := slog.Default()
	logger.Info("knowledge base loaded",
		slog.String("path", opts.items),
		slog.Int("items", index.Count()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch opts.transport {
	case "stdio":
		return service.NewMCPServer(index, logger).Run(ctx)
	case "http":
		return serveHTTP(ctx, opts.addr, index, logger)
	default:
		return fmt.Errorf("unknown transport %q (want http or stdio)", opts.transport)
	}
}

func serveHTTP(ctx context.Context, addr string, index *service.Index, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           service.NewHTTPServer(index, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("recall service listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
