package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/recallq/recallq/internal/config"
	"github.com/recallq/recallq/internal/recall"
	"github.com/recallq/recallq/internal/ui"
	"github.com/recallq/recallq/pkg/orchestrator"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive search screen",
		Long: `Open the interactive search screen. Results update as you type;
Enter forces an immediate search, Esc quits.

With --config, edits to the config file apply live without a restart.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context())
		},
	}
}

func runTUI(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := recall.NewClient(recall.ClientConfig{
		Endpoint: cfg.Endpoint,
		Limit:    cfg.Limit,
	})
	defer client.Close()

	logger := slog.Default()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Live-apply config edits while the screen is open.
	watchConfig := func(orch *orchestrator.Orchestrator[recall.Results]) {
		if configPath == "" {
			return
		}
		go func() {
			err := config.Watch(ctx, configPath, logger, func(c *config.Config) {
				orch.SetOptions(c.Query.Patch())
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("config watch stopped", slog.Any("error", err))
			}
		}()
	}

	return ui.Run(ctx, client.Fetch, cfg.Query.Options(), cfg.Query.CacheCapacity, logger, watchConfig)
}
