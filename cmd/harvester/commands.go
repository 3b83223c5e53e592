package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-notice-harvester/internal/app"
	"github.com/samvad-hq/samvad-notice-harvester/internal/config"
	"github.com/samvad-hq/samvad-notice-harvester/internal/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Collect notices from university bulletin boards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newWatchCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl every configured board once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHarvester(cmd.Context(), target, func(ctx context.Context, h *app.Harvester) error {
				results, err := h.RunOnce(ctx)
				for _, res := range results {
					logger.InfoObj("board run finished", "run_result", res)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&target, "url", "", "crawl this listing URL instead of the boards file")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Crawl boards on the configured interval or cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHarvester(cmd.Context(), target, func(ctx context.Context, h *app.Harvester) error {
				return h.Watch(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&target, "url", "", "watch this listing URL instead of the boards file")
	return cmd
}

// withHarvester loads config, sets up logging and signals, and closes the runtime afterwards.
func withHarvester(parent context.Context, target string, fn func(context.Context, *app.Harvester) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if target != "" {
		cfg.TargetURL = target
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("harvester starting", "config", map[string]any{
		"renderer":   cfg.RendererType,
		"storage":    cfg.StorageType,
		"boards":     cfg.BoardsFile,
		"target_url": cfg.TargetURL,
		"publishers": cfg.PublishersFile,
	})

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	harvester, err := app.NewHarvester(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize harvester", "error", err.Error())
		return err
	}
	defer harvester.Close()

	return fn(ctx, harvester)
}
