package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jibang-data/regional-news-pipeline/internal/app"
	"github.com/jibang-data/regional-news-pipeline/internal/config"
	"github.com/jibang-data/regional-news-pipeline/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "crawl failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := app.RunOptions{}

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Collect regional news articles into the archive",
		Long: "crawl walks the configured news sites, collects articles inside the " +
			"date window, and merges them into the CSV archive and SQLite database.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "all", `crawl scope: "all" or "region"`)
	cmd.Flags().StringVar(&opts.Region, "region", "", "region to crawl when --mode=region")
	cmd.Flags().IntVar(&opts.MaxArticles, "max-articles", 0, "per-site article cap (0 uses config)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "CSV archive path override")
	cmd.Flags().BoolVar(&opts.SaveCSV, "save-csv", true, "merge accepted articles into the CSV archive")
	cmd.Flags().BoolVar(&opts.SaveDB, "save-db", true, "mirror accepted articles into SQLite")
	cmd.Flags().BoolVar(&opts.Publish, "publish", false, "fan accepted articles out to configured publishers")
	cmd.Flags().BoolVar(&opts.Loop, "loop", false, "keep crawling on the configured interval")

	return cmd
}

func run(opts app.RunOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg.LogLevel, cfg.Env); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("pipeline starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.NewPipeline(ctx, cfg, logger.Std{}, opts)
	if err != nil {
		logger.ErrorObj("failed to initialize pipeline", "error", err.Error())
		return err
	}

	if err := pipeline.Run(ctx); err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	return nil
}
