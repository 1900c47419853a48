package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/globaltravelreport/contentbot/internal/config"
	"github.com/globaltravelreport/contentbot/internal/logging"
	"github.com/globaltravelreport/contentbot/internal/pipeline"
	"github.com/globaltravelreport/contentbot/internal/server"
	"github.com/globaltravelreport/contentbot/internal/store"
	"github.com/globaltravelreport/contentbot/internal/story"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *zap.SugaredLogger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "contentbot",
	Short:   "Automated travel content pipeline",
	Long:    "contentbot fetches travel news feeds, scores and rewrites stories, matches images, and distributes published stories to social and newsletter channels.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return err
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(distributeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("contentbot", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/contentbot/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, API keys, and distribution channels.")
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch -> ingest -> rewrite -> image -> publish -> distribute",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report := pipeline.New(cfg, db, logger).Run(ctx)
		printReport(report)
		return nil
	},
}

func printReport(r *pipeline.Report) {
	fmt.Printf("Run %s (%s)\n\n", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(10*time.Millisecond))
	fmt.Println("Sources:")
	for _, fr := range r.FetchReports {
		switch {
		case fr.Err != nil:
			fmt.Printf("  %s: failed after %d attempts: %v\n", fr.Source, fr.Attempts, fr.Err)
		case fr.UsedFallback:
			fmt.Printf("  %s: %d items (via fallback)\n", fr.Source, fr.Items)
		default:
			fmt.Printf("  %s: %d items\n", fr.Source, fr.Items)
		}
	}

	fmt.Println("\nItems:")
	fmt.Printf("  Fetched: %d\n", r.ItemsFetched)
	fmt.Printf("  Duplicates skipped: %d\n", r.ItemsDeduped)
	fmt.Printf("  Rejected for quality: %d\n", r.ItemsRejectedForQuality)
	fmt.Printf("  Ingested (pending review): %d\n", r.ItemsIngested)
	fmt.Printf("  Published: %d\n", r.ItemsPublished)
	fmt.Printf("  Distributed: %d\n", r.ItemsDistributed)

	if len(r.PerChannelStats) > 0 {
		fmt.Println("\nChannels:")
		var names []string
		for name := range r.PerChannelStats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := r.PerChannelStats[name]
			fmt.Printf("  %s: %d ok, %d failed\n", name, s.Succeeded, s.Failed)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("  %s\n", e)
		}
	}
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and channel status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		counts, err := db.CountByStatus()
		if err != nil {
			return fmt.Errorf("getting counts: %w", err)
		}

		fmt.Println("Stories:")
		total := 0
		for _, s := range []story.Status{story.StatusPending, story.StatusApproved, story.StatusPublished, story.StatusRejected} {
			fmt.Printf("  %s: %d\n", s, counts[s])
			total += counts[s]
		}
		fmt.Printf("  Total: %d\n", total)

		stats, err := db.ChannelStats()
		if err != nil {
			return fmt.Errorf("getting channel stats: %w", err)
		}
		if len(stats) > 0 {
			fmt.Println("\nDistribution:")
			var names []string
			for name := range stats {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %s: %d ok, %d failed\n", name, stats[name][0], stats[name][1])
			}
		}

		fmt.Println("\nBudgets:")
		fmt.Printf("  Rewrites per day: %d\n", cfg.Rewrite.DailyLimit)
		fmt.Printf("  Image searches per hour: %d\n", cfg.Images.HourlyLimit)
		return nil
	},
}

// --- moderation commands ---

var approveCmd = &cobra.Command{
	Use:   "approve [identity-key]",
	Short: "Approve a pending story for publication",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moderate(args[0], "approved", (*store.DB).Approve)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject [identity-key]",
	Short: "Reject a pending story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moderate(args[0], "rejected", (*store.DB).Reject)
	},
}

func moderate(key, verb string, action func(*store.DB, string) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := action(db, key); err != nil {
		return err
	}
	fmt.Printf("Story %s %s\n", key, verb)
	return nil
}

var publishCmd = &cobra.Command{
	Use:   "publish [identity-key]",
	Short: "Publish an approved story and distribute it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		key := args[0]
		if err := db.Publish(key, time.Now()); err != nil {
			return err
		}
		fmt.Printf("Story %s published\n", key)

		records, err := pipeline.New(cfg, db, logger).DistributeStory(context.Background(), key)
		if err != nil {
			return err
		}
		printRecords(records)
		return nil
	},
}

var distributeCmd = &cobra.Command{
	Use:   "distribute [identity-key]",
	Short: "Distribute published stories that have not been dispatched yet",
	Long:  "With an identity key, re-runs distribution for that published story. Without arguments, distributes every published story that has no distribution records.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, logger)
		ctx := context.Background()

		if len(args) == 1 {
			records, err := pipe.DistributeStory(ctx, args[0])
			if err != nil {
				return err
			}
			printRecords(records)
			return nil
		}

		pending, err := db.ListUndistributed()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("Nothing to distribute.")
			return nil
		}
		for _, s := range pending {
			fmt.Printf("\n%s (%s)\n", s.Title, s.IdentityKey)
			records, err := pipe.DistributeStory(ctx, s.IdentityKey)
			if err != nil {
				return err
			}
			printRecords(records)
		}
		return nil
	},
}

func printRecords(records []story.DistributionRecord) {
	if len(records) == 0 {
		fmt.Println("No channels enabled.")
		return
	}
	fmt.Println("Distribution:")
	for _, r := range records {
		switch {
		case r.Success && r.Immediate:
			fmt.Printf("  %s: posted\n", r.Channel)
		case r.Success:
			fmt.Printf("  %s: scheduled\n", r.Channel)
		default:
			fmt.Printf("  %s: failed: %s\n", r.Channel, r.Error)
		}
	}
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the moderation web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting moderation UI at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port, logger)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on the configured cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipe := pipeline.New(cfg, db, logger)
		c := cron.New()
		_, err = c.AddFunc(cfg.Pipeline.Schedule, func() {
			report := pipe.Run(ctx)
			logger.Infow("scheduled run finished",
				"run_id", report.RunID,
				"ingested", report.ItemsIngested,
				"published", report.ItemsPublished,
				"errors", len(report.Errors))
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Pipeline.Schedule, err)
		}

		fmt.Printf("Scheduler running (%s). Press Ctrl+C to stop.\n", cfg.Pipeline.Schedule)
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	},
}

func openDB() (*store.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(filepath.Join(dataDir, "contentbot.db"))
}
