package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ari/statcache/internal/config"
	"github.com/ari/statcache/internal/feed"
	"github.com/ari/statcache/internal/gameplay"
	"github.com/ari/statcache/internal/ui"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	clientID string
	userID   string
	cfg      *config.Config
	debug    bool
)

// errNotSynced is returned by commands that need a completed statistics sync.
var errNotSynced = errors.New("statistics have never been synced; run 'statcache sync <file>' first")

var rootCmd = &cobra.Command{
	Use:           "statcache",
	Short:         "Offline cache of gameplay statistics",
	Long:          `A CLI tool to inspect and sync the per-user gameplay statistics cache.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help command
		if cmd.Name() == "help" {
			return nil
		}
		var err error
		cfg, err = config.LoadConfig(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if clientID != "" {
			cfg.ClientID = clientID
		}
		if userID != "" {
			cfg.UserID = userID
		}
		setupLogging(cmd, cfg.LogLevel)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show loaded configuration",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Config loaded:\n")
		fmt.Fprintf(out, "  Storage:  %s\n", cfg.StorageDir)
		fmt.Fprintf(out, "  Client:   %s\n", cfg.ClientID)
		fmt.Fprintf(out, "  User:     %s\n", cfg.UserID)
		if path, err := cfg.GetDatabasePath(); err != nil {
			fmt.Fprintf(out, "  Database: (%v)\n", err)
		} else {
			fmt.Fprintf(out, "  Database: %s\n", path)
		}
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the user database and its tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		path, _ := cfg.GetDatabasePath()
		fmt.Fprintf(cmd.OutOrStdout(), "Database ready at %s\n", path)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether statistics were ever synced",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		path, _ := cfg.GetDatabasePath()
		ui.DisplaySyncStatus(cmd.OutOrStdout(), path, db.HasStatistics(cmd.Context()))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the cached statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := loadStatistics(cmd.Context())
		if err != nil {
			return err
		}
		ui.DisplayStatistics(cmd.OutOrStdout(), stats)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync <file>",
	Short: "Replace the cached statistics with a stats payload",
	Long:  "Replace every cached statistic with the items of a stats service payload (.json, .yaml or .yml).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := feed.ParseFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}

		db, err := openDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := db.SetStatistics(cmd.Context(), stats)
		if err != nil {
			return fmt.Errorf("failed to sync statistics: %w", err)
		}
		ui.DisplaySyncResult(cmd.OutOrStdout(), result)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the cached statistics as a JSON payload",
	Args:  cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := loadStatistics(cmd.Context())
		if err != nil {
			return err
		}

		if len(args) == 0 {
			return feed.Encode(cmd.OutOrStdout(), stats)
		}

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", args[0], err)
		}
		if err := feed.Encode(f, stats); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

// openDatabase opens the configured user's gameplay database.
func openDatabase(ctx context.Context) (*gameplay.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := gameplay.OpenUser(ctx, cfg.StorageDir, cfg.ClientID, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadStatistics returns the cached statistics, or errNotSynced when no sync has completed.
func loadStatistics(ctx context.Context) ([]gameplay.Statistic, error) {
	db, err := openDatabase(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if !db.HasStatistics(ctx) {
		return nil, errNotSynced
	}
	stats, err := db.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}
	return stats, nil
}

func setupLogging(cmd *cobra.Command, level string) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.Error(err.Error())
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (default: ~/.statcache/config.toml)")
	rootCmd.PersistentFlags().StringVar(&clientID, "client", "", "Client id (overrides client_id)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User id (overrides user_id)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Show debug logs")
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(exportCmd)
}
