// Command mcpfinder is the stdio MCP host binary: it wires the core
// facade to a mark3labs/mcp-go server for "serve", and exposes thin
// debugging entry points ("sync", "search", "categories") for operating
// the catalog from a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mcpfinder/mcpfinder/internal/category"
	"github.com/mcpfinder/mcpfinder/internal/config"
	"github.com/mcpfinder/mcpfinder/internal/core"
	"github.com/mcpfinder/mcpfinder/internal/gate"
	"github.com/mcpfinder/mcpfinder/internal/logging"
	"github.com/mcpfinder/mcpfinder/internal/mcptools"
	"github.com/mcpfinder/mcpfinder/internal/search"
	"github.com/mcpfinder/mcpfinder/internal/store"
	syncengine "github.com/mcpfinder/mcpfinder/internal/sync"
)

var (
	cfgFile string
	dataDir string
	version = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mcpfinder",
		Short:   "Local discovery service for the MCP server ecosystem",
		Version: version,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to an optional YAML config file")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the data directory")

	root.AddCommand(newServeCmd(), newSyncCmd(), newSearchCmd(), newCategoriesCmd())
	return root
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

func buildLogger(cfg config.Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	return logging.New(logging.Options{LogDir: cfg.LogDir, Level: level, Console: cfg.LogConsole})
}

// openAll wires Store, Sync Engine, Gate, and Core for every subcommand
// that needs the full stack.
func openAll(cfg config.Config, logger *zap.Logger) (*store.Store, *gate.Gate, *core.Core, func(), error) {
	sugar := logger.Sugar()

	st, err := store.Open(cfg.DataDir, sugar)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	engine := syncengine.NewEngine(st, sugar)
	g := gate.New(st, engine, cfg.MaxStoreAge.Duration(), sugar)
	c := core.New(st, g, cfg.DefaultSearchLimit, cfg.DefaultBrowseLimit)

	cleanup := func() {
		_ = st.Close()
		_ = logger.Sync()
	}
	return st, g, c, cleanup, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP stdio server (the default way an AI host launches mcpfinder)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			_, g, c, cleanup, err := openAll(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			sugar := logger.Sugar()
			stopWatch, err := config.Watch(cfgFile, sugar, func(reloaded config.Config) {
				if dataDir != "" {
					reloaded.DataDir = dataDir
				}
				g.SetMaxAge(reloaded.MaxStoreAge.Duration())
				c.SetDefaultLimits(reloaded.DefaultSearchLimit, reloaded.DefaultBrowseLimit)
				sugar.Infow("config reloaded", "path", cfgFile)
			})
			if err != nil {
				return fmt.Errorf("watch config: %w", err)
			}
			defer stopWatch()

			mcpSrv := mcpserver.NewMCPServer(
				"mcpfinder",
				version,
				mcpserver.WithToolCapabilities(true),
				mcpserver.WithRecovery(),
			)
			mcptools.Register(mcpSrv, c)

			logger.Info("mcpfinder serving over stdio")
			return mcpserver.ServeStdio(mcpSrv)
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Force an immediate sync of every upstream registry and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			sugar := logger.Sugar()

			st, err := store.Open(cfg.DataDir, sugar)
			if err != nil {
				return err
			}
			defer st.Close()

			engine := syncengine.NewEngine(st, sugar)
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			results, err := engine.SyncAll(ctx)
			if err != nil {
				return err
			}
			for source, result := range results {
				if result.Err != nil {
					fmt.Printf("%s: error after %d rows: %v\n", source, result.Count, result.Err)
				} else {
					fmt.Printf("%s: %d rows in %s\n", source, result.Count, result.Elapsed)
				}
			}
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalog from the terminal (does not trigger a sync)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			sugar := logger.Sugar()

			st, err := store.Open(cfg.DataDir, sugar)
			if err != nil {
				return err
			}
			defer st.Close()

			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			results, err := search.Search(st, query, limit, store.Filters{})
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%d. %s - %s\n", r.Rank, r.Server.Name, r.Server.Description)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "max results, 1-50")
	return cmd
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List every non-empty category with its server count",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			sugar := logger.Sugar()

			st, err := store.Open(cfg.DataDir, sugar)
			if err != nil {
				return err
			}
			defer st.Close()

			counts, err := category.ListCategoryCounts(st)
			if err != nil {
				return err
			}
			for _, c := range counts {
				fmt.Printf("%-15s %d\n", c.Category, c.Count)
			}
			return nil
		},
	}
}
