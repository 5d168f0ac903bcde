package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Mohammed-Akramuddin/agegate/config"
	"github.com/Mohammed-Akramuddin/agegate/debug"
	"github.com/Mohammed-Akramuddin/agegate/store"
)

// Version is the application version.
const Version = "0.1.0"

var (
	logger *slog.Logger
	cfg    *config.Config
	// st is the persistent state store shared by subcommands
	st store.Store

	cfgPath   string
	redisAddr string
	statePath string
	pgDSN     string
)

var rootCmd = &cobra.Command{
	Use:     "agegate",
	Short:   "Age-verdict pipeline driving a protective content policy",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Environment defaults first, flags win.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", cfgPath, err)
		}
		if redisAddr == "" {
			redisAddr = os.Getenv("AGEGATE_REDIS_ADDR")
		}
		if redisAddr != "" {
			cfg.RedisAddr = redisAddr
		}
		if statePath != "" {
			cfg.StatePath = statePath
		}
		if pgDSN == "" {
			pgDSN = os.Getenv("AGEGATE_POSTGRES_DSN")
		}
		if pgDSN != "" {
			cfg.PostgresDSN = pgDSN
		}
		_ = cfg.Validate()

		if cfg.Debug {
			debug.StartRuntimeLogger(5*time.Second, logger)
		}

		st, err = openStore(cmd.Context())
		if err != nil {
			return fmt.Errorf("open state store: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			st.Close()
		}
	},
}

// openStore picks the redis backend when an address is configured and the
// JSON file backend otherwise.
func openStore(ctx context.Context) (store.Store, error) {
	if cfg.RedisAddr != "" {
		return store.NewRedis(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return store.NewFile(cfg.StatePath), nil
}

// Execute runs the CLI with a context cancelled by SIGINT/SIGTERM.
func Execute(l *slog.Logger) {
	logger = l

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "agegate.json", "Path to JSON config file")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Redis address for state storage (default: JSON file)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "Path of the JSON state file")
	rootCmd.PersistentFlags().StringVar(&pgDSN, "db", "", "PostgreSQL connection string for analysis history (optional)")
}
