package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-procure/internal/config"
	"github.com/goliatone/go-procure/pkg/api"
)

var (
	// Flags
	configPath string
	envFiles   []string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "procure",
	Short: "Procurement back-office: requisitions, purchase orders and registers",
	Long: `procure fills procurement forms from the terminal, lists requisitions
and serves the lookup endpoints used by remote form inputs.

Configuration is read from --config (YAML), then from PROCURE_* variables
found in the environment or in the --env files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, envFiles...)
		if err != nil {
			return err
		}
		cfg = loaded
		logger, err = newLogger(cfg.Log, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", []string{".env"}, "dotenv files read for PROCURE_* variables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(typesCmd, fillCmd, listCmd, reviewCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(c config.Log, debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level := zapcore.InfoLevel
	if strings.TrimSpace(c.Level) != "" {
		parsed, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	if debug {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func newClient() (*api.Client, error) {
	return api.New(cfg.API.BaseURL,
		api.WithToken(cfg.API.Token),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
	)
}
