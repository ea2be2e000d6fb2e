package main

import (
	"context"
	"fmt"
	"os"

	"talentlink/internal/config"
	"talentlink/internal/logging"
	"talentlink/internal/securestore"
	"talentlink/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "talentlink",
	Short: "TalentLink client - credential vault and input guard",
	Long: `The TalentLink client keeps the signed-in user's tokens and profile in the
platform's secure storage and checks everything users type before it is
stored or sent to the backend.

Run 'talentlink serve' to start the local API used by the web front end.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles what every command needs once configuration is loaded
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry *prometheus.Registry
	store    *securestore.Store
	sessions *session.Manager
}

// openApp loads configuration, sets up logging and opens the secure store
// on the medium configured for this platform
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := logging.Initialize(cfg.LogLevel)
	if cfg.LogFile != "" {
		if err := logging.SetupFileLogging(logger, cfg.LogFile); err != nil {
			return nil, fmt.Errorf("failed to set up file logging: %w", err)
		}
	}

	medium, err := securestore.NewMediumFromConfig(ctx, cfg)
	if err != nil {
		logging.LogConfigError(logger, err, "open_secure_store")
		return nil, fmt.Errorf("failed to open secure store: %w", err)
	}

	registry := prometheus.NewRegistry()
	store := securestore.New(medium, logger, securestore.NewMetrics(registry))

	logger.WithFields(logrus.Fields{
		"platform":     cfg.Platform,
		"backend":      store.Backend(),
		"secret_grade": store.SecretGrade(),
	}).Debug("Secure store opened")

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		store:    store,
		sessions: session.NewManager(store, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close secure store")
	}
}
