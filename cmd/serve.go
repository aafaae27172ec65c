package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"netifmgr/internal/adapter/api"
	"netifmgr/internal/pkg/config"
	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/pkg/version"

	"github.com/spf13/cobra"
)

var (
	configFlag string
	netnsFlag  string
	listenFlag string
)

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the interface snapshot live, apply declared configuration and serve the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFlag)
		if err != nil {
			return err
		}
		if listenFlag != "" {
			cfg.API.Listen = listenFlag
		}

		logging.InitLogger(cfg.Logging)
		logger := logging.GetLogger()
		logger.WithFields(map[string]interface{}{
			"config_file": configFlag,
			"version":     version.GetGitInfo().String(),
		}).Info("Starting daemon")

		// Create context for graceful shutdown
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.WithField("signal", sig.String()).Info("Received shutdown signal")
			cancel()
		}()

		d, err := newDaemon(cfg, netnsFlag)
		if err != nil {
			return err
		}
		defer d.Close()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Live refresh loop failed")
			}
		}()

		if declared := cfg.Declared(); len(declared) > 0 {
			logger.WithField("interface_count", len(declared)).Info("Applying declared interface configuration")
			if err := d.service.EnsureDeclared(ctx, declared); err != nil {
				logging.WithError(err).Error("Declared configuration not fully applied")
			}
		}

		serveErr := api.NewServer(d.service, d.metrics).ListenAndServe(ctx, cfg.API.Listen)
		cancel()
		wg.Wait()

		if serveErr != nil {
			return serveErr
		}
		logger.Info("Daemon stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configFlag, "config", "f", "", "Path to config file (YAML); defaults apply when omitted")
	serveCmd.Flags().StringVar(&netnsFlag, "netns", "", "Manage the network namespace at this path (e.g. /var/run/netns/lab)")
	serveCmd.Flags().StringVar(&listenFlag, "listen", "", "Override api.listen")
	rootCmd.AddCommand(serveCmd)
}
