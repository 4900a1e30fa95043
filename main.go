package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"s3console/console"
	"s3console/logger"
	"s3console/monitoring"
	"s3console/oidc"
	"s3console/redirect"
	"s3console/session"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		envFile    string
		logLevel   string
	)

	root := &cobra.Command{
		Use:          "s3console",
		Short:        "Console server for RustFS with SSO login completion",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the configuration")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error) (overrides config)")

	loadConfig := func() (*AppConfig, error) {
		if err := LoadEnvFiles(envFile); err != nil {
			return nil, err
		}
		config, err := LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		if logLevel != "" {
			if !logger.IsValidLevel(logLevel) {
				return nil, fmt.Errorf("invalid log level: %s", logLevel)
			}
			config.Logging.Level = logLevel
		}
		logger.SetGlobalLevel(logger.ParseLogLevel(config.Logging.Level))
		return config, nil
	}

	root.AddCommand(
		newServeCommand(loadConfig),
		newInitConfigCommand(),
		newCheckRedirectCommand(),
		newParseCallbackCommand(),
	)
	return root
}

func newServeCommand(loadConfig func() (*AppConfig, error)) *cobra.Command {
	var (
		listenAddr     string
		metricsAddr    string
		disableMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console server",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			// Переопределения из командной строки
			if listenAddr != "" {
				config.Server.ListenAddress = listenAddr
				logger.Debug("Override: server.listen_address = %s", listenAddr)
			}
			if metricsAddr != "" {
				config.Monitoring.ListenAddress = metricsAddr
				logger.Debug("Override: monitoring.listen_address = %s", metricsAddr)
			}
			if disableMetrics {
				config.Monitoring.Enabled = false
				logger.Debug("Override: monitoring.enabled = false")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, config)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-listen", "", "Metrics server listen address (overrides config)")
	cmd.Flags().BoolVar(&disableMetrics, "disable-metrics", false, "Disable metrics server (overrides config)")
	return cmd
}

// application - связанные компоненты сервера консоли
type application struct {
	registry *session.Registry
	gateway  *console.Gateway
	monitor  *monitoring.Monitor
}

// newApplication создает компоненты по конфигурации, ничего не запуская
func newApplication(config *AppConfig) (*application, error) {
	providers, err := oidc.NewClient(&config.OIDC, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC client: %w", err)
	}

	registry, err := session.NewRegistry(&config.Session, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session registry: %w", err)
	}

	gateway, err := console.New(config.Server, &config.Callback, providers, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create console server: %w", err)
	}

	monitor, err := monitoring.New(&config.Monitoring, func() error {
		if !registry.IsRunning() {
			return errors.New("session registry is not running")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create monitoring module: %w", err)
	}

	return &application{registry: registry, gateway: gateway, monitor: monitor}, nil
}

// runServe запускает реестр сессий, мониторинг и сервер консоли и ждет отмены ctx
func runServe(ctx context.Context, config *AppConfig) error {
	logger.Info("S3 Console starting...")
	logger.Info("Log level: %s", logger.GetGlobalLevel())

	app, err := newApplication(config)
	if err != nil {
		return err
	}

	if err := app.registry.Start(); err != nil {
		return fmt.Errorf("failed to start session registry: %w", err)
	}
	defer app.registry.Stop()

	if err := app.monitor.Start(); err != nil {
		return fmt.Errorf("failed to start monitoring module: %w", err)
	}

	logger.Info("Configuration:")
	logger.Info("  Listen Address: %s", config.Server.ListenAddress)
	logger.Info("  Base Path: %s", config.Server.BasePath)
	logger.Info("  RustFS: %s (region %s)", config.OIDC.ServerHost, config.Session.Region)
	logger.Info("  Auth Wait Timeout: %v", config.Callback.AuthWaitTimeout)
	if config.Server.TLSCertFile != "" {
		logger.Info("  TLS Enabled: Yes")
	} else {
		logger.Info("  TLS Enabled: No")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(app.gateway.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		app.monitor.BeginShutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		gatewayErr := app.gateway.Stop(shutdownCtx)
		if gatewayErr != nil {
			logger.Error("Error stopping console server: %v", gatewayErr)
		}
		monitorErr := app.monitor.Stop(shutdownCtx)
		if monitorErr != nil {
			logger.Error("Error stopping monitoring: %v", monitorErr)
		}
		return errors.Join(gatewayErr, monitorErr)
	})

	err = g.Wait()
	logger.Info("S3 Console stopped")
	return err
}

func newInitConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config <file>",
		Short: "Write the default configuration to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DefaultAppConfig().SaveConfig(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
}

func newCheckRedirectCommand() *cobra.Command {
	var fallback string

	cmd := &cobra.Command{
		Use:   "check-redirect <candidate>",
		Short: "Show how a redirect target is sanitized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			safe, rule := redirect.Check(args[0], fallback)
			if rule == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "accepted: %s\n", safe)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rejected by %s, using %q\n", rule, safe)
			return nil
		},
	}
	cmd.Flags().StringVar(&fallback, "fallback", oidc.RedirectFallback, "Fallback path for rejected targets")
	return cmd
}

func newParseCallbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-callback <fragment>",
		Short: "Parse an SSO callback fragment (secrets are masked)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, ok := oidc.ParseCallback(args[0])
			if !ok {
				return errors.New("malformed callback fragment")
			}
			fmt.Fprintln(cmd.OutOrStdout(), creds.String())
			return nil
		},
	}
}
