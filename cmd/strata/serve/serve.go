// Package servecmder provides the serve command running the memory API and
// MCP server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/api"
	"github.com/papercomputeco/strata/api/mcp"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/registry"
)

type ServeCommander struct {
	listen         string
	sqlitePath     string
	remoteDSN      string
	syncQueue      string
	maxAttempts    uint
	eventsProvider string
	kafkaBrokers   string
	kafkaTopic     string
	logFile        string
	noMCP          bool

	debug     bool
	configDir string
	viper     *viper.Viper
	logger    *zap.Logger
}

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagSQLite,
	config.FlagRemoteDSN,
	config.FlagSyncQueue,
	config.FlagMaxAttempts,
	config.FlagEventsProvider,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const serveLongDesc string = `Run the Strata memory server.

Serves the HTTP API and, unless disabled, the MCP tools at /mcp. The server
owns the storage tiers: it pings the remote store while offline and drains
the sync queue when the connection comes back.

Settings resolve from flags, then STRATA_* environment variables, then
config.toml in the .strata/ directory, then defaults.

Examples:
  strata serve
  strata serve --remote-dsn postgres://strata@localhost/strata
  strata serve --events-provider kafka --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the Strata memory server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagRemoteDSN, &cmder.remoteDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagSyncQueue, &cmder.syncQueue)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxAttempts, &cmder.maxAttempts)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP tools")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	defer func() { _ = c.logger.Sync() }()

	cfg, err := config.FromViper(c.viper)
	if err != nil {
		return err
	}

	reg, err := registry.New(ctx, cfg, registry.Options{
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("building memory stack: %w", err)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			c.logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	reg.Start(ctx)

	apiConfig := api.Config{ListenAddr: cfg.API.Listen}
	if !c.noMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Service: reg.Service,
			Logger:  c.logger.Named("mcp"),
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	apiServer, err := api.NewServer(apiConfig, reg.Service, reg, c.logger.Named("api"))
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	config.Watch(c.viper, func(e fsnotify.Event) {
		c.logger.Info("config file changed, restart to apply",
			zap.String("file", e.Name),
			zap.String("op", e.Op.String()),
		)
	})

	c.logger.Info("strata ready",
		zap.String("listen", cfg.API.Listen),
		zap.Bool("remote", reg.Store.HasRemote()),
		zap.String("events", cfg.Events.Provider),
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}

// setupLogger builds the console logger, teed into a JSON log file when
// --log-file is set.
func (c *ServeCommander) setupLogger() (func(), error) {
	console := logger.NewLogger(c.debug)
	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(logger.WithDebug(c.debug), logger.WithJSON(true), logger.WithWriter(f))
	c.logger = logger.Tee(console, file)
	return func() { _ = f.Close() }, nil
}
