// Package main provides the entry point for the streamchat server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/streamchat-ai/streamchat/internal/config"
	"github.com/streamchat-ai/streamchat/internal/event"
	"github.com/streamchat-ai/streamchat/internal/eventlog"
	"github.com/streamchat-ai/streamchat/internal/logging"
	"github.com/streamchat-ai/streamchat/internal/provider"
	"github.com/streamchat-ai/streamchat/internal/routing"
	"github.com/streamchat-ai/streamchat/internal/server"
	"github.com/streamchat-ai/streamchat/internal/session"
	"github.com/streamchat-ai/streamchat/internal/summary"
	"github.com/streamchat-ai/streamchat/internal/tool"
)

// Version information set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

var (
	flagPort     int
	flagDir      string
	flagDB       string
	flagLogLevel string
	flagPretty   bool
)

var rootCmd = &cobra.Command{
	Use:   "streamchat-server",
	Short: "Streaming AI chat server",
	Long: `streamchat-server hosts real-time AI conversations over HTTP: sessions
stream model tokens and tool activity to clients, every exchange lands in a
durable event log, and closed sessions are summarized in the background.`,
	Version: Version,
	RunE:    runServe,
}

func init() {
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "Port to listen on")
	rootCmd.Flags().StringVar(&flagDir, "directory", "", "Directory to load configuration from")
	rootCmd.Flags().StringVar(&flagDB, "database", "", "Path to the event log database")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.Flags().BoolVar(&flagPretty, "pretty-logs", false, "Human-readable log output")
	rootCmd.SetVersionTemplate(fmt.Sprintf("streamchat-server %s (%s)\n", Version, BuildTime))
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	workDir := flagDir
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if flagPort > 0 {
		cfg.Server.Port = flagPort
	}
	if flagDB != "" {
		cfg.DatabasePath = flagDB
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Pretty: flagPretty,
	})

	logging.Info().Str("version", Version).Msg("starting streamchat server")

	ctx := context.Background()

	log, err := eventlog.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer log.Close()

	providers, err := provider.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}

	bus := event.NewBus()
	defer bus.Close()

	recorder := eventlog.NewAppender(log, 0)
	defer recorder.Close()

	summaries := summary.NewPipeline(log, providers, bus, cfg.Summary)
	summaries.Start()
	defer summaries.Close()

	orchestrator := session.NewOrchestrator(
		providers,
		tool.DefaultRegistry(),
		routing.New(cfg.Routing),
		recorder,
		bus,
		cfg.Session,
	)
	sessions := session.NewRegistry(log, recorder, bus, summaries, orchestrator)

	srv := server.New(&server.Config{
		Port:        cfg.Server.Port,
		EnableCORS:  cfg.Server.EnableCORS,
		ReadTimeout: 30 * time.Second,
	}, sessions, log, summaries, bus)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("server shutdown error")
	}

	// Close every live session so their summaries are queued, then let the
	// deferred pipeline Close drain the queue.
	sessions.CloseAll(shutdownCtx)

	logging.Info().Msg("server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
