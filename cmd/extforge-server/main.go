// Package main provides the entry point for the extforge server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/extforge/extforge/internal/app"
	"github.com/extforge/extforge/internal/logging"
)

var (
	port      = flag.Int("port", 0, "Server port (default from config, else 8080)")
	directory = flag.String("directory", "", "Working directory")
	level     = flag.String("log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	pretty    = flag.Bool("pretty", false, "Human-readable logs")
	version   = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("extforge-server %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	_ = godotenv.Load()
	if err := logging.Init(logging.Config{
		Level:  logging.ParseLevel(*level),
		Output: os.Stderr,
		Pretty: *pretty,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to get working directory")
		}
	}

	logging.Info().Str("version", Version).Str("directory", workDir).Msg("starting extforge server")

	a, err := app.New(workDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize")
	}
	defer a.Close()

	serverConfig := a.ServerConfig()
	if *port != 0 {
		serverConfig.Port = *port
	}
	srv := a.Server(serverConfig)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}

	logging.Info().Msg("server stopped")
}
