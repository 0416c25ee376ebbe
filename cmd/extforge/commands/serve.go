package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/logging"
)

var (
	servePort int
	serveCORS []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extforge HTTP server",
	Long: `Start extforge as a server that exposes the workspace, templates,
projects and settings over HTTP, with live updates on /event.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringSliceVar(&serveCORS, "cors-origin", nil, "Allowed CORS origins (default any)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	serverConfig := a.ServerConfig()
	if cmd.Flags().Changed("port") {
		serverConfig.Port = servePort
	}
	if len(serveCORS) > 0 {
		serverConfig.CORSOrigins = serveCORS
	}
	srv := a.Server(serverConfig)

	logging.Info().
		Str("version", Version).
		Str("provider", a.Settings.Kind).
		Str("model", a.Settings.Model).
		Msg("starting extforge server")

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
	return nil
}
