package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ddlconv/ddlconv/internal/api"
	"github.com/ddlconv/ddlconv/internal/engine"
	"github.com/ddlconv/ddlconv/internal/lock"
	"github.com/ddlconv/ddlconv/internal/logging"
	"github.com/ddlconv/ddlconv/internal/ws"
	"github.com/ddlconv/ddlconv/web"
)

var (
	servePort    int
	serveDevMode bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI server",
	Long:  `Start the upload and conversion web UI. Job progress is pushed to the browser over a WebSocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		logger, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Directory)
		if err != nil {
			return err
		}

		if err := lock.Acquire(""); err != nil {
			return err
		}
		defer lock.Release("")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, err := engine.New(cfg, logger)
		if err != nil {
			return err
		}
		defer eng.Close()
		if err := attachRegistry(ctx, eng); err != nil {
			return err
		}
		if err := attachUploader(ctx, eng); err != nil {
			logger.Warn("S3 publishing disabled", "error", err)
		}

		hub := ws.NewHub(logger)
		if serveDevMode {
			hub.AllowOrigins("localhost:*", "127.0.0.1:*")
		}
		go hub.Run(ctx)

		distFS, err := fs.Sub(web.DistFS, "dist")
		if err != nil {
			return fmt.Errorf("loading embedded web UI: %w", err)
		}

		srv := api.New(eng, logger, cfg.Server.Port,
			api.WithStaticFS(distFS),
			api.WithHub(hub),
			api.WithDevMode(serveDevMode),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		fmt.Fprintf(os.Stderr, "ddlconv web UI: http://localhost:%d\n", cfg.Server.Port)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 5000, "port for the web UI server (default from config)")
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable CORS for development mode")
	rootCmd.AddCommand(serveCmd)
}
