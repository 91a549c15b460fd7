package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contra-reconciliation-service/cmd/reconciler/config"
	"contra-reconciliation-service/internal/api"
	"contra-reconciliation-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reconciliation pipeline over HTTP",
	Long: `Serve starts an HTTP server for the web front end.

Routes:
  GET  /health                  liveness probe
  POST /api/format-statement/   multipart upload, field "files": the statement
                                exports plus one workbook with "final" in its name
  GET  /api/tracking            tracking ledger entries

Examples:
  reconciler serve
  reconciler serve --addr :9000 --tracking-db data/tracking.db
  RECONCILER_ALLOW_ORIGINS=https://recon.example.com reconciler serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String(config.KeyAddr, ":8000", "listen address")
	flags.String(config.KeyOutputDir, config.DefaultOutputDir, "directory for the processed workbooks")
	flags.String(config.KeyTrackingDB, "", "tracking ledger database (disabled when empty)")
	flags.StringSlice(config.KeyAllowOrigins, nil, "origins allowed by CORS")
	flags.Int64(config.KeyMaxUploadMB, 64, "largest accepted upload request, in MiB")
}

func runServe(cmd *cobra.Command, args []string) error {
	// serve and reconcile share key names, so bind here rather than in init.
	for _, key := range []string{config.KeyAddr, config.KeyOutputDir, config.KeyTrackingDB, config.KeyAllowOrigins, config.KeyMaxUploadMB} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(key)); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.GetGlobalLogger().WithComponent("server")
	v := viper.GetViper()

	apiConfig, err := config.CreateAPIConfig(v)
	if err != nil {
		return err
	}
	svc, err := buildServices(v, apiConfig.ProcessedDir, v.GetString(config.KeyTrackingDB))
	if err != nil {
		return err
	}
	defer svc.Close()

	if !viper.GetBool("verbose") {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              v.GetString(config.KeyAddr),
		Handler:           api.NewServer(svc.runner, svc.ledger, apiConfig).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logger.Fields{
			"addr":          server.Addr,
			"processed_dir": apiConfig.ProcessedDir,
			"tracking":      svc.ledger != nil,
		}).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
