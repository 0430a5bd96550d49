package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/cua/internal/proxy"
)

// buildServeCmd creates the "serve" command: start the Integrations
// Surface (§6.4) HTTP server, graceful-shutdown on SIGINT/SIGTERM,
// matching the teacher's buildServeCmd/runServe shape.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		listenAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cua HTTP Integrations Surface",
		Long: `Start the cua HTTP server exposing POST /responses, GET
/responses/stream (websocket), and GET /health.

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefault(configPath)
			addr := listenAddr
			if addr == "" {
				addr = cfg.Proxy.ListenAddr
			}
			if addr == "" {
				addr = ":8080"
			}

			logger := loggerFromConfigPath(configPath)
			srv := proxy.New(buildProxyFactory(cfg), cfg.Proxy.APIKey)
			srv.Logger = logger

			httpSrv := &http.Server{Addr: addr, Handler: srv.Mux()}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info(ctx, "cua serve listening", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				logger.Info(context.Background(), "cua serve shutting down")
				return httpSrv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML/JSON5 configuration file")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config proxy.listen_addr, default :8080)")

	return cmd
}
