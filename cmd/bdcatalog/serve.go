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

	"github.com/bitdust-io/devel-sub003/internal/config"
	"github.com/bitdust-io/devel-sub003/internal/daemon"
	"github.com/bitdust-io/devel-sub003/internal/logger"
	"github.com/bitdust-io/devel-sub003/internal/metrics"
	"github.com/bitdust-io/devel-sub003/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the catalog loaded, reload changed index files and autosave",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.Metrics.Listen = listen
			}
			return serve(a.cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "metrics", "", "address of the /metrics endpoint, e.g. :9310")
	return cmd
}

func serve(cfg *config.Config) error {
	log := logger.Get()

	pidPath, err := daemon.PIDPath(config.ExpandPath(cfg.DataDir))
	if err != nil {
		return err
	}
	pid := daemon.NewPIDFile(pidPath)
	if err := pid.Write(); err != nil {
		return err
	}
	defer pid.Remove()

	svc, err := service.NewCatalogService(cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	// the service outlives the signal so Stop can still flush
	if _, err := svc.Start(context.Background()); err != nil {
		return err
	}

	var httpServer *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		httpServer = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("Serving metrics", "addr", cfg.Metrics.Listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", "error", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down", "signal", sig.String())

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Warn("Metrics server shutdown failed", "error", err)
		}
	}
	return svc.Stop()
}

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask a running serve process to shut down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath, err := daemon.PIDPath(config.ExpandPath(a.cfg.DataDir))
			if err != nil {
				return err
			}
			pid, err := daemon.NewPIDFile(pidPath).Stop()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent stop to pid %d\n", pid)
			return nil
		},
	}
}
