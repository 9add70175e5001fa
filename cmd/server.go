package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/api"
	"github.com/ziadkadry99/partsdesk/internal/respcache"
	"github.com/ziadkadry99/partsdesk/internal/router"
	"github.com/ziadkadry99/partsdesk/internal/server"
	"github.com/ziadkadry99/partsdesk/internal/triage"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server with the streaming chat API",
	Long: `Starts the partsdesk HTTP server: chat over WebSocket (/api/chat/ws) and
server-sent events (/api/chat), catalog lookups, cache administration,
the turn audit trail, health checks and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := buildStack(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		logger := s.logger

		if s.cache != nil && cfg.Cache.Warm {
			n, err := respcache.Warm(ctx, s.cache, router.WarmEntries(ctx, triage.Diagnostics()))
			if err != nil {
				logger.Warn("cache warm-up incomplete", zap.Int("stored", n), zap.Error(err))
			} else {
				logger.Info("response cache warmed", zap.Int("entries", n))
			}
		}

		if s.audit != nil && cfg.Audit.Retention > 0 {
			n, err := s.audit.DeleteBefore(ctx, time.Now().Add(-cfg.Audit.Retention))
			if err != nil {
				logger.Warn("audit retention sweep failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("pruned audit trail", zap.Int64("entries", n))
			}
		}

		chat := api.New(api.Deps{
			Resolver:  s.router,
			Contexts:  s.contexts,
			Cache:     s.cache,
			Catalog:   s.catalog,
			Compat:    s.compat,
			Audit:     s.audit,
			Generator: s.generator,
			Checks:    s.checks,
		}, api.WithLogger(logger))

		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, logger, chat)

		go func() {
			<-ctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown failed", zap.Error(err))
			}
		}()

		logger.Info("partsdesk server starting",
			zap.String("version", Version),
			zap.Int("port", cfg.Server.Port),
			zap.String("catalog", cfg.Catalog.Driver),
			zap.String("cache", cfg.Cache.Backend),
			zap.String("generator", s.generator),
			zap.Int("documents_indexed", s.vectors.Count()))

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
