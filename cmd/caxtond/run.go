package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/caxton-rt/caxton/internal/config"
	"github.com/caxton-rt/caxton/internal/conversation"
	"github.com/caxton-rt/caxton/internal/delivery"
	"github.com/caxton-rt/caxton/internal/failure"
	"github.com/caxton-rt/caxton/internal/logging"
	"github.com/caxton-rt/caxton/internal/metrics"
	"github.com/caxton-rt/caxton/internal/persist"
	"github.com/caxton-rt/caxton/internal/registry"
	"github.com/caxton-rt/caxton/internal/router"
	"github.com/caxton-rt/caxton/internal/rpc"
	"github.com/caxton-rt/caxton/internal/schedule"
)

func runCmd() *cobra.Command {
	var (
		metricsAddr string
		rpcAddr     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the orchestration runtime until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DevelopmentConfig()
			if configFile != "" {
				loaded, err := config.LoadFromFile(configFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = loaded
			}
			cfg = config.LoadFromEnv(cfg)
			logging.SetLevelFromString(cfg.Observability.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := persist.Open(ctx, cfg.Persist.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			reg := registry.New()
			if err := logPersistedAgentCount(ctx, store); err != nil {
				return fmt.Errorf("read persisted agents: %w", err)
			}

			convTimeout := time.Duration(cfg.Conversation.ConversationTimeoutMS) * time.Millisecond
			convs := conversation.New(cfg.Conversation.MaxConversationParticipants, convTimeout)

			deliv := delivery.New(cfg.Router.InboundQueueSize)
			fh := failure.New(failure.Config{
				MaxRetries:    cfg.Retry.MaxRetries,
				BaseBackoff:   time.Duration(cfg.Retry.RetryBackoffMS) * time.Millisecond,
				BackoffFactor: cfg.Retry.RetryBackoffFactor,
				MaxBackoff:    time.Duration(cfg.Retry.MaxBackoffMS) * time.Millisecond,
			})

			m := metrics.New()
			var prom *metrics.PrometheusMetrics
			if cfg.Observability.EnableMetrics {
				prom = metrics.NewPrometheusMetrics("caxton", func() float64 { return 0 })
			}

			r := router.New(router.Config{
				InboundQueueSize: cfg.Router.InboundQueueSize,
				WorkerCount:      cfg.Router.WorkerThreadCount,
				MessageTimeout:   time.Duration(cfg.Router.MessageTimeoutMS) * time.Millisecond,
				ShutdownDeadline: cfg.Router.ShutdownDeadline,
			}, reg, convs, deliv, fh, m)
			r.Start()

			sweeper := schedule.New(convs, fh)
			if err := sweeper.Start(schedule.Config{
				ConversationSweepCron: "@every 1m",
				DeadLetterSweepCron:   "@every 5m",
				ConversationIdleAfter: convTimeout,
			}); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			defer sweeper.Stop()

			var rpcServer *rpc.Server
			if rpcAddr != "" {
				rpcServer = rpc.NewServer(r)
				if err := rpcServer.Start(rpcAddr); err != nil {
					return fmt.Errorf("start rpc server: %w", err)
				}
				defer rpcServer.Stop()
			}

			var metricsSrv *http.Server
			if prom != nil && metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", prom.Handler())
				metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux}
				go func() {
					if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logging.Op().Error("metrics server error", "error", err)
					}
				}()
			}

			logging.Op().Info("caxtond started", "persist_path", cfg.Persist.Path, "worker_count", cfg.Router.WorkerThreadCount)
			<-ctx.Done()
			logging.Op().Info("caxtond shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Router.ShutdownDeadline)
			defer cancel()
			r.Shutdown(shutdownCtx)
			if metricsSrv != nil {
				metricsSrv.Shutdown(shutdownCtx)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (disabled if empty)")
	cmd.Flags().StringVar(&rpcAddr, "rpc-addr", "", "address to serve remote-delivery RPC on (disabled if empty)")
	return cmd
}

// logPersistedAgentCount reports how many agent records survived the
// last restart. Full registry reconstruction additionally needs each
// agent's capability set and module bytes, neither of which is part of
// persist.AgentRecord; those arrive through the agent's own
// re-registration call once its sandbox is recreated.
func logPersistedAgentCount(ctx context.Context, store *persist.Store) error {
	agents, err := store.LoadAgents(ctx)
	if err != nil {
		return err
	}
	logging.Op().Info("loaded persisted agent records", "count", len(agents))
	return nil
}
