package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

const auditTimeout = 2 * time.Minute

func newWatchCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-audit coverage whenever a guide changes",
		Long: `Subscribes to guide change events and logs the remaining empty
buckets after each one. Metrics are served on /metrics while watching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := r.svc
			if svc.Subscriber == nil {
				return domain.WrapError(domain.ErrConfig, "watch", errors.New("NATS_URL is not set"))
			}
			if svc.Coverage == nil {
				return notConfigured("watch")
			}
			ctx := cmd.Context()

			if svc.MetricsAddr != "" && svc.Metrics != nil {
				stop, err := serveMetrics(ctx, svc.MetricsAddr, svc.Metrics.Handler())
				if err != nil {
					return err
				}
				defer stop()
				svc.Logger.Info("metrics_listening", "addr", svc.MetricsAddr)
			}

			svc.Logger.Info("watch_started")
			err := svc.Subscriber.SubscribeGuideChanged(ctx, func(handlerCtx context.Context, event domain.GuideEvent) error {
				if svc.Metrics != nil {
					svc.Metrics.ObserveEvent(event)
				}
				auditCtx, cancel := context.WithTimeout(handlerCtx, auditTimeout)
				defer cancel()
				report, err := svc.Coverage.Audit(auditCtx)
				if err != nil {
					return fmt.Errorf("re-audit after %s: %w", event.Type, err)
				}
				gaps := report.Gaps()
				svc.Logger.Info("coverage_rechecked",
					"event", string(event.Type),
					"guide_id", event.GuideID,
					"empty_buckets", len(gaps),
				)
				for _, g := range gaps {
					svc.Logger.Warn("bucket_empty", "dimension", g.Dimension, "value", g.Value)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("watch failed: %w", err)
			}
			svc.Logger.Info("watch_stopped")
			return nil
		},
	}
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		_ = server.Serve(listener)
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}, nil
}
