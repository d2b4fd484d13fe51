package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/linkerd/fabricd/domain"
)

// newServeCmd mirrors the teacher's controller/cmd/public-api/main.go
// shape: a gRPC listener goroutine, a scrapable-metrics HTTP listener
// goroutine, and signal.Notify-driven graceful shutdown — generalized
// here to race against the DomainServer's own device ensemble too.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the demo domain until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			d, _, _, err := buildDemoDomain(reg)
			if err != nil {
				return err
			}
			ds := d.Done()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			healthLis, err := net.Listen("tcp", healthAddr)
			if err != nil {
				return err
			}
			grpcServer := grpc.NewServer()
			healthpb.RegisterHealthServer(grpcServer, domain.NewHealthServer(ds))
			go func() {
				log.WithField("addr", healthAddr).Info("serving gRPC health checks")
				if err := grpcServer.Serve(healthLis); err != nil {
					log.WithError(err).Warn("health server stopped")
				}
			}()
			defer grpcServer.GracefulStop()

			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			metricsServer := &http.Server{Addr: metricsAddr, Handler: metricsMux}
			go func() {
				log.WithField("addr", metricsAddr).Info("serving Prometheus metrics")
				if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.WithError(err).Warn("metrics server stopped")
				}
			}()
			defer metricsServer.Shutdown(context.Background())

			log.WithField("wire-buffer-capacity", wireCapacity).Info("serving domain")
			return ds.Serve(ctx)
		},
	}
}
