package domain

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer adapts a DomainServer to the standard gRPC health-check
// contract, grounded on the teacher's controller/destination server's
// grpc.NewServer/RegisterXServer pattern — here registering
// healthpb.RegisterHealthServer against the same *grpc.Server a
// cmd/fabricd binary constructs. SERVING while the wrapped DomainServer's
// Serve(ctx) is running, NOT_SERVING otherwise.
type HealthServer struct {
	healthpb.UnimplementedHealthServer
	ds *DomainServer
}

// NewHealthServer wraps ds.
func NewHealthServer(ds *DomainServer) *HealthServer {
	return &HealthServer{ds: ds}
}

func (h *HealthServer) status() healthpb.HealthCheckResponse_ServingStatus {
	if h.ds.Serving() {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Check implements grpc_health_v1.HealthServer.
func (h *HealthServer) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	return &healthpb.HealthCheckResponse{Status: h.status()}, nil
}

// Watch implements grpc_health_v1.HealthServer by polling the
// DomainServer's running state and pushing a status update whenever it
// changes, until the stream's context is done.
func (h *HealthServer) Watch(_ *healthpb.HealthCheckRequest, stream healthpb.Health_WatchServer) error {
	last := healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case <-ticker.C:
			cur := h.status()
			if cur != last {
				if err := stream.Send(&healthpb.HealthCheckResponse{Status: cur}); err != nil {
					return err
				}
				last = cur
			}
		}
	}
}
