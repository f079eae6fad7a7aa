package clients

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ReconcilerService is the name the reconciliation worker reports health under.
const ReconcilerService = "barbershop.reconciler"

type ReconcilerClient struct {
	Health healthpb.HealthClient
	conn   *grpc.ClientConn
}

func NewReconcilerClient(addr string) (*ReconcilerClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("reconciler connection failed: %w", err)
	}
	return &ReconcilerClient{
		Health: healthpb.NewHealthClient(conn),
		conn:   conn,
	}, nil
}

// Check reports whether the worker answers as SERVING.
func (c *ReconcilerClient) Check(ctx context.Context) (bool, error) {
	if c == nil || c.Health == nil {
		return false, fmt.Errorf("reconciler client not initialized")
	}
	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: ReconcilerService})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

func (c *ReconcilerClient) Close() {
	if c != nil && c.conn != nil {
		c.conn.Close()
	}
}
