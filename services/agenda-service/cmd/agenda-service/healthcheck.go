package main

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/libs/grpcx"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthcheckCmd probes the gRPC health service; container runtimes use its
// exit code.
func healthcheckCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Exit non-zero unless the gRPC health service reports SERVING",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := grpcx.Dial(addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
			if err != nil {
				return fmt.Errorf("health check: %w", err)
			}
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("service is %s", resp.GetStatus())
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.GetStatus())
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9093", "gRPC address")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "probe timeout")
	return cmd
}
