package grpcx

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type DialOptions struct {
	// Timeout bounds connection establishment. Zero means 3s.
	Timeout time.Duration
	// Credentials defaults to insecure transport, which assumes the caller
	// runs inside a cluster where the mesh terminates TLS.
	Credentials grpc.DialOption
}

// Dial opens a client connection with tracing and request-id propagation
// wired in. It blocks until the connection is ready or the timeout expires.
func Dial(ctx context.Context, addr string, opts DialOptions, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	creds := opts.Credentials
	if creds == nil {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(UnaryClientRequestIDInterceptor()),
		grpc.WithBlock(),
		creds,
	}, extra...)

	return grpc.DialContext(ctx, addr, dialOpts...)
}
