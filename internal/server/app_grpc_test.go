package server

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/adminaccess/internal/logging"
	gs "github.com/dmitrijs2005/adminaccess/internal/server/grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const ordersService = "adminaccess.test.Orders"

// registerOrders mounts a hand-written service whose methods reuse the
// health messages, standing in for a downstream service.
func registerOrders(r grpc.ServiceRegistrar) {
	method := func(name string) grpc.MethodDesc {
		full := "/" + ordersService + "/" + name
		return grpc.MethodDesc{
			MethodName: name,
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(healthpb.HealthCheckRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				handler := func(context.Context, any) (any, error) {
					return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
				}
				if interceptor == nil {
					return handler(ctx, in)
				}
				return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: full}, handler)
			},
		}
	}

	r.RegisterService(&grpc.ServiceDesc{
		ServiceName: ordersService,
		HandlerType: (*any)(nil),
		Methods:     []grpc.MethodDesc{method("Read"), method("Purge"), method("Status")},
	}, struct{}{})
}

func TestGRPCOptions_EnforceConfiguredMethodTable(t *testing.T) {
	c := memoryConfig()
	c.MethodPermissions = map[string]string{
		"/" + ordersService + "/Read":  "orders.read",
		"/" + ordersService + "/Purge": "users.manage",
	}
	c.PublicMethodPrefixes = []string{"/" + ordersService + "/Status"}
	require.NoError(t, c.Validate())

	app, err := NewApp(context.Background(), c, logging.Nop{}, &bytes.Buffer{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, app.Access().Register(ctx, "owner@bistro.test", "pw", "Owner"))
	tok, err := app.Access().Login(ctx, "owner@bistro.test", "pw")
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	opts := append(grpcOptions(c), gs.WithService(registerOrders))
	srv := gs.NewGRPCServer("", logging.Nop{}, app.Access(), opts...)

	serveCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(serveCtx, lis) }()
	defer func() {
		cancel()
		<-done
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	call := func(ctx context.Context, name string) codes.Code {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := conn.Invoke(ctx, "/"+ordersService+"/"+name, &healthpb.HealthCheckRequest{}, &healthpb.HealthCheckResponse{})
		return status.Code(err)
	}
	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok)

	assert.Equal(t, codes.Unauthenticated, call(ctx, "Read"))
	assert.Equal(t, codes.OK, call(authed, "Read"))
	assert.Equal(t, codes.PermissionDenied, call(authed, "Purge"))
	assert.Equal(t, codes.OK, call(ctx, "Status"))
}

func TestGRPCOptions_EmptyConfig(t *testing.T) {
	assert.Empty(t, grpcOptions(memoryConfig()))
}
