package grpc

import (
	"context"
	"net"
	"strings"

	"github.com/dmitrijs2005/adminaccess/internal/logging"
	"github.com/dmitrijs2005/adminaccess/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AccessChecker is the slice of the access service the transport needs.
type AccessChecker interface {
	VerifySession(token string) (*auth.SessionClaims, error)
	CheckPermission(ctx context.Context, email, permission string) (bool, error)
}

// Option configures a GRPCServer.
type Option func(*GRPCServer)

// WithMethodPermission requires permission for a full method name such as
// "/adminaccess.v1.Orders/Update".
func WithMethodPermission(fullMethod, permission string) Option {
	return func(s *GRPCServer) {
		s.permissions[fullMethod] = permission
	}
}

// WithPublicPrefix lets methods under prefix through without a session.
func WithPublicPrefix(prefix string) Option {
	return func(s *GRPCServer) {
		s.public = append(s.public, prefix)
	}
}

// WithService registers an additional service on the underlying server.
func WithService(register func(grpc.ServiceRegistrar)) Option {
	return func(s *GRPCServer) {
		s.registrars = append(s.registrars, register)
	}
}

type GRPCServer struct {
	address     string
	access      AccessChecker
	logger      logging.Logger
	health      *health.Server
	permissions map[string]string
	public      []string
	registrars  []func(grpc.ServiceRegistrar)
}

func NewGRPCServer(address string, l logging.Logger, access AccessChecker, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address:     address,
		access:      access,
		logger:      l.With("module", "grpc_server"),
		health:      health.NewServer(),
		permissions: map[string]string{},
		public:      []string{"/" + healthpb.Health_ServiceDesc.ServiceName + "/"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GRPCServer) isPublic(fullMethod string) bool {
	for _, p := range s.public {
		if strings.HasPrefix(fullMethod, p) {
			return true
		}
	}
	return false
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.sessionInterceptor,
		s.permissionInterceptor,
	))

	healthpb.RegisterHealthServer(srv, s.health)
	for _, register := range s.registrars {
		register(srv)
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
