// Package grpc serves the auth gateway and PIN gate over gRPC. Messages are
// plain Go structs encoded with a JSON codec registered under
// the "json" content-subtype.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/auth"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type AuthGateway interface {
	Login(ctx context.Context, userName, password string) (*services.LoginResult, error)
	Register(ctx context.Context, userName, password, email, role string) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

type PinGate interface {
	SetPin(ctx context.Context, userID, pin string) error
	AuthorizeReveal(ctx context.Context, userID, credentialID, pin string) (string, error)
}

type GRPCServer struct {
	address string
	auth    AuthGateway
	pins    PinGate
	logger  logging.Logger
	health  *health.Server
}

func NewGRPCServer(a string, l logging.Logger, gw AuthGateway, pins PinGate) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    gw,
		pins:    pins,
		health:  health.NewServer(),
	}
}

// newServer builds the grpc.Server with interceptors and every service
// registered. Split from Run so tests can serve it on a bufconn listener.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoverInterceptor, s.accessTokenInterceptor))

	srv.RegisterService(&authServiceDesc, s)
	srv.RegisterService(&pinServiceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)

	s.health.SetServingStatus(AuthServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(PinServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}
	return nil
}
