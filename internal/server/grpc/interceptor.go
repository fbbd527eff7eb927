package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/adminaccess/internal/common"
	"github.com/dmitrijs2005/adminaccess/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "sessionClaims"

// ClaimsFromContext returns the session claims stored by the session
// interceptor.
func ClaimsFromContext(ctx context.Context) (*auth.SessionClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.SessionClaims)
	return c, ok && c != nil
}

func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
		v := strings.TrimSpace(values[0])
		if len(v) > len(common.BearerPrefix) && strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
			return strings.TrimSpace(v[len(common.BearerPrefix):])
		}
	}
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func (s *GRPCServer) sessionInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.isPublic(info.FullMethod) {
		return handler(ctx, req)
	}

	token := tokenFromMetadata(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.access.VerifySession(token)
	if err != nil {
		s.logger.Debug(ctx, "session rejected", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(context.WithValue(ctx, claimsKey, claims), req)
}

func (s *GRPCServer) permissionInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	permission, ok := s.permissions[info.FullMethod]
	if !ok {
		return handler(ctx, req)
	}

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}

	allowed, err := s.access.CheckPermission(ctx, claims.Email, permission)
	if err != nil {
		s.logger.Error(ctx, "permission check failed", "email", claims.Email, "permission", permission, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	if !allowed {
		s.logger.Info(ctx, "permission denied", "email", claims.Email, "permission", permission, "method", info.FullMethod)
		return nil, status.Error(codes.PermissionDenied, "permission denied")
	}

	return handler(ctx, req)
}
