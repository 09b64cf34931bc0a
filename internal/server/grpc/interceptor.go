package grpc

import (
	"context"
	"runtime/debug"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	claimsKey      ctxKey = "claims"
	accessTokenKey ctxKey = "access_token"
)

// accessTokenHeader is the legacy metadata key; "authorization: Bearer ..."
// is accepted as well.
const accessTokenHeader = "access_token"

// protectedMethods require a valid, unrevoked access token. tokenOnlyMethods
// only need one to be present; the handler verifies it.
var (
	protectedMethods = map[string]bool{
		MethodSetPin: true,
		MethodReveal: true,
	}
	tokenOnlyMethods = map[string]bool{
		MethodLogout: true,
	}
)

func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(accessTokenHeader); len(v) > 0 && v[0] != "" {
		return v[0]
	}
	if v := md.Get("authorization"); len(v) > 0 {
		scheme, token, ok := strings.Cut(v[0], " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	protected := protectedMethods[info.FullMethod]
	if !protected && !tokenOnlyMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	accessToken := tokenFromMetadata(ctx)
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	ctx = context.WithValue(ctx, accessTokenKey, accessToken)

	if protected {
		claims, err := s.auth.Authenticate(ctx, accessToken)
		if err != nil {
			return nil, toStatus(err)
		}
		ctx = context.WithValue(ctx, claimsKey, claims)
	}

	return handler(ctx, req)
}

func (s *GRPCServer) recoverInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "panic in grpc handler", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			err = status.Error(codes.Internal, common.ErrorInternal.Error())
		}
	}()
	return handler(ctx, req)
}

func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}
