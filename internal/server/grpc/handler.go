package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const tokenTypeBearer = "Bearer"

// toStatus maps service errors to gRPC codes. Token failures collapse into a
// single Unauthenticated message.
func toStatus(err error) error {
	switch {
	case common.IsTokenError(err), errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, common.ErrAuthenticationFailed):
		return status.Error(codes.Unauthenticated, common.ErrAuthenticationFailed.Error())
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, "invalid refresh token")
	case errors.Is(err, common.ErrPinMismatch):
		return status.Error(codes.PermissionDenied, common.ErrPinMismatch.Error())
	case errors.Is(err, common.ErrPinNotSet):
		return status.Error(codes.FailedPrecondition, common.ErrPinNotSet.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, common.ErrorNotFound.Error())
	case errors.Is(err, common.ErrConflict):
		return status.Error(codes.AlreadyExists, common.ErrConflict.Error())
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidPinFormat),
		errors.Is(err, common.ErrInvalidParameters):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	res, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	roles := make([]string, 0, len(res.Roles))
	for _, r := range res.Roles {
		roles = append(roles, string(r))
	}
	return &LoginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(res.ExpiresIn.Seconds()),
		Username:     res.UserName,
		Roles:        roles,
	}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *RefreshRequest) (*RefreshResponse, error) {
	if req.RefreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refreshToken is required")
	}

	pair, err := s.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
		}
		return nil, toStatus(err)
	}
	return &RefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *LogoutRequest) (*MessageResponse, error) {
	token, _ := ctx.Value(accessTokenKey).(string)
	if err := s.auth.Logout(ctx, token, req.RefreshToken); err != nil {
		return nil, toStatus(err)
	}
	return &MessageResponse{Message: "logged out"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	u, err := s.auth.Register(ctx, req.Username, req.Password, req.Email, req.Role)
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "user_id", u.ID)
	return &RegisterResponse{ID: u.ID, Username: u.UserName, Email: u.Email, Role: string(u.Role)}, nil
}

func (s *GRPCServer) SetPin(ctx context.Context, req *SetPinRequest) (*MessageResponse, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if err := s.pins.SetPin(ctx, claims.UserID, req.Pin); err != nil {
		return nil, toStatus(err)
	}
	return &MessageResponse{Message: "PIN set"}, nil
}

func (s *GRPCServer) Reveal(ctx context.Context, req *RevealRequest) (*RevealResponse, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	pw, err := s.pins.AuthorizeReveal(ctx, claims.UserID, req.CredentialID, req.Pin)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RevealResponse{Password: pw}, nil
}
