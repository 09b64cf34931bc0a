package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	AuthServiceName = "gophvault.v1.AuthService"
	PinServiceName  = "gophvault.v1.PinService"

	MethodLogin    = "/" + AuthServiceName + "/Login"
	MethodRefresh  = "/" + AuthServiceName + "/Refresh"
	MethodLogout   = "/" + AuthServiceName + "/Logout"
	MethodRegister = "/" + AuthServiceName + "/Register"
	MethodSetPin   = "/" + PinServiceName + "/SetPin"
	MethodReveal   = "/" + PinServiceName + "/Reveal"
)

// AuthServer is implemented by GRPCServer.
type AuthServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	Logout(context.Context, *LogoutRequest) (*MessageResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
}

type PinServer interface {
	SetPin(context.Context, *SetPinRequest) (*MessageResponse, error)
	Reveal(context.Context, *RevealRequest) (*RevealResponse, error)
}

// unary adapts a typed method to grpc.MethodDesc the same way generated
// code does, so interceptors still see the decoded request.
func unary[S any, Req any, Resp any](name, fullMethod string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", MethodLogin, AuthServer.Login),
		unary("Refresh", MethodRefresh, AuthServer.Refresh),
		unary("Logout", MethodLogout, AuthServer.Logout),
		unary("Register", MethodRegister, AuthServer.Register),
	},
	Metadata: "gophvault/v1/auth",
}

var pinServiceDesc = grpc.ServiceDesc{
	ServiceName: PinServiceName,
	HandlerType: (*PinServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SetPin", MethodSetPin, PinServer.SetPin),
		unary("Reveal", MethodReveal, PinServer.Reveal),
	},
	Metadata: "gophvault/v1/pin",
}
