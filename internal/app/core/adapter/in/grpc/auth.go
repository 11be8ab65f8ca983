package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-clients/pkg/auth"
)

const authorizationKey = "authorization"

// TokenParser 驗證 Bearer token
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type loginKey struct{}

// LoginFromContext 取得已驗證的登入帳號
func LoginFromContext(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(loginKey{}).(string)
	return login, ok && login != ""
}

// AuthInterceptor 驗證 metadata 中的 Bearer token，Authenticate 不需驗證
func AuthInterceptor(parser TokenParser) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if info.FullMethod == MethodAuthenticate {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get(authorizationKey)
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization metadata")
		}
		token, ok := strings.CutPrefix(values[0], "Bearer ")
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "authorization must be a Bearer token")
		}
		claims, err := parser.Parse(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(context.WithValue(ctx, loginKey{}, claims.Login()), req)
	}
}

// BearerToken 在每次呼叫的 metadata 附上 token
func BearerToken(token string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, authorizationKey, "Bearer "+token)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
