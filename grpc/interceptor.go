package grpc

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sa "github.com/panyam/stackauth"
)

// TokenAuthenticator validates tokens outside of an HTTP request.
// *stackexchange.Strategy implements it.
type TokenAuthenticator interface {
	AuthenticateToken(ctx context.Context, accessToken, refreshToken string) *sa.Result
}

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// Authenticator checks the tokens found in the metadata
	Authenticator TokenAuthenticator

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests without a token proceed anonymously.
	RequireAuth bool

	// PublicMethods is a set of method names that bypass authentication.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool

	Logger *slog.Logger
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig(auth TokenAuthenticator) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Authenticator: auth,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(auth TokenAuthenticator, publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig(auth)
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig(auth TokenAuthenticator) *InterceptorConfig {
	config := DefaultInterceptorConfig(auth)
	config.RequireAuth = false
	return config
}

func (c *InterceptorConfig) ensureDefaults() {
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that authenticates
// the tokens in the call metadata.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	if config == nil {
		config = DefaultInterceptorConfig(nil)
	}
	config.ensureDefaults()

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := config.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a gRPC stream interceptor that authenticates
// the tokens in the stream metadata.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	if config == nil {
		config = DefaultInterceptorConfig(nil)
	}
	config.ensureDefaults()

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := config.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &authServerStream{ServerStream: ss, ctx: ctx})
	}
}

// authenticate returns the context handlers should see.  The user ID key in
// that context is only ever set by a successful authentication.
func (c *InterceptorConfig) authenticate(ctx context.Context, method string) (context.Context, error) {
	anonymous := withUserID(ctx, c.MetadataKeyUserID, "")
	if c.PublicMethods[method] {
		return anonymous, nil
	}

	accessToken, refreshToken := tokensFromContext(ctx, c.Config)
	if accessToken == "" {
		if c.RequireAuth {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return anonymous, nil
	}
	if c.Authenticator == nil {
		return nil, status.Error(codes.Internal, "no token authenticator configured")
	}

	res := c.Authenticator.AuthenticateToken(ctx, accessToken, refreshToken)
	switch res.Kind {
	case sa.OutcomeSuccess:
		return withUserID(ctx, c.MetadataKeyUserID, res.User.Id()), nil
	case sa.OutcomeError:
		c.Logger.Error("token authentication failed", "method", method, "error", res.Err)
		return nil, status.Error(codes.Internal, "authentication error")
	default:
		c.Logger.Info("token rejected", "method", method, "info", res.Info)
		if c.RequireAuth {
			return nil, status.Error(codes.Unauthenticated, "invalid access token")
		}
		return anonymous, nil
	}
}

// authServerStream overrides the stream context with the authenticated one
type authServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authServerStream) Context() context.Context { return s.ctx }
