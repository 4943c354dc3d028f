package grpc

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	sa "github.com/panyam/stackauth"
)

// fakeAuthenticator accepts "good", rejects "bad" and breaks on anything else
type fakeAuthenticator struct {
	calls       int
	lastRefresh string
}

func (f *fakeAuthenticator) AuthenticateToken(ctx context.Context, accessToken, refreshToken string) *sa.Result {
	f.calls++
	f.lastRefresh = refreshToken
	res := &sa.Result{}
	switch accessToken {
	case "good":
		res.Success(sa.NewBasicUser("user123", nil), nil)
	case "bad":
		res.Fail("invalid token")
	default:
		res.Error(errors.New("upstream down"))
	}
	return res
}

func incoming(pairs ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

func runUnary(t *testing.T, config *InterceptorConfig, ctx context.Context) (string, bool, error) {
	t.Helper()
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}
	var userID string
	called := false
	_, err := UnaryAuthInterceptor(config)(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		userID = UserIDFromContext(ctx)
		return "ok", nil
	})
	return userID, called, err
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected grpc status error, got %v", err)
	}
	if st.Code() != want {
		t.Errorf("expected %v, got %v", want, st.Code())
	}
}

func TestDefaultInterceptorConfig(t *testing.T) {
	config := DefaultInterceptorConfig(nil)
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true by default")
	}
	if config.PublicMethods == nil || config.Config == nil {
		t.Error("expected config to be initialized")
	}

	config = NewPublicMethodsConfig(nil, "/pkg.Svc/Method1")
	if !config.PublicMethods["/pkg.Svc/Method1"] || config.PublicMethods["/pkg.Svc/Method2"] {
		t.Errorf("unexpected public methods %v", config.PublicMethods)
	}

	if OptionalAuthConfig(nil).RequireAuth {
		t.Error("expected RequireAuth to be false")
	}
}

func TestUnaryAuthInterceptor_Success(t *testing.T) {
	auth := &fakeAuthenticator{}
	userID, called, err := runUnary(t, DefaultInterceptorConfig(auth), incoming("access_token", "good", "refresh_token", "r1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called || userID != "user123" {
		t.Errorf("expected handler to see user123, got called=%v user=%q", called, userID)
	}
	if auth.lastRefresh != "r1" {
		t.Errorf("expected refresh token to be passed, got %q", auth.lastRefresh)
	}
}

func TestUnaryAuthInterceptor_Bearer(t *testing.T) {
	userID, _, err := runUnary(t, DefaultInterceptorConfig(&fakeAuthenticator{}), incoming("authorization", "Bearer good"))
	if err != nil || userID != "user123" {
		t.Errorf("expected bearer token to authenticate, got %q %v", userID, err)
	}
}

func TestUnaryAuthInterceptor_NoToken(t *testing.T) {
	auth := &fakeAuthenticator{}
	_, called, err := runUnary(t, DefaultInterceptorConfig(auth), context.Background())
	assertCode(t, err, codes.Unauthenticated)
	if called || auth.calls != 0 {
		t.Error("neither handler nor authenticator should run")
	}
}

func TestUnaryAuthInterceptor_Rejected(t *testing.T) {
	_, called, err := runUnary(t, DefaultInterceptorConfig(&fakeAuthenticator{}), incoming("access_token", "bad"))
	assertCode(t, err, codes.Unauthenticated)
	if called {
		t.Error("handler should not be called")
	}
}

func TestUnaryAuthInterceptor_Error(t *testing.T) {
	_, called, err := runUnary(t, OptionalAuthConfig(&fakeAuthenticator{}), incoming("access_token", "boom"))
	assertCode(t, err, codes.Internal)
	if called {
		t.Error("handler should not be called")
	}
}

func TestUnaryAuthInterceptor_SpoofedUserID(t *testing.T) {
	config := OptionalAuthConfig(&fakeAuthenticator{})

	userID, called, err := runUnary(t, config, incoming(DefaultMetadataKeyUserID, "admin"))
	if err != nil || !called {
		t.Fatalf("expected anonymous call to proceed, got %v", err)
	}
	if userID != "" {
		t.Errorf("client supplied user id should be dropped, got %q", userID)
	}

	userID, _, _ = runUnary(t, config, incoming(DefaultMetadataKeyUserID, "admin", "access_token", "bad"))
	if userID != "" {
		t.Errorf("rejected token should leave no user id, got %q", userID)
	}

	userID, _, _ = runUnary(t, config, incoming(DefaultMetadataKeyUserID, "admin", "access_token", "good"))
	if userID != "user123" {
		t.Errorf("expected authenticated user id, got %q", userID)
	}
}

func TestUnaryAuthInterceptor_PublicMethod(t *testing.T) {
	auth := &fakeAuthenticator{}
	config := NewPublicMethodsConfig(auth, "/pkg.Svc/Method")
	_, called, err := runUnary(t, config, incoming("access_token", "boom"))
	if err != nil || !called {
		t.Errorf("public method should bypass auth, got %v", err)
	}
	if auth.calls != 0 {
		t.Error("authenticator should not run for public methods")
	}
}

type mockServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context { return m.ctx }

func TestStreamAuthInterceptor(t *testing.T) {
	interceptor := StreamAuthInterceptor(DefaultInterceptorConfig(&fakeAuthenticator{}))
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/Stream"}

	var userID string
	err := interceptor(nil, &mockServerStream{ctx: incoming("access_token", "good")}, info, func(srv any, ss grpc.ServerStream) error {
		userID = UserIDFromContext(ss.Context())
		return nil
	})
	if err != nil || userID != "user123" {
		t.Errorf("expected stream to see user123, got %q %v", userID, err)
	}

	err = interceptor(nil, &mockServerStream{ctx: incoming("access_token", "bad")}, info, func(srv any, ss grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})
	assertCode(t, err, codes.Unauthenticated)
}
