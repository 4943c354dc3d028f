package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.MetadataKeyUserID != "x-user-id" {
		t.Errorf("expected x-user-id, got %s", config.MetadataKeyUserID)
	}
	if config.MetadataKeyAccessToken != "access_token" || config.MetadataKeyRefreshToken != "refresh_token" {
		t.Errorf("unexpected token keys %+v", config)
	}
}

func TestEnsureDefaults(t *testing.T) {
	config := &Config{MetadataKeyAccessToken: "token"}
	config.EnsureDefaults()
	if config.MetadataKeyUserID != DefaultMetadataKeyUserID {
		t.Errorf("expected default user key, got %s", config.MetadataKeyUserID)
	}
	if config.MetadataKeyAccessToken != "token" {
		t.Error("EnsureDefaults should keep explicit keys")
	}
}

func TestUserIDFromContext(t *testing.T) {
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty user id, got %q", got)
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(DefaultMetadataKeyUserID, "user123"))
	if got := UserIDFromContext(ctx); got != "user123" {
		t.Errorf("expected user123, got %q", got)
	}
	if !IsAuthenticated(ctx) {
		t.Error("expected authenticated context")
	}
}

func TestUserIDFromContextWithConfig(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-custom-user", "u9"))
	if got := UserIDFromContextWithConfig(ctx, &Config{MetadataKeyUserID: "x-custom-user"}); got != "u9" {
		t.Errorf("expected u9, got %q", got)
	}
	if got := UserIDFromContext(ctx); got != "" {
		t.Errorf("default key should not match, got %q", got)
	}
}

func TestTokensFromContext(t *testing.T) {
	tests := []struct {
		name        string
		md          metadata.MD
		wantAccess  string
		wantRefresh string
	}{
		{"none", metadata.MD{}, "", ""},
		{"explicit", metadata.Pairs("access_token", "a1", "refresh_token", "r1"), "a1", "r1"},
		{"bearer", metadata.Pairs("authorization", "Bearer a2"), "a2", ""},
		{"lowercase bearer", metadata.Pairs("authorization", "bearer a3"), "a3", ""},
		{"explicit wins", metadata.Pairs("access_token", "a1", "authorization", "Bearer a2"), "a1", ""},
		{"basic ignored", metadata.Pairs("authorization", "Basic Zm9vOmJhcg=="), "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), tt.md)
			access, refresh := tokensFromContext(ctx, DefaultConfig())
			if access != tt.wantAccess || refresh != tt.wantRefresh {
				t.Errorf("got (%q, %q), want (%q, %q)", access, refresh, tt.wantAccess, tt.wantRefresh)
			}
		})
	}
}

func TestTokensToOutgoingContext(t *testing.T) {
	ctx := TokensToOutgoingContext(context.Background(), "a1", "r1")
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	if got := md.Get("access_token"); len(got) != 1 || got[0] != "a1" {
		t.Errorf("unexpected access token %v", got)
	}
	if got := md.Get("refresh_token"); len(got) != 1 || got[0] != "r1" {
		t.Errorf("unexpected refresh token %v", got)
	}

	ctx = BearerToOutgoingContext(context.Background(), "a2")
	md, _ = metadata.FromOutgoingContext(ctx)
	if got := md.Get("authorization"); len(got) != 1 || got[0] != "Bearer a2" {
		t.Errorf("unexpected authorization %v", got)
	}
}
