// Package grpc authenticates gRPC calls that carry a Stack Exchange access
// token in their metadata, and passes the resulting user ID to handlers.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Default metadata keys
const (
	// DefaultMetadataKeyUserID carries the authenticated user ID to handlers
	DefaultMetadataKeyUserID = "x-user-id"

	DefaultMetadataKeyAccessToken  = "access_token"
	DefaultMetadataKeyRefreshToken = "refresh_token"
	MetadataKeyAuthorization       = "authorization"
)

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyUserID is the gRPC metadata key for the authenticated user ID.
	// Defaults to "x-user-id".
	MetadataKeyUserID string

	// MetadataKeyAccessToken and MetadataKeyRefreshToken name the token keys.
	// Defaults to "access_token" and "refresh_token".
	MetadataKeyAccessToken  string
	MetadataKeyRefreshToken string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyUserID:       DefaultMetadataKeyUserID,
		MetadataKeyAccessToken:  DefaultMetadataKeyAccessToken,
		MetadataKeyRefreshToken: DefaultMetadataKeyRefreshToken,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
	if c.MetadataKeyAccessToken == "" {
		c.MetadataKeyAccessToken = DefaultMetadataKeyAccessToken
	}
	if c.MetadataKeyRefreshToken == "" {
		c.MetadataKeyRefreshToken = DefaultMetadataKeyRefreshToken
	}
}

// UserIDFromContext extracts the authenticated user ID from the gRPC context metadata.
// Returns empty string if no user is authenticated.
func UserIDFromContext(ctx context.Context) string {
	return UserIDFromContextWithConfig(ctx, nil)
}

// UserIDFromContextWithConfig extracts the authenticated user ID using the specified config.
func UserIDFromContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()
	return firstValue(ctx, config.MetadataKeyUserID)
}

// IsAuthenticated returns true if there is an authenticated user in the context.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

// TokensToOutgoingContext attaches an access token, and optionally a refresh
// token, to outgoing gRPC metadata.
func TokensToOutgoingContext(ctx context.Context, accessToken, refreshToken string) context.Context {
	ctx = metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAccessToken, accessToken)
	if refreshToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyRefreshToken, refreshToken)
	}
	return ctx
}

// BearerToOutgoingContext attaches an access token as "authorization: Bearer <token>"
func BearerToOutgoingContext(ctx context.Context, accessToken string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, MetadataKeyAuthorization, "Bearer "+accessToken)
}

// tokensFromContext reads the access and refresh tokens from incoming
// metadata.  The explicit access token key wins over an authorization header.
func tokensFromContext(ctx context.Context, config *Config) (accessToken, refreshToken string) {
	accessToken = firstValue(ctx, config.MetadataKeyAccessToken)
	refreshToken = firstValue(ctx, config.MetadataKeyRefreshToken)
	if accessToken == "" {
		auth := firstValue(ctx, MetadataKeyAuthorization)
		if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			accessToken = strings.TrimSpace(auth[7:])
		}
	}
	return
}

// withUserID replaces any client supplied user ID in the incoming metadata
func withUserID(ctx context.Context, key, userID string) context.Context {
	md, _ := metadata.FromIncomingContext(ctx)
	md = md.Copy()
	if userID == "" {
		md.Delete(key)
	} else {
		md.Set(key, userID)
	}
	return metadata.NewIncomingContext(ctx, md)
}

func firstValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
