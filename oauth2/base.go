// Package oauth2 holds the OAuth2 capabilities shared by provider strategies:
// client configuration, endpoints, HTTP client injection and the
// authorization-code redirect and callback, all delegated to golang.org/x/oauth2.
package oauth2

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// HTTPClient is used for every outbound provider call.
	// Defaults to http.DefaultClient when nil.
	HTTPClient *http.Client

	oauthConfig oauth2.Config
	mux         *http.ServeMux
}

func NewBaseOAuth2(clientId string, clientSecret string, callbackUrl string, endpoint oauth2.Endpoint, scopes ...string) *BaseOAuth2 {
	out := &BaseOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		mux:          http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}
	out.mux.HandleFunc("/", OauthRedirector(&out.oauthConfig))
	return out
}

var (
	// ErrInvalidState is returned when the callback state does not match the state cookie
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrMissingCode is returned when the callback carries neither a code nor an error
	ErrMissingCode = errors.New("missing authorization code")
)

// CallbackError is the error a provider reports on the callback URL
type CallbackError struct {
	Code        string
	Description string
	URI         string
}

func (e *CallbackError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// SetHTTPClient sets the client used for provider calls
func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.HTTPClient = client
}

// Client returns the configured HTTP client or http.DefaultClient
func (b *BaseOAuth2) Client() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// SetOAuthEndpoint overrides the authorize and token endpoints
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

func (b *BaseOAuth2) Endpoint() oauth2.Endpoint {
	return b.oauthConfig.Endpoint
}

func (b *BaseOAuth2) Scopes() []string {
	return b.oauthConfig.Scopes
}

// ExchangeContext returns ctx carrying the injected HTTP client so that
// x/oauth2 uses it for token calls
func (b *BaseOAuth2) ExchangeContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, b.HTTPClient)
	}
	return ctx
}

// AuthCodeURL returns the provider authorize URL for state
func (b *BaseOAuth2) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return b.oauthConfig.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a token
func (b *BaseOAuth2) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	return b.oauthConfig.Exchange(b.ExchangeContext(ctx), code, opts...)
}

// ExchangeCallback validates the state of an authorization callback and
// trades its code for a token.  The state cookie is cleared either way.
func (b *BaseOAuth2) ExchangeCallback(w http.ResponseWriter, r *http.Request) (*oauth2.Token, error) {
	oauthState, _ := r.Cookie(StateCookieName)
	http.SetCookie(w, &http.Cookie{Name: StateCookieName, Path: "/", MaxAge: -1, HttpOnly: true})
	if oauthState == nil || oauthState.Value == "" || r.FormValue("state") != oauthState.Value {
		return nil, ErrInvalidState
	}

	if code := r.FormValue("error"); code != "" {
		return nil, &CallbackError{
			Code:        code,
			Description: r.FormValue("error_description"),
			URI:         r.FormValue("error_uri"),
		}
	}

	code := r.FormValue("code")
	if code == "" {
		return nil, ErrMissingCode
	}
	token, err := b.Exchange(r.Context(), code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return token, nil
}

// HandleCallback mounts h at /callback, relative to wherever Handler is mounted
func (b *BaseOAuth2) HandleCallback(h http.Handler) {
	b.mux.Handle("/callback", h)
	b.mux.Handle("/callback/", h)
}

// Handler serves the authorize redirect at the root of wherever it is
// mounted, and the callback once one is registered.
func (b *BaseOAuth2) Handler() http.Handler {
	return b.mux
}
