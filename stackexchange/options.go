package stackexchange

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/caarlos0/env/v11"

	sa "github.com/panyam/stackauth"
)

// Fixed provider endpoints used when the options leave them empty
const (
	DefaultAuthorizationURL = "https://stackoverflow.com/oauth"
	DefaultTokenURL         = "https://stackoverflow.com/oauth/access_token"
	DefaultProfileURL       = "https://api.stackexchange.com/2.3/me"
	DefaultSite             = "stackoverflow"
)

// VerifyFunc resolves a token and its profile to an application user.
// Returning a nil user with a nil error rejects the credential; info
// optionally explains why.  A non nil error reports an unexpected fault.
type VerifyFunc func(ctx context.Context, accessToken, refreshToken string, profile *sa.Profile) (user sa.User, info any, err error)

// VerifyRequestFunc is a VerifyFunc that also receives the inbound request
type VerifyRequestFunc func(r *http.Request, accessToken, refreshToken string, profile *sa.Profile) (user sa.User, info any, err error)

// Options configures a Strategy
type Options struct {
	ClientID     string `env:"STACKEXCHANGE_CLIENT_ID"`
	ClientSecret string `env:"STACKEXCHANGE_CLIENT_SECRET"`
	CallbackURL  string `env:"STACKEXCHANGE_CALLBACK_URL"`

	AuthorizationURL string `env:"STACKEXCHANGE_AUTHORIZATION_URL"`
	TokenURL         string `env:"STACKEXCHANGE_TOKEN_URL"`
	ProfileURL       string `env:"STACKEXCHANGE_PROFILE_URL"`

	// Site is the Stack Exchange site the profile is read from
	Site string `env:"STACKEXCHANGE_SITE"`

	// StackAppsKey is the application key issued by stackapps.com.  Required.
	StackAppsKey string `env:"STACKEXCHANGE_KEY"`

	Scopes []string `env:"STACKEXCHANGE_SCOPES" envSeparator:","`

	// PassReqToCallback selects VerifyRequest instead of Verify
	PassReqToCallback bool `env:"STACKEXCHANGE_PASS_REQ_TO_CALLBACK"`

	Verify        VerifyFunc
	VerifyRequest VerifyRequestFunc

	// SkipUserProfile decides per token whether the profile fetch is skipped.
	// nil always loads the profile.
	SkipUserProfile SkipDecision

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// LoadOptionsFromEnv reads the string and flag options from the environment.
// Callbacks, the HTTP client and the logger must be set by the caller.
func LoadOptionsFromEnv() (Options, error) {
	var opts Options
	if err := env.Parse(&opts); err != nil {
		return opts, fmt.Errorf("parse env: %w", err)
	}
	opts.Scopes = ParseScopes(strings.Join(opts.Scopes, " "))
	return opts, nil
}

// ErrMissingAppKey is returned by New when StackAppsKey is empty
var ErrMissingAppKey = sa.WrapError(sa.CodeConfiguration, "StackExchangeStrategy requires a stackAppsKey option", nil)

func (o *Options) ensureDefaults() {
	if o.AuthorizationURL == "" {
		o.AuthorizationURL = DefaultAuthorizationURL
	}
	if o.TokenURL == "" {
		o.TokenURL = DefaultTokenURL
	}
	if o.ProfileURL == "" {
		o.ProfileURL = DefaultProfileURL
	}
	if o.Site == "" {
		o.Site = DefaultSite
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

func (o *Options) validate() error {
	if o.StackAppsKey == "" {
		return ErrMissingAppKey
	}
	if o.PassReqToCallback && o.VerifyRequest == nil {
		return sa.WrapError(sa.CodeConfiguration, "StackExchangeStrategy requires a VerifyRequest callback when PassReqToCallback is set", nil)
	}
	if !o.PassReqToCallback && o.Verify == nil {
		return sa.WrapError(sa.CodeConfiguration, "StackExchangeStrategy requires a Verify callback", nil)
	}
	return nil
}
