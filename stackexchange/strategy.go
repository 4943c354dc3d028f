// Package stackexchange authenticates requests carrying a Stack Exchange
// access token.  The token is exchanged for the account profile at the
// Stack Exchange API and handed to an application supplied verify callback
// that resolves it to a user.
//
//	strategy, err := stackexchange.New(stackexchange.Options{
//	    StackAppsKey: os.Getenv("STACKEXCHANGE_KEY"),
//	    Verify: func(ctx context.Context, access, refresh string, p *stackauth.Profile) (stackauth.User, any, error) {
//	        return users.FindOrCreate(p.ID, p.DisplayName)
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mw := (&stackauth.Middleware{}).Use(strategy)
//	mux.Handle("/api/", mw.Authenticate(strategy.Name())(api))
package stackexchange

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	sa "github.com/panyam/stackauth"
	oa2 "github.com/panyam/stackauth/oauth2"
)

// StrategyName is the name the strategy registers under
const StrategyName = "stackexchange-token"

// Strategy is a stackauth.Strategy for Stack Exchange bearer tokens
type Strategy struct {
	*oa2.BaseOAuth2

	profileURL   string
	site         string
	stackAppsKey string

	passReqToCallback bool
	verify            VerifyFunc
	verifyRequest     VerifyRequestFunc
	skipUserProfile   SkipDecision

	logger *slog.Logger
}

// New validates opts and builds a Strategy.  A missing StackAppsKey or
// verify callback is reported here rather than on the first request.
func New(opts Options) (*Strategy, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.ensureDefaults()

	scopes, unknown := ValidateScopes(opts.Scopes)
	if len(unknown) > 0 {
		// Passed through as is, Stack Exchange decides
		opts.Logger.Warn("unknown stack exchange scopes requested", "scopes", unknown)
		scopes = append(scopes, unknown...)
	}

	out := &Strategy{
		BaseOAuth2: oa2.NewBaseOAuth2(opts.ClientID, opts.ClientSecret, opts.CallbackURL, oauth2.Endpoint{
			AuthURL:   opts.AuthorizationURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		}, scopes...),
		profileURL:        opts.ProfileURL,
		site:              opts.Site,
		stackAppsKey:      opts.StackAppsKey,
		passReqToCallback: opts.PassReqToCallback,
		verify:            opts.Verify,
		verifyRequest:     opts.VerifyRequest,
		skipUserProfile:   opts.SkipUserProfile,
		logger:            opts.Logger,
	}
	out.SetHTTPClient(opts.HTTPClient)
	return out, nil
}

func (s *Strategy) Name() string { return StrategyName }

// ProfileURL returns the configured profile endpoint
func (s *Strategy) ProfileURL() string { return s.profileURL }

// Site returns the Stack Exchange site profiles are read from
func (s *Strategy) Site() string { return s.site }

// Authenticate implements stackauth.Strategy
func (s *Strategy) Authenticate(r *http.Request, opts *sa.AuthOptions, out sa.Outcome) {
	if oauthErr := sa.OAuthErrorFromQuery(r.URL.Query()); oauthErr != nil {
		s.logger.Info("provider reported an oauth error", "error", oauthErr.ErrorCode, "description", oauthErr.Description)
		out.Fail(oauthErr)
		return
	}

	body, err := sa.ParseBody(r)
	if err != nil {
		s.logger.Debug("request has no usable body", "err", err)
		out.Fail(nil)
		return
	}

	creds := sa.ExtractCredentials(r, body)
	s.authenticate(r.Context(), r, creds, out)
}

// AuthenticateToken runs the profile load and verify steps for tokens that
// did not arrive in an HTTP request.  With PassReqToCallback set the verify
// callback receives a nil request.
func (s *Strategy) AuthenticateToken(ctx context.Context, accessToken, refreshToken string) *sa.Result {
	out := &sa.Result{}
	s.authenticate(ctx, nil, sa.Credentials{AccessToken: accessToken, RefreshToken: refreshToken}, out)
	return out
}

// LoginFunc receives the outcome of a browser login that came back through
// the authorization callback.
type LoginFunc func(w http.ResponseWriter, r *http.Request, res *sa.Result)

// HandleLogin serves the authorization callback under Handler.  The code is
// exchanged for tokens which then go through the same profile and verify
// steps as bearer tokens; fn decides what to send the browser.
func (s *Strategy) HandleLogin(fn LoginFunc) {
	s.HandleCallback(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := &sa.Result{}
		token, err := s.ExchangeCallback(w, r)
		var callbackErr *oa2.CallbackError
		switch {
		case errors.As(err, &callbackErr):
			s.logger.Info("provider reported an oauth error", "error", callbackErr.Code, "description", callbackErr.Description)
			res.Fail(&sa.OAuthError{ErrorCode: callbackErr.Code, Description: callbackErr.Description, URI: callbackErr.URI})
		case err != nil:
			s.logger.Info("authorization callback rejected", "err", err)
			res.Fail(err)
		default:
			s.authenticate(r.Context(), r, sa.Credentials{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}, res)
		}
		fn(w, r, res)
	}))
}

func (s *Strategy) authenticate(ctx context.Context, r *http.Request, creds sa.Credentials, out sa.Outcome) {
	profile, err := s.loadUserProfile(ctx, creds.AccessToken)
	if err != nil {
		s.logger.Info("error loading user profile", "err", err)
		out.Fail(err)
		return
	}

	var user sa.User
	var info any
	if s.passReqToCallback {
		user, info, err = s.verifyRequest(r, creds.AccessToken, creds.RefreshToken, profile)
	} else {
		user, info, err = s.verify(ctx, creds.AccessToken, creds.RefreshToken, profile)
	}

	switch {
	case err != nil:
		out.Error(err)
	case user == nil:
		out.Fail(info)
	default:
		out.Success(user, info)
	}
}

// loadUserProfile fetches the profile unless the skip decision says otherwise,
// in which case the profile is nil.
func (s *Strategy) loadUserProfile(ctx context.Context, accessToken string) (*sa.Profile, error) {
	skip, err := resolveSkip(ctx, s.skipUserProfile, accessToken)
	if err != nil {
		return nil, err
	}
	if skip {
		return nil, nil
	}
	return s.UserProfile(ctx, accessToken)
}
