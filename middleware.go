package stackauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Middleware dispatches requests to registered strategies and turns their
// outcomes into HTTP responses.
type Middleware struct {
	// Where to send browsers when every strategy fails.  A 401 is returned if empty.
	FailureRedirect string

	// Query parameter carrying the original URL on a failure redirect
	CallbackURLParam string

	// Optional.  Called after a successful authentication to persist the login.
	Sessions *SessionIssuer

	// Optional outcome counters
	Metrics *Metrics

	Logger *slog.Logger

	mu         sync.RWMutex
	strategies map[string]Strategy
}

// EnsureReasonableDefaults fills unset config values
func (a *Middleware) EnsureReasonableDefaults() {
	if a.CallbackURLParam == "" {
		a.CallbackURLParam = "callbackURL"
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
}

// Use registers a strategy under its name, replacing any previous one
func (a *Middleware) Use(s Strategy) *Middleware {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.strategies == nil {
		a.strategies = make(map[string]Strategy)
	}
	a.strategies[s.Name()] = s
	return a
}

// Strategy returns the strategy registered under name
func (a *Middleware) Strategy(name string) (Strategy, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown authentication strategy: %s", name)
	}
	return s, nil
}

// Authenticate returns middleware that runs the named strategies in order.
// The first success wins; an error stops the chain with a 500; if every
// strategy fails the request is rejected.
func (a *Middleware) Authenticate(names ...string) func(http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var failures []any
			for _, name := range names {
				s, err := a.Strategy(name)
				if err != nil {
					a.Logger.Error("strategy lookup failed", "strategy", name, "err", err)
					http.Error(w, "Authentication misconfigured", http.StatusInternalServerError)
					return
				}

				res := Run(s, r, &AuthOptions{})
				a.Metrics.observe(name, res.Kind)
				switch res.Kind {
				case OutcomeSuccess:
					if a.Sessions != nil {
						if err := a.Sessions.Issue(w, r, res.User); err != nil {
							a.Logger.Error("error issuing session", "strategy", name, "err", err)
							http.Error(w, "Authentication error", http.StatusInternalServerError)
							return
						}
					}
					next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), res.User, res.Info)))
					return
				case OutcomeError:
					a.Logger.Error("authentication error", "strategy", name, "err", res.Err)
					http.Error(w, "Authentication error", http.StatusInternalServerError)
					return
				case OutcomeFail:
					a.Logger.Debug("authentication failed", "strategy", name, "info", res.Info)
					failures = append(failures, res.Info)
				default:
					a.Logger.Error("strategy signalled no outcome", "strategy", name)
					http.Error(w, "Authentication error", http.StatusInternalServerError)
					return
				}
			}
			a.fail(w, r, r.URL.Path, failures)
		})
	}
}

// CompleteLogin answers the browser at the end of an interactive login run
// by the named strategy.  On success a session is issued and the browser is
// sent to successURL; failures are handled as in Authenticate.
func (a *Middleware) CompleteLogin(name string, w http.ResponseWriter, r *http.Request, res *Result, successURL string) {
	a.EnsureReasonableDefaults()
	a.Metrics.observe(name, res.Kind)
	switch res.Kind {
	case OutcomeSuccess:
		if a.Sessions != nil {
			if err := a.Sessions.Issue(w, r, res.User); err != nil {
				a.Logger.Error("error issuing session", "strategy", name, "err", err)
				http.Error(w, "Authentication error", http.StatusInternalServerError)
				return
			}
		}
		a.Logger.Info("login completed", "strategy", name, "user", res.User.Id())
		http.Redirect(w, r, successURL, http.StatusFound)
	case OutcomeFail:
		a.Logger.Debug("login failed", "strategy", name, "info", res.Info)
		a.fail(w, r, successURL, []any{res.Info})
	case OutcomeError:
		a.Logger.Error("login error", "strategy", name, "err", res.Err)
		http.Error(w, "Authentication error", http.StatusInternalServerError)
	default:
		a.Logger.Error("strategy signalled no outcome", "strategy", name)
		http.Error(w, "Authentication error", http.StatusInternalServerError)
	}
}

// fail rejects the request.  returnTo is where a redirected browser should
// come back to after logging in.
func (a *Middleware) fail(w http.ResponseWriter, r *http.Request, returnTo string, failures []any) {
	if a.FailureRedirect != "" {
		encodedUrl := strings.Replace(url.QueryEscape(returnTo), "+", "%20", -1)
		http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", a.FailureRedirect, a.CallbackURLParam, encodedUrl), http.StatusFound)
		return
	}

	resp := map[string]any{"error": "unauthorized"}
	for _, info := range failures {
		if msg := describeInfo(info); msg != "" {
			resp["error_description"] = msg
			break
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(resp)
}

func describeInfo(info any) string {
	switch v := info.(type) {
	case nil:
		return ""
	case string:
		return v
	case error:
		var oe *OAuthError
		if errors.As(v, &oe) {
			return oe.Error()
		}
		var e *Error
		if errors.As(v, &e) {
			return e.Message
		}
		return v.Error()
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return ""
}

// MeHandler writes the authenticated user as JSON.  Mount it behind
// Authenticate.
func MeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		resp := map[string]any{"id": user.Id(), "profile": user.Profile()}
		if info := InfoFromContext(r.Context()); info != nil {
			resp["info"] = info
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
}
