package stackauth

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
)

// User represents an application user resolved by a verify callback
type User interface {
	Id() string
	Profile() map[string]any
}

// BasicUser is a simple implementation of the User interface
type BasicUser struct {
	ID          string
	UserProfile map[string]any
}

func NewBasicUser(id string, profile map[string]any) *BasicUser {
	return &BasicUser{ID: id, UserProfile: profile}
}

func (b *BasicUser) Id() string              { return b.ID }
func (b *BasicUser) Profile() map[string]any { return b.UserProfile }

// Outcome receives the terminal result of a single Authenticate call.
// A strategy signals exactly one of Success, Fail or Error per invocation.
type Outcome interface {
	// Success reports an authenticated user with optional auxiliary info
	Success(user User, info any)

	// Fail reports that the request is not an authenticated request.
	// info optionally explains why (a string, an error or any value).
	Fail(info any)

	// Error reports an unexpected condition (a bug or infrastructure fault)
	// as opposed to a rejected credential.
	Error(err error)
}

// AuthOptions is the per-call options bundle passed by the host
type AuthOptions struct {
	// Extra host supplied values.  Strategies may ignore these.
	Extra map[string]any
}

// Strategy is a pluggable authentication handler registered with a host
// under a unique name.
type Strategy interface {
	Name() string
	Authenticate(r *http.Request, opts *AuthOptions, out Outcome)
}

// OutcomeKind identifies which of the three outcomes was signalled
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeSuccess
	OutcomeFail
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFail:
		return "fail"
	case OutcomeError:
		return "error"
	}
	return "pending"
}

// Result is an Outcome that records the first signal it receives.
// Subsequent signals are dropped and logged.
type Result struct {
	mu   sync.Mutex
	Kind OutcomeKind
	User User
	Info any
	Err  error
}

func (r *Result) record(kind OutcomeKind, user User, info any, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Kind != OutcomePending {
		slog.Warn("dropping duplicate authentication outcome", "first", r.Kind, "dropped", kind)
		return
	}
	r.Kind, r.User, r.Info, r.Err = kind, user, info, err
}

func (r *Result) Success(user User, info any) { r.record(OutcomeSuccess, user, info, nil) }
func (r *Result) Fail(info any)               { r.record(OutcomeFail, nil, info, nil) }
func (r *Result) Error(err error)             { r.record(OutcomeError, nil, nil, err) }

// Run invokes the strategy against the request and returns what it signalled
func Run(s Strategy, r *http.Request, opts *AuthOptions) *Result {
	out := &Result{}
	s.Authenticate(r, opts, out)
	return out
}

type userContextKey struct{}
type infoContextKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user and info
func WithUser(ctx context.Context, user User, info any) context.Context {
	ctx = context.WithValue(ctx, userContextKey{}, user)
	return context.WithValue(ctx, infoContextKey{}, info)
}

// UserFromContext returns the user stored by the middleware, or nil
func UserFromContext(ctx context.Context) User {
	u, _ := ctx.Value(userContextKey{}).(User)
	return u
}

// InfoFromContext returns the auxiliary info reported with the user
func InfoFromContext(ctx context.Context) any {
	return ctx.Value(infoContextKey{})
}
