// Package cache remembers Stack Exchange profiles by access token so repeat
// requests with the same token can skip the profile fetch.
//
// Bind a cache to a strategy's skip and verify hooks:
//
//	b := cache.Bind(cache.NewMemoryCache(10 * time.Minute))
//	strategy, _ := stackexchange.New(stackexchange.Options{
//	    StackAppsKey:    key,
//	    SkipUserProfile: b.Skip(),
//	    Verify:          b.Verifier(verify),
//	})
//
// On a hit the strategy skips the network and the verifier hands the cached
// profile to the wrapped callback.  On a miss the fetched profile is stored.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/crypto/blake2b"

	sa "github.com/panyam/stackauth"
	"github.com/panyam/stackauth/stackexchange"
)

// ErrNotFound is returned by Get when a token has no cached profile
var ErrNotFound = errors.New("profile not cached")

// ProfileCache stores profiles keyed by access token
type ProfileCache interface {
	Get(ctx context.Context, accessToken string) (*sa.Profile, error)
	Put(ctx context.Context, accessToken string, profile *sa.Profile) error
}

// TokenKey hashes an access token so raw tokens are never used as keys
func TokenKey(accessToken string) string {
	sum := blake2b.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:])
}

type heldProfile struct {
	profile *sa.Profile
	refs    int
}

// Binding ties a ProfileCache to one strategy.  The profile found when the
// skip decision is made is held until the verifier for the same token runs,
// so an entry expiring in between does not lose it.
//
// Skip must be paired with Verifier or VerifyRequest on the same strategy.
type Binding struct {
	cache ProfileCache

	mu   sync.Mutex
	held map[string]*heldProfile
}

// Bind returns a Binding for c
func Bind(c ProfileCache) *Binding {
	return &Binding{cache: c, held: make(map[string]*heldProfile)}
}

// Skip skips the profile fetch for tokens whose profile is cached
func (b *Binding) Skip() stackexchange.SkipFunc {
	return func(ctx context.Context, accessToken string) (bool, error) {
		if accessToken == "" {
			return false, nil
		}
		profile, err := b.cache.Get(ctx, accessToken)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		b.hold(accessToken, profile)
		return true, nil
	}
}

// Verifier wraps a verify callback.  A nil profile is filled from what Skip
// found and a freshly fetched one is stored before next runs.
func (b *Binding) Verifier(next stackexchange.VerifyFunc) stackexchange.VerifyFunc {
	return func(ctx context.Context, accessToken, refreshToken string, profile *sa.Profile) (sa.User, any, error) {
		profile, err := b.resolve(ctx, accessToken, profile)
		if err != nil {
			return nil, nil, err
		}
		return next(ctx, accessToken, refreshToken, profile)
	}
}

// VerifyRequest is Verifier for strategies that pass the request to the callback
func (b *Binding) VerifyRequest(next stackexchange.VerifyRequestFunc) stackexchange.VerifyRequestFunc {
	return func(r *http.Request, accessToken, refreshToken string, profile *sa.Profile) (sa.User, any, error) {
		ctx := context.Background()
		if r != nil {
			ctx = r.Context()
		}
		profile, err := b.resolve(ctx, accessToken, profile)
		if err != nil {
			return nil, nil, err
		}
		return next(r, accessToken, refreshToken, profile)
	}
}

func (b *Binding) resolve(ctx context.Context, accessToken string, profile *sa.Profile) (*sa.Profile, error) {
	if profile != nil {
		if err := b.cache.Put(ctx, accessToken, profile); err != nil {
			slog.Warn("failed to cache profile", "provider", profile.Provider, "id", profile.ID, "error", err)
		}
		return profile, nil
	}
	if held := b.release(accessToken); held != nil {
		return held, nil
	}
	// Skipped by something other than Skip
	cached, err := b.cache.Get(ctx, accessToken)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return cached, nil
}

func (b *Binding) hold(accessToken string, profile *sa.Profile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := TokenKey(accessToken)
	h, ok := b.held[key]
	if !ok {
		h = &heldProfile{}
		b.held[key] = h
	}
	h.profile = profile
	h.refs++
}

func (b *Binding) release(accessToken string) *sa.Profile {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := TokenKey(accessToken)
	h, ok := b.held[key]
	if !ok {
		return nil
	}
	h.refs--
	if h.refs <= 0 {
		delete(b.held, key)
	}
	return h.profile
}
