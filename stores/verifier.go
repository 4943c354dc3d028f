// Package stores resolves Stack Exchange accounts to local users.
//
// ChannelVerifier is a ready made verify callback for the stackexchange
// strategy.  The fs and gorm subpackages provide UserStore and ChannelStore
// backends for it.
package stores

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	sa "github.com/panyam/stackauth"
	"github.com/panyam/stackauth/stackexchange"
)

// ProfileUnavailable is the failure info reported when no profile was loaded
const ProfileUnavailable = "profile unavailable"

// link is the outcome of resolving a provider account to its owning user.
// Concurrent logins for the same account share one link.
type link struct {
	user    sa.User
	created bool
	claimed atomic.Bool
}

// ChannelVerifier returns a verify callback that finds the user owning the
// provider account's channel, creating both on first sight.  The channel's
// profile and credentials are refreshed on every login.
//
// Concurrent first logins for one account through the same verifier create a
// single user.  Verifiers in other processes are not coordinated with.
func ChannelVerifier(users sa.UserStore, channels sa.ChannelStore) stackexchange.VerifyFunc {
	var links singleflight.Group
	return func(ctx context.Context, accessToken, refreshToken string, profile *sa.Profile) (sa.User, any, error) {
		if profile == nil || profile.ID == "" {
			return nil, ProfileUnavailable, nil
		}

		identityKey := sa.IdentityKey("account", profile.ID)
		v, err, _ := links.Do(profile.Provider+"|"+identityKey, func() (any, error) {
			return linkUser(users, channels, profile, identityKey)
		})
		if err != nil {
			return nil, nil, err
		}
		l := v.(*link)
		// Only one of the logins sharing a fresh link reports the new user
		newUser := l.created && l.claimed.CompareAndSwap(false, true)

		channel, _, err := channels.GetChannel(profile.Provider, identityKey, true)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load channel: %w", err)
		}
		channel.UserID = l.user.Id()
		channel.Profile = profile.ToMap()
		if channel.Credentials == nil {
			channel.Credentials = make(map[string]any)
		}
		channel.Credentials["access_token"] = accessToken
		if refreshToken != "" {
			channel.Credentials["refresh_token"] = refreshToken
		}
		if err := channels.SaveChannel(channel); err != nil {
			return nil, nil, fmt.Errorf("failed to save channel: %w", err)
		}

		return l.user, map[string]any{"newUser": newUser}, nil
	}
}

// linkUser loads the user owning the account's channel, creating the user and
// recording it on the channel when there is none yet.
func linkUser(users sa.UserStore, channels sa.ChannelStore, profile *sa.Profile, identityKey string) (*link, error) {
	channel, _, err := channels.GetChannel(profile.Provider, identityKey, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}

	if channel.UserID != "" {
		user, err := users.GetUserById(channel.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load user %s: %w", channel.UserID, err)
		}
		return &link{user: user}, nil
	}

	userProfile := profile.ToMap()
	userProfile["channels"] = []string{profile.Provider}
	user, err := users.CreateUser(uuid.NewString(), true, userProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	channel.UserID = user.Id()
	channel.Profile = profile.ToMap()
	if err := channels.SaveChannel(channel); err != nil {
		return nil, fmt.Errorf("failed to save channel: %w", err)
	}
	slog.Info("created user for provider account", "user", user.Id(), "provider", profile.Provider, "account", profile.ID)
	return &link{user: user, created: true}, nil
}
