package stackauth

import "time"

// Channel links a provider account to a local user.  Channels store
// provider specific credentials and the last seen profile.
type Channel struct {
	Provider    string         `json:"provider"`     // "stack-exchange"
	IdentityKey string         `json:"identity_key"` // "account:42"
	UserID      string         `json:"user_id"`      // which user owns this channel
	Credentials map[string]any `json:"credentials"`  // access_token, refresh_token
	Profile     map[string]any `json:"profile"`      // data from provider
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Version     int            `json:"version"` // bumped on every save
}

// UserStore manages user accounts
type UserStore interface {
	// CreateUser creates a new user with the given ID and profile
	CreateUser(userId string, isActive bool, profile map[string]any) (User, error)

	// GetUserById retrieves a user by their ID
	GetUserById(userId string) (User, error)

	// SaveUser creates or updates a user (upsert)
	SaveUser(user User) error
}

// ChannelStore manages provider channels
type ChannelStore interface {
	// GetChannel gets or optionally creates a channel
	GetChannel(provider string, identityKey string, createIfMissing bool) (channel *Channel, newCreated bool, err error)

	// SaveChannel creates or updates a channel (upsert)
	SaveChannel(channel *Channel) error

	// GetChannelsByUser returns all channels owned by a user
	GetChannelsByUser(userId string) ([]*Channel, error)
}

// IdentityKey creates a consistent identity key from type and value
func IdentityKey(identityType, identityValue string) string {
	return identityType + ":" + identityValue
}
