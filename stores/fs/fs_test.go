package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sa "github.com/panyam/stackauth"
)

func TestFSUserStore(t *testing.T) {
	store := NewFSUserStore(t.TempDir())

	user, err := store.CreateUser("u1", true, map[string]any{"display_name": "Jeff"})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.Id())

	_, err = store.CreateUser("u1", true, nil)
	assert.Error(t, err, "duplicate users should be rejected")

	loaded, err := store.GetUserById("u1")
	require.NoError(t, err)
	assert.Equal(t, "Jeff", loaded.Profile()["display_name"])

	require.NoError(t, store.SaveUser(sa.NewBasicUser("u1", map[string]any{"display_name": "Joel"})))
	loaded, err = store.GetUserById("u1")
	require.NoError(t, err)
	assert.Equal(t, "Joel", loaded.Profile()["display_name"])
	assert.True(t, loaded.(*FSUser).IsActive)

	_, err = store.GetUserById("missing")
	assert.Error(t, err)
}

func TestFSChannelStore(t *testing.T) {
	store := NewFSChannelStore(t.TempDir())

	_, _, err := store.GetChannel("stack-exchange", "account:42", false)
	assert.Error(t, err)

	channel, created, err := store.GetChannel("stack-exchange", "account:42", true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, channel.UserID)

	channel.UserID = "u1"
	channel.Credentials["access_token"] = "tok"
	require.NoError(t, store.SaveChannel(channel))

	again, created, err := store.GetChannel("stack-exchange", "account:42", true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "u1", again.UserID)
	assert.Equal(t, "tok", again.Credentials["access_token"])
	assert.Equal(t, 1, again.Version)

	other, _, err := store.GetChannel("stack-exchange", "account:7", true)
	require.NoError(t, err)
	other.UserID = "u2"
	require.NoError(t, store.SaveChannel(other))

	channels, err := store.GetChannelsByUser("u1")
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "account:42", channels[0].IdentityKey)

	none, err := NewFSChannelStore(t.TempDir()).GetChannelsByUser("u1")
	require.NoError(t, err)
	assert.Empty(t, none)
}
