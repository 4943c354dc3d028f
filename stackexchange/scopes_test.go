package stackexchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseScopes(t *testing.T) {
	assert.Equal(t, []string{"read_inbox", "no_expiry"}, ParseScopes("read_inbox, no_expiry read_inbox"))
	assert.Empty(t, ParseScopes(""))
}

func TestValidateScopes(t *testing.T) {
	valid, invalid := ValidateScopes([]string{"no_expiry", "admin", "no_expiry", "private_info"})
	assert.Equal(t, []string{"no_expiry", "private_info"}, valid)
	assert.Equal(t, []string{"admin"}, invalid)
}

func TestLoadOptionsFromEnv(t *testing.T) {
	t.Setenv("STACKEXCHANGE_KEY", "app-key")
	t.Setenv("STACKEXCHANGE_SITE", "superuser")
	t.Setenv("STACKEXCHANGE_SCOPES", "read_inbox, no_expiry")
	t.Setenv("STACKEXCHANGE_PASS_REQ_TO_CALLBACK", "true")

	opts, err := LoadOptionsFromEnv()
	assert.NoError(t, err)
	assert.Equal(t, "app-key", opts.StackAppsKey)
	assert.Equal(t, "superuser", opts.Site)
	assert.Equal(t, []string{"read_inbox", "no_expiry"}, opts.Scopes)
	assert.True(t, opts.PassReqToCallback)
	assert.Nil(t, opts.Verify)
}
