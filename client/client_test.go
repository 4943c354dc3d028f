package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sa "github.com/panyam/stackauth"
	"github.com/panyam/stackauth/stackexchange"
)

// newHost serves MePath behind the stackexchange strategy, with a fake
// profile endpoint that only knows the token "good-token"
func newHost(t *testing.T) *httptest.Server {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("access_token") != "good-token" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error_id":401,"error_name":"invalid_access_token"}`))
			return
		}
		w.Write([]byte(`{"items":[{"account_id":42,"display_name":"Jeff"}]}`))
	}))
	t.Cleanup(provider.Close)

	strategy, err := stackexchange.New(stackexchange.Options{
		StackAppsKey: "key",
		ProfileURL:   provider.URL,
		Verify: func(ctx context.Context, accessToken, refreshToken string, profile *sa.Profile) (sa.User, any, error) {
			return sa.NewBasicUser("u-"+profile.ID, profile.ToMap()), "scope:read", nil
		},
	})
	require.NoError(t, err)

	mw := (&sa.Middleware{}).Use(strategy)
	mux := http.NewServeMux()
	mux.Handle(MePath, mw.Authenticate(strategy.Name())(sa.MeHandler()))
	host := httptest.NewServer(mux)
	t.Cleanup(host.Close)
	return host
}

func TestClient_Me(t *testing.T) {
	host := newHost(t)

	me, err := New(host.URL+"/", "good-token").Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-42", me.ID)
	assert.Equal(t, "Jeff", me.Profile["displayName"])
	assert.Equal(t, "scope:read", me.Info)
}

func TestClient_Unauthorized(t *testing.T) {
	host := newHost(t)

	for _, token := range []string{"bad-token", ""} {
		_, err := New(host.URL, token).Me(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), "token %q: expected APIError, got %v", token, err)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "unauthorized", apiErr.ErrorCode)
	}
}

func TestAuthTransport(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := (&http.Client{Transport: NewAuthTransport(nil, "tok")}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer tok", got)
	assert.Empty(t, req.Header.Get("Authorization"), "original request must not be mutated")
}

func TestClient_CommunicationError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(url, "tok").Me(context.Background())
	assert.ErrorIs(t, err, sa.ErrCommunication)
}
