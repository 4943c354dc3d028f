package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	StateCookieName       = "oauthstate"
	CallbackURLCookieName = "oauthCallbackURL"
)

// Swapped out in tests
var randRead = rand.Read

func generateStateOauthCookie(w http.ResponseWriter) (string, error) {
	b := make([]byte, 16)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("error generating oauth state: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	var expiration = time.Now().Add(30 * 24 * time.Hour)
	cookie := http.Cookie{Name: StateCookieName, Value: state, Path: "/", Expires: expiration, HttpOnly: true}
	http.SetCookie(w, &cookie)
	return state, nil
}

// OauthRedirector sends the browser to the provider's authorize endpoint,
// remembering the state (and an optional callbackURL) in cookies.
func OauthRedirector(oauthConfig *oauth2.Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		oauthState, err := generateStateOauthCookie(w)
		if err != nil {
			slog.Error("cannot start oauth login", "err", err)
			http.Error(w, "Authentication error", http.StatusInternalServerError)
			return
		}
		callbackURL := r.URL.Query().Get("callbackURL")
		if callbackURL != "" {
			var expiration = time.Now().Add(24 * time.Hour)
			http.SetCookie(w, &http.Cookie{
				Name:    CallbackURLCookieName,
				Value:   callbackURL,
				Path:    "/",
				Expires: expiration,
				MaxAge:  120, // keep this short
			})
		}
		u := oauthConfig.AuthCodeURL(oauthState)
		http.Redirect(w, r, u, http.StatusFound)
	}
}

// CallbackURLFromRequest returns the post login destination remembered by
// the redirector, or fallback.  Only same site paths are honoured.
func CallbackURLFromRequest(r *http.Request, fallback string) string {
	c, err := r.Cookie(CallbackURLCookieName)
	if err != nil || !isLocalPath(c.Value) {
		return fallback
	}
	return c.Value
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
