package stackauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Field names used to carry tokens in bodies, query strings and headers
const (
	AccessTokenField  = "access_token"
	RefreshTokenField = "refresh_token"
)

// MaxBodyBytes is the largest request body ParseBody will read
const MaxBodyBytes = 1 << 20

var (
	// ErrNoBody is returned by ParseBody when the request has no body to parse
	ErrNoBody = errors.New("request has no body")

	// ErrBodyTooLarge is returned by ParseBody when the body exceeds MaxBodyBytes
	ErrBodyTooLarge = errors.New("request body too large")
)

// Credentials holds the tokens presented by a client
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Body is a parsed request body flattened to string values
type Body map[string]string

type bodyContextKey struct{}

// WithBody attaches an already parsed body to the request context.
// Hosts that parse bodies themselves use this so strategies do not re-read them.
func WithBody(r *http.Request, body Body) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), bodyContextKey{}, body))
}

// ParseBody returns the request body as a flat map.  JSON objects and
// urlencoded forms are supported; an empty body parses to an empty map.
// The body is restored afterwards so downstream handlers can read it again.
func ParseBody(r *http.Request) (Body, error) {
	if body, ok := r.Context().Value(bodyContextKey{}).(Body); ok {
		return body, nil
	}
	if r.Body == nil {
		return nil, ErrNoBody
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		r.Body.Close()
		return nil, fmt.Errorf("error reading body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		// Leave the body readable for whoever handles the rejection
		r.Body = readCloser{io.MultiReader(bytes.NewReader(data), r.Body), r.Body}
		return nil, ErrBodyTooLarge
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))

	out := Body{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, fmt.Errorf("error parsing form: %w", err)
		}
		for k := range values {
			out[k] = values.Get(k)
		}
	case mediaType == "" || mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
			return nil, fmt.Errorf("invalid post body: %w", err)
		}
		for k, v := range fields {
			switch val := v.(type) {
			case string:
				out[k] = val
			case nil:
			default:
				out[k] = fmt.Sprint(val)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported content type: %s", mediaType)
	}
	return out, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// LookupField returns the first non empty value of field from the body,
// then the query string, then the headers.
func LookupField(r *http.Request, body Body, field string) string {
	if v := body[field]; v != "" {
		return v
	}
	if v := r.URL.Query().Get(field); v != "" {
		return v
	}
	return r.Header.Get(field)
}

// ExtractCredentials reads the access and refresh tokens from the request.
// Missing tokens are not an error here.
func ExtractCredentials(r *http.Request, body Body) Credentials {
	creds := Credentials{
		AccessToken:  LookupField(r, body, AccessTokenField),
		RefreshToken: LookupField(r, body, RefreshTokenField),
	}
	if creds.AccessToken == "" {
		creds.AccessToken = BearerToken(r.Header.Get("Authorization"))
	}
	return creds
}

// BearerToken returns the token from an "Authorization: Bearer <token>" value
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// OAuthErrorFromQuery returns the provider error carried in the query string, if any
func OAuthErrorFromQuery(q url.Values) *OAuthError {
	code := q.Get("error")
	if code == "" {
		return nil
	}
	return &OAuthError{
		ErrorCode:   code,
		Description: q.Get("error_description"),
		URI:         q.Get("error_uri"),
	}
}
