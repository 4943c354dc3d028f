package stackexchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/klauspost/compress/gzip"

	sa "github.com/panyam/stackauth"
)

// ProviderName is the provider recorded on every normalized profile
const ProviderName = "stack-exchange"

// maxProfileBytes caps how much of a provider response is read
const maxProfileBytes = 1 << 20

type meResponse struct {
	Items []meItem `json:"items"`
}

type meItem struct {
	AccountID    json.Number `json:"account_id"`
	UserID       json.Number `json:"user_id"`
	DisplayName  string      `json:"display_name"`
	ProfileImage string      `json:"profile_image"`
	Link         string      `json:"link"`
	Reputation   int64       `json:"reputation"`
	UserType     string      `json:"user_type"`
}

// UserProfile fetches the account behind accessToken from the profile
// endpoint and normalizes it.  Any body that arrives is parsed, whatever the
// status; a non 2xx status is attached to the parse error.
func (s *Strategy) UserProfile(ctx context.Context, accessToken string) (*sa.Profile, error) {
	body, status, err := s.fetchProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	profile, perr := parseProfile(body)
	if perr != nil && (status < 200 || status > 299) {
		perr.Err = withStatus(status, body, perr.Err)
	}
	if perr != nil {
		return nil, perr
	}
	return profile, nil
}

func withStatus(status int, body []byte, cause error) error {
	if cause != nil {
		return fmt.Errorf("status %d: %w", status, cause)
	}
	return fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(body)))
}

func (s *Strategy) profileRequestURL(accessToken string) (string, error) {
	u, err := url.Parse(s.profileURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("key", s.stackAppsKey)
	q.Set("site", s.site)
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetchProfile returns the response body and status.  Only failures to
// build, send or read the request are errors here.
func (s *Strategy) fetchProfile(ctx context.Context, accessToken string) ([]byte, int, error) {
	reqURL, err := s.profileRequestURL(accessToken)
	if err != nil {
		return nil, 0, sa.WrapError(sa.CodeCommunication, "failed to fetch user profile", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, sa.WrapError(sa.CodeCommunication, "failed to fetch user profile", err)
	}
	// Setting this ourselves turns off transparent decompression in net/http
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client().Do(req)
	if err != nil {
		return nil, 0, sa.WrapError(sa.CodeCommunication, "failed to fetch user profile", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, resp.StatusCode, sa.WrapError(sa.CodeCommunication, "failed to fetch user profile", err)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxProfileBytes))
	if err != nil {
		return nil, resp.StatusCode, sa.WrapError(sa.CodeCommunication, "failed to fetch user profile", err)
	}
	return data, resp.StatusCode, nil
}

// parseProfile classifies bodies as malformed only when they are not JSON.
// Well formed documents without a usable first item are empty responses.
func parseProfile(body []byte) (*sa.Profile, *sa.Error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, sa.WrapError(sa.CodeMalformedResponse, "failed to parse user profile", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, sa.WrapError(sa.CodeMalformedResponse, "failed to parse user profile",
			fmt.Errorf("unexpected data after the top level value"))
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, sa.NewError(sa.CodeEmptyResponse, "empty user profile response")
	}

	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, sa.WrapError(sa.CodeEmptyResponse, "empty user profile response", err)
	}
	if len(me.Items) == 0 {
		return nil, sa.NewError(sa.CodeEmptyResponse, "empty user profile response")
	}

	item := me.Items[0]
	if item.AccountID == "" {
		return nil, sa.NewError(sa.CodeEmptyResponse, "user profile has no account_id")
	}
	if item.DisplayName == "" {
		return nil, sa.NewError(sa.CodeEmptyResponse, "user profile has no display_name")
	}
	return &sa.Profile{
		Provider:     ProviderName,
		ID:           item.AccountID.String(),
		DisplayName:  item.DisplayName,
		UserID:       item.UserID.String(),
		ProfileImage: item.ProfileImage,
		Link:         item.Link,
		Reputation:   item.Reputation,
		UserType:     item.UserType,
		Raw:          string(body),
		JSON:         obj,
	}, nil
}
