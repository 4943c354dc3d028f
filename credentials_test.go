package stackauth

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParseBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        Body
		wantErr     bool
	}{
		{name: "empty body", body: "", want: Body{}},
		{name: "json", contentType: "application/json", body: `{"access_token":"a","n":3,"x":null}`, want: Body{"access_token": "a", "n": "3"}},
		{name: "json with charset", contentType: "application/json; charset=utf-8", body: `{"access_token":"a"}`, want: Body{"access_token": "a"}},
		{name: "json without content type", body: `{"access_token":"a"}`, want: Body{"access_token": "a"}},
		{name: "form", contentType: "application/x-www-form-urlencoded", body: "access_token=a&refresh_token=b", want: Body{"access_token": "a", "refresh_token": "b"}},
		{name: "malformed json", contentType: "application/json", body: `{"access_token":`, wantErr: true},
		{name: "json array", contentType: "application/json", body: `[1,2]`, wantErr: true},
		{name: "unsupported type", contentType: "text/plain", body: "hello", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			got, err := ParseBody(req)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got body %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("field %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestParseBody_NilBody(t *testing.T) {
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: "/"}, Header: http.Header{}}
	if _, err := ParseBody(req); !errors.Is(err, ErrNoBody) {
		t.Errorf("expected ErrNoBody, got %v", err)
	}
}

func TestParseBody_RestoresBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"access_token":"a"}`))
	if _, err := ParseBody(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := io.ReadAll(req.Body)
	if string(data) != `{"access_token":"a"}` {
		t.Errorf("body not restored, got %q", data)
	}
}

func TestParseBody_TooLarge(t *testing.T) {
	payload := `{"access_token":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	if _, err := ParseBody(req); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	data, _ := io.ReadAll(req.Body)
	if len(data) != len(payload) {
		t.Errorf("body not left readable, got %d bytes want %d", len(data), len(payload))
	}
}

func TestParseBody_AtLimit(t *testing.T) {
	payload := `{"access_token":"` + strings.Repeat("a", MaxBodyBytes-len(`{"access_token":""}`)) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	got, err := ParseBody(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got["access_token"]) != MaxBodyBytes-len(`{"access_token":""}`) {
		t.Errorf("token truncated to %d bytes", len(got["access_token"]))
	}
}

func TestParseBody_UsesContextBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	req = WithBody(req, Body{"access_token": "ctx"})
	got, err := ParseBody(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["access_token"] != "ctx" {
		t.Errorf("expected context body, got %v", got)
	}
}

func TestExtractCredentials_Priority(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?access_token=query&refresh_token=query-r", nil)
	req.Header.Set("access_token", "header")
	req.Header.Set("refresh_token", "header-r")

	creds := ExtractCredentials(req, Body{"access_token": "body"})
	if creds.AccessToken != "body" {
		t.Errorf("expected body token, got %q", creds.AccessToken)
	}
	if creds.RefreshToken != "query-r" {
		t.Errorf("expected query refresh token, got %q", creds.RefreshToken)
	}

	creds = ExtractCredentials(req, Body{})
	if creds.AccessToken != "query" {
		t.Errorf("expected query token, got %q", creds.AccessToken)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("access_token", "header")
	req.Header.Set("Authorization", "Bearer bearer")
	if creds = ExtractCredentials(req, Body{}); creds.AccessToken != "header" {
		t.Errorf("expected header token, got %q", creds.AccessToken)
	}

	req.Header.Del("access_token")
	if creds = ExtractCredentials(req, Body{}); creds.AccessToken != "bearer" {
		t.Errorf("expected bearer token, got %q", creds.AccessToken)
	}

	req.Header.Del("Authorization")
	if creds = ExtractCredentials(req, Body{}); creds.AccessToken != "" || creds.RefreshToken != "" {
		t.Errorf("expected no tokens, got %+v", creds)
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	}
	for header, want := range tests {
		if got := BearerToken(header); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestOAuthErrorFromQuery(t *testing.T) {
	if e := OAuthErrorFromQuery(url.Values{}); e != nil {
		t.Errorf("expected nil, got %v", e)
	}

	e := OAuthErrorFromQuery(url.Values{"error": {"access_denied"}, "error_description": {"nope"}, "error_uri": {"https://x"}})
	if e == nil {
		t.Fatal("expected an oauth error")
	}
	if e.ErrorCode != "access_denied" || e.Description != "nope" || e.URI != "https://x" {
		t.Errorf("unexpected error fields: %+v", e)
	}
	if !errors.Is(e, ErrOAuth) {
		t.Error("expected errors.Is(e, ErrOAuth)")
	}
}
