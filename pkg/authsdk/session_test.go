package authsdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// rotatingIdP issues access tokens that expire immediately, so every
// Session call refreshes first. It records revoked tokens.
type rotatingIdP struct {
	mu        sync.Mutex
	serial    int
	refresh   string
	revoked   []string
	refreshes int
}

func (f *rotatingIdP) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("refresh_token") != f.refresh {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"invalid refresh token"}`))
			return
		}
		f.refreshes++
		f.serial++
		f.refresh = "rt-" + strings.Repeat("x", f.serial)
		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "at-" + strings.Repeat("x", f.serial),
			RefreshToken: f.refresh,
			TokenType:    "Bearer",
			ExpiresIn:    1,
			Scope:        "profile openid openid",
		})
	})
	mux.HandleFunc("GET /oauth/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"u-1","email":"ada@example.com","email_verified":true}`))
	})
	mux.HandleFunc("POST /oauth/revoke", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.mu.Lock()
		f.revoked = append(f.revoked, r.PostForm.Get("token"))
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"revoked":true}`))
	})
	return mux
}

func TestSessionRefreshesAndRotates(t *testing.T) {
	t.Parallel()

	idp := &rotatingIdP{refresh: "rt-0"}
	srv := httptest.NewServer(idp.handler(t))
	t.Cleanup(srv.Close)

	client := NewSDKClient(srv.URL)
	session := client.NewSessionFromTokens(Credentials{ClientID: "rp"}, &TokenResponse{
		AccessToken:  "at-0",
		RefreshToken: "rt-0",
		IDToken:      "idt",
		ExpiresIn:    0,
		Scope:        "openid profile",
	})

	info, err := session.GetUserInfo(t.Context())
	require.NoError(t, err)
	require.Equal(t, "u-1", info.Sub)
	require.Equal(t, "at-x", session.AccessToken())
	require.Equal(t, "rt-x", session.RefreshToken())
	require.Equal(t, "idt", session.IDToken(), "refresh keeps the ID token")
	require.Equal(t, []string{"openid", "profile"}, session.Scopes())

	_, err = session.GetUserInfo(t.Context())
	require.NoError(t, err)
	require.Equal(t, "rt-xx", session.RefreshToken())
	require.Equal(t, 2, idp.refreshes)
}

func TestSessionScopes(t *testing.T) {
	t.Parallel()

	client := NewSDKClient("http://unused.invalid")
	session := client.NewSessionFromTokens(Credentials{ClientID: "rp"}, &TokenResponse{
		AccessToken: "at",
		ExpiresIn:   600,
		Scope:       "email openid",
	})

	require.True(t, session.HasAllScopes("openid"))
	require.True(t, session.HasAllScopes("email", "openid"))
	require.False(t, session.HasAllScopes("openid", "profile"))

	err := session.checkScopes("profile", "phone")
	require.ErrorContains(t, err, "profile, phone")

	client.CheckScopes = false
	require.NoError(t, session.checkScopes("profile"))
}

func TestSessionClose(t *testing.T) {
	t.Parallel()

	idp := &rotatingIdP{}
	srv := httptest.NewServer(idp.handler(t))
	t.Cleanup(srv.Close)

	session := NewSDKClient(srv.URL).NewSessionFromTokens(Credentials{ClientID: "rp"}, &TokenResponse{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresIn:    600,
		Scope:        "openid",
	})

	require.NoError(t, session.Close(t.Context()))
	require.Equal(t, []string{"rt", "at"}, idp.revoked)
	require.Empty(t, session.AccessToken())

	_, err := session.GetUserInfo(t.Context())
	require.ErrorContains(t, err, "no refresh token")
}
