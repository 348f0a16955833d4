package authsdk

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// refreshSkew is how long before expiry a Session refreshes its access
// token.
const refreshSkew = 30 * time.Second

// Session holds the tokens of one signed-in user. Methods that call the
// provider refresh the access token when it is about to expire.
type Session struct {
	client *SDKClient
	creds  Credentials

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	idToken      string
	refreshAt    time.Time
	scopes       []string // sorted
}

func newSession(client *SDKClient, creds Credentials, tokens *TokenResponse) *Session {
	s := &Session{client: client, creds: creds, idToken: tokens.IDToken}
	s.store(tokens)
	return s
}

// store replaces the token state. The caller holds mu, or owns s exclusively.
func (s *Session) store(tokens *TokenResponse) {
	s.accessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		s.refreshToken = tokens.RefreshToken
	}
	s.refreshAt = time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - refreshSkew)

	s.scopes = strings.Fields(tokens.Scope)
	slices.Sort(s.scopes)
	s.scopes = slices.Compact(s.scopes)
}

// getValidToken returns the access token, refreshing it first when it is
// within refreshSkew of expiry. The provider rotates refresh tokens, so the
// new one replaces the old.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.refreshAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.refreshAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", errors.New("access token expired and no refresh token available")
	}

	tokens, err := s.client.RefreshGrant(ctx, s.creds, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.store(tokens)

	return s.accessToken, nil
}

// Close revokes the refresh token and then the access token. Both are
// attempted; the first failure is returned.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	access, refresh := s.accessToken, s.refreshToken
	s.accessToken, s.refreshToken = "", ""
	s.refreshAt = time.Time{}
	s.mu.Unlock()

	var errs []error
	for _, tok := range []string{refresh, access} {
		if tok == "" {
			continue
		}
		if err := s.client.RevokeToken(ctx, tok); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// AccessToken returns the current access token without refreshing it.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// IDToken returns the ID token from the code exchange. Refreshes keep it.
func (s *Session) IDToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Scopes returns the granted scopes in sorted order.
func (s *Session) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.scopes)
}

// HasAllScopes reports whether every scope was granted.
func (s *Session) HasAllScopes(scopes ...string) bool {
	return len(s.missingScopes(scopes)) == 0
}

func (s *Session) missingScopes(required []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, scope := range required {
		if _, ok := slices.BinarySearch(s.scopes, scope); !ok {
			missing = append(missing, scope)
		}
	}
	return missing
}

// checkScopes fails fast when the client checks scopes locally and one of
// required was not granted.
func (s *Session) checkScopes(required ...string) error {
	if !s.client.CheckScopes {
		return nil
	}
	if missing := s.missingScopes(required); len(missing) > 0 {
		return fmt.Errorf("missing required scope(s): %s", strings.Join(missing, ", "))
	}
	return nil
}
