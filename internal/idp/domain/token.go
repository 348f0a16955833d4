package domain

import (
	"encoding/json"
	"time"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
	TokenTypeID      TokenType = "id"
)

// Token is a persisted access or refresh token. For JWT access tokens JTI is
// the jti claim; for opaque tokens it is the fingerprint of the token string.
type Token struct {
	JTI       string
	UserID    string
	ClientID  string
	Type      TokenType
	Scope     string
	Claims    json.RawMessage
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Live reports whether the token is unrevoked and unexpired at now.
func (t Token) Live(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// TokenSet is what the token endpoint returns.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresIn    time.Duration
	Scope        string
}
