package domain

import "time"

// AuthSession records a successful face verification for one authorization
// request. It exists only after the capture matched UserID.
type AuthSession struct {
	ID                  string
	ClientID            string
	UserID              string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
	RedirectURI         string
	Scope               string
	ExpiresAt           time.Time
	VerifiedFace        bool
	LivenessPassed      bool
	AuthTime            time.Time
	CreatedAt           time.Time
}

// AuthorizationCode represents an OAuth 2.0 authorization code issuance.
type AuthorizationCode struct {
	ID         string
	SessionID  string
	CodeHash   string // base64url SHA-256 of the opaque code
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}
