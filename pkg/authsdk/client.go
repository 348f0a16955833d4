package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a relying-party client for the visageid identity provider.
// It provides access to unauthenticated operations and can create
// authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckScopes determines whether to perform client-side scope validation
	// before making API requests. When true, the Session will check if it has
	// the required scopes before making a request and return an error if not.
	// Set to false for testing to ensure server-side scope checks work correctly.
	// Default: true
	CheckScopes bool
}

// Credentials identify a relying party at the token endpoint. Secret is
// empty for public clients.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// NewSDKClient creates a new client with scope checking enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			// The verify endpoint answers browsers with a 302 to the relying
			// party. SDK callers read the Location header themselves.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		CheckScopes: true,
	}
}

// AuthenticateWithRefreshToken creates an authenticated session from an existing refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(
	ctx context.Context,
	creds Credentials,
	refreshToken string,
) (*Session, error) {
	tokenResp, err := c.RefreshGrant(ctx, creds, refreshToken)
	if err != nil {
		return nil, err
	}

	return newSession(c, creds, tokenResp), nil
}

// NewSessionFromTokens creates an authenticated session from existing tokens.
// This is useful when you already have tokens from a previous authentication
// (e.g., stored in a database or passed from another system).
// The session will still perform auto-refresh when the access token expires.
func (c *SDKClient) NewSessionFromTokens(creds Credentials, tokens *TokenResponse) *Session {
	return newSession(c, creds, tokens)
}
