package authsdk

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/visageid/pkg/cryptox"
)

// PKCEChallenge holds the PKCE verifier and challenge pair.
// The verifier is kept secret by the client, and the challenge is sent to the authorization endpoint.
type PKCEChallenge struct {
	// Verifier is the high-entropy cryptographic random string (kept secret)
	Verifier string

	// Challenge is the base64url-encoded SHA256 hash of the verifier (sent to server)
	Challenge string

	// Method is always "S256" for SHA256
	Method string
}

// GeneratePKCEChallenge creates a new PKCE code verifier and challenge pair.
// Uses cryptox.TokenSize256 (256 bits of entropy) and SHA256 hashing per RFC 7636.
func GeneratePKCEChallenge() (*PKCEChallenge, error) {
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	hash := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(hash[:])

	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: challenge,
		Method:    "S256",
	}, nil
}

// AuthorizeParams are the query parameters of an authorization request.
type AuthorizeParams struct {
	ClientID    string
	RedirectURI string
	State       string
	Nonce       string
	Scopes      []string
	PKCE        *PKCEChallenge
}

// BuildAuthorizeURL constructs the URL of the face capture page. Redirect
// the user's browser there to begin the authorization code flow.
//
// Example:
//
//	pkce, _ := authsdk.GeneratePKCEChallenge()
//	u := client.BuildAuthorizeURL(authsdk.AuthorizeParams{
//	    ClientID:    "cli-app",
//	    RedirectURI: "https://localhost/callback",
//	    State:       "random-state",
//	    Scopes:      []string{"openid", "profile"},
//	    PKCE:        pkce,
//	})
func (c *SDKClient) BuildAuthorizeURL(p AuthorizeParams) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", p.ClientID)
	params.Set("redirect_uri", p.RedirectURI)

	if p.State != "" {
		params.Set("state", p.State)
	}
	if p.Nonce != "" {
		params.Set("nonce", p.Nonce)
	}
	if len(p.Scopes) > 0 {
		params.Set("scope", strings.Join(p.Scopes, " "))
	}
	if p.PKCE != nil {
		params.Set("code_challenge", p.PKCE.Challenge)
		params.Set("code_challenge_method", p.PKCE.Method)
	}

	return fmt.Sprintf("%s/oauth/authorize?%s", c.BaseURL, params.Encode())
}

// VerifyRequestFor copies the authorization parameters into a verify body.
// The caller still sets Image or Frames.
func (p AuthorizeParams) VerifyRequestFor() VerifyRequest {
	req := VerifyRequest{
		ClientID:    p.ClientID,
		RedirectURI: p.RedirectURI,
		State:       p.State,
		Nonce:       p.Nonce,
		Scope:       strings.Join(p.Scopes, " "),
	}
	if p.PKCE != nil {
		req.CodeChallenge = p.PKCE.Challenge
		req.CodeChallengeMethod = p.PKCE.Method
	}
	return req
}

// EncodeImage renders raw image bytes as a data URL suitable for the Image
// and Frames fields. contentType defaults to image/jpeg.
func EncodeImage(contentType string, raw []byte) string {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

// VerifyFace submits a capture to the face gate. On success it returns the
// authorization code and state from the redirect. Rejections come back as
// *OAuth2Error whose Code is the reason, e.g. "face not recognized".
func (c *SDKClient) VerifyFace(ctx context.Context, req VerifyRequest) (code, state string, err error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/oauth/authorize/verify", bytes.NewReader(body), headers)
	if err != nil {
		return "", "", err
	}

	var out VerifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return "", "", err
	}

	return ParseAuthorizationCallback(out.Redirect)
}

// ExchangeAuthorizationCode exchanges an authorization code for tokens.
// This completes the authorization code flow by trading the code for an
// access token, a refresh token and an ID token.
//
// Parameters:
//   - creds: the client_id, plus the secret for confidential clients
//   - code: The authorization code received from the verify endpoint
//   - redirectURI: Must match the redirect_uri used in the authorization request
//   - codeVerifier: The PKCE verifier from the original PKCEChallenge (empty when PKCE was not used)
func (c *SDKClient) ExchangeAuthorizationCode(
	ctx context.Context,
	creds Credentials,
	code, redirectURI, codeVerifier string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	if codeVerifier != "" {
		data.Set("code_verifier", codeVerifier)
	}

	return c.requestToken(ctx, creds, data)
}

// AuthorizeAndExchange runs the whole flow in one call: it submits the
// capture, checks the returned state and exchanges the code. The verifier
// is taken from p.PKCE when set.
func (c *SDKClient) AuthorizeAndExchange(
	ctx context.Context,
	creds Credentials,
	p AuthorizeParams,
	image string,
	frames ...string,
) (*Session, error) {
	req := p.VerifyRequestFor()
	req.Image = image
	req.Frames = frames

	code, state, err := c.VerifyFace(ctx, req)
	if err != nil {
		return nil, err
	}
	if state != p.State {
		return nil, fmt.Errorf("state mismatch: sent %q, got %q", p.State, state)
	}

	var verifier string
	if p.PKCE != nil {
		verifier = p.PKCE.Verifier
	}

	tokens, err := c.ExchangeAuthorizationCode(ctx, creds, code, p.RedirectURI, verifier)
	if err != nil {
		return nil, err
	}

	return newSession(c, creds, tokens), nil
}

// Logout calls the end-session endpoint. It returns the redirect target
// when postLogoutRedirectURI is registered for the client, otherwise "".
func (c *SDKClient) Logout(ctx context.Context, clientID, postLogoutRedirectURI, state string) (string, error) {
	params := url.Values{"client_id": {clientID}}
	if postLogoutRedirectURI != "" {
		params.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	}
	if state != "" {
		params.Set("state", state)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/oauth/logout?"+params.Encode(), nil, nil)
	if err != nil {
		return "", err
	}

	if resp.StatusCode == http.StatusFound {
		resp.Body.Close()
		return resp.Header.Get("Location"), nil
	}

	var out LogoutResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return "", err
	}
	return "", nil
}

// ParseAuthorizationCallback parses the callback URL from an authorization redirect.
// This extracts the authorization code and state from the redirect URL query parameters.
//
// Returns the authorization code and state, or an error if the callback contains an error response.
//
// Example:
//
//	code, state, err := authsdk.ParseAuthorizationCallback("https://localhost/callback?code=xyz&state=abc")
//	if err != nil {
//	    // Handle error (e.g., user denied authorization)
//	}
//	// Verify state matches what you sent
//	// Exchange code for tokens using ExchangeAuthorizationCode
func ParseAuthorizationCallback(callbackURL string) (code, state string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()

	if errorCode := query.Get("error"); errorCode != "" {
		errorDesc := query.Get("error_description")
		return "", "", fmt.Errorf("authorization error: %s - %s", errorCode, errorDesc)
	}

	code = query.Get("code")
	if code == "" {
		return "", "", fmt.Errorf("callback missing authorization code")
	}

	state = query.Get("state")

	return code, state, nil
}
