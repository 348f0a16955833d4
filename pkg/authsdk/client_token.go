package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// RefreshGrant requests new tokens using a refresh token. The presented
// refresh token is revoked by the server and a new one is returned.
func (c *SDKClient) RefreshGrant(
	ctx context.Context,
	creds Credentials,
	refreshToken string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	return c.requestToken(ctx, creds, data)
}

// RevokeToken revokes an access or refresh token. The server answers
// {"revoked":true} whether or not the token existed.
func (c *SDKClient) RevokeToken(ctx context.Context, token string) error {
	resp, err := c.postForm(ctx, "/oauth/revoke", url.Values{"token": {token}}, Credentials{})
	if err != nil {
		return err
	}

	var out RevokeResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

// Introspect reports whether token is active per RFC 7662.
func (c *SDKClient) Introspect(ctx context.Context, token string) (*IntrospectionResponse, error) {
	resp, err := c.postForm(ctx, "/oauth/introspect", url.Values{"token": {token}}, Credentials{})
	if err != nil {
		return nil, err
	}

	var out IntrospectionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// requestToken posts a form to the token endpoint. Confidential clients
// authenticate with client_secret_basic; public clients send client_id in
// the body.
func (c *SDKClient) requestToken(ctx context.Context, creds Credentials, data url.Values) (*TokenResponse, error) {
	if creds.ClientSecret == "" {
		data.Set("client_id", creds.ClientID)
	}

	resp, err := c.postForm(ctx, "/oauth/token", data, creds)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &tokenResp, nil
}

func (c *SDKClient) postForm(ctx context.Context, path string, data url.Values, creds Credentials) (*http.Response, error) {
	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		"Accept":       "application/json",
	}
	return c.doRequestWith(ctx, http.MethodPost, path, strings.NewReader(data.Encode()), headers, func(r *http.Request) {
		if creds.ClientSecret != "" {
			r.SetBasicAuth(url.QueryEscape(creds.ClientID), url.QueryEscape(creds.ClientSecret))
		}
	})
}
