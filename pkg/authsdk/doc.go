/*
Package authsdk provides a relying-party SDK for the visageid face-gated
OpenID Connect provider.

# Overview

The package is organized around three types:

  - SDKClient: unauthenticated operations, the authorization code flow and
    session creation
  - Session: operations on behalf of a signed-in user, with automatic
    token refresh
  - AdminClient: the operator API guarded by ADMIN_TOKEN

An SDKClient needs only the provider's base URL:

	client := authsdk.NewSDKClient("https://idp.example.com")

	doc, err := client.Discover(ctx)
	health, err := client.GetReadiness(ctx)

# Authorization Code Flow

A browser-based relying party redirects the user to the capture page and
later exchanges the code delivered to its redirect URI:

	pkce, _ := authsdk.GeneratePKCEChallenge()
	params := authsdk.AuthorizeParams{
		ClientID:    "rp-client-id",
		RedirectURI: "https://app.example.com/callback",
		State:       state,
		Nonce:       nonce,
		Scopes:      []string{"openid", "profile", "email"},
		PKCE:        pkce,
	}
	http.Redirect(w, r, client.BuildAuthorizeURL(params), http.StatusFound)

	// on the callback
	code, gotState, err := authsdk.ParseAuthorizationCallback(r.URL.String())
	tokens, err := client.ExchangeAuthorizationCode(ctx, creds, code, params.RedirectURI, pkce.Verifier)

Kiosks and tests that hold the capture themselves can submit it directly:

	session, err := client.AuthorizeAndExchange(ctx, creds, params, authsdk.EncodeImage("image/jpeg", jpeg))

Confidential clients set Credentials.ClientSecret and authenticate with
client_secret_basic. Public clients send only client_id.

# Automatic Token Refresh

Session methods call getValidToken internally, which refreshes the access
token with the refresh token 30 seconds before it expires. The server
rotates refresh tokens, so the Session stores the new one each time.
Session.Close revokes both tokens when the user signs out.

# Error Handling

Failures reported by the server come back as *OAuth2Error. Token endpoint
errors carry RFC 6749 codes such as invalid_client. The face endpoints
answer with a reason string, which IsReason matches:

	_, _, err := client.VerifyFace(ctx, req)
	if authsdk.IsReason(err, "face not recognized") {
		// ask the user to try again
	}

# Thread Safety

Sessions are safe for concurrent use. Multiple goroutines can share a single
Session and make authenticated requests concurrently.
*/
package authsdk
