package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
)

// DiscoveryHandler serves the OpenID Provider metadata. Endpoint URLs are
// built from the configured issuer.
//
//	@Summary		OpenID Provider Configuration
//	@Description	OpenID Connect Discovery 1.0 metadata.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.DiscoveryDocument
//	@Router			/.well-known/openid-configuration [get].
func DiscoveryHandler(issuer string) http.HandlerFunc {
	base := strings.TrimSuffix(issuer, "/")
	doc := authsdk.DiscoveryDocument{
		Issuer:                            issuer,
		AuthorizationEndpoint:             base + "/oauth/authorize",
		TokenEndpoint:                     base + "/oauth/token",
		UserinfoEndpoint:                  base + "/oauth/userinfo",
		JWKSURI:                           base + "/oauth/jwks.json",
		RevocationEndpoint:                base + "/oauth/revoke",
		IntrospectionEndpoint:             base + "/oauth/introspect",
		EndSessionEndpoint:                base + "/oauth/logout",
		ResponseTypesSupported:            []string{"code"},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{"RS256"},
		ScopesSupported:                   []string{"openid", "profile", "email"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported:     []string{"S256", "plain"},
		ClaimsSupported:                   []string{"sub", "name", "email", "picture", "email_verified"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}
