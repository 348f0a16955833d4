package authsdk

import (
	"github.com/aussiebroadwan/visageid/pkg/jwtx"
)

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse represents a standard OAuth2 error response per RFC 6749.
// The face endpoints reuse the "error" member for their reason strings and
// leave the description empty.
type ErrorResponse struct {
	// Error is the OAuth2 error code or face reason string
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description,omitempty"`
}

// ValidationErrorResponse is returned by the admin endpoints when the
// request DTO fails validation.
type ValidationErrorResponse struct {
	// Code is always "validation_error"
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details maps each failing field to the rule it broke
	Details map[string]string `json:"details,omitempty"`
}

// ============================================================================
// Discovery
// ============================================================================

// DiscoveryDocument is the OpenID Provider metadata served from
// /.well-known/openid-configuration.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	EndSessionEndpoint                string   `json:"end_session_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
}

// JWKSResponse represents the JSON Web Key Set served from /oauth/jwks.json.
type JWKSResponse struct {
	Keys []jwtx.JWK `json:"keys"`
}

// ============================================================================
// Face Authorization Types
// ============================================================================

// VerifyRequest is the JSON body of POST /oauth/authorize/verify. Image is a
// data URL or raw base64; Frames carries a multi-frame capture instead.
type VerifyRequest struct {
	ClientID            string   `json:"client_id"`
	RedirectURI         string   `json:"redirect_uri"`
	State               string   `json:"state,omitempty"`
	Nonce               string   `json:"nonce,omitempty"`
	Scope               string   `json:"scope,omitempty"`
	CodeChallenge       string   `json:"code_challenge,omitempty"`
	CodeChallengeMethod string   `json:"code_challenge_method,omitempty"`
	Image               string   `json:"image,omitempty"`
	Frames              []string `json:"frames,omitempty"`
}

// VerifyResponse is returned to JSON callers of the verify endpoint instead
// of a 302.
type VerifyResponse struct {
	// Redirect is the registered redirect URI with code and state appended
	Redirect string `json:"redirect"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
// This is returned from POST /oauth/token for both the authorization_code
// and refresh_token grant types.
type TokenResponse struct {
	// AccessToken is the access token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque refresh token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// IDToken is the signed OpenID Connect ID token. Only the
	// authorization_code grant returns one.
	IDToken string `json:"id_token,omitempty"`

	// TokenType is always "Bearer" per OAuth2 spec
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`
}

// IntrospectionResponse represents the RFC7662 token introspection response.
type IntrospectionResponse struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Sub       string `json:"sub,omitempty"`
}

// RevokeResponse is the body of POST /oauth/revoke. Revoked is always true.
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// LogoutResponse is returned by /oauth/logout when no registered
// post_logout_redirect_uri was supplied.
type LogoutResponse struct {
	LoggedOut bool `json:"logged_out"`
}

// UserInfoResponse represents the OpenID Connect userinfo response.
type UserInfoResponse struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Picture       string `json:"picture,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// ============================================================================
// Account Types
// ============================================================================

// SignupRequest is the JSON body of POST /account/face/signup.
type SignupRequest struct {
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Image       string   `json:"image,omitempty"`
	Frames      []string `json:"frames,omitempty"`
}

// SignupUser is the public view of a newly created user.
type SignupUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// SignupResponse is returned with 201 Created.
type SignupResponse struct {
	Created bool       `json:"created"`
	User    SignupUser `json:"user"`
}

// EnrollRequest is the JSON body of the enroll and reenroll endpoints.
type EnrollRequest struct {
	Image  string   `json:"image,omitempty"`
	Frames []string `json:"frames,omitempty"`
}

// EnrollResponse is returned by POST /account/face/enroll and
// /account/face/reenroll. Exactly one of the flags is set.
type EnrollResponse struct {
	Enrolled   bool `json:"enrolled,omitempty"`
	Reenrolled bool `json:"reenrolled,omitempty"`
}

// ============================================================================
// Admin Types
// ============================================================================

// CreateOrganizationRequest is the body of POST /admin/organizations.
type CreateOrganizationRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	OwnerID string `json:"owner_id,omitempty"`
}

// Organization is an organization as returned by the admin API.
type Organization struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListOrganizationsResponse is the body of GET /admin/organizations.
type ListOrganizationsResponse struct {
	Organizations []Organization `json:"organizations"`
}

// CreateClientRequest is the body of POST /admin/clients.
type CreateClientRequest struct {
	OrganizationID         string   `json:"organization_id" validate:"required"`
	Name                   string   `json:"name" validate:"required,max=200"`
	RedirectURIs           []string `json:"redirect_uris" validate:"required,min=1,dive,url"`
	PostLogoutRedirectURIs []string `json:"post_logout_redirect_uris,omitempty" validate:"omitempty,dive,url"`
	Confidential           bool     `json:"confidential"`
	PKCEEnforced           bool     `json:"pkce_enforced"`
}

// Client is a relying party as returned by the admin API. The secret is
// never included.
type Client struct {
	ID                     string   `json:"id"`
	OrganizationID         string   `json:"organization_id"`
	ClientID               string   `json:"client_id"`
	Name                   string   `json:"name"`
	RedirectURIs           []string `json:"redirect_uris"`
	PostLogoutRedirectURIs []string `json:"post_logout_redirect_uris"`
	Confidential           bool     `json:"confidential"`
	PKCEEnforced           bool     `json:"pkce_enforced"`
	CreatedAt              string   `json:"created_at"`
}

// CreateClientResponse carries the new client and, for confidential
// clients, the plaintext secret. The secret is not retrievable later.
type CreateClientResponse struct {
	Client       Client `json:"client"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// ListClientsResponse is the body of GET /admin/clients.
type ListClientsResponse struct {
	Clients []Client `json:"clients"`
}

// RotateSecretResponse is the body of POST /admin/clients/{client_id}/rotate-secret.
type RotateSecretResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// RekeyResponse is the body of POST /admin/keyring/rotate. KeyMaterial must
// be prepended to ENCRYPTION_KEYS before the next restart.
type RekeyResponse struct {
	KeyMaterial string `json:"key_material"`
	Fingerprint string `json:"fingerprint"`
	Keys        int    `json:"keys"`
	Rewrapped   int    `json:"rewrapped"`
	Unchanged   int    `json:"unchanged"`
	Failed      int    `json:"failed"`
}

// ============================================================================
// Health Check Types
// ============================================================================

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version,omitempty"`
	Checks    *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks holds the readiness probes.
type HealthChecks struct {
	Database string `json:"database"`
	Keys     string `json:"keys"`
}
