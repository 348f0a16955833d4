package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// maxTokenBody caps token, revoke and introspect request bodies.
const maxTokenBody = 64 << 10

// TokenHandler serves POST /oauth/token. Bodies may be form encoded or JSON.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Redeems an authorization code for ID, access and refresh tokens, or rotates a refresh token.
//	@Description	Clients authenticate with HTTP basic auth or client_id/client_secret in the body. Public clients send only client_id.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Accept			json
//	@Produce		json
//	@Param			grant_type		formData	string					false	"Grant type"	Enums(authorization_code, refresh_token)	default(authorization_code)
//	@Param			code			formData	string					false	"Authorization code (authorization_code grant)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI used at authorization"
//	@Param			code_verifier	formData	string					false	"PKCE code_verifier"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token grant)"
//	@Param			client_id		formData	string					false	"Client identifier (when not using basic auth)"
//	@Param			client_secret	formData	string					false	"Client secret (confidential clients, when not using basic auth)"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, refresh_token, id_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/oauth/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form, err := httpx.ReadParams(r, maxTokenBody)
	if err != nil {
		if errors.Is(err, httpx.ErrUnsupportedBody) {
			authsdk.ErrInvalidContentType.WriteError(w)
			return
		}
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	creds := clientCredentials(r, form)

	grantType := strings.TrimSpace(form.Get("grant_type"))
	if grantType == "" {
		grantType = service.GrantAuthorizationCode
	}

	switch grantType {
	case service.GrantAuthorizationCode:
		h.handleAuthorizationCodeGrant(w, r, form, creds)
	case service.GrantRefreshToken:
		h.handleRefreshGrant(w, r, form, creds)
	default:
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *TokenHandler) handleAuthorizationCodeGrant(
	w http.ResponseWriter,
	r *http.Request,
	form url.Values,
	creds service.ClientCredentials,
) {
	ctx := r.Context()

	code := strings.TrimSpace(form.Get("code"))
	if code == "" {
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "code is required").WriteError(w)
		return
	}

	set, err := h.TokenService.ExchangeAuthorizationCode(ctx, service.ExchangeRequest{
		Code:         code,
		RedirectURI:  form.Get("redirect_uri"),
		CodeVerifier: form.Get("code_verifier"),
		Client:       creds,
	})
	if err != nil {
		writeTokenError(w, r, err, creds)
		return
	}

	writeTokenSet(w, set)
}

func (h *TokenHandler) handleRefreshGrant(
	w http.ResponseWriter,
	r *http.Request,
	form url.Values,
	creds service.ClientCredentials,
) {
	refresh := strings.TrimSpace(form.Get("refresh_token"))
	if refresh == "" {
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "refresh_token is required").WriteError(w)
		return
	}

	set, err := h.TokenService.ExchangeRefreshToken(r.Context(), refresh, creds)
	if err != nil {
		writeTokenError(w, r, err, creds)
		return
	}

	writeTokenSet(w, set)
}

// clientCredentials prefers HTTP basic auth (client_secret_basic) and falls
// back to the body (client_secret_post, or none for public clients).
func clientCredentials(r *http.Request, form url.Values) service.ClientCredentials {
	if id, secret, ok := r.BasicAuth(); ok {
		// RFC 6749 section 2.3.1 form-encodes both parts.
		if v, err := url.QueryUnescape(id); err == nil {
			id = v
		}
		if v, err := url.QueryUnescape(secret); err == nil {
			secret = v
		}
		return service.ClientCredentials{ClientID: id, ClientSecret: secret}
	}
	return service.ClientCredentials{
		ClientID:     strings.TrimSpace(form.Get("client_id")),
		ClientSecret: form.Get("client_secret"),
	}
}

func writeTokenError(w http.ResponseWriter, r *http.Request, err error, creds service.ClientCredentials) {
	switch {
	case errors.Is(err, service.ErrInvalidClient):
		if _, _, basic := r.BasicAuth(); basic {
			w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
		}
		authsdk.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidCode):
		authsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrPKCEFailed):
		authsdk.ErrPKCEFailed.WriteError(w)
	case errors.Is(err, service.ErrInvalidRedirectURI):
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant, service.ErrInvalidRedirectURI.Reason).WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant):
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant, "invalid refresh token").WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("token grant failed", "client_id", creds.ClientID, "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

func writeTokenSet(w http.ResponseWriter, set *domain.TokenSet) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  set.AccessToken,
		RefreshToken: set.RefreshToken,
		IDToken:      set.IDToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(set.ExpiresIn.Seconds()),
		Scope:        set.Scope,
	})
}
