package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// RevokeHandler serves POST /oauth/revoke following RFC 7009. Access and
// refresh tokens are both revocable. Unknown tokens still get
// {"revoked":true} so the endpoint cannot be used to probe for tokens.
type RevokeHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes an access or refresh token (RFC 7009). Always answers {"revoked":true}.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Accept			json
//	@Produce		json
//	@Param			token	formData	string					true	"The token to revoke"
//	@Success		200		{object}	authsdk.RevokeResponse	"revoked"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/oauth/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	form, err := httpx.ReadParams(r, maxTokenBody)
	if err != nil {
		if errors.Is(err, httpx.ErrUnsupportedBody) {
			authsdk.ErrInvalidContentType.WriteError(w)
			return
		}
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	if token := form.Get("token"); token != "" {
		if err := h.TokenService.Revoke(ctx, token); err != nil {
			// Per RFC 7009 the response does not depend on the outcome.
			log.Warn("revoke failed", "err", err)
		}
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokeResponse{Revoked: true})
}
