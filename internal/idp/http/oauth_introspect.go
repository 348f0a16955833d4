package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// IntrospectHandler serves POST /oauth/introspect following RFC 7662.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Reports whether a token is active and what it grants (RFC 7662). Inactive tokens return only {"active": false}.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Accept			json
//	@Produce		json
//	@Param			token	formData	string							true	"The token to introspect"
//	@Success		200		{object}	authsdk.IntrospectionResponse	"Token introspection result"
//	@Failure		400		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Header			200		{string}	Cache-Control					"no-store"
//	@Router			/oauth/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form, err := httpx.ReadParams(r, maxTokenBody)
	if err != nil {
		if errors.Is(err, httpx.ErrUnsupportedBody) {
			authsdk.ErrInvalidContentType.WriteError(w)
			return
		}
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	token := form.Get("token")
	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	info, err := h.TokenService.Introspect(ctx, token)
	if err != nil {
		slogx.FromContext(ctx).Error("introspection failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	if !info.Active {
		httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{Active: false})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{
		Active:    true,
		Scope:     info.Scope,
		ClientID:  info.ClientID,
		TokenType: info.TokenType,
		Exp:       info.ExpiresAt.Unix(),
		Iat:       info.IssuedAt.Unix(),
		Sub:       info.Subject,
	})
}
