package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

type UserInfoHandler struct {
	UserService *service.UserService
}

// ServeHTTP handles the OpenID Connect UserInfo endpoint.
//
//	@Summary		Get user information
//	@Description	Returns the standard claims of the user the access token was issued to. Requires the 'openid' scope.
//	@Tags			OAuth2
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserInfoResponse	"sub, name, email, picture, email_verified"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse		"Token lacks the openid scope"
//	@Failure		500	{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/oauth/userinfo [get].
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := httpx.PrincipalFromContext(ctx)
	if !ok || p.Subject == "" {
		httpx.WriteReason(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.UserService.GetUserByID(ctx, p.Subject)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			// The token outlived its user.
			httpx.WriteReason(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		log.Error("failed to load user", "user_id", p.Subject, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		Sub:           user.ID,
		Name:          user.DisplayName,
		Email:         user.Email,
		Picture:       user.AvatarURL,
		EmailVerified: user.EmailVerified,
	})
}
