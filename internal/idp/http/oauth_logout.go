package http

import (
	"net/http"

	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
)

// LogoutHandler serves the RP-initiated logout endpoint. The provider keeps
// no browser session, so logout only decides where the user agent goes next.
type LogoutHandler struct {
	AuthorizeService *service.AuthorizeService
}

// ServeHTTP godoc
//
//	@Summary		End session
//	@Description	Redirects to post_logout_redirect_uri when it is registered for client_id, otherwise answers {"logged_out": true}.
//	@Tags			OAuth2
//	@Produce		json
//	@Param			client_id					query		string					false	"Client identifier"
//	@Param			post_logout_redirect_uri	query		string					false	"Registered post-logout redirect URI"
//	@Param			state						query		string					false	"Echoed on the redirect"
//	@Success		200							{object}	authsdk.LogoutResponse	"logged_out"
//	@Success		302							{string}	string					"redirect to post_logout_redirect_uri"
//	@Router			/oauth/logout [get].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if target, ok := h.AuthorizeService.LogoutRedirect(r.Context(), q.Get("client_id"), q.Get("post_logout_redirect_uri"), q.Get("state")); ok {
		httpx.NoCache(w)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{LoggedOut: true})
}
