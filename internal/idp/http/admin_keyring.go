package http

import (
	"net/http"

	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

type KeyringHandler struct {
	RekeyService *service.RekeyService
}

// HandleRotate handles POST /admin/keyring/rotate
//
//	@Summary		Rotate embedding encryption key
//	@Description	Generates a new embedding key, makes it primary and re-encrypts every stored embedding.
//	@Description	The returned key_material must be prepended to ENCRYPTION_KEYS before the next restart.
//	@Tags			Admin
//	@Security		AdminToken
//	@Produce		json
//	@Success		200	{object}	authsdk.RekeyResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Failure		500	{object}	authsdk.ErrorResponse
//	@Router			/admin/keyring/rotate [post].
func (h *KeyringHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	res, err := h.RekeyService.Rotate(ctx)
	if err != nil {
		log.Error("keyring rotation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	log.Warn("embedding key rotated; prepend key_material to ENCRYPTION_KEYS",
		"fingerprint", res.Fingerprint, "rewrapped", res.Rewrapped, "failed", res.Failed)

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RekeyResponse(res))
}
