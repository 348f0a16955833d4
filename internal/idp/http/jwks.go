package http

import (
	"net/http"

	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/jwtx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery. A
// configured PUBKEY_JWKS document is served byte for byte.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify ID tokens and JWT access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/oauth/jwks.json [get].
func JWKSHandler(keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := keys.JWKSDocument()
		if err != nil {
			slogx.FromContext(r.Context()).Error("failed to render jwks", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc)
	}
}
