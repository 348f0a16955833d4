package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// ClientsHandler manages relying-party registrations.
type ClientsHandler struct {
	ClientService *service.ClientService
}

// HandleCreate handles POST /admin/clients
//
//	@Summary		Register client
//	@Description	Registers a relying party. Confidential clients receive a client_secret that is shown only once.
//	@Tags			Admin
//	@Security		AdminToken
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateClientRequest		true	"Client"
//	@Success		201		{object}	authsdk.CreateClientResponse
//	@Failure		400		{object}	authsdk.ValidationErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Failure		404		{object}	authsdk.ErrorResponse	"Organization not found"
//	@Router			/admin/clients [post].
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.CreateClientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client, secret, err := h.ClientService.CreateClient(ctx, service.CreateClientRequest{
		OrganizationID:         req.OrganizationID,
		Name:                   req.Name,
		RedirectURIs:           req.RedirectURIs,
		PostLogoutRedirectURIs: req.PostLogoutRedirectURIs,
		Confidential:           req.Confidential,
		PKCEEnforced:           req.PKCEEnforced,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNameRequired), errors.Is(err, service.ErrInvalidRedirectSet):
			authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
		case errors.Is(err, service.ErrOrganizationAbsent):
			authsdk.NewOAuth2Error(http.StatusNotFound, authsdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
		default:
			log.Error("failed to create client", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.CreateClientResponse{
		Client:       clientResponse(client),
		ClientSecret: secret,
	})
}

// HandleList handles GET /admin/clients
//
//	@Summary	List clients
//	@Tags		Admin
//	@Security	AdminToken
//	@Produce	json
//	@Success	200	{object}	authsdk.ListClientsResponse
//	@Failure	401	{object}	authsdk.ErrorResponse
//	@Failure	403	{object}	authsdk.ErrorResponse
//	@Router		/admin/clients [get].
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clients, err := h.ClientService.ListClients(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list clients", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := authsdk.ListClientsResponse{Clients: make([]authsdk.Client, 0, len(clients))}
	for _, c := range clients {
		out.Clients = append(out.Clients, clientResponse(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDelete handles DELETE /admin/clients/{client_id}
//
//	@Summary		Delete client
//	@Description	Removes the client together with its codes and tokens.
//	@Tags			Admin
//	@Security		AdminToken
//	@Param			client_id	path	string	true	"Client identifier"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Router			/admin/clients/{client_id} [delete].
func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := r.PathValue("client_id")

	if err := h.ClientService.DeleteClient(ctx, clientID); err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			authsdk.NewOAuth2Error(http.StatusNotFound, authsdk.ErrorCodeInvalidRequest, "client not found").WriteError(w)
			return
		}
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRotateSecret handles POST /admin/clients/{client_id}/rotate-secret
//
//	@Summary		Rotate client secret
//	@Description	Issues a new secret for a confidential client. The old secret stops working immediately.
//	@Tags			Admin
//	@Security		AdminToken
//	@Produce		json
//	@Param			client_id	path		string	true	"Client identifier"
//	@Success		200			{object}	authsdk.RotateSecretResponse
//	@Failure		400			{object}	authsdk.ErrorResponse	"Public client"
//	@Failure		401			{object}	authsdk.ErrorResponse
//	@Failure		403			{object}	authsdk.ErrorResponse
//	@Failure		404			{object}	authsdk.ErrorResponse
//	@Router			/admin/clients/{client_id}/rotate-secret [post].
func (h *ClientsHandler) HandleRotateSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := r.PathValue("client_id")

	secret, err := h.ClientService.RotateSecret(ctx, clientID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			authsdk.NewOAuth2Error(http.StatusNotFound, authsdk.ErrorCodeInvalidRequest, "client not found").WriteError(w)
		case errors.Is(err, service.ErrInvalidRequest):
			authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "public clients have no secret").WriteError(w)
		default:
			slogx.FromContext(ctx).Error("failed to rotate client secret", "client_id", clientID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RotateSecretResponse{ClientID: clientID, ClientSecret: secret})
}

func clientResponse(c domain.Client) authsdk.Client {
	post := c.PostLogoutRedirectURIs
	if post == nil {
		post = []string{}
	}
	return authsdk.Client{
		ID:                     c.ID,
		OrganizationID:         c.OrganizationID,
		ClientID:               c.ClientID,
		Name:                   c.Name,
		RedirectURIs:           c.RedirectURIs,
		PostLogoutRedirectURIs: post,
		Confidential:           c.IsConfidential,
		PKCEEnforced:           c.PKCEEnforced,
		CreatedAt:              c.CreatedAt.UTC().Format(time.RFC3339),
	}
}
