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

type OrganizationsHandler struct {
	OrganizationService *service.OrganizationService
}

// HandleCreate handles POST /admin/organizations
//
//	@Summary		Create organization
//	@Description	Creates an organization that owns relying-party clients.
//	@Tags			Admin
//	@Security		AdminToken
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateOrganizationRequest	true	"Organization"
//	@Success		201		{object}	authsdk.Organization
//	@Failure		400		{object}	authsdk.ValidationErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse	"Admin API disabled"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Owner not found"
//	@Router			/admin/organizations [post].
func (h *OrganizationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.CreateOrganizationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	org, err := h.OrganizationService.CreateOrganization(ctx, req.Name, req.OwnerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNameRequired):
			authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
		case errors.Is(err, service.ErrNotFound):
			authsdk.NewOAuth2Error(http.StatusNotFound, authsdk.ErrorCodeInvalidRequest, "owner not found").WriteError(w)
		default:
			log.Error("failed to create organization", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, organizationResponse(org))
}

// HandleList handles GET /admin/organizations
//
//	@Summary	List organizations
//	@Tags		Admin
//	@Security	AdminToken
//	@Produce	json
//	@Success	200	{object}	authsdk.ListOrganizationsResponse
//	@Failure	401	{object}	authsdk.ErrorResponse
//	@Failure	403	{object}	authsdk.ErrorResponse
//	@Router		/admin/organizations [get].
func (h *OrganizationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgs, err := h.OrganizationService.ListOrganizations(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list organizations", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := authsdk.ListOrganizationsResponse{Organizations: make([]authsdk.Organization, 0, len(orgs))}
	for _, o := range orgs {
		out.Organizations = append(out.Organizations, organizationResponse(o))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func organizationResponse(o domain.Organization) authsdk.Organization {
	return authsdk.Organization{
		ID:        o.ID,
		Name:      o.Name,
		OwnerID:   o.OwnerID,
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339),
	}
}
