package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// AdminClient calls the operator API with the static ADMIN_TOKEN.
type AdminClient struct {
	client *SDKClient
	token  string
}

// Admin returns an AdminClient that authenticates with token.
func (c *SDKClient) Admin(token string) *AdminClient {
	return &AdminClient{client: c, token: token}
}

// ============================================================================
// Organization Operations
// ============================================================================

// CreateOrganization creates an organization to own clients.
func (a *AdminClient) CreateOrganization(ctx context.Context, req CreateOrganizationRequest) (*Organization, error) {
	resp, err := a.client.doBearerJSON(ctx, http.MethodPost, "/admin/organizations", a.token, req)
	if err != nil {
		return nil, err
	}

	var org Organization
	if err := decodeJSON(resp, &org, http.StatusCreated); err != nil {
		return nil, err
	}

	return &org, nil
}

// ListOrganizations returns every organization.
func (a *AdminClient) ListOrganizations(ctx context.Context) (*ListOrganizationsResponse, error) {
	resp, err := a.client.doBearerJSON(ctx, http.MethodGet, "/admin/organizations", a.token, nil)
	if err != nil {
		return nil, err
	}

	var list ListOrganizationsResponse
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}

	return &list, nil
}

// ============================================================================
// Client Operations
// ============================================================================

// CreateClient registers a relying party. For confidential clients the
// response carries the only copy of the plaintext secret.
func (a *AdminClient) CreateClient(ctx context.Context, req CreateClientRequest) (*CreateClientResponse, error) {
	resp, err := a.client.doBearerJSON(ctx, http.MethodPost, "/admin/clients", a.token, req)
	if err != nil {
		return nil, err
	}

	var createResp CreateClientResponse
	if err := decodeJSON(resp, &createResp, http.StatusCreated); err != nil {
		return nil, err
	}

	return &createResp, nil
}

// ListClients returns all registered clients.
func (a *AdminClient) ListClients(ctx context.Context) (*ListClientsResponse, error) {
	resp, err := a.client.doBearerJSON(ctx, http.MethodGet, "/admin/clients", a.token, nil)
	if err != nil {
		return nil, err
	}

	var listResp ListClientsResponse
	if err := decodeJSON(resp, &listResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &listResp, nil
}

// DeleteClient deletes a client with its sessions, codes and tokens.
func (a *AdminClient) DeleteClient(ctx context.Context, clientID string) error {
	resp, err := a.client.doBearerJSON(ctx, http.MethodDelete, "/admin/clients/"+url.PathEscape(clientID), a.token, nil)
	if err != nil {
		return err
	}

	return checkStatusNoContent(resp)
}

// RotateClientSecret issues a new secret for a confidential client. The
// previous secret stops working immediately.
func (a *AdminClient) RotateClientSecret(ctx context.Context, clientID string) (*RotateSecretResponse, error) {
	resp, err := a.client.doBearerJSON(ctx, http.MethodPost, "/admin/clients/"+url.PathEscape(clientID)+"/rotate-secret", a.token, nil)
	if err != nil {
		return nil, err
	}

	var out RotateSecretResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}

	return &out, nil
}

// ============================================================================
// Keyring Operations
// ============================================================================

// RotateKeyring generates a new embedding key and rewraps the gallery.
func (a *AdminClient) RotateKeyring(ctx context.Context) (*RekeyResponse, error) {
	resp, err := a.client.doBearerJSON(ctx, http.MethodPost, "/admin/keyring/rotate", a.token, nil)
	if err != nil {
		return nil, err
	}

	var out RekeyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}

	return &out, nil
}
