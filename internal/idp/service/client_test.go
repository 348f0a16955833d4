package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/cryptox"
)

func TestClientAdministration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	t.Run("public clients have no secret", func(t *testing.T) {
		require.False(t, e.public.IsConfidential)
		require.Empty(t, e.public.SecretHash)
		require.Len(t, e.public.ClientID, 32)
	})

	t.Run("confidential secret is stored hashed", func(t *testing.T) {
		require.NotEqual(t, e.secret, e.confidential.SecretHash)
		require.NoError(t, cryptox.VerifySecret(e.secret, e.confidential.SecretHash))
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, _, err := e.clients.CreateClient(ctx, service.CreateClientRequest{OrganizationID: e.org.ID, Name: "x"})
		require.ErrorIs(t, err, service.ErrInvalidRedirectSet)

		_, _, err = e.clients.CreateClient(ctx, service.CreateClientRequest{
			OrganizationID: e.org.ID, Name: "x", RedirectURIs: []string{"/relative"},
		})
		require.ErrorIs(t, err, service.ErrInvalidRedirectSet)

		_, _, err = e.clients.CreateClient(ctx, service.CreateClientRequest{
			OrganizationID: "missing", Name: "x", RedirectURIs: []string{testRedirect},
		})
		require.ErrorIs(t, err, service.ErrOrganizationAbsent)

		_, _, err = e.clients.CreateClient(ctx, service.CreateClientRequest{OrganizationID: e.org.ID, RedirectURIs: []string{testRedirect}})
		require.ErrorIs(t, err, service.ErrNameRequired)
	})

	t.Run("rotate secret", func(t *testing.T) {
		secret, err := e.clients.RotateSecret(ctx, e.confidential.ClientID)
		require.NoError(t, err)
		require.NotEqual(t, e.secret, secret)

		c, err := e.store.Clients().GetClientByClientID(ctx, e.confidential.ClientID)
		require.NoError(t, err)
		require.NoError(t, service.AuthenticateClient(c, service.ClientCredentials{ClientID: c.ClientID, ClientSecret: secret}))
		require.ErrorIs(t, service.AuthenticateClient(c, service.ClientCredentials{ClientID: c.ClientID, ClientSecret: e.secret}), service.ErrInvalidClient)

		_, err = e.clients.RotateSecret(ctx, e.public.ClientID)
		require.ErrorIs(t, err, service.ErrInvalidRequest)
		_, err = e.clients.RotateSecret(ctx, "missing")
		require.ErrorIs(t, err, service.ErrClientNotFound)
	})

	t.Run("list and delete", func(t *testing.T) {
		clients, err := e.clients.ListClients(ctx)
		require.NoError(t, err)
		require.Len(t, clients, 2)

		require.NoError(t, e.clients.DeleteClient(ctx, e.public.ClientID))
		require.ErrorIs(t, e.clients.DeleteClient(ctx, e.public.ClientID), service.ErrClientNotFound)
	})
}

func TestOrganizations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	ada := e.signup(t, "ada@example.com", redFace)

	org, err := e.orgs.CreateOrganization(ctx, "Widgets", ada.ID)
	require.NoError(t, err)
	require.Equal(t, ada.ID, org.OwnerID)

	_, err = e.orgs.CreateOrganization(ctx, "Ghost", "missing")
	require.ErrorIs(t, err, service.ErrNotFound)
	_, err = e.orgs.CreateOrganization(ctx, " ", "")
	require.ErrorIs(t, err, service.ErrNameRequired)

	orgs, err := e.orgs.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
}
