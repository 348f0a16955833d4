package idp_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/visageid/pkg/authsdk"
)

func TestAdminClientManagement(t *testing.T) {
	baseURL, cleanup := setupIdPContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	clients := provisionClients(t, client)
	admin := client.Admin(adminToken)

	t.Run("rejects wrong token", func(t *testing.T) {
		_, err := client.Admin("wrong").ListOrganizations(t.Context())
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, http.StatusUnauthorized, oe.StatusCode)
	})

	list, err := admin.ListClients(t.Context())
	require.NoError(t, err)
	require.Len(t, list.Clients, 2)

	t.Run("rotated secret replaces the old one", func(t *testing.T) {
		signup(t, client, "ada@example.com", red)

		rotated, err := admin.RotateClientSecret(t.Context(), clients.Confidential.ClientID)
		require.NoError(t, err)

		p := authorizeParams(clients.Confidential.ClientID)
		_, err = client.AuthorizeAndExchange(t.Context(), clients.Confidential, p, faceImage(t, red))
		require.True(t, authsdk.IsReason(err, authsdk.ErrorCodeInvalidClient))

		fresh := authsdk.Credentials{ClientID: clients.Confidential.ClientID, ClientSecret: rotated.ClientSecret}
		_, err = client.AuthorizeAndExchange(t.Context(), fresh, p, faceImage(t, red))
		require.NoError(t, err)
	})

	t.Run("keyring rotation keeps faces usable", func(t *testing.T) {
		res, err := admin.RotateKeyring(t.Context())
		require.NoError(t, err)
		require.Equal(t, 2, res.Keys)
		require.Zero(t, res.Failed)
		require.Positive(t, res.Rewrapped)
		require.NotEmpty(t, res.KeyMaterial)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, admin.DeleteClient(t.Context(), clients.Public.ClientID))

		err := admin.DeleteClient(t.Context(), clients.Public.ClientID)
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, http.StatusNotFound, oe.StatusCode)

		req := authorizeParams(clients.Public.ClientID).VerifyRequestFor()
		req.Image = faceImage(t, red)
		_, _, err = client.VerifyFace(t.Context(), req)
		require.True(t, authsdk.IsReason(err, authsdk.ReasonInvalidClient))
	})
}
