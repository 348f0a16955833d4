package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/cryptox"
	"github.com/aussiebroadwan/visageid/pkg/facekit"
)

func TestRekeyRewrapsGallery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	ada := e.signup(t, "ada@example.com", redFace)
	e.signup(t, "bob@example.com", blueFace)

	audit := service.NewAuditService(e.store, discardLogger(), 8)
	audit.Start()
	rekey := &service.RekeyService{Store: e.store, Keyring: e.keyring, Codec: e.codec, Audit: audit, Workers: 2}

	before := e.keyring.PrimaryFingerprint()
	res, err := rekey.Rotate(ctx)
	require.NoError(t, err)
	audit.Stop()

	require.NotEqual(t, before, res.Fingerprint)
	require.NotEmpty(t, res.KeyMaterial)
	require.Equal(t, 2, res.Keys)
	require.Equal(t, 2, res.Rewrapped)
	require.Zero(t, res.Failed)

	rows, err := e.store.FaceEmbeddings().ListFaceEmbeddings(ctx)
	require.NoError(t, err)
	for _, row := range rows {
		require.True(t, e.keyring.SealedWithPrimary(row.Ciphertext))
	}

	// Only the new key is needed once every row is rewrapped.
	fresh, err := cryptox.ParseKeyring(res.KeyMaterial)
	require.NoError(t, err)
	e.authorize.Gallery.Codec = facekit.NewCodec(fresh)
	got := e.verify(t, e.public, redFace, "", "")
	require.Equal(t, ada.ID, got.UserID)
	require.Zero(t, got.Match.Skipped)

	t.Run("second pass has nothing to do", func(t *testing.T) {
		again, err := rekey.Rewrap(ctx)
		require.NoError(t, err)
		require.Zero(t, again.Rewrapped)
		require.Equal(t, 2, again.Unchanged)
	})

	logs, err := e.store.AuditLogs().ListAuditLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, service.EventKeyringRotated, logs[0].Event)
}
