package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

type fixture struct {
	user   domain.User
	org    domain.Organization
	client domain.Client
}

func seed(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	user := domain.User{
		ID:          idx.New().String(),
		Email:       "ada@example.com",
		DisplayName: "Ada",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Users().CreateUser(ctx, user))

	org := domain.Organization{ID: idx.New().String(), Name: "Acme", OwnerID: user.ID, CreatedAt: now}
	require.NoError(t, s.Organizations().CreateOrganization(ctx, org))

	client := domain.Client{
		ID:             idx.New().String(),
		OrganizationID: org.ID,
		Name:           "web",
		ClientID:       "0123456789abcdef0123456789abcdef",
		SecretHash:     "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		RedirectURIs:   []string{"https://rp.example/cb"},
		IsConfidential: true,
		PKCEEnforced:   true,
		CreatedAt:      now,
	}
	require.NoError(t, s.Clients().CreateClient(ctx, client))
	return fixture{user: user, org: org, client: client}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	f := seed(t, s)

	t.Run("lookup by email ignores case", func(t *testing.T) {
		got, err := s.Users().GetUserByEmail(ctx, "ADA@example.com")
		require.NoError(t, err)
		require.Equal(t, f.user.ID, got.ID)
		require.Equal(t, "Ada", got.DisplayName)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := f.user
		dup.ID = idx.New().String()
		err := s.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := s.Users().GetUserByID(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestClients(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)

	got, err := s.Clients().GetClientByClientID(ctx, f.client.ClientID)
	require.NoError(t, err)
	require.Equal(t, []string{"https://rp.example/cb"}, got.RedirectURIs)
	require.Empty(t, got.PostLogoutRedirectURIs)
	require.True(t, got.IsConfidential)
	require.True(t, got.PKCEEnforced)
	require.Equal(t, f.org.ID, got.OrganizationID)

	require.NoError(t, s.Clients().UpdateClientSecretHash(ctx, f.client.ClientID, "new-hash"))
	got, err = s.Clients().GetClientByClientID(ctx, f.client.ClientID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.SecretHash)

	require.ErrorIs(t, s.Clients().UpdateClientSecretHash(ctx, "unknown", "x"), store.ErrNotFound)

	list, err := s.Clients().ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.Clients().DeleteClient(ctx, f.client.ClientID))
	require.ErrorIs(t, s.Clients().DeleteClient(ctx, f.client.ClientID), store.ErrNotFound)
}

func TestFaceEmbeddingsReenrollLeavesOneActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)
	now := time.Now()

	for range 3 {
		require.NoError(t, s.FaceEmbeddings().CreateFaceEmbedding(ctx, domain.FaceEmbedding{
			ID: idx.New().String(), UserID: f.user.ID, ModelID: "hog-grid-v1",
			Ciphertext: []byte{1, 2, 3}, Active: true, CreatedAt: now, UpdatedAt: now,
		}))
	}
	require.NoError(t, s.FaceEmbeddings().CreateFaceEmbedding(ctx, domain.FaceEmbedding{
		ID: idx.New().String(), UserID: f.user.ID, ModelID: "simple-mean-v1",
		Ciphertext: []byte{4}, Active: true, CreatedAt: now, UpdatedAt: now,
	}))

	n, err := s.FaceEmbeddings().CountActiveFaceEmbeddings(ctx, f.user.ID, "hog-grid-v1")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		changed, err := tx.FaceEmbeddings().DeactivateFaceEmbeddings(ctx, f.user.ID, "hog-grid-v1", now)
		require.EqualValues(t, 3, changed)
		if err != nil {
			return err
		}
		return tx.FaceEmbeddings().CreateFaceEmbedding(ctx, domain.FaceEmbedding{
			ID: idx.New().String(), UserID: f.user.ID, ModelID: "hog-grid-v1",
			Ciphertext: []byte{9}, Active: true, CreatedAt: now, UpdatedAt: now,
		})
	})
	require.NoError(t, err)

	active, err := s.FaceEmbeddings().ListActiveFaceEmbeddings(ctx, "hog-grid-v1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, []byte{9}, active[0].Ciphertext)

	other, err := s.FaceEmbeddings().ListActiveFaceEmbeddings(ctx, "simple-mean-v1")
	require.NoError(t, err)
	require.Len(t, other, 1)

	all, err := s.FaceEmbeddings().ListFaceEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)

	require.NoError(t, s.FaceEmbeddings().UpdateFaceEmbeddingCiphertext(ctx, active[0].ID, []byte{7}, now))
	active, err = s.FaceEmbeddings().ListActiveFaceEmbeddings(ctx, "hog-grid-v1")
	require.NoError(t, err)
	require.Equal(t, []byte{7}, active[0].Ciphertext)
}

func createSessionAndCode(t *testing.T, s *Store, f fixture, expires time.Time) domain.AuthorizationCode {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	sess := domain.AuthSession{
		ID: idx.New().String(), ClientID: f.client.ClientID, UserID: f.user.ID,
		State: "xyz", RedirectURI: "https://rp.example/cb", Scope: "openid",
		ExpiresAt: expires, VerifiedFace: true, LivenessPassed: true,
		AuthTime: now, CreatedAt: now,
	}
	code := domain.AuthorizationCode{
		ID: idx.New().String(), SessionID: sess.ID, CodeHash: idx.New().String(),
		ExpiresAt: expires, CreatedAt: now,
	}
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AuthSessions().CreateAuthSession(ctx, sess); err != nil {
			return err
		}
		return tx.AuthorizationCodes().CreateAuthorizationCode(ctx, code)
	}))
	return code
}

func TestConsumeAuthorizationCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)

	t.Run("only the first consume succeeds", func(t *testing.T) {
		code := createSessionAndCode(t, s, f, time.Now().Add(10*time.Minute))

		require.NoError(t, s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID, time.Now()))
		require.ErrorIs(t, s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID, time.Now()), store.ErrNotFound)

		got, err := s.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, code.CodeHash)
		require.NoError(t, err)
		require.NotNil(t, got.ConsumedAt)
	})

	t.Run("expired code cannot be consumed", func(t *testing.T) {
		code := createSessionAndCode(t, s, f, time.Now().Add(-time.Second))
		require.ErrorIs(t, s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID, time.Now()), store.ErrNotFound)
	})

	t.Run("housekeeping removes expired rows", func(t *testing.T) {
		code := createSessionAndCode(t, s, f, time.Now().Add(-time.Minute))

		_, err := s.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, time.Now())
		require.NoError(t, err)
		_, err = s.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, code.CodeHash)
		require.ErrorIs(t, err, store.ErrNotFound)

		n, err := s.AuthSessions().DeleteExpiredAuthSessions(ctx, time.Now())
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, int64(1))
	})
}

func TestTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)
	now := time.Now()

	tok := domain.Token{
		JTI: "jti-1", UserID: f.user.ID, ClientID: f.client.ClientID,
		Type: domain.TokenTypeAccess, Scope: "openid email",
		IssuedAt: now, ExpiresAt: now.Add(time.Minute),
	}
	require.NoError(t, s.Tokens().CreateToken(ctx, tok))
	require.ErrorIs(t, s.Tokens().CreateToken(ctx, tok), store.ErrAlreadyExists)

	got, err := s.Tokens().GetToken(ctx, "jti-1")
	require.NoError(t, err)
	require.Equal(t, domain.TokenTypeAccess, got.Type)
	require.Equal(t, "openid email", got.Scope)
	require.JSONEq(t, "{}", string(got.Claims))
	require.True(t, got.Live(now))

	require.NoError(t, s.Tokens().RevokeToken(ctx, "jti-1", now))
	require.NoError(t, s.Tokens().RevokeToken(ctx, "jti-1", now.Add(time.Hour)))
	require.NoError(t, s.Tokens().RevokeToken(ctx, "unknown", now))

	got, err = s.Tokens().GetToken(ctx, "jti-1")
	require.NoError(t, err)
	require.NotNil(t, got.RevokedAt)
	require.WithinDuration(t, now, *got.RevokedAt, time.Second)
	require.False(t, got.Live(now))

	n, err := s.Tokens().DeleteExpiredTokens(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestTxIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)

	tx, err := s.Tx(ctx)
	require.NoError(t, err)

	_, err = tx.Tx(ctx)
	require.Error(t, err)

	now := time.Now()
	require.NoError(t, tx.Organizations().CreateOrganization(ctx, domain.Organization{
		ID: idx.New().String(), Name: "rolled back", CreatedAt: now,
	}))
	require.NoError(t, tx.Rollback())

	orgs, err := s.Organizations().ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	require.Equal(t, f.org.ID, orgs[0].ID)
	require.Equal(t, f.user.ID, orgs[0].OwnerID)
}

func TestAuditLogs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Now()
	for i, event := range []string{"token.issued", "token.revoked"} {
		require.NoError(t, s.AuditLogs().CreateAuditLog(ctx, domain.AuditLog{
			ID: idx.New().String(), Event: event, IP: "10.0.0.1",
			Meta:      map[string]any{"n": i},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	logs, err := s.AuditLogs().ListAuditLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "token.revoked", logs[0].Event)
	require.EqualValues(t, 1, logs[0].Meta["n"])
	require.Empty(t, logs[0].UserID)
}
