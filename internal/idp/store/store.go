package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so that a Tx-scoped Store can hand out the same
// repositories bound to the transaction.
type Store interface {
	Users() Users
	Organizations() Organizations
	Clients() Clients
	FaceEmbeddings() FaceEmbeddings
	AuthSessions() AuthSessions
	AuthorizationCodes() AuthorizationCodes
	Tokens() Tokens
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. It commits when fn returns nil
	// and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user. A duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	IsEmpty(ctx context.Context) (bool, error)
}

type Organizations interface {
	CreateOrganization(ctx context.Context, o domain.Organization) error
	GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error)
	// ListOrganizations returns all organizations, newest first.
	ListOrganizations(ctx context.Context) ([]domain.Organization, error)
}

type Clients interface {
	CreateClient(ctx context.Context, c domain.Client) error

	// GetClientByClientID looks a client up by its public identifier.
	GetClientByClientID(ctx context.Context, clientID string) (domain.Client, error)

	// ListClients returns all clients ordered by creation date (newest first).
	ListClients(ctx context.Context) ([]domain.Client, error)

	UpdateClientSecretHash(ctx context.Context, clientID, secretHash string) error

	// DeleteClient cascades to sessions, codes and tokens.
	DeleteClient(ctx context.Context, clientID string) error
}

type FaceEmbeddings interface {
	CreateFaceEmbedding(ctx context.Context, e domain.FaceEmbedding) error

	// ListActiveFaceEmbeddings returns the matching gallery for modelID.
	ListActiveFaceEmbeddings(ctx context.Context, modelID string) ([]domain.FaceEmbedding, error)

	// ListFaceEmbeddings returns every row regardless of model or state.
	ListFaceEmbeddings(ctx context.Context) ([]domain.FaceEmbedding, error)

	CountActiveFaceEmbeddings(ctx context.Context, userID, modelID string) (int, error)

	// DeactivateFaceEmbeddings clears the active flag on all of a user's rows
	// for modelID and returns how many rows changed.
	DeactivateFaceEmbeddings(ctx context.Context, userID, modelID string, now time.Time) (int64, error)

	UpdateFaceEmbeddingCiphertext(ctx context.Context, id string, ciphertext []byte, now time.Time) error
}

type AuthSessions interface {
	CreateAuthSession(ctx context.Context, s domain.AuthSession) error
	GetAuthSessionByID(ctx context.Context, id string) (domain.AuthSession, error)
	DeleteExpiredAuthSessions(ctx context.Context, now time.Time) (int64, error)
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted authorization code.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCodeByHash fetches a code by its fingerprint when redeeming.
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// ConsumeAuthorizationCode sets consumed_at only if it is still unset and
	// the code has not expired. Any other outcome returns ErrNotFound, so at
	// most one caller ever succeeds for a given code.
	ConsumeAuthorizationCode(ctx context.Context, id string, now time.Time) error

	// DeleteExpiredAuthorizationCodes removes any codes that are no longer valid.
	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}

type Tokens interface {
	CreateToken(ctx context.Context, t domain.Token) error
	GetToken(ctx context.Context, jti string) (domain.Token, error)

	// RevokeToken sets revoked_at once. Revoking an already revoked or
	// unknown token is not an error.
	RevokeToken(ctx context.Context, jti string, now time.Time) error

	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type AuditLogs interface {
	CreateAuditLog(ctx context.Context, l domain.AuditLog) error
	// ListAuditLogs returns the newest entries first.
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}
