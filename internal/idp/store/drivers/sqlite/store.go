package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/internal/idp/store/drivers/sqlite/gen"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type Store struct {
	db  *sql.DB
	q   *gen.Queries
	dsn string
}

// NewStore opens the database at dsn. An in-memory database lives on a
// single connection, otherwise every pooled connection would see its own
// empty schema.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   gen.New(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users                           { return &usersRepo{q: s.q} }
func (s *Store) Organizations() store.Organizations           { return &organizationsRepo{q: s.q} }
func (s *Store) Clients() store.Clients                       { return &clientsRepo{q: s.q} }
func (s *Store) FaceEmbeddings() store.FaceEmbeddings         { return &faceEmbeddingsRepo{q: s.q} }
func (s *Store) AuthSessions() store.AuthSessions             { return &authSessionsRepo{q: s.q} }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return &authorizationCodesRepo{q: s.q} }
func (s *Store) Tokens() store.Tokens                         { return &tokensRepo{q: s.q} }
func (s *Store) AuditLogs() store.AuditLogs                   { return &auditLogsRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapWriteErr turns UNIQUE and PRIMARY KEY violations into ErrAlreadyExists.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return errors.Join(store.ErrAlreadyExists, err)
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
		return errors.Join(store.ErrAlreadyExists, err)
	}
	return err
}

// mapAffected reports ErrNotFound when an update or delete touched no rows.
func mapAffected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// utc normalises timestamps so that the text representation stored by the
// driver sorts chronologically.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}

func decodeList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func mapUser(row gen.User) domain.User {
	return domain.User{
		ID:            row.ID,
		Email:         row.Email,
		DisplayName:   row.DisplayName,
		AvatarURL:     row.AvatarUrl,
		EmailVerified: row.EmailVerified,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func mapOrganization(row gen.Organization) domain.Organization {
	return domain.Organization{
		ID:        row.ID,
		Name:      row.Name,
		OwnerID:   mapNullString(row.OwnerID),
		CreatedAt: row.CreatedAt,
	}
}

func mapClient(row gen.OauthClient) domain.Client {
	return domain.Client{
		ID:                     row.ID,
		OrganizationID:         row.OrganizationID,
		Name:                   row.Name,
		ClientID:               row.ClientID,
		SecretHash:             row.SecretHash,
		RedirectURIs:           decodeList(row.RedirectUris),
		PostLogoutRedirectURIs: decodeList(row.PostLogoutRedirectUris),
		IsConfidential:         row.IsConfidential,
		PKCEEnforced:           row.PkceEnforced,
		CreatedAt:              row.CreatedAt,
	}
}

func mapFaceEmbedding(row gen.FaceEmbedding) domain.FaceEmbedding {
	return domain.FaceEmbedding{
		ID:         row.ID,
		UserID:     row.UserID,
		ModelID:    row.ModelID,
		Ciphertext: row.Ciphertext,
		Active:     row.Active,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func mapAuthSession(row gen.AuthSession) domain.AuthSession {
	return domain.AuthSession{
		ID:                  row.ID,
		ClientID:            row.ClientID,
		UserID:              row.UserID,
		State:               row.State,
		Nonce:               row.Nonce,
		CodeChallenge:       row.CodeChallenge,
		CodeChallengeMethod: row.CodeChallengeMethod,
		RedirectURI:         row.RedirectUri,
		Scope:               row.Scope,
		ExpiresAt:           row.ExpiresAt,
		VerifiedFace:        row.VerifiedFace,
		LivenessPassed:      row.LivenessPassed,
		AuthTime:            row.AuthTime,
		CreatedAt:           row.CreatedAt,
	}
}

func mapAuthorizationCode(row gen.AuthorizationCode) domain.AuthorizationCode {
	return domain.AuthorizationCode{
		ID:         row.ID,
		SessionID:  row.SessionID,
		CodeHash:   row.CodeHash,
		ExpiresAt:  row.ExpiresAt,
		ConsumedAt: mapNullTimePtr(row.ConsumedAt),
		CreatedAt:  row.CreatedAt,
	}
}

func mapToken(row gen.Token) domain.Token {
	return domain.Token{
		JTI:       row.Jti,
		UserID:    row.UserID,
		ClientID:  row.ClientID,
		Type:      domain.TokenType(row.Type),
		Scope:     row.Scope,
		Claims:    json.RawMessage(row.Claims),
		IssuedAt:  row.IssuedAt,
		ExpiresAt: row.ExpiresAt,
		RevokedAt: mapNullTimePtr(row.RevokedAt),
	}
}

func mapAuditLog(row gen.AuditLog) domain.AuditLog {
	var meta map[string]any
	_ = json.Unmarshal([]byte(row.Meta), &meta)
	return domain.AuditLog{
		ID:             row.ID,
		Event:          row.Event,
		IP:             row.Ip,
		UserAgent:      row.UserAgent,
		OrganizationID: mapNullString(row.OrganizationID),
		ClientID:       mapNullString(row.ClientID),
		UserID:         mapNullString(row.UserID),
		Meta:           meta,
		CreatedAt:      row.CreatedAt,
	}
}

var _ store.Store = (*Store)(nil)
