package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/metrics"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/pkg/cryptox"
	"github.com/aussiebroadwan/visageid/pkg/jwtx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// Grant types accepted at the token endpoint.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
)

type TokenService struct {
	KeyManager  *jwtx.KeyManager
	Store       store.Store
	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	IDTokenTTL  time.Duration
	AccessAsJWT bool
	Metrics     *metrics.Metrics
	Audit       *AuditService
}

// ExchangeRequest is an authorization_code grant.
type ExchangeRequest struct {
	Code         string
	RedirectURI  string
	CodeVerifier string
	Client       ClientCredentials
}

// Introspection is the RFC 7662 view of a token. Only Active is meaningful
// when the token is not live.
type Introspection struct {
	Active    bool
	Scope     string
	ClientID  string
	TokenType string
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ExchangeAuthorizationCode redeems a code for id, access and refresh
// tokens. The code is consumed with a conditional update inside the same
// transaction that stores the tokens, so of several concurrent exchanges of
// one code exactly one succeeds.
func (s *TokenService) ExchangeAuthorizationCode(ctx context.Context, req ExchangeRequest) (*domain.TokenSet, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	authCode, err := s.Store.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(code))
	if err != nil {
		return nil, notFoundAs(err, ErrInvalidCode)
	}
	if authCode.ConsumedAt != nil || !now.Before(authCode.ExpiresAt) {
		return nil, ErrInvalidCode
	}

	session, err := s.Store.AuthSessions().GetAuthSessionByID(ctx, authCode.SessionID)
	if err != nil {
		return nil, notFoundAs(err, ErrInvalidCode)
	}

	client, err := s.Store.Clients().GetClientByClientID(ctx, session.ClientID)
	if err != nil {
		return nil, notFoundAs(err, ErrInvalidClient)
	}
	if err := AuthenticateClient(client, req.Client); err != nil {
		l.Info("authorization_code grant client authentication failed", "client_id", req.Client.ClientID)
		return nil, err
	}

	if redirect := strings.TrimSpace(req.RedirectURI); redirect != "" && redirect != session.RedirectURI {
		return nil, ErrInvalidRedirectURI
	}
	if err := CheckPKCE(client, session, req.CodeVerifier); err != nil {
		return nil, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, notFoundAs(err, ErrInvalidCode)
	}

	idToken, err := s.MintIDToken(user.ID, client.ClientID, session.Nonce, session.AuthTime)
	if err != nil {
		return nil, err
	}

	set := &domain.TokenSet{IDToken: idToken, ExpiresIn: s.AccessTTL, Scope: session.Scope}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, authCode.ID, now); err != nil {
			return notFoundAs(err, ErrInvalidCode)
		}
		var err error
		if set.AccessToken, err = s.MintAccessToken(ctx, tx, user.ID, client.ClientID, session.Scope); err != nil {
			return err
		}
		set.RefreshToken, err = s.MintRefreshToken(ctx, tx, user.ID, client.ClientID, session.Scope)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.issued(ctx, GrantAuthorizationCode, user.ID, client, true)
	return set, nil
}

// ExchangeRefreshToken rotates a refresh token: the presented token is
// revoked and a new access and refresh token are issued for the same user,
// client and scope.
func (s *TokenService) ExchangeRefreshToken(ctx context.Context, refreshToken string, creds ClientCredentials) (*domain.TokenSet, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrInvalidGrant
	}
	jti := cryptox.FingerprintToken(refreshToken)

	row, err := s.Store.Tokens().GetToken(ctx, jti)
	if err != nil {
		return nil, notFoundAs(err, ErrInvalidGrant)
	}
	if row.Type != domain.TokenTypeRefresh || !row.Live(now) {
		return nil, ErrInvalidGrant
	}

	client, err := s.Store.Clients().GetClientByClientID(ctx, row.ClientID)
	if err != nil {
		return nil, notFoundAs(err, ErrInvalidClient)
	}
	if err := AuthenticateClient(client, creds); err != nil {
		l.Info("refresh_token grant client authentication failed", "client_id", creds.ClientID)
		return nil, err
	}

	set := &domain.TokenSet{ExpiresIn: s.AccessTTL, Scope: row.Scope}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Tokens().GetToken(ctx, jti)
		if err != nil {
			return notFoundAs(err, ErrInvalidGrant)
		}
		if !current.Live(now) {
			return ErrInvalidGrant
		}
		if err := tx.Tokens().RevokeToken(ctx, jti, now); err != nil {
			return err
		}
		if set.AccessToken, err = s.MintAccessToken(ctx, tx, row.UserID, row.ClientID, row.Scope); err != nil {
			return err
		}
		set.RefreshToken, err = s.MintRefreshToken(ctx, tx, row.UserID, row.ClientID, row.Scope)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.issued(ctx, GrantRefreshToken, row.UserID, client, false)
	return set, nil
}

// MintIDToken signs an OIDC id token asserting a face-verified login. Id
// tokens are never stored.
func (s *TokenService) MintIDToken(subject, audience, nonce string, authTime time.Time) (string, error) {
	claims := jwtx.NewIDClaims(s.Issuer, subject, audience, nonce, authTime, s.idTokenTTL(), time.Now())
	token, err := s.KeyManager.Signer().Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign id token: %w", err)
	}
	return token, nil
}

// MintAccessToken issues an access token and stores its row through st,
// which may be a transaction. In JWT mode the row is keyed by the jti claim;
// otherwise the token is opaque and keyed by its fingerprint.
func (s *TokenService) MintAccessToken(ctx context.Context, st store.Store, userID, clientID, scope string) (string, error) {
	now := time.Now()
	row := domain.Token{
		UserID:    userID,
		ClientID:  clientID,
		Type:      domain.TokenTypeAccess,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.AccessTTL),
	}

	var token string
	if s.AccessAsJWT {
		claims := jwtx.NewAccessClaims(s.Issuer, userID, clientID, scope, s.AccessTTL, now)
		signed, err := s.KeyManager.Signer().Sign(claims)
		if err != nil {
			return "", fmt.Errorf("sign access token: %w", err)
		}
		snapshot, err := json.Marshal(claims)
		if err != nil {
			return "", err
		}
		token, row.JTI, row.Claims = signed, claims.ID, snapshot
	} else {
		opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return "", err
		}
		token, row.JTI = opaque, cryptox.FingerprintToken(opaque)
		row.Claims = opaqueSnapshot(userID, clientID, scope)
	}

	if err := st.Tokens().CreateToken(ctx, row); err != nil {
		return "", fmt.Errorf("store access token: %w", err)
	}
	s.Metrics.TokenIssued(string(domain.TokenTypeAccess))
	return token, nil
}

// MintRefreshToken issues an opaque refresh token stored by fingerprint.
func (s *TokenService) MintRefreshToken(ctx context.Context, st store.Store, userID, clientID, scope string) (string, error) {
	now := time.Now()
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	err = st.Tokens().CreateToken(ctx, domain.Token{
		JTI:       cryptox.FingerprintToken(opaque),
		UserID:    userID,
		ClientID:  clientID,
		Type:      domain.TokenTypeRefresh,
		Scope:     scope,
		Claims:    opaqueSnapshot(userID, clientID, scope),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.RefreshTTL),
	})
	if err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	s.Metrics.TokenIssued(string(domain.TokenTypeRefresh))
	return opaque, nil
}

// VerifyAccessToken returns the stored row for a live access token. Missing,
// revoked, expired and non-access tokens all yield ErrInvalidToken.
func (s *TokenService) VerifyAccessToken(ctx context.Context, token string) (domain.Token, error) {
	row, err := s.lookup(ctx, token)
	if err != nil {
		return domain.Token{}, err
	}
	if row.Type != domain.TokenTypeAccess || !row.Live(time.Now()) {
		return domain.Token{}, ErrInvalidToken
	}
	return row, nil
}

// Revoke marks a token revoked. Unknown and already revoked tokens are
// ignored.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	row, err := s.lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil
		}
		return err
	}
	if row.RevokedAt != nil {
		return nil
	}
	if err := s.Store.Tokens().RevokeToken(ctx, row.JTI, time.Now()); err != nil {
		return err
	}

	s.Metrics.TokenRevoked()
	s.Audit.Record(ctx, domain.AuditLog{
		Event:    EventTokenRevoked,
		ClientID: row.ClientID,
		UserID:   row.UserID,
		Meta:     map[string]any{"type": string(row.Type)},
	})
	slogx.FromContext(ctx).Info("token revoked", "client_id", row.ClientID, "type", row.Type)
	return nil
}

// Introspect reports whether token is live and, if so, what it grants.
func (s *TokenService) Introspect(ctx context.Context, token string) (Introspection, error) {
	row, err := s.lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return Introspection{}, nil
		}
		return Introspection{}, err
	}
	if !row.Live(time.Now()) {
		return Introspection{}, nil
	}
	return Introspection{
		Active:    true,
		Scope:     row.Scope,
		ClientID:  row.ClientID,
		TokenType: string(row.Type) + "_token",
		Subject:   row.UserID,
		ExpiresAt: row.ExpiresAt,
		IssuedAt:  row.IssuedAt,
	}, nil
}

// lookup resolves a presented token to its stored row. A JWT is looked up by
// its jti claim without checking the signature, since the row is what decides
// liveness; anything else is looked up by fingerprint.
func (s *TokenService) lookup(ctx context.Context, token string) (domain.Token, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Token{}, ErrInvalidToken
	}

	jti := ""
	if jwtx.LooksLikeJWT(token) {
		id, err := jwtx.PeekJTI(token)
		if err != nil || id == "" {
			return domain.Token{}, ErrInvalidToken
		}
		jti = id
	} else {
		jti = cryptox.FingerprintToken(token)
	}

	row, err := s.Store.Tokens().GetToken(ctx, jti)
	if err != nil {
		return domain.Token{}, notFoundAs(err, ErrInvalidToken)
	}
	return row, nil
}

func (s *TokenService) idTokenTTL() time.Duration {
	if s.IDTokenTTL > 0 {
		return s.IDTokenTTL
	}
	return 10 * time.Minute
}

func (s *TokenService) issued(ctx context.Context, grant, userID string, client domain.Client, withID bool) {
	s.Audit.Record(ctx, domain.AuditLog{
		Event:          EventTokenIssued,
		OrganizationID: client.OrganizationID,
		ClientID:       client.ClientID,
		UserID:         userID,
		Meta:           map[string]any{"grant_type": grant, "id_token": withID},
	})
	slogx.FromContext(ctx).Info("tokens issued", "grant_type", grant, "client_id", client.ClientID, "user_id", userID)
}

func opaqueSnapshot(userID, clientID, scope string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"sub": userID, "client_id": clientID, "scope": scope})
	return b
}

// notFoundAs replaces store.ErrNotFound with target and passes other errors
// through.
func notFoundAs(err, target error) error {
	if errors.Is(err, store.ErrNotFound) {
		return target
	}
	return err
}
