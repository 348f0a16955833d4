package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/metrics"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/pkg/cryptox"
	"github.com/aussiebroadwan/visageid/pkg/facekit"
	"github.com/aussiebroadwan/visageid/pkg/idx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// DefaultScope is granted when an authorization request names none.
const DefaultScope = "openid"

// AuthorizeService is the face gate in front of authorization code issuance.
type AuthorizeService struct {
	Store    store.Store
	Pipeline *facekit.Pipeline
	Gallery  *Gallery
	Policy   facekit.Policy
	CodeTTL  time.Duration
	Metrics  *metrics.Metrics
	Audit    *AuditService
}

// VerifyRequest is one authorization attempt with its capture.
type VerifyRequest struct {
	ClientID            string
	RedirectURI         string
	State               string
	Nonce               string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	Capture             facekit.Capture
}

// VerifyResult carries the issued code and where to send the user agent.
type VerifyResult struct {
	Code        string
	RedirectURI string
	State       string
	SessionID   string
	UserID      string
	Match       facekit.MatchResult
}

// RedirectURL appends code and state to the registered redirect URI.
func (r *VerifyResult) RedirectURL() string {
	u, err := url.Parse(r.RedirectURI)
	if err != nil {
		return r.RedirectURI
	}
	q := u.Query()
	q.Set("code", r.Code)
	if r.State != "" {
		q.Set("state", r.State)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ResolveClient loads the client and checks that redirectURI is registered
// for it exactly.
func (s *AuthorizeService) ResolveClient(ctx context.Context, clientID, redirectURI string) (domain.Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return domain.Client{}, ErrUnknownClient
	}
	client, err := s.Store.Clients().GetClientByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrUnknownClient
		}
		return domain.Client{}, err
	}
	if !client.AllowsRedirect(redirectURI) {
		return domain.Client{}, ErrInvalidRedirectURI
	}
	return client, nil
}

// Verify runs the capture through liveness, localisation and embedding,
// matches it against the gallery and, on acceptance, creates the session
// and its authorization code in one transaction. Nothing is written when
// any step rejects.
func (s *AuthorizeService) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	l := slogx.FromContext(ctx)

	res, err := s.verify(ctx, req)
	if err != nil {
		var me *MatchError
		outcome := metrics.OutcomeError
		switch {
		case errors.As(err, &me):
			outcome = metrics.OutcomeRejected
		case errors.Is(err, ErrLivenessFailed):
			outcome = metrics.OutcomeNotLive
		case errors.Is(err, ErrNoFace):
			outcome = metrics.OutcomeNoFace
		default:
			if _, ok := PublicReason(err); ok {
				outcome = metrics.OutcomeBadRequest
			}
		}
		s.Metrics.FaceVerification(outcome)

		failure := domain.AuditLog{Event: EventVerifyFailure, ClientID: req.ClientID, Meta: map[string]any{"outcome": outcome}}
		if me != nil {
			failure.Meta["top1"] = me.Result.Top1
			failure.Meta["reason"] = me.Result.Reason
		}
		s.Audit.Record(ctx, failure)

		if outcome == metrics.OutcomeError {
			l.Error("face verification failed", "client_id", req.ClientID, "error", err)
		} else {
			l.Info("face verification rejected", "client_id", req.ClientID, "outcome", outcome, "error", err)
		}
		return nil, err
	}

	s.Metrics.FaceVerification(metrics.OutcomeAccepted)
	s.Audit.Record(ctx, domain.AuditLog{
		Event:    EventVerifySuccess,
		ClientID: req.ClientID,
		UserID:   res.UserID,
		Meta:     map[string]any{"session_id": res.SessionID, "score": res.Match.Score},
	})
	l.Info("face verified",
		slog.String("client_id", req.ClientID),
		slog.String("user_id", res.UserID),
		slog.Float64("score", res.Match.Score),
	)
	return res, nil
}

func (s *AuthorizeService) verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	client, err := s.ResolveClient(ctx, req.ClientID, req.RedirectURI)
	if err != nil {
		return nil, err
	}

	probe, err := s.Pipeline.Probe(ctx, req.Capture)
	if err != nil {
		return nil, captureError(err)
	}

	gallery, err := s.Gallery.Load(ctx, s.Pipeline.ModelID())
	if err != nil {
		return nil, err
	}

	match := facekit.Match(ctx, probe, gallery, s.Policy)
	s.Metrics.MatchObserved(match.Top1, match.Skipped)
	if !match.Accepted {
		return nil, &MatchError{Result: match}
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("generate authorization code: %w", err)
	}

	now := time.Now()
	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	scope := strings.Join(strings.Fields(req.Scope), " ")
	if scope == "" {
		scope = DefaultScope
	}
	challenge := strings.TrimSpace(req.CodeChallenge)

	session := domain.AuthSession{
		ID:                  idx.New().String(),
		ClientID:            client.ClientID,
		UserID:              match.Owner,
		State:               req.State,
		Nonce:               req.Nonce,
		CodeChallenge:       challenge,
		CodeChallengeMethod: normalizePKCEMethod(challenge, req.CodeChallengeMethod),
		RedirectURI:         req.RedirectURI,
		Scope:               scope,
		ExpiresAt:           now.Add(ttl),
		VerifiedFace:        true,
		LivenessPassed:      true,
		AuthTime:            now,
		CreatedAt:           now,
	}
	authCode := domain.AuthorizationCode{
		ID:        idx.New().String(),
		SessionID: session.ID,
		CodeHash:  cryptox.FingerprintToken(code),
		ExpiresAt: session.ExpiresAt,
		CreatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AuthSessions().CreateAuthSession(ctx, session); err != nil {
			return err
		}
		return tx.AuthorizationCodes().CreateAuthorizationCode(ctx, authCode)
	})
	if err != nil {
		return nil, fmt.Errorf("persist auth session: %w", err)
	}

	return &VerifyResult{
		Code:        code,
		RedirectURI: req.RedirectURI,
		State:       req.State,
		SessionID:   session.ID,
		UserID:      match.Owner,
		Match:       match,
	}, nil
}

// LogoutRedirect returns where to send the user agent after logout. ok is
// false unless uri is a post-logout redirect registered for clientID.
func (s *AuthorizeService) LogoutRedirect(ctx context.Context, clientID, uri, state string) (string, bool) {
	if clientID == "" || uri == "" {
		return "", false
	}
	client, err := s.Store.Clients().GetClientByClientID(ctx, clientID)
	if err != nil || !client.AllowsPostLogoutRedirect(uri) {
		return "", false
	}
	if state == "" {
		return uri, true
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", false
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), true
}
