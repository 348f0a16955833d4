package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/pkg/cryptox"
	"github.com/aussiebroadwan/visageid/pkg/idx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

var (
	ErrClientNotFound     = errors.New("client not found")
	ErrInvalidRedirectSet = errors.New("redirect_uris must be absolute http(s) URLs")
	ErrNameRequired       = errors.New("name required")
)

type OrganizationService struct {
	Store store.Store
}

// CreateOrganization creates an organization. ownerID may be empty.
func (s *OrganizationService) CreateOrganization(ctx context.Context, name, ownerID string) (domain.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Organization{}, ErrNameRequired
	}
	if ownerID != "" {
		if _, err := s.Store.Users().GetUserByID(ctx, ownerID); err != nil {
			return domain.Organization{}, notFoundAs(err, ErrNotFound)
		}
	}

	org := domain.Organization{
		ID:        idx.New().String(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
	}
	if err := s.Store.Organizations().CreateOrganization(ctx, org); err != nil {
		return domain.Organization{}, err
	}
	slogx.FromContext(ctx).Info("organization created", "organization_id", org.ID, "name", name)
	return org, nil
}

func (s *OrganizationService) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	return s.Store.Organizations().ListOrganizations(ctx)
}

type ClientService struct {
	Store store.Store
	Audit *AuditService
}

// CreateClientRequest describes a new relying party.
type CreateClientRequest struct {
	OrganizationID         string
	Name                   string
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	Confidential           bool
	PKCEEnforced           bool
}

// CreateClient registers a client. For confidential clients the plaintext
// secret is returned once and only its argon2id hash is stored.
func (s *ClientService) CreateClient(ctx context.Context, req CreateClientRequest) (client domain.Client, plaintextSecret string, err error) {
	l := slogx.FromContext(ctx)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, "", ErrNameRequired
	}
	if len(req.RedirectURIs) == 0 || !validRedirects(req.RedirectURIs) || !validRedirects(req.PostLogoutRedirectURIs) {
		return domain.Client{}, "", ErrInvalidRedirectSet
	}
	if _, err := s.Store.Organizations().GetOrganizationByID(ctx, req.OrganizationID); err != nil {
		return domain.Client{}, "", notFoundAs(err, ErrOrganizationAbsent)
	}

	clientID, err := cryptox.NewClientID()
	if err != nil {
		return domain.Client{}, "", err
	}

	var secretHash string
	if req.Confidential {
		plaintextSecret, err = cryptox.NewClientSecret()
		if err != nil {
			l.Error("failed to generate client secret", "error", err)
			return domain.Client{}, "", err
		}
		secretHash, err = cryptox.HashSecret(plaintextSecret)
		if err != nil {
			l.Error("failed to hash client secret", "error", err)
			return domain.Client{}, "", err
		}
	}

	client = domain.Client{
		ID:                     idx.New().String(),
		OrganizationID:         req.OrganizationID,
		Name:                   name,
		ClientID:               clientID,
		SecretHash:             secretHash,
		RedirectURIs:           req.RedirectURIs,
		PostLogoutRedirectURIs: req.PostLogoutRedirectURIs,
		IsConfidential:         req.Confidential,
		PKCEEnforced:           req.PKCEEnforced,
		CreatedAt:              time.Now(),
	}
	if err := s.Store.Clients().CreateClient(ctx, client); err != nil {
		l.Error("failed to create client", "error", err)
		return domain.Client{}, "", err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		Event:          EventClientCreated,
		OrganizationID: client.OrganizationID,
		ClientID:       client.ClientID,
		Meta:           map[string]any{"confidential": client.IsConfidential},
	})
	l.Info("client created successfully", "client_id", clientID, "name", name, "confidential", req.Confidential)
	return client, plaintextSecret, nil
}

// ListClients returns all OAuth2 clients.
func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.Store.Clients().ListClients(ctx)
}

// DeleteClient removes a client along with its sessions, codes and tokens.
func (s *ClientService) DeleteClient(ctx context.Context, clientID string) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.Clients().DeleteClient(ctx, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		l.Error("failed to delete client", "error", err, "client_id", clientID)
		return err
	}

	l.Info("client deleted successfully", "client_id", clientID)
	return nil
}

// RotateSecret issues a new secret for a confidential client. The previous
// secret stops working immediately.
func (s *ClientService) RotateSecret(ctx context.Context, clientID string) (string, error) {
	l := slogx.FromContext(ctx)

	client, err := s.Store.Clients().GetClientByClientID(ctx, clientID)
	if err != nil {
		return "", notFoundAs(err, ErrClientNotFound)
	}
	if !client.IsConfidential {
		return "", ErrInvalidRequest
	}

	secret, err := cryptox.NewClientSecret()
	if err != nil {
		return "", err
	}
	hash, err := cryptox.HashSecret(secret)
	if err != nil {
		return "", err
	}
	if err := s.Store.Clients().UpdateClientSecretHash(ctx, clientID, hash); err != nil {
		return "", notFoundAs(err, ErrClientNotFound)
	}

	s.Audit.Record(ctx, domain.AuditLog{
		Event:          EventClientSecretRotated,
		OrganizationID: client.OrganizationID,
		ClientID:       client.ClientID,
	})
	l.Info("client secret rotated", "client_id", clientID)
	return secret, nil
}

func validRedirects(uris []string) bool {
	for _, raw := range uris {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") || u.Fragment != "" {
			return false
		}
	}
	return true
}
