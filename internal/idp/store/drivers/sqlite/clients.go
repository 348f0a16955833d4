package sqlite

import (
	"context"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store/drivers/sqlite/gen"
)

type clientsRepo struct {
	q *gen.Queries
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	return mapWriteErr(r.q.CreateClient(ctx, gen.CreateClientParams{
		ID:                     c.ID,
		OrganizationID:         c.OrganizationID,
		Name:                   c.Name,
		ClientID:               c.ClientID,
		SecretHash:             c.SecretHash,
		RedirectUris:           encodeList(c.RedirectURIs),
		PostLogoutRedirectUris: encodeList(c.PostLogoutRedirectURIs),
		IsConfidential:         c.IsConfidential,
		PkceEnforced:           c.PKCEEnforced,
		CreatedAt:              utc(c.CreatedAt),
	}))
}

func (r *clientsRepo) GetClientByClientID(ctx context.Context, clientID string) (domain.Client, error) {
	row, err := r.q.GetClientByClientID(ctx, clientID)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return mapClient(row), nil
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.q.ListClients(ctx)
	if err != nil {
		return nil, err
	}

	clients := make([]domain.Client, len(rows))
	for i, row := range rows {
		clients[i] = mapClient(row)
	}
	return clients, nil
}

func (r *clientsRepo) UpdateClientSecretHash(ctx context.Context, clientID, secretHash string) error {
	return mapAffected(r.q.UpdateClientSecretHash(ctx, gen.UpdateClientSecretHashParams{
		SecretHash: secretHash,
		ClientID:   clientID,
	}))
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	return mapAffected(r.q.DeleteClient(ctx, clientID))
}
