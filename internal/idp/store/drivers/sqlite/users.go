package sqlite

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q *gen.Queries
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	return mapWriteErr(r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:            u.ID,
		Email:         strings.TrimSpace(u.Email),
		DisplayName:   u.DisplayName,
		AvatarUrl:     u.AvatarURL,
		EmailVerified: u.EmailVerified,
		CreatedAt:     utc(u.CreatedAt),
		UpdatedAt:     utc(u.UpdatedAt),
	}))
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row, err := r.q.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

type organizationsRepo struct {
	q *gen.Queries
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, o domain.Organization) error {
	return mapWriteErr(r.q.CreateOrganization(ctx, gen.CreateOrganizationParams{
		ID:        o.ID,
		Name:      o.Name,
		OwnerID:   mapStringNull(o.OwnerID),
		CreatedAt: utc(o.CreatedAt),
	}))
}

func (r *organizationsRepo) GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error) {
	row, err := r.q.GetOrganizationByID(ctx, id)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	return mapOrganization(row), nil
}

func (r *organizationsRepo) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	rows, err := r.q.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	orgs := make([]domain.Organization, len(rows))
	for i, row := range rows {
		orgs[i] = mapOrganization(row)
	}
	return orgs, nil
}
