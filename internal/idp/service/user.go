package service

import (
	"context"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
)

type UserService struct {
	Store store.Store
}

// GetUserByID fetches a user by id. A missing user yields ErrNotFound.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, notFoundAs(err, ErrNotFound)
	}
	return u, nil
}
