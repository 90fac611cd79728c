// Package auth verifies credentials and binds the resulting identity to the
// session the rbac middleware reads.
package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/users"
)

type Service struct {
	users *users.Service
}

func NewService(users *users.Service) *Service {
	return &Service{users: users}
}

// Authenticate checks the credentials and returns the user on success. A
// missing user and a bad password both map to ErrInvalidCredentials so the
// response does not leak which usernames exist.
func (s *Service) Authenticate(ctx context.Context, username, password string) (users.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return users.User{}, shared.ErrInvalidCredentials
		}
		return users.User{}, err
	}
	if !user.IsActive {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}
