package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/users"
)

type stubUserRepo struct {
	byName map[string]users.User
}

func (s *stubUserRepo) List(context.Context) ([]users.User, error) { return nil, nil }

func (s *stubUserRepo) Get(_ context.Context, id int64) (users.User, error) {
	for _, u := range s.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return users.User{}, users.ErrUserNotFound
}

func (s *stubUserRepo) GetByUsername(_ context.Context, username string) (users.User, error) {
	u, ok := s.byName[username]
	if !ok {
		return users.User{}, users.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUserRepo) Create(_ context.Context, u users.User) (users.User, error) { return u, nil }
func (s *stubUserRepo) UpdatePassword(context.Context, int64, string) error        { return nil }
func (s *stubUserRepo) SetActive(context.Context, int64, bool) error               { return nil }

func newAuthService(t *testing.T, active bool) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse1"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubUserRepo{byName: map[string]users.User{
		"sunil": {ID: 1, Username: "sunil", PasswordHash: string(hash), Role: "manager", IsActive: active},
	}}
	return NewService(users.NewService(repo))
}

func TestAuthenticateSuccess(t *testing.T) {
	svc := newAuthService(t, true)

	user, err := svc.Authenticate(context.Background(), "sunil", "correct-horse1")
	require.NoError(t, err)
	require.Equal(t, "manager", user.Role)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := newAuthService(t, true)

	_, err := svc.Authenticate(context.Background(), "sunil", "nope")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc := newAuthService(t, true)

	_, err := svc.Authenticate(context.Background(), "ghost", "correct-horse1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	svc := newAuthService(t, false)

	_, err := svc.Authenticate(context.Background(), "sunil", "correct-horse1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
