package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/buildleft/site-backend/internal/domain"
	"github.com/buildleft/site-backend/internal/password"
	"github.com/buildleft/site-backend/internal/repository"
)

// fakeUserRepo is an in-memory UserRepository enforcing the unique email
// constraint at the insert, like the real store.
type fakeUserRepo struct {
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
	creates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func (r *fakeUserRepo) Init(ctx context.Context) error { return nil }

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.creates++
	if _, exists := r.byEmail[user.Email]; exists {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateEmail, user.Email)
	}
	user.ID = fmt.Sprintf("user-%d", len(r.byID)+1)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.byEmail[user.Email] = &stored
	r.byID[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func newTestUserService(repo repository.UserRepository) UserService {
	return NewUserService(repo, password.NewHasherWithCost(bcrypt.MinCost))
}

func TestRegisterStripsPasswordHash(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	user, err := svc.Register(context.Background(), "new@x.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "new@x.com", user.Email)
	require.Empty(t, user.PasswordHash)
	require.NotEmpty(t, user.ID)

	stored := repo.byEmail["new@x.com"]
	require.NotEqual(t, "secret1", stored.PasswordHash)
	require.NotEmpty(t, stored.PasswordHash)
}

func TestRegisterInvalidInputNeverReachesStore(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	_, err := svc.Register(context.Background(), "not-an-email", "123")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Violations, 2)
	require.Zero(t, repo.creates)
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	svc := newTestUserService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), "A@B.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "a@b.com", "secret1")
	require.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestUserService(newFakeUserRepo())

	registered, err := svc.Register(context.Background(), "user@example.com", "secret1")
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "USER@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)
	require.Empty(t, user.PasswordHash)
}

func TestAuthenticateUniformFailure(t *testing.T) {
	svc := newTestUserService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), "user@example.com", "secret1")
	require.NoError(t, err)

	// Unknown email and wrong password must be indistinguishable.
	_, missErr := svc.Authenticate(context.Background(), "nobody@example.com", "secret1")
	_, pwErr := svc.Authenticate(context.Background(), "user@example.com", "wrong-password")

	require.ErrorIs(t, missErr, ErrInvalidCredentials)
	require.ErrorIs(t, pwErr, ErrInvalidCredentials)
	require.Equal(t, missErr.Error(), pwErr.Error())
}

func TestGetByID(t *testing.T) {
	svc := newTestUserService(newFakeUserRepo())

	registered, err := svc.Register(context.Background(), "user@example.com", "secret1")
	require.NoError(t, err)

	user, err := svc.GetByID(context.Background(), registered.ID)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", user.Email)
	require.Empty(t, user.PasswordHash)

	_, err = svc.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}
