package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/buildleft/site-backend/internal/domain"
	"github.com/buildleft/site-backend/internal/password"
	"github.com/buildleft/site-backend/internal/repository"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// deliberately indistinguishable to resist account enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when registering an email that is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when a user record no longer exists.
	ErrUserNotFound = errors.New("user not found")
)

// UserService describes account lifecycle operations.
type UserService interface {
	Register(ctx context.Context, email, plainPassword string) (*domain.User, error)
	Authenticate(ctx context.Context, email, plainPassword string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	hasher *password.Hasher
}

func NewUserService(users repository.UserRepository, hasher *password.Hasher) UserService {
	return &userService{users: users, hasher: hasher}
}

func (s *userService) Register(ctx context.Context, email, plainPassword string) (*domain.User, error) {
	email = NormalizeEmail(email)
	if violations := ValidateCredentials(email, plainPassword); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	hash, err := s.hasher.Hash(plainPassword)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
	}

	// The store's unique constraint is the only uniqueness check; a prior
	// lookup would race with a concurrent registration.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, plainPassword string) (*domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" || plainPassword == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(plainPassword, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return sanitizeUser(user), nil
}

// sanitizeUser strips the password hash; handlers only ever see copies
// without it.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
