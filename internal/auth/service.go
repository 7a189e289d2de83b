package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayush/expense-tracker/backend/internal/models"
	"github.com/ayush/expense-tracker/backend/internal/store"
)

var (
	// ErrUserExists is returned by Register when the email is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned by Login for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by Me when the token's user no longer exists.
	ErrUserNotFound = errors.New("user not found")
)

// UserStore defines the interface for user persistence.
// Lookups of absent users return store.ErrNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Service implements registration and login.
type Service struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenService
	now    func() time.Time
}

func NewService(users UserStore, hasher *PasswordHasher, tokens *TokenService) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, now: time.Now}
}

// Register stores a new user with a hashed password.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	_, err := s.users.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	date, err := models.ParseDate(req.Date, s.now())
	if err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
		Date:     date,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		// Lost a race against a concurrent registration.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login checks the credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (string, error) {
	u, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(req.Password, u.Password) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(Principal{ID: u.ID, Name: u.Name, Email: u.Email})
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Me loads the stored user behind an authenticated principal.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}
