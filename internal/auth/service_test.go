package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/expense-tracker/backend/internal/models"
	"github.com/ayush/expense-tracker/backend/internal/store"
)

type failingUserStore struct {
	lookupErr error
	createErr error
}

func (f *failingUserStore) CreateUser(context.Context, *models.User) error { return f.createErr }

func (f *failingUserStore) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, f.lookupErr
}

func (f *failingUserStore) GetUserByID(context.Context, string) (*models.User, error) {
	return nil, f.lookupErr
}

func newTestService(users UserStore) *Service {
	return NewService(users, NewPasswordHasher(bcrypt.MinCost), NewTokenService("test-secret"))
}

func TestService_RegisterTwice(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := newTestService(mem)
	ctx := context.Background()
	req := models.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw", Date: "2024-01-01"}

	u, err := svc.Register(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, "pw", u.Password)
	assert.Equal(t, 2024, u.Date.Year())

	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, 1, mem.UserCount())
}

func TestService_RegisterRaceMapsDuplicate(t *testing.T) {
	svc := newTestService(&failingUserStore{lookupErr: store.ErrNotFound, createErr: store.ErrDuplicate})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestService_RegisterStorageError(t *testing.T) {
	boom := errors.New("connection reset")
	svc := newTestService(&failingUserStore{lookupErr: boom})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUserExists)
}

func TestService_RegisterInvalidDate(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())

	_, err := svc.Register(context.Background(), models.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw", Date: "yesterday"})
	assert.ErrorIs(t, err, models.ErrInvalidDate)
}

func TestService_LoginRoundTrip(t *testing.T) {
	mem := store.NewMemoryStore()
	tokens := NewTokenService("test-secret")
	svc := NewService(mem, NewPasswordHasher(bcrypt.MinCost), tokens)
	ctx := context.Background()

	u, err := svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	token, err := svc.Login(ctx, models.LoginRequest{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.User.ID)
	assert.Equal(t, "A", claims.User.Name)
	assert.Equal(t, "a@x.com", claims.User.Email)
}

func TestService_LoginFailures(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := newTestService(mem)
	ctx := context.Background()
	_, err := svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "a@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "b@x.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	boom := errors.New("timeout")
	_, err = newTestService(&failingUserStore{lookupErr: boom}).Login(ctx, models.LoginRequest{Email: "a@x.com", Password: "pw"})
	assert.ErrorIs(t, err, boom)
}

func TestService_Me(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := newTestService(mem)
	ctx := context.Background()

	u, err := svc.Register(ctx, models.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	got, err := svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)

	_, err = svc.Me(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	boom := errors.New("timeout")
	_, err = newTestService(&failingUserStore{lookupErr: boom}).Me(ctx, u.ID)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}
