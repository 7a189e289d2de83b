package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ayush/expense-tracker/backend/internal/models"
)

const pgUniqueViolation = "23505"

// PgxQuerier is the part of *pgxpool.Pool the user store needs.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUserStore keeps registered users in PostgreSQL.
type PostgresUserStore struct {
	pool PgxQuerier
}

func NewPostgresUserStore(pool PgxQuerier) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

// Migrate creates the users table if it doesn't exist.
func (s *PostgresUserStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name     VARCHAR(255) NOT NULL,
			email    VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			date     TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("postgres migrate users: %w", err)
	}
	return nil
}

// CreateUser inserts u and fills in the generated id.
func (s *PostgresUserStore) CreateUser(ctx context.Context, u *models.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password, date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id::text`,
		u.Name, u.Email, u.Password, u.Date,
	).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("postgres create user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.queryUser(ctx,
		`SELECT id::text, name, email, password, date FROM users WHERE email = $1`, email)
}

func (s *PostgresUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.queryUser(ctx,
		`SELECT id::text, name, email, password, date FROM users WHERE id::text = $1`, id)
}

func (s *PostgresUserStore) queryUser(ctx context.Context, sql string, arg string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres query user: %w", err)
	}
	return &u, nil
}
