// Package account stores registered customer accounts in PostgreSQL.
// Accounts are optional; the storefront works for anonymous sessions,
// registration just lets returning customers keep a profile.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEmailTaken signals a registration with an already-used email.
var ErrEmailTaken = errors.New("email already registered")

// User is a registered customer.
type User struct {
	ID             uuid.UUID
	Name           string
	Email          string
	HashedPassword string
	CreatedAt      time.Time
}

// Store wraps the accounts table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateUser inserts a new account. The password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, name, email, hashedPassword string) (User, error) {
	const insertSQL = `
		INSERT INTO users (name, email, hashed_password)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, hashed_password, created_at
	`
	var u User
	err := s.pool.QueryRow(ctx, insertSQL, name, email, hashedPassword).
		Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail looks up an account for login. Returns pgx.ErrNoRows
// when the email is unknown.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const querySQL = `
		SELECT id, name, email, hashed_password, created_at
		FROM users
		WHERE email = $1
	`
	var u User
	err := s.pool.QueryRow(ctx, querySQL, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUserByID resolves the account behind a validated token.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	const querySQL = `
		SELECT id, name, email, hashed_password, created_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := s.pool.QueryRow(ctx, querySQL, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}
