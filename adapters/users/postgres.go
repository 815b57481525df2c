package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/ports"
)

// PostgresRepository stores identities in Postgres via database/sql
// over the pgx driver.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new Postgres-backed repository
func NewPostgresRepository(db *sql.DB) ports.UserRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the users table if it does not exist yet
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			username       TEXT NOT NULL,
			wallet_address TEXT NOT NULL UNIQUE,
			created_at     TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// GetByWallet looks up an identity by its case-normalized wallet address
func (r *PostgresRepository) GetByWallet(ctx context.Context, wallet string) (*core.Identity, error) {
	var identity core.Identity
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, wallet_address
		FROM users
		WHERE wallet_address = $1
	`, wallet).Scan(&identity.ID, &identity.Username, &identity.WalletAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("query user by wallet: %w", err)
	}

	return &identity, nil
}

// GetByID looks up an identity by user id
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*core.Identity, error) {
	var identity core.Identity
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, wallet_address
		FROM users
		WHERE id = $1
	`, id).Scan(&identity.ID, &identity.Username, &identity.WalletAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}

	return &identity, nil
}

// Create inserts a new identity
func (r *PostgresRepository) Create(ctx context.Context, identity *core.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, wallet_address, created_at)
		VALUES ($1, $2, $3, $4)
	`, identity.ID, identity.Username, identity.WalletAddress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}
