package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserRecord struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec UserRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, role, created_at
FROM users
WHERE email = $1
LIMIT 1
`, strings.ToLower(strings.TrimSpace(email))).Scan(
		&rec.ID, &rec.Email, &rec.PasswordHash, &rec.Role, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user by email: %w", err)
	}

	return rec, nil
}

// UpsertAdmin provisions the configured admin account at startup.
func (r *UserRepo) UpsertAdmin(ctx context.Context, email, passwordHash string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return fmt.Errorf("invalid admin upsert payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO users (id, email, password_hash, role, created_at)
VALUES ($1, $2, $3, 'admin', NOW())
ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
`, uuid.New(), email, passwordHash); err != nil {
		return fmt.Errorf("upsert admin user: %w", err)
	}
	return nil
}
