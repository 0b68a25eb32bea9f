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

var (
	ErrReferralNotFound = errors.New("referral not found")
	ErrReferralExists   = errors.New("referral code already exists")
)

type ReferralRepo struct {
	pool *pgxpool.Pool
}

type ReferralRecord struct {
	ID        uuid.UUID
	Code      string
	Name      string
	CreatedAt time.Time
}

// ReferralCommission is read-derived: confirmed purchase count per code.
type ReferralCommission struct {
	Code               string
	Name               string
	ConfirmedPurchases int
}

func NewReferralRepo(pool *pgxpool.Pool) *ReferralRepo {
	return &ReferralRepo{pool: pool}
}

func (r *ReferralRepo) Create(ctx context.Context, code, name string) (ReferralRecord, error) {
	if r.pool == nil {
		return ReferralRecord{}, fmt.Errorf("postgres pool is nil")
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || strings.TrimSpace(name) == "" {
		return ReferralRecord{}, fmt.Errorf("invalid referral create payload")
	}

	var rec ReferralRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO referrals (id, code, name, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, code, name, created_at
`, uuid.New(), code, strings.TrimSpace(name)).Scan(&rec.ID, &rec.Code, &rec.Name, &rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ReferralRecord{}, ErrReferralExists
		}
		return ReferralRecord{}, fmt.Errorf("create referral: %w", err)
	}

	return rec, nil
}

func (r *ReferralRepo) FindByCode(ctx context.Context, code string) (ReferralRecord, error) {
	if r.pool == nil {
		return ReferralRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec ReferralRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, code, name, created_at
FROM referrals
WHERE code = $1
LIMIT 1
`, strings.ToLower(strings.TrimSpace(code))).Scan(&rec.ID, &rec.Code, &rec.Name, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReferralRecord{}, ErrReferralNotFound
		}
		return ReferralRecord{}, fmt.Errorf("find referral by code: %w", err)
	}

	return rec, nil
}

func (r *ReferralRepo) List(ctx context.Context) ([]ReferralRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, code, name, created_at
FROM referrals
ORDER BY created_at ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	defer rows.Close()

	var records []ReferralRecord
	for rows.Next() {
		var rec ReferralRecord
		if err := rows.Scan(&rec.ID, &rec.Code, &rec.Name, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan referral row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate referrals: %w", err)
	}

	return records, nil
}

func (r *ReferralRepo) ConfirmedCounts(ctx context.Context) ([]ReferralCommission, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT r.code, r.name, COUNT(p.id) FILTER (WHERE p.status = 'confirmed')
FROM referrals r
LEFT JOIN purchases p ON p.referral_code = r.code
GROUP BY r.code, r.name
ORDER BY r.code ASC
`)
	if err != nil {
		return nil, fmt.Errorf("aggregate referral commissions: %w", err)
	}
	defer rows.Close()

	var results []ReferralCommission
	for rows.Next() {
		var rec ReferralCommission
		if err := rows.Scan(&rec.Code, &rec.Name, &rec.ConfirmedPurchases); err != nil {
			return nil, fmt.Errorf("scan referral commission row: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate referral commissions: %w", err)
	}

	return results, nil
}

func (r *ReferralRepo) Delete(ctx context.Context, code string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM referrals WHERE code = $1`, strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		return fmt.Errorf("delete referral: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReferralNotFound
	}
	return nil
}
