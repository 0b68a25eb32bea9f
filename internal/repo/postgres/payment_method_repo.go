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

var ErrPaymentMethodNotFound = errors.New("payment method not found")

type PaymentMethodRepo struct {
	pool *pgxpool.Pool
}

type PaymentMethodRecord struct {
	ID             uuid.UUID
	Name           string
	AccountHolder  string
	AccountDetails string
	Active         bool
	CreatedAt      time.Time
}

func NewPaymentMethodRepo(pool *pgxpool.Pool) *PaymentMethodRepo {
	return &PaymentMethodRepo{pool: pool}
}

func (r *PaymentMethodRepo) Create(ctx context.Context, rec PaymentMethodRecord) (PaymentMethodRecord, error) {
	if r.pool == nil {
		return PaymentMethodRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return PaymentMethodRecord{}, fmt.Errorf("payment method name is required")
	}

	var created PaymentMethodRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO payment_methods (id, name, account_holder, account_details, active, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING id, name, account_holder, account_details, active, created_at
`, uuid.New(), strings.TrimSpace(rec.Name), rec.AccountHolder, rec.AccountDetails, rec.Active).Scan(
		&created.ID, &created.Name, &created.AccountHolder, &created.AccountDetails, &created.Active, &created.CreatedAt,
	)
	if err != nil {
		return PaymentMethodRecord{}, fmt.Errorf("create payment method: %w", err)
	}

	return created, nil
}

func (r *PaymentMethodRepo) List(ctx context.Context, onlyActive bool) ([]PaymentMethodRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	query := `
SELECT id, name, account_holder, account_details, active, created_at
FROM payment_methods`
	if onlyActive {
		query += `
WHERE active`
	}
	query += `
ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var records []PaymentMethodRecord
	for rows.Next() {
		var rec PaymentMethodRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.AccountHolder, &rec.AccountDetails, &rec.Active, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment method row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment methods: %w", err)
	}

	return records, nil
}

func (r *PaymentMethodRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE payment_methods
SET active = $2
WHERE id = $1
`, id, active)
	if err != nil {
		return fmt.Errorf("set payment method active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentMethodNotFound
	}
	return nil
}

func (r *PaymentMethodRepo) FindByName(ctx context.Context, name string) (PaymentMethodRecord, error) {
	if r.pool == nil {
		return PaymentMethodRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec PaymentMethodRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, name, account_holder, account_details, active, created_at
FROM payment_methods
WHERE LOWER(name) = LOWER($1)
LIMIT 1
`, strings.TrimSpace(name)).Scan(&rec.ID, &rec.Name, &rec.AccountHolder, &rec.AccountDetails, &rec.Active, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentMethodRecord{}, ErrPaymentMethodNotFound
		}
		return PaymentMethodRecord{}, fmt.Errorf("find payment method by name: %w", err)
	}

	return rec, nil
}

func (r *PaymentMethodRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM payment_methods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentMethodNotFound
	}
	return nil
}
