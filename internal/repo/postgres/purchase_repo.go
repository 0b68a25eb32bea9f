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

var ErrPurchaseNotFound = errors.New("purchase not found")

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

type PurchaseRecord struct {
	ID               uuid.UUID
	RaffleID         uuid.UUID
	BuyerName        string
	BuyerEmail       string
	BuyerPhone       string
	TicketCount      int
	AmountCents      int64
	Currency         string
	PaymentMethod    string
	PaymentReference string
	ScreenshotURL    string
	ScreenshotKey    string
	ReferralCode     *string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

const purchaseColumns = `id, raffle_id, buyer_name, buyer_email, buyer_phone, ticket_count, amount_cents, currency, payment_method, payment_reference, screenshot_url, screenshot_key, referral_code, status, created_at, updated_at`

func (r *PurchaseRepo) CreatePending(ctx context.Context, tx pgx.Tx, rec PurchaseRecord) (PurchaseRecord, error) {
	if tx == nil {
		return PurchaseRecord{}, fmt.Errorf("transaction is required")
	}
	if rec.RaffleID == uuid.Nil || strings.TrimSpace(rec.BuyerName) == "" || rec.TicketCount <= 0 {
		return PurchaseRecord{}, fmt.Errorf("invalid purchase create payload")
	}

	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := tx.QueryRow(ctx, `
INSERT INTO purchases (
	id,
	raffle_id,
	buyer_name,
	buyer_email,
	buyer_phone,
	ticket_count,
	amount_cents,
	currency,
	payment_method,
	payment_reference,
	screenshot_url,
	screenshot_key,
	referral_code,
	status,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'pending', NOW(), NOW())
RETURNING `+purchaseColumns+`
`,
		id,
		rec.RaffleID,
		strings.TrimSpace(rec.BuyerName),
		strings.ToLower(strings.TrimSpace(rec.BuyerEmail)),
		strings.TrimSpace(rec.BuyerPhone),
		rec.TicketCount,
		rec.AmountCents,
		rec.Currency,
		rec.PaymentMethod,
		strings.TrimSpace(rec.PaymentReference),
		rec.ScreenshotURL,
		rec.ScreenshotKey,
		rec.ReferralCode,
	)

	created, err := scanPurchase(row)
	if err != nil {
		return PurchaseRecord{}, fmt.Errorf("create pending purchase: %w", err)
	}
	return created, nil
}

func (r *PurchaseRepo) FindByID(ctx context.Context, purchaseID uuid.UUID) (PurchaseRecord, error) {
	if r.pool == nil {
		return PurchaseRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanPurchase(r.pool.QueryRow(ctx, `
SELECT `+purchaseColumns+`
FROM purchases
WHERE id = $1
LIMIT 1
`, purchaseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRecord{}, ErrPurchaseNotFound
		}
		return PurchaseRecord{}, fmt.Errorf("find purchase by id: %w", err)
	}

	return rec, nil
}

// MarkStatus flips a pending purchase to its terminal status. The
// conditional update is the double-processing guard: zero rows means the
// purchase is gone or was already handled, and the second return value
// reports which.
func (r *PurchaseRepo) MarkStatus(ctx context.Context, tx pgx.Tx, purchaseID uuid.UUID, status string) (PurchaseRecord, bool, error) {
	if tx == nil {
		return PurchaseRecord{}, false, fmt.Errorf("transaction is required")
	}

	rec, err := scanPurchase(tx.QueryRow(ctx, `
UPDATE purchases
SET status = $2, updated_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING `+purchaseColumns+`
`, purchaseID, status))
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return PurchaseRecord{}, false, fmt.Errorf("mark purchase %s: %w", status, err)
	}

	existing, err := scanPurchase(tx.QueryRow(ctx, `
SELECT `+purchaseColumns+`
FROM purchases
WHERE id = $1
LIMIT 1
`, purchaseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRecord{}, false, ErrPurchaseNotFound
		}
		return PurchaseRecord{}, false, fmt.Errorf("find purchase by id: %w", err)
	}
	return existing, false, nil
}

func (r *PurchaseRepo) ListByStatus(ctx context.Context, status string, raffleID *uuid.UUID) ([]PurchaseRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	query := `SELECT ` + purchaseColumns + ` FROM purchases`
	var (
		clauses []string
		args    []any
	)
	if strings.TrimSpace(status) != "" {
		args = append(args, strings.ToLower(strings.TrimSpace(status)))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if raffleID != nil {
		args = append(args, *raffleID)
		clauses = append(clauses, fmt.Sprintf("raffle_id = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var records []PurchaseRecord
	for rows.Next() {
		rec, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}

	return records, nil
}

// RejectedScreenshotsBefore feeds the retention job: rejected purchases
// whose screenshot object is still around past the cutoff.
func (r *PurchaseRepo) RejectedScreenshotsBefore(ctx context.Context, cutoff time.Time, limit int) ([]PurchaseRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+purchaseColumns+`
FROM purchases
WHERE status = 'rejected'
  AND screenshot_key <> ''
  AND updated_at < $1
ORDER BY updated_at ASC
LIMIT $2
`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list rejected screenshots: %w", err)
	}
	defer rows.Close()

	var records []PurchaseRecord
	for rows.Next() {
		rec, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rejected screenshots: %w", err)
	}

	return records, nil
}

func (r *PurchaseRepo) ClearScreenshot(ctx context.Context, purchaseID uuid.UUID) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE purchases
SET screenshot_key = '', updated_at = NOW()
WHERE id = $1
`, purchaseID); err != nil {
		return fmt.Errorf("clear purchase screenshot: %w", err)
	}
	return nil
}

func scanPurchase(row pgx.Row) (PurchaseRecord, error) {
	var rec PurchaseRecord
	if err := row.Scan(
		&rec.ID,
		&rec.RaffleID,
		&rec.BuyerName,
		&rec.BuyerEmail,
		&rec.BuyerPhone,
		&rec.TicketCount,
		&rec.AmountCents,
		&rec.Currency,
		&rec.PaymentMethod,
		&rec.PaymentReference,
		&rec.ScreenshotURL,
		&rec.ScreenshotKey,
		&rec.ReferralCode,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return PurchaseRecord{}, err
	}
	return rec, nil
}
