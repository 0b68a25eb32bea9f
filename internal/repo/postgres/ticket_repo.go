package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrNumberTaken    = errors.New("ticket number already taken for raffle")
)

// TicketRepo persists both hold rows (status=reserved, no number yet)
// and sold tickets (status=sold, permanent 4-digit number). The unique
// index on (raffle_id, ticket_number) backs the per-raffle number
// invariant; 23505 surfaces as ErrNumberTaken.
type TicketRepo struct {
	pool *pgxpool.Pool
}

type TicketRecord struct {
	ID            uuid.UUID
	RaffleID      uuid.UUID
	TicketNumber  *string
	Status        string
	ReservedUntil *time.Time
	PurchaseID    *uuid.UUID
	CreatedAt     time.Time
}

type StatusCounts struct {
	Available int
	Reserved  int
	Sold      int
}

func NewTicketRepo(pool *pgxpool.Pool) *TicketRepo {
	return &TicketRepo{pool: pool}
}

const ticketColumns = `id, raffle_id, ticket_number, status, reserved_until, purchase_id, created_at`

// ReclaimExpired drops hold rows whose lease has lapsed. A dropped hold
// has no number, so the slot simply returns to the logical pool.
func (r *TicketRepo) ReclaimExpired(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID, now time.Time) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
DELETE FROM tickets
WHERE raffle_id = $1
  AND status = 'reserved'
  AND reserved_until < $2
`, raffleID, now)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeExpiredHolds is the pool-wide retention sweep used by the
// cleanup job; the lazy per-raffle reclaim remains the correctness path.
func (r *TicketRepo) PurgeExpiredHolds(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM tickets
WHERE status = 'reserved'
  AND reserved_until < $1
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TicketRepo) CountByStatus(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (reserved, sold int, err error) {
	if tx == nil {
		return 0, 0, fmt.Errorf("transaction is required")
	}

	err = tx.QueryRow(ctx, `
SELECT
	COUNT(*) FILTER (WHERE status = 'reserved'),
	COUNT(*) FILTER (WHERE status = 'sold')
FROM tickets
WHERE raffle_id = $1
`, raffleID).Scan(&reserved, &sold)
	if err != nil {
		return 0, 0, fmt.Errorf("count tickets by status: %w", err)
	}
	return reserved, sold, nil
}

// InsertHolds claims count slots in one statement. IDs are generated by
// the caller so the grant can be handed back without a second read.
func (r *TicketRepo) InsertHolds(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID, ids []uuid.UUID, until time.Time) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if len(ids) == 0 {
		return fmt.Errorf("hold ids are required")
	}

	tag, err := tx.Exec(ctx, `
INSERT INTO tickets (id, raffle_id, status, reserved_until, created_at)
SELECT unnest($1::uuid[]), $2, 'reserved', $3, NOW()
`, ids, raffleID, until)
	if err != nil {
		return fmt.Errorf("insert ticket holds: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("insert ticket holds: inserted %d of %d", tag.RowsAffected(), len(ids))
	}
	return nil
}

// BindHoldsToPurchase attaches live, unbound holds to a pending
// purchase. The returned count tells the caller whether every requested
// hold was still valid.
func (r *TicketRepo) BindHoldsToPurchase(ctx context.Context, tx pgx.Tx, raffleID, purchaseID uuid.UUID, holdIDs []uuid.UUID, now time.Time) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if len(holdIDs) == 0 {
		return 0, nil
	}

	tag, err := tx.Exec(ctx, `
UPDATE tickets
SET purchase_id = $2
WHERE id = ANY($3)
  AND raffle_id = $1
  AND status = 'reserved'
  AND purchase_id IS NULL
  AND reserved_until >= $4
`, raffleID, purchaseID, holdIDs, now)
	if err != nil {
		return 0, fmt.Errorf("bind holds to purchase: %w", err)
	}
	return tag.RowsAffected(), nil
}

// HoldIDsForPurchase locks and returns the purchase's surviving holds.
func (r *TicketRepo) HoldIDsForPurchase(ctx context.Context, tx pgx.Tx, purchaseID uuid.UUID) ([]uuid.UUID, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}

	rows, err := tx.Query(ctx, `
SELECT id
FROM tickets
WHERE purchase_id = $1 AND status = 'reserved'
ORDER BY created_at ASC, id ASC
FOR UPDATE
`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("list purchase holds: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan hold id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase holds: %w", err)
	}

	return ids, nil
}

// MarkSold turns a hold row into a numbered sold ticket.
func (r *TicketRepo) MarkSold(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID, number string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE tickets
SET status = 'sold', ticket_number = $2, reserved_until = NULL
WHERE id = $1 AND status = 'reserved'
`, ticketID, number)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNumberTaken
		}
		return fmt.Errorf("mark ticket sold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// InsertSold mints a sold ticket directly, for holds that lapsed before
// the admin confirmed the purchase.
func (r *TicketRepo) InsertSold(ctx context.Context, tx pgx.Tx, raffleID, purchaseID uuid.UUID, number string) (uuid.UUID, error) {
	if tx == nil {
		return uuid.Nil, fmt.Errorf("transaction is required")
	}

	id := uuid.New()
	_, err := tx.Exec(ctx, `
INSERT INTO tickets (id, raffle_id, ticket_number, status, purchase_id, created_at)
VALUES ($1, $2, $3, 'sold', $4, NOW())
`, id, raffleID, number, purchaseID)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrNumberTaken
		}
		return uuid.Nil, fmt.Errorf("insert sold ticket: %w", err)
	}
	return id, nil
}

func (r *TicketRepo) ExistingNumbers(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (map[string]struct{}, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}

	rows, err := tx.Query(ctx, `
SELECT ticket_number
FROM tickets
WHERE raffle_id = $1 AND ticket_number IS NOT NULL
`, raffleID)
	if err != nil {
		return nil, fmt.Errorf("list existing ticket numbers: %w", err)
	}
	defer rows.Close()

	numbers := make(map[string]struct{})
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("scan ticket number: %w", err)
		}
		numbers[number] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket numbers: %w", err)
	}

	return numbers, nil
}

func (r *TicketRepo) CountSold(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var count int
	if err := tx.QueryRow(ctx, `
SELECT COUNT(*)
FROM tickets
WHERE raffle_id = $1 AND status = 'sold'
`, raffleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sold tickets: %w", err)
	}
	return count, nil
}

// SoldAtOffset returns the sold ticket at a stable position; the draw
// picks a uniform offset in [0, soldCount).
func (r *TicketRepo) SoldAtOffset(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID, offset int) (TicketRecord, error) {
	if tx == nil {
		return TicketRecord{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanTicket(tx.QueryRow(ctx, `
SELECT `+ticketColumns+`
FROM tickets
WHERE raffle_id = $1 AND status = 'sold'
ORDER BY ticket_number ASC
OFFSET $2
LIMIT 1
`, raffleID, offset))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TicketRecord{}, ErrTicketNotFound
		}
		return TicketRecord{}, fmt.Errorf("select sold ticket at offset: %w", err)
	}

	return rec, nil
}

func (r *TicketRepo) FindSoldByNumber(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID, number string) (TicketRecord, error) {
	if tx == nil {
		return TicketRecord{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanTicket(tx.QueryRow(ctx, `
SELECT `+ticketColumns+`
FROM tickets
WHERE raffle_id = $1 AND status = 'sold' AND ticket_number = $2
LIMIT 1
`, raffleID, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TicketRecord{}, ErrTicketNotFound
		}
		return TicketRecord{}, fmt.Errorf("find sold ticket by number: %w", err)
	}

	return rec, nil
}

func (r *TicketRepo) ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]TicketRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+ticketColumns+`
FROM tickets
WHERE purchase_id = $1
ORDER BY ticket_number ASC NULLS LAST, created_at ASC
`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("list tickets by purchase: %w", err)
	}
	defer rows.Close()

	var records []TicketRecord
	for rows.Next() {
		rec, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase tickets: %w", err)
	}

	return records, nil
}

func (r *TicketRepo) FindByID(ctx context.Context, ticketID uuid.UUID) (TicketRecord, error) {
	if r.pool == nil {
		return TicketRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanTicket(r.pool.QueryRow(ctx, `
SELECT `+ticketColumns+`
FROM tickets
WHERE id = $1
LIMIT 1
`, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TicketRecord{}, ErrTicketNotFound
		}
		return TicketRecord{}, fmt.Errorf("find ticket by id: %w", err)
	}

	return rec, nil
}

func scanTicket(row pgx.Row) (TicketRecord, error) {
	var rec TicketRecord
	if err := row.Scan(
		&rec.ID,
		&rec.RaffleID,
		&rec.TicketNumber,
		&rec.Status,
		&rec.ReservedUntil,
		&rec.PurchaseID,
		&rec.CreatedAt,
	); err != nil {
		return TicketRecord{}, err
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
