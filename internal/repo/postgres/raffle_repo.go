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
	ErrRaffleNotFound   = errors.New("raffle not found")
	ErrStatusTransition = errors.New("illegal raffle status transition")
)

type RaffleRepo struct {
	pool *pgxpool.Pool
}

type RaffleRecord struct {
	ID             uuid.UUID
	Name           string
	Description    string
	PriceCents     int64
	Currency       string
	MinimumTickets int
	Status         string
	LimitDate      time.Time
	WinnerTicketID *uuid.UUID
	WinnerNumber   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewRaffleRepo(pool *pgxpool.Pool) *RaffleRepo {
	return &RaffleRepo{pool: pool}
}

const raffleColumns = `id, name, description, price_cents, currency, minimum_tickets, status, limit_date, winner_ticket_id, winner_number, created_at, updated_at`

func (r *RaffleRepo) Create(ctx context.Context, rec RaffleRecord) (RaffleRecord, error) {
	if r.pool == nil {
		return RaffleRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(rec.Name) == "" || rec.PriceCents <= 0 || strings.TrimSpace(rec.Currency) == "" {
		return RaffleRecord{}, fmt.Errorf("invalid raffle create payload")
	}

	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO raffles (
	id,
	name,
	description,
	price_cents,
	currency,
	minimum_tickets,
	status,
	limit_date,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, 'draft', $7, NOW(), NOW())
RETURNING `+raffleColumns+`
`, id, strings.TrimSpace(rec.Name), rec.Description, rec.PriceCents, strings.ToUpper(strings.TrimSpace(rec.Currency)), rec.MinimumTickets, rec.LimitDate)

	created, err := scanRaffle(row)
	if err != nil {
		return RaffleRecord{}, fmt.Errorf("create raffle: %w", err)
	}
	return created, nil
}

func (r *RaffleRepo) FindByID(ctx context.Context, raffleID uuid.UUID) (RaffleRecord, error) {
	if r.pool == nil {
		return RaffleRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanRaffle(r.pool.QueryRow(ctx, `
SELECT `+raffleColumns+`
FROM raffles
WHERE id = $1
LIMIT 1
`, raffleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RaffleRecord{}, ErrRaffleNotFound
		}
		return RaffleRecord{}, fmt.Errorf("find raffle by id: %w", err)
	}

	return rec, nil
}

// LockForUpdate reads the raffle row under a row lock. Every multi-step
// claim against a raffle's ticket pool (reserve, confirm, draw) goes
// through this so concurrent claims serialize per raffle.
func (r *RaffleRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (RaffleRecord, error) {
	if tx == nil {
		return RaffleRecord{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanRaffle(tx.QueryRow(ctx, `
SELECT `+raffleColumns+`
FROM raffles
WHERE id = $1
FOR UPDATE
`, raffleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RaffleRecord{}, ErrRaffleNotFound
		}
		return RaffleRecord{}, fmt.Errorf("lock raffle row: %w", err)
	}

	return rec, nil
}

func (r *RaffleRepo) List(ctx context.Context, status string) ([]RaffleRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	query := `SELECT ` + raffleColumns + ` FROM raffles`
	args := []any{}
	if strings.TrimSpace(status) != "" {
		query += ` WHERE status = $1`
		args = append(args, strings.ToLower(strings.TrimSpace(status)))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list raffles: %w", err)
	}
	defer rows.Close()

	var records []RaffleRecord
	for rows.Next() {
		rec, err := scanRaffle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan raffle row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raffles: %w", err)
	}

	return records, nil
}

// Transition moves a raffle between lifecycle statuses atomically: the
// update only lands when the row is still in the expected status.
func (r *RaffleRepo) Transition(ctx context.Context, raffleID uuid.UUID, from, to string) (RaffleRecord, error) {
	if r.pool == nil {
		return RaffleRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanRaffle(r.pool.QueryRow(ctx, `
UPDATE raffles
SET status = $3, updated_at = NOW()
WHERE id = $1 AND status = $2
RETURNING `+raffleColumns+`
`, raffleID, from, to))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return RaffleRecord{}, fmt.Errorf("transition raffle status: %w", err)
	}

	if _, findErr := r.FindByID(ctx, raffleID); findErr != nil {
		return RaffleRecord{}, findErr
	}
	return RaffleRecord{}, ErrStatusTransition
}

func (r *RaffleRepo) SetWinner(ctx context.Context, tx pgx.Tx, raffleID, ticketID uuid.UUID, number string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE raffles
SET winner_ticket_id = $2, winner_number = $3, updated_at = NOW()
WHERE id = $1 AND winner_ticket_id IS NULL
`, raffleID, ticketID, number)
	if err != nil {
		return fmt.Errorf("set raffle winner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusTransition
	}
	return nil
}

// Postpone records an externally drawn number that matched no sold
// ticket and pushes the draw deadline forward.
func (r *RaffleRepo) Postpone(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID, drawnNumber string, newLimitDate time.Time) (RaffleRecord, error) {
	if tx == nil {
		return RaffleRecord{}, fmt.Errorf("transaction is required")
	}

	rec, err := scanRaffle(tx.QueryRow(ctx, `
UPDATE raffles
SET status = 'postponed', winner_number = $2, limit_date = $3, updated_at = NOW()
WHERE id = $1 AND status = 'finished' AND winner_ticket_id IS NULL
RETURNING `+raffleColumns+`
`, raffleID, drawnNumber, newLimitDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RaffleRecord{}, ErrStatusTransition
		}
		return RaffleRecord{}, fmt.Errorf("postpone raffle: %w", err)
	}

	return rec, nil
}

func (r *RaffleRepo) Delete(ctx context.Context, raffleID uuid.UUID) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM raffles WHERE id = $1`, raffleID)
	if err != nil {
		return fmt.Errorf("delete raffle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRaffleNotFound
	}
	return nil
}

func scanRaffle(row pgx.Row) (RaffleRecord, error) {
	var rec RaffleRecord
	if err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Description,
		&rec.PriceCents,
		&rec.Currency,
		&rec.MinimumTickets,
		&rec.Status,
		&rec.LimitDate,
		&rec.WinnerTicketID,
		&rec.WinnerNumber,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return RaffleRecord{}, err
	}
	return rec, nil
}
