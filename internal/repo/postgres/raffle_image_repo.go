package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRaffleImageNotFound = errors.New("raffle image not found")

type RaffleImageRepo struct {
	pool *pgxpool.Pool
}

type RaffleImageRecord struct {
	ID        uuid.UUID
	RaffleID  uuid.UUID
	ObjectKey string
	URL       string
	Position  int
	CreatedAt time.Time
}

func NewRaffleImageRepo(pool *pgxpool.Pool) *RaffleImageRepo {
	return &RaffleImageRepo{pool: pool}
}

func (r *RaffleImageRepo) Create(ctx context.Context, raffleID uuid.UUID, objectKey, url string) (RaffleImageRecord, error) {
	if r.pool == nil {
		return RaffleImageRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if raffleID == uuid.Nil || objectKey == "" {
		return RaffleImageRecord{}, fmt.Errorf("invalid raffle image payload")
	}

	var rec RaffleImageRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO raffle_images (id, raffle_id, object_key, url, position, created_at)
VALUES (
	$1, $2, $3, $4,
	COALESCE((SELECT MAX(position) + 1 FROM raffle_images WHERE raffle_id = $2), 0),
	NOW()
)
RETURNING id, raffle_id, object_key, url, position, created_at
`, uuid.New(), raffleID, objectKey, url).Scan(
		&rec.ID, &rec.RaffleID, &rec.ObjectKey, &rec.URL, &rec.Position, &rec.CreatedAt,
	)
	if err != nil {
		return RaffleImageRecord{}, fmt.Errorf("create raffle image: %w", err)
	}

	return rec, nil
}

func (r *RaffleImageRepo) ListByRaffle(ctx context.Context, raffleID uuid.UUID) ([]RaffleImageRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, raffle_id, object_key, url, position, created_at
FROM raffle_images
WHERE raffle_id = $1
ORDER BY position ASC
`, raffleID)
	if err != nil {
		return nil, fmt.Errorf("list raffle images: %w", err)
	}
	defer rows.Close()

	var records []RaffleImageRecord
	for rows.Next() {
		var rec RaffleImageRecord
		if err := rows.Scan(&rec.ID, &rec.RaffleID, &rec.ObjectKey, &rec.URL, &rec.Position, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan raffle image row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raffle images: %w", err)
	}

	return records, nil
}

func (r *RaffleImageRepo) FindByID(ctx context.Context, imageID uuid.UUID) (RaffleImageRecord, error) {
	if r.pool == nil {
		return RaffleImageRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec RaffleImageRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, raffle_id, object_key, url, position, created_at
FROM raffle_images
WHERE id = $1
LIMIT 1
`, imageID).Scan(&rec.ID, &rec.RaffleID, &rec.ObjectKey, &rec.URL, &rec.Position, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RaffleImageRecord{}, ErrRaffleImageNotFound
		}
		return RaffleImageRecord{}, fmt.Errorf("find raffle image by id: %w", err)
	}

	return rec, nil
}

func (r *RaffleImageRepo) Delete(ctx context.Context, imageID uuid.UUID) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM raffle_images WHERE id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("delete raffle image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRaffleImageNotFound
	}
	return nil
}
