package tickets

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

type holdRow struct {
	raffleID uuid.UUID
	until    time.Time
	sold     bool
}

// poolStub backs both store interfaces with an in-memory ticket table.
type poolStub struct {
	raffle pgrepo.RaffleRecord
	rows   map[uuid.UUID]*holdRow
}

func newPoolStub(status string) *poolStub {
	return &poolStub{
		raffle: pgrepo.RaffleRecord{ID: uuid.New(), Status: status},
		rows:   make(map[uuid.UUID]*holdRow),
	}
}

func (s *poolStub) LockForUpdate(_ context.Context, _ pgx.Tx, raffleID uuid.UUID) (pgrepo.RaffleRecord, error) {
	if raffleID != s.raffle.ID {
		return pgrepo.RaffleRecord{}, pgrepo.ErrRaffleNotFound
	}
	return s.raffle, nil
}

func (s *poolStub) ReclaimExpired(_ context.Context, _ pgx.Tx, raffleID uuid.UUID, now time.Time) (int64, error) {
	var reclaimed int64
	for id, row := range s.rows {
		if row.raffleID == raffleID && !row.sold && row.until.Before(now) {
			delete(s.rows, id)
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (s *poolStub) CountByStatus(_ context.Context, _ pgx.Tx, raffleID uuid.UUID) (int, int, error) {
	var reserved, sold int
	for _, row := range s.rows {
		if row.raffleID != raffleID {
			continue
		}
		if row.sold {
			sold++
		} else {
			reserved++
		}
	}
	return reserved, sold, nil
}

func (s *poolStub) InsertHolds(_ context.Context, _ pgx.Tx, raffleID uuid.UUID, ids []uuid.UUID, until time.Time) error {
	for _, id := range ids {
		s.rows[id] = &holdRow{raffleID: raffleID, until: until}
	}
	return nil
}

func (s *poolStub) markSold(n int) {
	for _, row := range s.rows {
		if n == 0 {
			return
		}
		if !row.sold {
			row.sold = true
			n--
		}
	}
}

func newTestService(stub *poolStub, cfg Config) *Service {
	svc := NewService(Dependencies{Raffles: stub, Tickets: stub}, cfg)
	svc.withTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	return svc
}

func TestReserveGrantsHoldsAndCountsThem(t *testing.T) {
	stub := newPoolStub("active")
	svc := newTestService(stub, Config{PoolCapacity: 100, HoldDuration: 10 * time.Minute})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	res, err := svc.Reserve(context.Background(), stub.raffle.ID, 5)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if len(res.HoldIDs) != 5 {
		t.Fatalf("expected 5 hold ids, got %d", len(res.HoldIDs))
	}
	if !res.ReservedUntil.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected reserved_until: %s", res.ReservedUntil)
	}

	counts, err := svc.Counts(context.Background(), stub.raffle.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Reserved != 5 || counts.Sold != 0 || counts.Available != 95 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestReserveNeverOversells(t *testing.T) {
	stub := newPoolStub("active")
	svc := newTestService(stub, Config{PoolCapacity: 10, HoldDuration: 10 * time.Minute})

	if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 8); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	// Two callers racing for 5 tickets each with 2 remaining: claims
	// serialize on the raffle lock, so both see 2 and both fail.
	for i := 0; i < 2; i++ {
		if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 5); !errors.Is(err, ErrInsufficientAvailability) {
			t.Fatalf("expected ErrInsufficientAvailability, got %v", err)
		}
	}

	// The exact remainder still goes through.
	if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 2); err != nil {
		t.Fatalf("reserve remainder: %v", err)
	}
	if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 1); !errors.Is(err, ErrInsufficientAvailability) {
		t.Fatalf("expected pool exhausted, got %v", err)
	}

	counts, err := svc.Counts(context.Background(), stub.raffle.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Reserved+counts.Sold > 10 {
		t.Fatalf("oversold pool: %+v", counts)
	}
}

func TestExpiredHoldsReturnToPool(t *testing.T) {
	stub := newPoolStub("active")
	svc := newTestService(stub, Config{PoolCapacity: 10, HoldDuration: 10 * time.Minute})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 10); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 1); !errors.Is(err, ErrInsufficientAvailability) {
		t.Fatalf("expected full pool, got %v", err)
	}

	// One tick past the lease: any read observes the slots as available.
	now = now.Add(10*time.Minute + time.Second)

	counts, err := svc.Counts(context.Background(), stub.raffle.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Available != 10 || counts.Reserved != 0 {
		t.Fatalf("expected reclaimed pool, got %+v", counts)
	}

	if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 10); err != nil {
		t.Fatalf("reserve after expiry: %v", err)
	}
}

func TestReserveRejectsInactiveRaffle(t *testing.T) {
	stub := newPoolStub("draft")
	svc := newTestService(stub, Config{PoolCapacity: 10})

	if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 1); !errors.Is(err, ErrRaffleNotActive) {
		t.Fatalf("expected ErrRaffleNotActive, got %v", err)
	}
}

func TestReserveValidatesInput(t *testing.T) {
	stub := newPoolStub("active")
	svc := newTestService(stub, Config{PoolCapacity: 100, MaxTicketsPerOrder: 10})

	if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero count, got %v", err)
	}
	if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 11); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error above per-order cap, got %v", err)
	}
	if _, err := svc.Reserve(context.Background(), uuid.Nil, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for nil raffle, got %v", err)
	}
}

func TestReclaimReportsLapsedHolds(t *testing.T) {
	stub := newPoolStub("active")
	svc := newTestService(stub, Config{PoolCapacity: 10, HoldDuration: time.Minute})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if _, err := svc.Reserve(context.Background(), stub.raffle.ID, 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	stub.markSold(1)

	now = now.Add(2 * time.Minute)
	reclaimed, err := svc.Reclaim(context.Background(), stub.raffle.ID)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed != 3 {
		t.Fatalf("expected 3 reclaimed holds, got %d", reclaimed)
	}

	counts, err := svc.Counts(context.Background(), stub.raffle.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Sold != 1 || counts.Reserved != 0 {
		t.Fatalf("sold ticket must survive reclaim: %+v", counts)
	}
}

func TestGenerateNumbersUniqueAndPadded(t *testing.T) {
	taken := map[string]struct{}{"0001": {}, "0002": {}}

	numbers, err := GenerateNumbers(taken, 50, 10000, nil)
	if err != nil {
		t.Fatalf("generate numbers: %v", err)
	}
	if len(numbers) != 50 {
		t.Fatalf("expected 50 numbers, got %d", len(numbers))
	}

	seen := make(map[string]struct{}, len(numbers))
	for _, number := range numbers {
		if len(number) != 4 {
			t.Fatalf("number %q is not 4 digits", number)
		}
		if _, dup := seen[number]; dup {
			t.Fatalf("duplicate number %q", number)
		}
		if _, dup := taken[number]; dup {
			t.Fatalf("number %q collides with taken set", number)
		}
		seen[number] = struct{}{}
	}
}

func TestGenerateNumbersExhaustsSpace(t *testing.T) {
	taken := make(map[string]struct{}, 9)
	for i := 1; i < 10; i++ {
		taken[fmt.Sprintf("%04d", i)] = struct{}{}
	}

	// Capacity 10 with 9 taken: asking for 2 cannot succeed.
	if _, err := GenerateNumbers(taken, 2, 10, nil); !errors.Is(err, ErrNumberSpaceExhausted) {
		t.Fatalf("expected ErrNumberSpaceExhausted, got %v", err)
	}

	// Asking for the single free number works even when the generator
	// keeps hitting taken slots first.
	calls := 0
	intN := func(n int) int {
		calls++
		return (calls - 1) % n
	}
	numbers, err := GenerateNumbers(taken, 1, 10, intN)
	if err != nil {
		t.Fatalf("generate last number: %v", err)
	}
	if len(numbers) != 1 || numbers[0] != "0000" {
		t.Fatalf("expected the last free number 0000, got %v", numbers)
	}
}

func TestGenerateNumbersBoundsAttempts(t *testing.T) {
	// A generator stuck on a taken number must fail instead of spinning.
	taken := map[string]struct{}{"0000": {}}
	intN := func(int) int { return 0 }

	if _, err := GenerateNumbers(taken, 1, 10000, intN); !errors.Is(err, ErrNumberSpaceExhausted) {
		t.Fatalf("expected bounded-retry failure, got %v", err)
	}
}
