package tickets

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

var (
	ErrValidation               = errors.New("validation error")
	ErrRaffleNotActive          = errors.New("raffle is not active")
	ErrInsufficientAvailability = errors.New("not enough tickets available")
	ErrNumberSpaceExhausted     = errors.New("ticket number space exhausted")
)

// numberAttemptsFactor bounds the random-number retry loop: generation
// gives up after factor*requested draws and surfaces
// ErrNumberSpaceExhausted instead of spinning.
const numberAttemptsFactor = 50

type RaffleStore interface {
	LockForUpdate(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (pgrepo.RaffleRecord, error)
}

type TicketStore interface {
	ReclaimExpired(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID, now time.Time) (int64, error)
	CountByStatus(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (reserved, sold int, err error)
	InsertHolds(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID, ids []uuid.UUID, until time.Time) error
}

type Config struct {
	PoolCapacity       int
	HoldDuration       time.Duration
	MaxTicketsPerOrder int
}

// Service is the ticket pool and reservation engine: it hands out
// time-boxed holds on pool slots and reclaims lapsed ones. All claim
// paths serialize on the raffle row lock, so two concurrent
// reservations can never overlap or oversell.
type Service struct {
	pool    *pgxpool.Pool
	raffles RaffleStore
	tickets TicketStore
	cfg     Config
	now     func() time.Time
	withTx  func(context.Context, func(context.Context, pgx.Tx) error) error
}

type Dependencies struct {
	Pool    *pgxpool.Pool
	Raffles RaffleStore
	Tickets TicketStore
}

type Counts struct {
	Available int
	Reserved  int
	Sold      int
}

type Reservation struct {
	HoldIDs       []uuid.UUID
	ReservedUntil time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.PoolCapacity <= 0 {
		cfg.PoolCapacity = 10000
	}
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = 10 * time.Minute
	}
	if cfg.MaxTicketsPerOrder <= 0 {
		cfg.MaxTicketsPerOrder = cfg.PoolCapacity
	}
	s := &Service{
		pool:    deps.Pool,
		raffles: deps.Raffles,
		tickets: deps.Tickets,
		cfg:     cfg,
		now:     time.Now,
	}
	s.withTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// Reserve claims count slots for the hold duration and returns the hold
// ids. Expired holds are reclaimed before the capacity check so a burst
// of stale leases never blocks a live buyer.
func (s *Service) Reserve(ctx context.Context, raffleID uuid.UUID, count int) (Reservation, error) {
	if raffleID == uuid.Nil || count <= 0 {
		return Reservation{}, ErrValidation
	}
	if count > s.cfg.MaxTicketsPerOrder {
		return Reservation{}, ErrValidation
	}
	if s.raffles == nil || s.tickets == nil {
		return Reservation{}, fmt.Errorf("ticket service dependencies are not configured")
	}

	now := s.now().UTC()
	until := now.Add(s.cfg.HoldDuration)
	ids := make([]uuid.UUID, count)
	for i := range ids {
		ids[i] = uuid.New()
	}

	err := s.withTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		raffle, err := s.raffles.LockForUpdate(txCtx, tx, raffleID)
		if err != nil {
			return err
		}
		if raffle.Status != "active" {
			return ErrRaffleNotActive
		}

		if _, err := s.tickets.ReclaimExpired(txCtx, tx, raffleID, now); err != nil {
			return err
		}

		reserved, sold, err := s.tickets.CountByStatus(txCtx, tx, raffleID)
		if err != nil {
			return err
		}
		if s.cfg.PoolCapacity-reserved-sold < count {
			return ErrInsufficientAvailability
		}

		return s.tickets.InsertHolds(txCtx, tx, raffleID, ids, until)
	})
	if err != nil {
		return Reservation{}, err
	}

	return Reservation{HoldIDs: ids, ReservedUntil: until}, nil
}

// Counts reports the live pool view. The reclaim pass runs first so a
// hold past its lease is already counted as available.
func (s *Service) Counts(ctx context.Context, raffleID uuid.UUID) (Counts, error) {
	if raffleID == uuid.Nil {
		return Counts{}, ErrValidation
	}
	if s.raffles == nil || s.tickets == nil {
		return Counts{}, fmt.Errorf("ticket service dependencies are not configured")
	}

	now := s.now().UTC()
	var out Counts
	err := s.withTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := s.raffles.LockForUpdate(txCtx, tx, raffleID); err != nil {
			return err
		}
		if _, err := s.tickets.ReclaimExpired(txCtx, tx, raffleID, now); err != nil {
			return err
		}
		reserved, sold, err := s.tickets.CountByStatus(txCtx, tx, raffleID)
		if err != nil {
			return err
		}
		out = Counts{
			Available: s.cfg.PoolCapacity - reserved - sold,
			Reserved:  reserved,
			Sold:      sold,
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}

	return out, nil
}

// Reclaim runs the lazy-expiry step on its own, returning how many
// holds lapsed.
func (s *Service) Reclaim(ctx context.Context, raffleID uuid.UUID) (int64, error) {
	if raffleID == uuid.Nil {
		return 0, ErrValidation
	}
	if s.tickets == nil {
		return 0, fmt.Errorf("ticket service dependencies are not configured")
	}

	now := s.now().UTC()
	var reclaimed int64
	err := s.withTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		n, err := s.tickets.ReclaimExpired(txCtx, tx, raffleID, now)
		if err != nil {
			return err
		}
		reclaimed = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	return reclaimed, nil
}

func (s *Service) Capacity() int {
	return s.cfg.PoolCapacity
}

func (s *Service) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GenerateNumbers draws n unused 4-digit numbers for a raffle. The
// taken set covers every number already assigned in the raffle; draws
// repeat until unique, capped so a nearly full pool fails loudly
// instead of looping forever.
func GenerateNumbers(taken map[string]struct{}, n, capacity int, intN func(int) int) ([]string, error) {
	if n <= 0 || capacity <= 0 || capacity > 10000 {
		return nil, ErrValidation
	}
	if len(taken)+n > capacity {
		return nil, ErrNumberSpaceExhausted
	}
	if intN == nil {
		intN = rand.Intn
	}

	drawn := make(map[string]struct{}, n)
	numbers := make([]string, 0, n)
	attempts := 0
	maxAttempts := n * numberAttemptsFactor

	for len(numbers) < n {
		if attempts >= maxAttempts {
			return nil, ErrNumberSpaceExhausted
		}
		attempts++

		number := fmt.Sprintf("%04d", intN(capacity))
		if _, dup := taken[number]; dup {
			continue
		}
		if _, dup := drawn[number]; dup {
			continue
		}
		drawn[number] = struct{}{}
		numbers = append(numbers, number)
	}

	return numbers, nil
}
