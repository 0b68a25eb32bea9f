package draws

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFinished   = errors.New("raffle is not finished")
	ErrAlreadyDrawn  = errors.New("raffle winner already drawn")
	ErrNoSoldTickets = errors.New("raffle has no sold tickets")
)

var numberPattern = regexp.MustCompile(`^[0-9]{4}$`)

type RaffleStore interface {
	LockForUpdate(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (pgrepo.RaffleRecord, error)
	SetWinner(ctx context.Context, tx pgx.Tx, raffleID, ticketID uuid.UUID, number string) error
	Postpone(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID, drawnNumber string, newLimitDate time.Time) (pgrepo.RaffleRecord, error)
}

type TicketStore interface {
	CountSold(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (int, error)
	SoldAtOffset(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID, offset int) (pgrepo.TicketRecord, error)
	FindSoldByNumber(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID, number string) (pgrepo.TicketRecord, error)
}

type Service struct {
	pool    *pgxpool.Pool
	raffles RaffleStore
	tickets TicketStore
	intN    func(int) int
	withTx  func(context.Context, func(context.Context, pgx.Tx) error) error
}

type Dependencies struct {
	Pool    *pgxpool.Pool
	Raffles RaffleStore
	Tickets TicketStore
}

// Result is the outcome of a draw. Postponed is set only by the manual
// lottery flow, when the external number matched no sold ticket.
type Result struct {
	Raffle    pgrepo.RaffleRecord
	Winner    *pgrepo.TicketRecord
	Postponed bool
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		pool:    deps.Pool,
		raffles: deps.Raffles,
		tickets: deps.Tickets,
		intN:    rand.Intn,
	}
	s.withTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// Draw picks a uniformly random sold ticket and records it as the
// winner. The raffle row lock serializes concurrent draws; the
// winner_ticket_id IS NULL guard in the update makes the write
// exactly-once even if the lock discipline is ever bypassed.
func (s *Service) Draw(ctx context.Context, raffleID uuid.UUID) (Result, error) {
	if raffleID == uuid.Nil {
		return Result{}, ErrValidation
	}
	if s.raffles == nil || s.tickets == nil {
		return Result{}, fmt.Errorf("draw service dependencies are not configured")
	}

	var result Result
	err := s.withTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		raffle, err := s.raffles.LockForUpdate(txCtx, tx, raffleID)
		if err != nil {
			return err
		}
		if err := drawable(raffle); err != nil {
			return err
		}

		count, err := s.tickets.CountSold(txCtx, tx, raffleID)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNoSoldTickets
		}

		winner, err := s.tickets.SoldAtOffset(txCtx, tx, raffleID, s.intN(count))
		if err != nil {
			return err
		}
		if winner.TicketNumber == nil {
			return fmt.Errorf("sold ticket %s has no number", winner.ID)
		}

		if err := s.raffles.SetWinner(txCtx, tx, raffleID, winner.ID, *winner.TicketNumber); err != nil {
			return err
		}

		raffle.WinnerTicketID = &winner.ID
		raffle.WinnerNumber = winner.TicketNumber
		result = Result{Raffle: raffle, Winner: &winner}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return result, nil
}

// ApplyLotteryNumber resolves a draw from an externally published
// 4-digit number. A matching sold ticket wins; otherwise the raffle is
// postponed with a new deadline and the unmatched number on record.
func (s *Service) ApplyLotteryNumber(ctx context.Context, raffleID uuid.UUID, number string, newLimitDate time.Time) (Result, error) {
	if raffleID == uuid.Nil || !numberPattern.MatchString(number) {
		return Result{}, ErrValidation
	}
	if s.raffles == nil || s.tickets == nil {
		return Result{}, fmt.Errorf("draw service dependencies are not configured")
	}

	var result Result
	err := s.withTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		raffle, err := s.raffles.LockForUpdate(txCtx, tx, raffleID)
		if err != nil {
			return err
		}
		if err := drawable(raffle); err != nil {
			return err
		}

		winner, err := s.tickets.FindSoldByNumber(txCtx, tx, raffleID, number)
		if err == nil {
			if err := s.raffles.SetWinner(txCtx, tx, raffleID, winner.ID, number); err != nil {
				return err
			}
			raffle.WinnerTicketID = &winner.ID
			raffle.WinnerNumber = winner.TicketNumber
			result = Result{Raffle: raffle, Winner: &winner}
			return nil
		}
		if !errors.Is(err, pgrepo.ErrTicketNotFound) {
			return err
		}

		if newLimitDate.IsZero() {
			return ErrValidation
		}
		postponed, err := s.raffles.Postpone(txCtx, tx, raffleID, number, newLimitDate)
		if err != nil {
			return err
		}
		result = Result{Raffle: postponed, Postponed: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return result, nil
}

func drawable(raffle pgrepo.RaffleRecord) error {
	if raffle.WinnerTicketID != nil {
		return ErrAlreadyDrawn
	}
	if raffle.Status != "finished" {
		return ErrNotFinished
	}
	return nil
}
