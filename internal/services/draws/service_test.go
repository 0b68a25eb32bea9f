package draws

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

type drawStub struct {
	raffle pgrepo.RaffleRecord
	sold   []pgrepo.TicketRecord
}

func newDrawStub(status string, soldNumbers ...string) *drawStub {
	stub := &drawStub{
		raffle: pgrepo.RaffleRecord{
			ID:        uuid.New(),
			Name:      "carro rifa",
			Status:    status,
			LimitDate: time.Now().Add(-time.Hour),
		},
	}
	for _, number := range soldNumbers {
		n := number
		stub.sold = append(stub.sold, pgrepo.TicketRecord{
			ID:           uuid.New(),
			RaffleID:     stub.raffle.ID,
			TicketNumber: &n,
			Status:       "sold",
		})
	}
	sort.Slice(stub.sold, func(i, j int) bool {
		return *stub.sold[i].TicketNumber < *stub.sold[j].TicketNumber
	})
	return stub
}

func (s *drawStub) LockForUpdate(_ context.Context, _ pgx.Tx, raffleID uuid.UUID) (pgrepo.RaffleRecord, error) {
	if raffleID != s.raffle.ID {
		return pgrepo.RaffleRecord{}, pgrepo.ErrRaffleNotFound
	}
	return s.raffle, nil
}

func (s *drawStub) SetWinner(_ context.Context, _ pgx.Tx, raffleID, ticketID uuid.UUID, number string) error {
	if raffleID != s.raffle.ID {
		return pgrepo.ErrRaffleNotFound
	}
	if s.raffle.WinnerTicketID != nil {
		return pgrepo.ErrStatusTransition
	}
	s.raffle.WinnerTicketID = &ticketID
	s.raffle.WinnerNumber = &number
	return nil
}

func (s *drawStub) Postpone(_ context.Context, _ pgx.Tx, raffleID uuid.UUID, drawnNumber string, newLimitDate time.Time) (pgrepo.RaffleRecord, error) {
	if raffleID != s.raffle.ID || s.raffle.Status != "finished" || s.raffle.WinnerTicketID != nil {
		return pgrepo.RaffleRecord{}, pgrepo.ErrStatusTransition
	}
	s.raffle.Status = "postponed"
	s.raffle.WinnerNumber = &drawnNumber
	s.raffle.LimitDate = newLimitDate
	return s.raffle, nil
}

func (s *drawStub) CountSold(_ context.Context, _ pgx.Tx, raffleID uuid.UUID) (int, error) {
	if raffleID != s.raffle.ID {
		return 0, pgrepo.ErrRaffleNotFound
	}
	return len(s.sold), nil
}

func (s *drawStub) SoldAtOffset(_ context.Context, _ pgx.Tx, raffleID uuid.UUID, offset int) (pgrepo.TicketRecord, error) {
	if raffleID != s.raffle.ID || offset < 0 || offset >= len(s.sold) {
		return pgrepo.TicketRecord{}, pgrepo.ErrTicketNotFound
	}
	return s.sold[offset], nil
}

func (s *drawStub) FindSoldByNumber(_ context.Context, _ pgx.Tx, raffleID uuid.UUID, number string) (pgrepo.TicketRecord, error) {
	if raffleID != s.raffle.ID {
		return pgrepo.TicketRecord{}, pgrepo.ErrRaffleNotFound
	}
	for _, tk := range s.sold {
		if *tk.TicketNumber == number {
			return tk, nil
		}
	}
	return pgrepo.TicketRecord{}, pgrepo.ErrTicketNotFound
}

func newTestService(stub *drawStub) *Service {
	svc := NewService(Dependencies{Raffles: stub, Tickets: stub})
	svc.withTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	return svc
}

func TestDrawPicksSoldTicket(t *testing.T) {
	stub := newDrawStub("finished", "0042", "1337", "9001")
	svc := newTestService(stub)
	svc.intN = func(n int) int { return 1 }

	result, err := svc.Draw(context.Background(), stub.raffle.ID)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if result.Winner == nil || *result.Winner.TicketNumber != "1337" {
		t.Fatalf("winner = %+v, want ticket 1337", result.Winner)
	}
	if stub.raffle.WinnerTicketID == nil || *stub.raffle.WinnerTicketID != result.Winner.ID {
		t.Fatalf("winner not persisted on raffle")
	}
}

func TestDrawIsExactlyOnce(t *testing.T) {
	stub := newDrawStub("finished", "0001", "0002")
	svc := newTestService(stub)

	if _, err := svc.Draw(context.Background(), stub.raffle.ID); err != nil {
		t.Fatalf("first Draw: %v", err)
	}
	first := *stub.raffle.WinnerTicketID

	if _, err := svc.Draw(context.Background(), stub.raffle.ID); !errors.Is(err, ErrAlreadyDrawn) {
		t.Fatalf("second Draw err = %v, want ErrAlreadyDrawn", err)
	}
	if *stub.raffle.WinnerTicketID != first {
		t.Fatalf("second draw replaced the winner")
	}
}

func TestDrawPreconditions(t *testing.T) {
	for _, status := range []string{"draft", "active", "postponed", "cancelled"} {
		stub := newDrawStub(status, "0001")
		svc := newTestService(stub)
		if _, err := svc.Draw(context.Background(), stub.raffle.ID); !errors.Is(err, ErrNotFinished) {
			t.Errorf("status %s: err = %v, want ErrNotFinished", status, err)
		}
	}

	stub := newDrawStub("finished")
	svc := newTestService(stub)
	if _, err := svc.Draw(context.Background(), stub.raffle.ID); !errors.Is(err, ErrNoSoldTickets) {
		t.Errorf("empty raffle: err = %v, want ErrNoSoldTickets", err)
	}

	if _, err := svc.Draw(context.Background(), uuid.Nil); !errors.Is(err, ErrValidation) {
		t.Errorf("nil raffle id: err = %v, want ErrValidation", err)
	}
}

func TestDrawCoversAllSoldTickets(t *testing.T) {
	numbers := []string{"0005", "0123", "4567", "8888"}
	for i := range numbers {
		stub := newDrawStub("finished", numbers...)
		svc := newTestService(stub)
		idx := i
		svc.intN = func(n int) int {
			if n != len(numbers) {
				t.Fatalf("intN bound = %d, want %d", n, len(numbers))
			}
			return idx
		}
		result, err := svc.Draw(context.Background(), stub.raffle.ID)
		if err != nil {
			t.Fatalf("Draw at offset %d: %v", i, err)
		}
		if *result.Winner.TicketNumber != numbers[i] {
			t.Fatalf("offset %d drew %s, want %s", i, *result.Winner.TicketNumber, numbers[i])
		}
	}
}

func TestApplyLotteryNumberMatch(t *testing.T) {
	stub := newDrawStub("finished", "0042", "7777")
	svc := newTestService(stub)

	result, err := svc.ApplyLotteryNumber(context.Background(), stub.raffle.ID, "7777", time.Time{})
	if err != nil {
		t.Fatalf("ApplyLotteryNumber: %v", err)
	}
	if result.Postponed {
		t.Fatalf("matched number should not postpone")
	}
	if result.Winner == nil || *result.Winner.TicketNumber != "7777" {
		t.Fatalf("winner = %+v, want ticket 7777", result.Winner)
	}
}

func TestApplyLotteryNumberNoMatchPostpones(t *testing.T) {
	stub := newDrawStub("finished", "0042")
	svc := newTestService(stub)

	newDate := time.Now().Add(7 * 24 * time.Hour).Truncate(time.Second)
	result, err := svc.ApplyLotteryNumber(context.Background(), stub.raffle.ID, "9999", newDate)
	if err != nil {
		t.Fatalf("ApplyLotteryNumber: %v", err)
	}
	if !result.Postponed {
		t.Fatalf("unmatched number should postpone")
	}
	if result.Raffle.Status != "postponed" {
		t.Fatalf("status = %q, want postponed", result.Raffle.Status)
	}
	if result.Raffle.WinnerNumber == nil || *result.Raffle.WinnerNumber != "9999" {
		t.Fatalf("unmatched number not recorded")
	}
	if !result.Raffle.LimitDate.Equal(newDate) {
		t.Fatalf("limit date = %v, want %v", result.Raffle.LimitDate, newDate)
	}
}

func TestApplyLotteryNumberValidation(t *testing.T) {
	stub := newDrawStub("finished", "0042")
	svc := newTestService(stub)

	for _, bad := range []string{"", "12", "12345", "12a4", "١٢٣٤"} {
		if _, err := svc.ApplyLotteryNumber(context.Background(), stub.raffle.ID, bad, time.Now()); !errors.Is(err, ErrValidation) {
			t.Errorf("number %q: err = %v, want ErrValidation", bad, err)
		}
	}

	// No match and no replacement deadline is a caller mistake.
	if _, err := svc.ApplyLotteryNumber(context.Background(), stub.raffle.ID, "0001", time.Time{}); !errors.Is(err, ErrValidation) {
		t.Errorf("zero limit date: err = %v, want ErrValidation", err)
	}
}

func TestDrawUnknownRaffle(t *testing.T) {
	stub := newDrawStub("finished", "0001")
	svc := newTestService(stub)

	if _, err := svc.Draw(context.Background(), uuid.New()); !errors.Is(err, pgrepo.ErrRaffleNotFound) {
		t.Fatalf("err = %v, want ErrRaffleNotFound", err)
	}
}
