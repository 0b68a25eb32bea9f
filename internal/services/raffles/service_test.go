package raffles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

type raffleStub struct {
	records map[uuid.UUID]*pgrepo.RaffleRecord
	images  map[uuid.UUID][]pgrepo.RaffleImageRecord
	objects map[string]struct{}
}

func newRaffleStub() *raffleStub {
	return &raffleStub{
		records: make(map[uuid.UUID]*pgrepo.RaffleRecord),
		images:  make(map[uuid.UUID][]pgrepo.RaffleImageRecord),
		objects: make(map[string]struct{}),
	}
}

func (s *raffleStub) Create(_ context.Context, rec pgrepo.RaffleRecord) (pgrepo.RaffleRecord, error) {
	rec.ID = uuid.New()
	rec.Status = "draft"
	s.records[rec.ID] = &rec
	return rec, nil
}

func (s *raffleStub) FindByID(_ context.Context, raffleID uuid.UUID) (pgrepo.RaffleRecord, error) {
	rec, ok := s.records[raffleID]
	if !ok {
		return pgrepo.RaffleRecord{}, pgrepo.ErrRaffleNotFound
	}
	return *rec, nil
}

func (s *raffleStub) List(_ context.Context, status string) ([]pgrepo.RaffleRecord, error) {
	var out []pgrepo.RaffleRecord
	for _, rec := range s.records {
		if status == "" || rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *raffleStub) Transition(_ context.Context, raffleID uuid.UUID, from, to string) (pgrepo.RaffleRecord, error) {
	rec, ok := s.records[raffleID]
	if !ok {
		return pgrepo.RaffleRecord{}, pgrepo.ErrRaffleNotFound
	}
	if rec.Status != from {
		return pgrepo.RaffleRecord{}, pgrepo.ErrStatusTransition
	}
	rec.Status = to
	return *rec, nil
}

func (s *raffleStub) Delete(_ context.Context, raffleID uuid.UUID) error {
	if _, ok := s.records[raffleID]; !ok {
		return pgrepo.ErrRaffleNotFound
	}
	delete(s.records, raffleID)
	return nil
}

func (s *raffleStub) ListByRaffle(_ context.Context, raffleID uuid.UUID) ([]pgrepo.RaffleImageRecord, error) {
	return s.images[raffleID], nil
}

func (s *raffleStub) DeleteObject(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type removerAdapter struct{ *raffleStub }

func (a removerAdapter) Delete(ctx context.Context, key string) error {
	return a.DeleteObject(ctx, key)
}

func newTestService(stub *raffleStub) *Service {
	return NewService(Dependencies{
		Raffles: stub,
		Images:  stub,
		Storage: removerAdapter{stub},
	}, Config{PoolCapacity: 10000})
}

func validCreate() CreateInput {
	return CreateInput{
		Name:           "Rifa de la moto",
		Description:    "Yamaha 2026",
		PriceCents:     500,
		Currency:       "usd",
		MinimumTickets: 2000,
		LimitDate:      time.Now().Add(30 * 24 * time.Hour),
	}
}

func TestCreateStartsInDraft(t *testing.T) {
	stub := newRaffleStub()
	svc := newTestService(stub)

	rec, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Status != "draft" {
		t.Fatalf("status = %q, want draft", rec.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newRaffleStub())

	cases := map[string]func(*CreateInput){
		"empty name":        func(in *CreateInput) { in.Name = "  " },
		"zero price":        func(in *CreateInput) { in.PriceCents = 0 },
		"negative price":    func(in *CreateInput) { in.PriceCents = -100 },
		"empty currency":    func(in *CreateInput) { in.Currency = "" },
		"zero minimum":      func(in *CreateInput) { in.MinimumTickets = 0 },
		"minimum over pool": func(in *CreateInput) { in.MinimumTickets = 10001 },
		"zero limit date":   func(in *CreateInput) { in.LimitDate = time.Time{} },
	}
	for name, mutate := range cases {
		in := validCreate()
		mutate(&in)
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", name, err)
		}
	}
}

func TestTransitionFollowsLifecycle(t *testing.T) {
	stub := newRaffleStub()
	svc := newTestService(stub)

	rec, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, target := range []string{"active", "finished"} {
		rec, err = svc.Transition(context.Background(), rec.ID, target)
		if err != nil {
			t.Fatalf("Transition to %s: %v", target, err)
		}
		if rec.Status != target {
			t.Fatalf("status = %q, want %s", rec.Status, target)
		}
	}
}

func TestTransitionRejectsIllegalEdges(t *testing.T) {
	stub := newRaffleStub()
	svc := newTestService(stub)

	rec, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// draft cannot jump straight to finished.
	if _, err := svc.Transition(context.Background(), rec.ID, "finished"); !errors.Is(err, pgrepo.ErrStatusTransition) {
		t.Fatalf("draft->finished err = %v, want ErrStatusTransition", err)
	}

	if _, err := svc.Transition(context.Background(), rec.ID, "cancelled"); err != nil {
		t.Fatalf("draft->cancelled: %v", err)
	}
	// cancelled is terminal.
	if _, err := svc.Transition(context.Background(), rec.ID, "active"); !errors.Is(err, pgrepo.ErrStatusTransition) {
		t.Fatalf("cancelled->active err = %v, want ErrStatusTransition", err)
	}

	if _, err := svc.Transition(context.Background(), rec.ID, "sideways"); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("unknown status err = %v, want ErrBadStatus", err)
	}
}

func TestPostponedCanFinishAgain(t *testing.T) {
	stub := newRaffleStub()
	svc := newTestService(stub)

	rec, _ := svc.Create(context.Background(), validCreate())
	stub.records[rec.ID].Status = "postponed"

	updated, err := svc.Transition(context.Background(), rec.ID, "finished")
	if err != nil {
		t.Fatalf("postponed->finished: %v", err)
	}
	if updated.Status != "finished" {
		t.Fatalf("status = %q, want finished", updated.Status)
	}
}

func TestDeleteRemovesStoredImages(t *testing.T) {
	stub := newRaffleStub()
	svc := newTestService(stub)

	rec, _ := svc.Create(context.Background(), validCreate())
	stub.objects["raffles/a.jpg"] = struct{}{}
	stub.objects["raffles/b.jpg"] = struct{}{}
	stub.images[rec.ID] = []pgrepo.RaffleImageRecord{
		{ID: uuid.New(), RaffleID: rec.ID, ObjectKey: "raffles/a.jpg"},
		{ID: uuid.New(), RaffleID: rec.ID, ObjectKey: "raffles/b.jpg"},
	}

	if err := svc.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := stub.records[rec.ID]; ok {
		t.Fatalf("raffle row survived delete")
	}
	if len(stub.objects) != 0 {
		t.Fatalf("%d image objects left in storage", len(stub.objects))
	}
}

func TestListValidatesStatusFilter(t *testing.T) {
	svc := newTestService(newRaffleStub())

	if _, err := svc.List(context.Background(), "bogus"); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("err = %v, want ErrBadStatus", err)
	}
}
