package raffles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dasilvacsv/jadRifas-sub000/internal/pkg/validate"
	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")
	ErrBadStatus  = errors.New("unknown raffle status")
)

// transitions is the lifecycle edge set. Draws move finished raffles
// to postponed through the draw service, not here.
var transitions = map[string][]string{
	"draft":     {"active", "cancelled"},
	"active":    {"finished", "cancelled"},
	"postponed": {"finished"},
}

type Store interface {
	Create(ctx context.Context, rec pgrepo.RaffleRecord) (pgrepo.RaffleRecord, error)
	FindByID(ctx context.Context, raffleID uuid.UUID) (pgrepo.RaffleRecord, error)
	List(ctx context.Context, status string) ([]pgrepo.RaffleRecord, error)
	Transition(ctx context.Context, raffleID uuid.UUID, from, to string) (pgrepo.RaffleRecord, error)
	Delete(ctx context.Context, raffleID uuid.UUID) error
}

type ImageStore interface {
	ListByRaffle(ctx context.Context, raffleID uuid.UUID) ([]pgrepo.RaffleImageRecord, error)
}

type ImageRemover interface {
	Delete(ctx context.Context, key string) error
}

type Config struct {
	PoolCapacity int
}

type Service struct {
	raffles Store
	images  ImageStore
	storage ImageRemover
	cfg     Config
	log     *zap.Logger
}

type Dependencies struct {
	Raffles Store
	Images  ImageStore
	Storage ImageRemover
	Logger  *zap.Logger
}

type CreateInput struct {
	Name           string
	Description    string
	PriceCents     int64
	Currency       string
	MinimumTickets int
	LimitDate      time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.PoolCapacity <= 0 {
		cfg.PoolCapacity = 10000
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		raffles: deps.Raffles,
		images:  deps.Images,
		storage: deps.Storage,
		cfg:     cfg,
		log:     log,
	}
}

func (s *Service) Create(ctx context.Context, input CreateInput) (pgrepo.RaffleRecord, error) {
	if s.raffles == nil {
		return pgrepo.RaffleRecord{}, fmt.Errorf("raffle store is not configured")
	}
	if !validate.Required(input.Name) {
		return pgrepo.RaffleRecord{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if input.PriceCents <= 0 {
		return pgrepo.RaffleRecord{}, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if strings.TrimSpace(input.Currency) == "" {
		return pgrepo.RaffleRecord{}, fmt.Errorf("%w: currency is required", ErrValidation)
	}
	if input.MinimumTickets <= 0 || input.MinimumTickets > s.cfg.PoolCapacity {
		return pgrepo.RaffleRecord{}, fmt.Errorf("%w: minimum tickets must be in (0, %d]", ErrValidation, s.cfg.PoolCapacity)
	}
	if input.LimitDate.IsZero() {
		return pgrepo.RaffleRecord{}, fmt.Errorf("%w: limit date is required", ErrValidation)
	}

	return s.raffles.Create(ctx, pgrepo.RaffleRecord{
		Name:           input.Name,
		Description:    input.Description,
		PriceCents:     input.PriceCents,
		Currency:       input.Currency,
		MinimumTickets: input.MinimumTickets,
		LimitDate:      input.LimitDate,
	})
}

func (s *Service) Get(ctx context.Context, raffleID uuid.UUID) (pgrepo.RaffleRecord, error) {
	if s.raffles == nil {
		return pgrepo.RaffleRecord{}, fmt.Errorf("raffle store is not configured")
	}
	if raffleID == uuid.Nil {
		return pgrepo.RaffleRecord{}, ErrValidation
	}
	return s.raffles.FindByID(ctx, raffleID)
}

func (s *Service) List(ctx context.Context, status string) ([]pgrepo.RaffleRecord, error) {
	if s.raffles == nil {
		return nil, fmt.Errorf("raffle store is not configured")
	}
	if status != "" && !knownStatus(status) {
		return nil, ErrBadStatus
	}
	return s.raffles.List(ctx, status)
}

// Transition moves a raffle along the lifecycle. The edge is validated
// here; the conditional update in the store makes the move atomic.
func (s *Service) Transition(ctx context.Context, raffleID uuid.UUID, target string) (pgrepo.RaffleRecord, error) {
	if s.raffles == nil {
		return pgrepo.RaffleRecord{}, fmt.Errorf("raffle store is not configured")
	}
	if raffleID == uuid.Nil {
		return pgrepo.RaffleRecord{}, ErrValidation
	}
	target = strings.ToLower(strings.TrimSpace(target))
	if !knownStatus(target) {
		return pgrepo.RaffleRecord{}, ErrBadStatus
	}

	current, err := s.raffles.FindByID(ctx, raffleID)
	if err != nil {
		return pgrepo.RaffleRecord{}, err
	}
	if !edgeAllowed(current.Status, target) {
		return pgrepo.RaffleRecord{}, pgrepo.ErrStatusTransition
	}

	return s.raffles.Transition(ctx, raffleID, current.Status, target)
}

// Delete removes a raffle. Tickets and purchases go with it through
// the schema cascade; stored images are removed best-effort, a failed
// object delete is logged and does not block the row delete.
func (s *Service) Delete(ctx context.Context, raffleID uuid.UUID) error {
	if s.raffles == nil {
		return fmt.Errorf("raffle store is not configured")
	}
	if raffleID == uuid.Nil {
		return ErrValidation
	}

	if s.images != nil && s.storage != nil {
		images, err := s.images.ListByRaffle(ctx, raffleID)
		if err != nil {
			return err
		}
		for _, img := range images {
			if err := s.storage.Delete(ctx, img.ObjectKey); err != nil {
				s.log.Warn("raffle image object delete failed",
					zap.String("raffle_id", raffleID.String()),
					zap.String("object_key", img.ObjectKey),
					zap.Error(err))
			}
		}
	}

	return s.raffles.Delete(ctx, raffleID)
}

func knownStatus(status string) bool {
	switch status {
	case "draft", "active", "finished", "postponed", "cancelled":
		return true
	}
	return false
}

func edgeAllowed(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
