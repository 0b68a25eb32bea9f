package purchases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dasilvacsv/jadRifas-sub000/internal/pkg/validate"
	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	ticketsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/tickets"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrRaffleNotActive  = errors.New("raffle is not active")
	ErrHoldsNotLive     = errors.New("reservation expired or already claimed")
	ErrAlreadyProcessed = errors.New("purchase already processed")
	ErrStorageUpload    = errors.New("payment screenshot upload failed")
	ErrUnknownReferral  = errors.New("unknown referral code")
	ErrPurchaseNotFound = errors.New("purchase not found")
)

// mintAttempts bounds whole-transaction retries after a ticket-number
// unique violation; Postgres aborts the transaction on 23505, so the
// retry restarts the confirm from scratch.
const mintAttempts = 3

type PurchaseStore interface {
	CreatePending(ctx context.Context, tx pgx.Tx, rec pgrepo.PurchaseRecord) (pgrepo.PurchaseRecord, error)
	FindByID(ctx context.Context, purchaseID uuid.UUID) (pgrepo.PurchaseRecord, error)
	MarkStatus(ctx context.Context, tx pgx.Tx, purchaseID uuid.UUID, status string) (pgrepo.PurchaseRecord, bool, error)
	ListByStatus(ctx context.Context, status string, raffleID *uuid.UUID) ([]pgrepo.PurchaseRecord, error)
}

type TicketStore interface {
	BindHoldsToPurchase(ctx context.Context, tx pgx.Tx, raffleID, purchaseID uuid.UUID, holdIDs []uuid.UUID, now time.Time) (int64, error)
	HoldIDsForPurchase(ctx context.Context, tx pgx.Tx, purchaseID uuid.UUID) ([]uuid.UUID, error)
	CountByStatus(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (reserved, sold int, err error)
	MarkSold(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID, number string) error
	InsertSold(ctx context.Context, tx pgx.Tx, raffleID, purchaseID uuid.UUID, number string) (uuid.UUID, error)
	ExistingNumbers(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (map[string]struct{}, error)
	ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]pgrepo.TicketRecord, error)
}

type RaffleStore interface {
	FindByID(ctx context.Context, raffleID uuid.UUID) (pgrepo.RaffleRecord, error)
	LockForUpdate(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) (pgrepo.RaffleRecord, error)
}

type ReferralStore interface {
	FindByCode(ctx context.Context, code string) (pgrepo.ReferralRecord, error)
}

type ScreenshotStorage interface {
	UploadScreenshot(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Notifier receives best-effort events; implementations log and swallow
// their own failures.
type Notifier interface {
	PurchaseSubmitted(ctx context.Context, purchase pgrepo.PurchaseRecord)
	PurchaseReviewed(ctx context.Context, purchase pgrepo.PurchaseRecord)
}

type Config struct {
	PoolCapacity int
}

type Service struct {
	pool      *pgxpool.Pool
	purchases PurchaseStore
	tickets   TicketStore
	raffles   RaffleStore
	referrals ReferralStore
	storage   ScreenshotStorage
	notifier  Notifier
	cfg       Config
	now       func() time.Time
	intN      func(int) int
	withTx    func(context.Context, func(context.Context, pgx.Tx) error) error
}

type Dependencies struct {
	Pool      *pgxpool.Pool
	Purchases PurchaseStore
	Tickets   TicketStore
	Raffles   RaffleStore
	Referrals ReferralStore
	Storage   ScreenshotStorage
	Notifier  Notifier
}

type SubmitInput struct {
	RaffleID         uuid.UUID
	HoldIDs          []uuid.UUID
	BuyerName        string
	BuyerEmail       string
	BuyerPhone       string
	PaymentMethod    string
	PaymentReference string
	ReferralCode     string
	Screenshot       io.Reader
	ScreenshotSize   int64
	ScreenshotName   string
	ContentType      string
}

type ReviewResult struct {
	Purchase pgrepo.PurchaseRecord
	Tickets  []pgrepo.TicketRecord
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.PoolCapacity <= 0 {
		cfg.PoolCapacity = 10000
	}
	s := &Service{
		pool:      deps.Pool,
		purchases: deps.Purchases,
		tickets:   deps.Tickets,
		raffles:   deps.Raffles,
		referrals: deps.Referrals,
		storage:   deps.Storage,
		notifier:  deps.Notifier,
		cfg:       cfg,
		now:       time.Now,
	}
	s.withTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// Submit turns a buyer's payment report into a pending purchase bound
// to their live holds. The screenshot goes to object storage first; if
// the transaction then fails the uploaded object is removed again, so
// nothing partial survives either way.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (pgrepo.PurchaseRecord, error) {
	if err := s.validateSubmit(input); err != nil {
		return pgrepo.PurchaseRecord{}, err
	}
	if s.purchases == nil || s.tickets == nil || s.raffles == nil || s.storage == nil {
		return pgrepo.PurchaseRecord{}, fmt.Errorf("purchase service dependencies are not configured")
	}

	raffle, err := s.raffles.FindByID(ctx, input.RaffleID)
	if err != nil {
		return pgrepo.PurchaseRecord{}, err
	}
	if raffle.Status != "active" {
		return pgrepo.PurchaseRecord{}, ErrRaffleNotActive
	}

	var referralCode *string
	if code := strings.ToLower(strings.TrimSpace(input.ReferralCode)); code != "" {
		if s.referrals == nil {
			return pgrepo.PurchaseRecord{}, ErrUnknownReferral
		}
		rec, err := s.referrals.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, pgrepo.ErrReferralNotFound) {
				return pgrepo.PurchaseRecord{}, ErrUnknownReferral
			}
			return pgrepo.PurchaseRecord{}, err
		}
		referralCode = &rec.Code
	}

	key := screenshotKey(input.RaffleID, input.ScreenshotName)
	url, err := s.storage.UploadScreenshot(ctx, key, input.Screenshot, input.ScreenshotSize, input.ContentType)
	if err != nil {
		return pgrepo.PurchaseRecord{}, fmt.Errorf("%w: %w", ErrStorageUpload, err)
	}

	now := s.now().UTC()
	count := len(input.HoldIDs)
	var created pgrepo.PurchaseRecord
	err = s.withTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := s.raffles.LockForUpdate(txCtx, tx, input.RaffleID); err != nil {
			return err
		}

		rec, err := s.purchases.CreatePending(txCtx, tx, pgrepo.PurchaseRecord{
			RaffleID:         input.RaffleID,
			BuyerName:        input.BuyerName,
			BuyerEmail:       input.BuyerEmail,
			BuyerPhone:       input.BuyerPhone,
			TicketCount:      count,
			AmountCents:      int64(count) * raffle.PriceCents,
			Currency:         raffle.Currency,
			PaymentMethod:    input.PaymentMethod,
			PaymentReference: input.PaymentReference,
			ScreenshotURL:    url,
			ScreenshotKey:    key,
			ReferralCode:     referralCode,
		})
		if err != nil {
			return err
		}

		bound, err := s.tickets.BindHoldsToPurchase(txCtx, tx, input.RaffleID, rec.ID, input.HoldIDs, now)
		if err != nil {
			return err
		}
		if bound != int64(count) {
			return ErrHoldsNotLive
		}

		created = rec
		return nil
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			err = fmt.Errorf("%w (screenshot cleanup also failed: %v)", err, delErr)
		}
		return pgrepo.PurchaseRecord{}, err
	}

	if s.notifier != nil {
		s.notifier.PurchaseSubmitted(ctx, created)
	}

	return created, nil
}

// Confirm flips a pending purchase to confirmed and mints its tickets
// in the same transaction. A unique-violation on a generated number
// aborts and retries the whole transaction, bounded by mintAttempts.
func (s *Service) Confirm(ctx context.Context, purchaseID uuid.UUID) (ReviewResult, error) {
	if purchaseID == uuid.Nil {
		return ReviewResult{}, ErrValidation
	}
	if s.purchases == nil || s.tickets == nil || s.raffles == nil {
		return ReviewResult{}, fmt.Errorf("purchase service dependencies are not configured")
	}

	pending, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPurchaseNotFound) {
			return ReviewResult{}, ErrPurchaseNotFound
		}
		return ReviewResult{}, err
	}

	var confirmed pgrepo.PurchaseRecord
	for attempt := 0; ; attempt++ {
		err = s.withTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
			if _, err := s.raffles.LockForUpdate(txCtx, tx, pending.RaffleID); err != nil {
				return err
			}

			rec, updated, err := s.purchases.MarkStatus(txCtx, tx, purchaseID, "confirmed")
			if err != nil {
				return err
			}
			if !updated {
				return ErrAlreadyProcessed
			}

			if err := s.mintTickets(txCtx, tx, rec); err != nil {
				return err
			}

			confirmed = rec
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, pgrepo.ErrNumberTaken) && attempt+1 < mintAttempts {
			continue
		}
		if errors.Is(err, pgrepo.ErrNumberTaken) {
			return ReviewResult{}, ticketsvc.ErrNumberSpaceExhausted
		}
		return ReviewResult{}, err
	}

	minted, err := s.tickets.ListByPurchase(ctx, purchaseID)
	if err != nil {
		return ReviewResult{}, err
	}

	if s.notifier != nil {
		s.notifier.PurchaseReviewed(ctx, confirmed)
	}

	return ReviewResult{Purchase: confirmed, Tickets: minted}, nil
}

// Reject marks a pending purchase rejected. Its holds are left alone:
// they lapse through the normal expiry path instead of being freed
// here, so availability readers keep seeing them reserved until the
// lease runs out.
func (s *Service) Reject(ctx context.Context, purchaseID uuid.UUID) (pgrepo.PurchaseRecord, error) {
	if purchaseID == uuid.Nil {
		return pgrepo.PurchaseRecord{}, ErrValidation
	}
	if s.purchases == nil {
		return pgrepo.PurchaseRecord{}, fmt.Errorf("purchase service dependencies are not configured")
	}

	var rejected pgrepo.PurchaseRecord
	err := s.withTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		rec, updated, err := s.purchases.MarkStatus(txCtx, tx, purchaseID, "rejected")
		if err != nil {
			if errors.Is(err, pgrepo.ErrPurchaseNotFound) {
				return ErrPurchaseNotFound
			}
			return err
		}
		if !updated {
			return ErrAlreadyProcessed
		}
		rejected = rec
		return nil
	})
	if err != nil {
		return pgrepo.PurchaseRecord{}, err
	}

	if s.notifier != nil {
		s.notifier.PurchaseReviewed(ctx, rejected)
	}

	return rejected, nil
}

func (s *Service) Get(ctx context.Context, purchaseID uuid.UUID) (ReviewResult, error) {
	if purchaseID == uuid.Nil {
		return ReviewResult{}, ErrValidation
	}
	if s.purchases == nil || s.tickets == nil {
		return ReviewResult{}, fmt.Errorf("purchase service dependencies are not configured")
	}

	rec, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPurchaseNotFound) {
			return ReviewResult{}, ErrPurchaseNotFound
		}
		return ReviewResult{}, err
	}

	tickets, err := s.tickets.ListByPurchase(ctx, purchaseID)
	if err != nil {
		return ReviewResult{}, err
	}

	return ReviewResult{Purchase: rec, Tickets: tickets}, nil
}

func (s *Service) List(ctx context.Context, status string, raffleID *uuid.UUID) ([]pgrepo.PurchaseRecord, error) {
	if s.purchases == nil {
		return nil, fmt.Errorf("purchase service dependencies are not configured")
	}
	return s.purchases.ListByStatus(ctx, status, raffleID)
}

// mintTickets converts the purchase's surviving holds into numbered
// sold tickets. Holds reclaimed by expiry before the admin acted are
// replaced with freshly minted rows, so exactly TicketCount tickets end
// up bound to the purchase.
func (s *Service) mintTickets(ctx context.Context, tx pgx.Tx, purchase pgrepo.PurchaseRecord) error {
	existing, err := s.tickets.ExistingNumbers(ctx, tx, purchase.RaffleID)
	if err != nil {
		return err
	}

	numbers, err := ticketsvc.GenerateNumbers(existing, purchase.TicketCount, s.cfg.PoolCapacity, s.intN)
	if err != nil {
		return err
	}

	holds, err := s.tickets.HoldIDsForPurchase(ctx, tx, purchase.ID)
	if err != nil {
		return err
	}
	if len(holds) > purchase.TicketCount {
		return fmt.Errorf("purchase %s has %d holds for %d tickets", purchase.ID, len(holds), purchase.TicketCount)
	}

	// Holds reclaimed by expiry freed their slots for other buyers, so
	// the balance only gets minted while capacity is still there.
	if balance := purchase.TicketCount - len(holds); balance > 0 {
		reserved, sold, err := s.tickets.CountByStatus(ctx, tx, purchase.RaffleID)
		if err != nil {
			return err
		}
		if s.cfg.PoolCapacity-reserved-sold < balance {
			return ticketsvc.ErrInsufficientAvailability
		}
	}

	for i, number := range numbers {
		if i < len(holds) {
			if err := s.tickets.MarkSold(ctx, tx, holds[i], number); err != nil {
				return err
			}
			continue
		}
		if _, err := s.tickets.InsertSold(ctx, tx, purchase.RaffleID, purchase.ID, number); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) validateSubmit(input SubmitInput) error {
	if input.RaffleID == uuid.Nil || len(input.HoldIDs) == 0 {
		return ErrValidation
	}
	if !validate.Required(input.BuyerName) || !validate.Required(input.BuyerPhone) {
		return ErrValidation
	}
	email := strings.TrimSpace(input.BuyerEmail)
	if email == "" || !strings.Contains(email, "@") {
		return ErrValidation
	}
	if !validate.Required(input.PaymentMethod) {
		return ErrValidation
	}
	if input.Screenshot == nil || input.ScreenshotSize <= 0 {
		return ErrValidation
	}
	return nil
}

func (s *Service) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func screenshotKey(raffleID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("screenshots/%s/%s%s", raffleID, uuid.New(), ext)
}
