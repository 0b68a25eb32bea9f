package referrals

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")
	ErrCodeTaken  = errors.New("referral code already exists")
)

// Codes are lowercase slugs so they survive being typed from a flyer.
var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,31}$`)

type Store interface {
	Create(ctx context.Context, code, name string) (pgrepo.ReferralRecord, error)
	FindByCode(ctx context.Context, code string) (pgrepo.ReferralRecord, error)
	List(ctx context.Context) ([]pgrepo.ReferralRecord, error)
	ConfirmedCounts(ctx context.Context) ([]pgrepo.ReferralCommission, error)
	Delete(ctx context.Context, code string) error
}

type Config struct {
	CommissionCents int64
}

type Service struct {
	referrals Store
	cfg       Config
}

// Commission is a referral with its earned total: the configured fixed
// amount per confirmed purchase attributed to the code.
type Commission struct {
	Code               string
	Name               string
	ConfirmedPurchases int
	AmountCents        int64
}

func NewService(referrals Store, cfg Config) *Service {
	return &Service{referrals: referrals, cfg: cfg}
}

func (s *Service) Create(ctx context.Context, code, name string) (pgrepo.ReferralRecord, error) {
	if s.referrals == nil {
		return pgrepo.ReferralRecord{}, fmt.Errorf("referral store is not configured")
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return pgrepo.ReferralRecord{}, fmt.Errorf("%w: referral code must be a 2-32 char slug", ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return pgrepo.ReferralRecord{}, fmt.Errorf("%w: referral name is required", ErrValidation)
	}

	rec, err := s.referrals.Create(ctx, code, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, pgrepo.ErrReferralExists) {
			return pgrepo.ReferralRecord{}, ErrCodeTaken
		}
		return pgrepo.ReferralRecord{}, err
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context) ([]pgrepo.ReferralRecord, error) {
	if s.referrals == nil {
		return nil, fmt.Errorf("referral store is not configured")
	}
	return s.referrals.List(ctx)
}

// Commissions reports earnings per code. Only confirmed purchases pay
// out; pending and rejected ones never count.
func (s *Service) Commissions(ctx context.Context) ([]Commission, error) {
	if s.referrals == nil {
		return nil, fmt.Errorf("referral store is not configured")
	}

	counts, err := s.referrals.ConfirmedCounts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Commission, 0, len(counts))
	for _, c := range counts {
		out = append(out, Commission{
			Code:               c.Code,
			Name:               c.Name,
			ConfirmedPurchases: c.ConfirmedPurchases,
			AmountCents:        int64(c.ConfirmedPurchases) * s.cfg.CommissionCents,
		})
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, code string) error {
	if s.referrals == nil {
		return fmt.Errorf("referral store is not configured")
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ErrValidation
	}
	return s.referrals.Delete(ctx, code)
}
