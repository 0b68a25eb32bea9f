package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrRateUnavailable = errors.New("exchange rate unavailable")

const cacheKey = "rates:usd_display"

// Provider fetches the USD to local-currency multiplier from an
// external source. Purchases are always stored in the raffle's base
// currency; this rate only feeds the storefront display.
type Provider interface {
	FetchUSDRate(ctx context.Context) (float64, error)
}

type Cache interface {
	GetFloat(ctx context.Context, key string) (float64, bool, error)
	SetFloat(ctx context.Context, key string, value float64, ttl time.Duration) error
}

type Config struct {
	CacheTTL time.Duration
	Fallback float64
}

type Service struct {
	provider Provider
	cache    Cache
	cfg      Config
	log      *zap.Logger
}

func NewService(provider Provider, cache Cache, cfg Config, log *zap.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{provider: provider, cache: cache, cfg: cfg, log: log}
}

// DisplayRate returns the cached multiplier, refreshing it from the
// provider on a miss. A provider outage falls back to the configured
// static rate rather than breaking the storefront.
func (s *Service) DisplayRate(ctx context.Context) (float64, error) {
	if s.cache != nil {
		value, found, err := s.cache.GetFloat(ctx, cacheKey)
		if err != nil {
			s.log.Warn("rate cache read failed", zap.Error(err))
		} else if found {
			return value, nil
		}
	}

	if s.provider == nil {
		if s.cfg.Fallback > 0 {
			return s.cfg.Fallback, nil
		}
		return 0, ErrRateUnavailable
	}

	value, err := s.provider.FetchUSDRate(ctx)
	if err != nil {
		s.log.Warn("rate provider fetch failed", zap.Error(err))
		if s.cfg.Fallback > 0 {
			return s.cfg.Fallback, nil
		}
		return 0, fmt.Errorf("%w: %w", ErrRateUnavailable, err)
	}

	if s.cache != nil {
		if err := s.cache.SetFloat(ctx, cacheKey, value, s.cfg.CacheTTL); err != nil {
			s.log.Warn("rate cache write failed", zap.Error(err))
		}
	}

	return value, nil
}

// HTTPProvider reads the rate out of a JSON endpoint, walking a dotted
// field path into the response body.
type HTTPProvider struct {
	client    *http.Client
	endpoint  string
	fieldPath []string
}

func NewHTTPProvider(client *http.Client, endpoint, fieldPath string) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{
		client:    client,
		endpoint:  endpoint,
		fieldPath: strings.Split(fieldPath, "."),
	}
}

func (p *HTTPProvider) FetchUSDRate(ctx context.Context) (float64, error) {
	if p.endpoint == "" {
		return 0, fmt.Errorf("rate endpoint is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate endpoint returned %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode rate response: %w", err)
	}

	value, err := walkFloat(body, p.fieldPath)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, fmt.Errorf("rate endpoint returned non-positive value %f", value)
	}
	return value, nil
}

func walkFloat(body map[string]any, path []string) (float64, error) {
	var current any = body
	for _, field := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("rate field path %q does not resolve", strings.Join(path, "."))
		}
		current, ok = node[field]
		if !ok {
			return 0, fmt.Errorf("rate response missing field %q", field)
		}
	}

	value, ok := current.(float64)
	if !ok {
		return 0, fmt.Errorf("rate field %q is not a number", strings.Join(path, "."))
	}
	return value, nil
}
