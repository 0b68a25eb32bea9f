package adminauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	redisrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/redis"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired")
	ErrUnavailable    = errors.New("admin auth is unavailable")
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (pgrepo.UserRecord, error)
	UpsertAdmin(ctx context.Context, email, passwordHash string) error
}

type SessionStore interface {
	Create(ctx context.Context, sid, email, role string, idle time.Duration) error
	Touch(ctx context.Context, sid string, idle time.Duration) (string, error)
	Delete(ctx context.Context, sid string) error
}

type Service struct {
	secret      []byte
	users       UserStore
	sessions    SessionStore
	tokenTTL    time.Duration
	idleTimeout time.Duration
	configured  bool
	now         func() time.Time
}

type Claims struct {
	Email string
	Role  string
	SID   string
}

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	SID   string `json:"sid"`
	jwt.RegisteredClaims
}

func NewService(jwtSecret string, tokenTTL, idleTimeout time.Duration, users UserStore, sessions SessionStore) *Service {
	secret := strings.TrimSpace(jwtSecret)
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Service{
		secret:      []byte(secret),
		users:       users,
		sessions:    sessions,
		tokenTTL:    tokenTTL,
		idleTimeout: idleTimeout,
		configured:  secret != "" && users != nil && sessions != nil,
		now:         time.Now,
	}
}

func (s *Service) IsConfigured() bool {
	return s != nil && s.configured
}

// ProvisionAdmin makes sure the configured admin account exists,
// rotating the stored hash when the configured password changed.
func (s *Service) ProvisionAdmin(ctx context.Context, email, password string) error {
	if s.users == nil {
		return ErrUnavailable
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return fmt.Errorf("admin credentials are not configured")
	}

	if existing, err := s.users.FindByEmail(ctx, email); err == nil {
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) == nil {
			return nil
		}
	} else if !errors.Is(err, pgrepo.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	return s.users.UpsertAdmin(ctx, email, string(hash))
}

// Login verifies credentials, opens a redis-backed session and returns
// a signed access token carrying the session id.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if !s.IsConfigured() {
		return "", ErrUnavailable
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", ErrUnauthorized
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return "", ErrUnauthorized
		}
		return "", fmt.Errorf("load admin user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrUnauthorized
	}

	sid := uuid.NewString()
	if err := s.sessions.Create(ctx, sid, user.Email, user.Role, s.idleTimeout); err != nil {
		return "", fmt.Errorf("create admin session: %w", err)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email: user.Email,
		Role:  user.Role,
		SID:   sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken checks the signature and refreshes the session's
// idle timeout. A valid token whose session lapsed is ErrSessionExpired.
func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (Claims, error) {
	if !s.IsConfigured() {
		return Claims{}, ErrUnavailable
	}

	claims, err := s.parse(accessToken)
	if err != nil {
		return Claims{}, ErrUnauthorized
	}

	role, err := s.sessions.Touch(ctx, claims.SID, s.idleTimeout)
	if err != nil {
		if errors.Is(err, redisrepo.ErrSessionNotFound) {
			return Claims{}, ErrSessionExpired
		}
		return Claims{}, fmt.Errorf("touch admin session: %w", err)
	}
	if strings.TrimSpace(role) != "" {
		claims.Role = role
	}
	return claims, nil
}

func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if !s.IsConfigured() {
		return ErrUnavailable
	}
	claims, err := s.parse(accessToken)
	if err != nil {
		return ErrUnauthorized
	}
	return s.sessions.Delete(ctx, claims.SID)
}

func (s *Service) parse(accessToken string) (Claims, error) {
	token, err := jwt.ParseWithClaims(accessToken, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrUnauthorized
		}
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, ErrUnauthorized
	}
	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrUnauthorized
	}
	if strings.TrimSpace(tc.Email) == "" || strings.TrimSpace(tc.SID) == "" {
		return Claims{}, ErrUnauthorized
	}
	return Claims{
		Email: strings.TrimSpace(tc.Email),
		Role:  strings.TrimSpace(tc.Role),
		SID:   strings.TrimSpace(tc.SID),
	}, nil
}
