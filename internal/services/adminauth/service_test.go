package adminauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	redisrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/redis"
)

type userStub struct {
	users map[string]pgrepo.UserRecord
}

func (s *userStub) FindByEmail(_ context.Context, email string) (pgrepo.UserRecord, error) {
	rec, ok := s.users[email]
	if !ok {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return rec, nil
}

func (s *userStub) UpsertAdmin(_ context.Context, email, passwordHash string) error {
	s.users[email] = pgrepo.UserRecord{Email: email, PasswordHash: passwordHash, Role: "admin"}
	return nil
}

func newTestService(t *testing.T) (*Service, *userStub, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users := &userStub{users: map[string]pgrepo.UserRecord{
		"admin@rifas.test": {Email: "admin@rifas.test", PasswordHash: string(hash), Role: "admin"},
	}}

	svc := NewService("test-secret", time.Hour, 30*time.Minute, users, redisrepo.NewSessionRepo(client))
	return svc, users, mr
}

func TestLoginAndValidate(t *testing.T) {
	svc, _, _ := newTestService(t)

	token, err := svc.Login(context.Background(), " Admin@Rifas.Test ", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := svc.ValidateAccessToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Email != "admin@rifas.test" || claims.Role != "admin" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Login(context.Background(), "admin@rifas.test", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password err = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Login(context.Background(), "ghost@rifas.test", "correct-horse"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown user err = %v, want ErrUnauthorized", err)
	}
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	token, err := svc.Login(context.Background(), "admin@rifas.test", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	parts := strings.Split(token, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := svc.ValidateAccessToken(context.Background(), strings.Join(parts, ".")); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestSessionIdleTimeout(t *testing.T) {
	svc, _, mr := newTestService(t)

	token, err := svc.Login(context.Background(), "admin@rifas.test", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	mr.FastForward(31 * time.Minute)
	if _, err := svc.ValidateAccessToken(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestValidateRefreshesIdleWindow(t *testing.T) {
	svc, _, mr := newTestService(t)

	token, err := svc.Login(context.Background(), "admin@rifas.test", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	for i := 0; i < 3; i++ {
		mr.FastForward(20 * time.Minute)
		if _, err := svc.ValidateAccessToken(context.Background(), token); err != nil {
			t.Fatalf("validate %d: %v", i, err)
		}
	}
}

func TestLogoutKillsSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	token, err := svc.Login(context.Background(), "admin@rifas.test", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ValidateAccessToken(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestProvisionAdminIsIdempotent(t *testing.T) {
	svc, users, _ := newTestService(t)

	if err := svc.ProvisionAdmin(context.Background(), "nuevo@rifas.test", "s3creto"); err != nil {
		t.Fatalf("ProvisionAdmin: %v", err)
	}
	first := users.users["nuevo@rifas.test"].PasswordHash

	// Same password: hash stays put.
	if err := svc.ProvisionAdmin(context.Background(), "nuevo@rifas.test", "s3creto"); err != nil {
		t.Fatalf("ProvisionAdmin again: %v", err)
	}
	if users.users["nuevo@rifas.test"].PasswordHash != first {
		t.Fatalf("unchanged password rotated the hash")
	}

	// New password: hash rotates.
	if err := svc.ProvisionAdmin(context.Background(), "nuevo@rifas.test", "otro"); err != nil {
		t.Fatalf("ProvisionAdmin rotate: %v", err)
	}
	if users.users["nuevo@rifas.test"].PasswordHash == first {
		t.Fatalf("changed password kept the old hash")
	}
}
