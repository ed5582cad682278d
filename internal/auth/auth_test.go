package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shaiso/kycdoc/internal/domain"
	"github.com/shaiso/kycdoc/internal/repo"
)

// --- TokenService Tests ---

func TestTokenService_IssueVerify(t *testing.T) {
	s, err := NewTokenService("secret", time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	admin := &domain.Admin{ID: uuid.New(), Username: "admin"}

	token, expires, err := s.Issue(admin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Error("expiry should be in the future")
	}

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Username != "admin" || claims.AdminID != admin.ID.String() {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTokenService_Expired(t *testing.T) {
	s, _ := NewTokenService("secret", time.Hour)
	base := time.Now()
	s.now = func() time.Time { return base }

	token, _, err := s.Issue(&domain.Admin{ID: uuid.New(), Username: "admin"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = s.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expected jwt.ErrTokenExpired in chain, got %v", err)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	a, _ := NewTokenService("secret-a", time.Hour)
	b, _ := NewTokenService("secret-b", time.Hour)

	token, _, _ := a.Issue(&domain.Admin{ID: uuid.New(), Username: "admin"})
	if _, err := b.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_Garbage(t *testing.T) {
	s, _ := NewTokenService("secret", time.Hour)
	for _, tok := range []string{"", "abc", "a.b.c"} {
		if _, err := s.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q): expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	s, _ := NewTokenService("secret", time.Hour)

	claims := Claims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected HS512 token to be rejected, got %v", err)
	}
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	if _, err := NewTokenService("", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}

// --- Service Tests ---

type memoryAdmins struct {
	mu     sync.Mutex
	admins map[string]*domain.Admin
}

func newMemoryAdmins() *memoryAdmins {
	return &memoryAdmins{admins: make(map[string]*domain.Admin)}
}

func (m *memoryAdmins) GetByUsername(_ context.Context, username string) (*domain.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[username]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return a, nil
}

func (m *memoryAdmins) Create(_ context.Context, admin *domain.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[admin.Username]; ok {
		return repo.ErrAlreadyExists
	}
	m.admins[admin.Username] = admin
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryAdmins) {
	t.Helper()
	tokens, err := NewTokenService("secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	admins := newMemoryAdmins()
	return NewService(admins, tokens, nil), admins
}

func TestService_EnsureAdminAndLogin(t *testing.T) {
	s, admins := newTestService(t)
	ctx := context.Background()

	if err := s.EnsureAdmin(ctx, "admin", "admin123"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	stored := admins.admins["admin"]
	if stored == nil {
		t.Fatal("admin was not created")
	}
	if stored.PasswordHash == "admin123" {
		t.Error("password must be hashed")
	}

	// Повторный вызов не пересоздаёт администратора
	if err := s.EnsureAdmin(ctx, "admin", "other"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if admins.admins["admin"] != stored {
		t.Error("existing admin must not be replaced")
	}

	res, err := s.Login(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Username != "admin" || res.Token == "" {
		t.Errorf("unexpected login result: %+v", res)
	}
	if _, err := s.Verify(res.Token); err != nil {
		t.Errorf("issued token does not verify: %v", err)
	}
}

func TestService_Login_InvalidCredentials(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	s.EnsureAdmin(ctx, "admin", "admin123")

	if _, err := s.Login(ctx, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Login(ctx, "nobody", "admin123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_EnsureAdmin_SkipsEmpty(t *testing.T) {
	s, admins := newTestService(t)
	if err := s.EnsureAdmin(context.Background(), "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(admins.admins) != 0 {
		t.Error("no admin should be created without credentials")
	}
}
