package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/kycdoc/internal/domain"
	"github.com/shaiso/kycdoc/internal/repo"
	"golang.org/x/crypto/bcrypt"
)

// AdminStore — хранилище администраторов.
type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.Admin, error)
	Create(ctx context.Context, admin *domain.Admin) error
}

// HashPassword возвращает bcrypt хэш пароля.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword сравнивает пароль с bcrypt хэшем.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service — вход администраторов.
type Service struct {
	admins AdminStore
	tokens *TokenService
	logger *slog.Logger
}

// NewService создаёт Service.
func NewService(admins AdminStore, tokens *TokenService, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{admins: admins, tokens: tokens, logger: logger.With("component", "auth")}
}

// LoginResult — результат успешного входа.
type LoginResult struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login проверяет пароль и выпускает токен.
// Неизвестный пользователь и неверный пароль неразличимы: ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	admin, err := s.admins.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}

	if !CheckPassword(admin.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(admin)
	if err != nil {
		return nil, err
	}

	s.logger.Info("admin logged in", "username", admin.Username)
	return &LoginResult{Token: token, Username: admin.Username, ExpiresAt: expires}, nil
}

// Verify проверяет токен.
func (s *Service) Verify(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

// EnsureAdmin создаёт администратора, если его ещё нет.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.admins.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("get admin: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	err = s.admins.Create(ctx, &domain.Admin{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if errors.Is(err, repo.ErrAlreadyExists) {
		// Другой экземпляр API успел раньше
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info("default admin created", "username", username)
	return nil
}
