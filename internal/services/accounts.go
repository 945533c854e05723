package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/redisrepo"
	"wallet-gateway/internal/repositories/sqlrepo"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	phonePattern = regexp.MustCompile(`^01[0-9]{9}$`)
	pinPattern   = regexp.MustCompile(`^[0-9]{4,6}$`)
)

// AccountService manages wallet users and their login sessions.
type AccountService struct {
	users      UserStore
	payments   *PaymentProcessor
	auth       *AuthGate
	cache      BalanceCache
	tokens     TokenStore
	bcryptCost int
	tokenTTL   time.Duration
	log        *slog.Logger
	now        func() time.Time
}

func NewAccountService(
	users UserStore,
	payments *PaymentProcessor,
	auth *AuthGate,
	cache BalanceCache,
	tokens TokenStore,
	bcryptCost int,
	tokenTTL time.Duration,
	log *slog.Logger,
) *AccountService {
	return &AccountService{
		users:      users,
		payments:   payments,
		auth:       auth,
		cache:      cache,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		tokenTTL:   tokenTTL,
		log:        log,
		now:        time.Now,
	}
}

// CreateUser registers a user. A positive initial balance is credited as a
// TOPUP so the ledger explains every unit of balance.
func (s *AccountService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if !phonePattern.MatchString(req.Phone) {
		return nil, ErrInvalidPhone
	}
	if !pinPattern.MatchString(req.Pin) {
		return nil, ErrInvalidPIN
	}
	if req.InitialBalance < 0 {
		return nil, ErrInvalidAmount
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Pin), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pin: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Phone:     req.Phone,
		PinHash:   string(hash),
		Name:      req.Name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, sqlrepo.ErrDuplicate) {
			return nil, ErrPhoneTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if req.InitialBalance > 0 {
		res, err := s.payments.Topup(ctx, user.Phone, req.InitialBalance)
		if err != nil {
			return nil, fmt.Errorf("failed to credit initial balance: %w", err)
		}
		user.Balance = res.Balance
	}

	s.log.Info("user created", "user_id", user.ID, "phone", user.Phone)
	return user, nil
}

func (s *AccountService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *AccountService) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.users.GetUserByPhone(ctx, phone)
}

// Balance reads the cached balance, falling back to the store.
func (s *AccountService) Balance(ctx context.Context, userID string) (*models.BalanceResponse, error) {
	if s.cache != nil {
		balance, err := s.cache.GetBalance(ctx, userID)
		if err == nil {
			return &models.BalanceResponse{UserID: userID, Balance: balance}, nil
		}
		if !errors.Is(err, redisrepo.ErrBalanceNotFound) {
			s.log.Warn("balance cache error (non-critical)", "user_id", userID, "err", err)
		}
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := s.cache.SetBalance(cacheCtx, userID, user.Balance); err != nil {
				s.log.Warn("failed to update balance cache", "user_id", userID, "err", err)
			}
		}()
	}

	return &models.BalanceResponse{UserID: userID, Balance: user.Balance}, nil
}

// Login authenticates phone and pin and issues an opaque session token.
func (s *AccountService) Login(ctx context.Context, phone, pin string) (*models.LoginResponse, error) {
	user, err := s.auth.Authenticate(ctx, phone, pin)
	if err != nil {
		return nil, err
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.SaveToken(ctx, token, user.ID, s.tokenTTL); err != nil {
		return nil, err
	}

	s.log.Info("user logged in", "user_id", user.ID, "phone", user.Phone)

	return &models.LoginResponse{
		SessionToken: token,
		UserID:       user.ID,
		ExpiresAt:    s.now().UTC().Add(s.tokenTTL),
	}, nil
}

func (s *AccountService) Logout(ctx context.Context, token string) error {
	existed, err := s.tokens.DeleteToken(ctx, token)
	if err != nil {
		return err
	}
	if !existed {
		return ErrInvalidToken
	}
	return nil
}

// ValidateToken resolves a session token to its active user.
func (s *AccountService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	userID, err := s.tokens.GetUserID(ctx, token)
	if err != nil {
		if errors.Is(err, redisrepo.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sqlrepo.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
