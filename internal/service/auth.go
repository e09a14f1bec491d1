package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"slideforge/internal/model"
	"slideforge/internal/repository"
)

// signupCreditGrant is the starting balance for new accounts.
const signupCreditGrant = 100

// apiKeyPrefix marks SlideForge programmatic credentials.
const apiKeyPrefix = "sf_"

// apiKeySecretBytes of randomness per key; hex-encoded in the credential.
const apiKeySecretBytes = 24

// AuthService handles registration, login, JWT verification and API keys.
type AuthService struct {
	users       repository.UserRepository
	keys        repository.APIKeyRepository
	credits     repository.CreditRepository
	jwtSecret   []byte
	jwtLifetime time.Duration
	logger      *zap.Logger
}

// NewAuthService wires an AuthService.
func NewAuthService(users repository.UserRepository, keys repository.APIKeyRepository, credits repository.CreditRepository, jwtSecret string, jwtLifetime time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:       users,
		keys:        keys,
		credits:     credits,
		jwtSecret:   []byte(jwtSecret),
		jwtLifetime: jwtLifetime,
		logger:      logger.Named("AuthService"),
	}
}

// Register creates an account with the signup credit grant and returns it.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: username, email and a password of at least 8 characters are required", model.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	entry, err := s.credits.Grant(ctx, user.ID, signupCreditGrant, map[string]string{"reason": "signup"})
	if err != nil {
		// The account exists either way; a missing grant is recoverable.
		s.logger.Error("Failed to grant signup credits", zap.String("userID", user.ID.String()), zap.Error(err))
		return user, nil
	}
	user.Credits = entry.BalanceAfter
	return user, nil
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return "", nil, model.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, model.ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

type jwtClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *AuthService) issueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a session token.
func (s *AuthService) VerifyToken(_ context.Context, tokenString string) (*model.Claims, error) {
	var claims jwtClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, model.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, model.ErrTokenMalformed
		default:
			return nil, model.ErrTokenInvalid
		}
	}
	if !token.Valid {
		return nil, model.ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, model.ErrTokenInvalid
	}
	return &model.Claims{UserID: userID, Username: claims.Username}, nil
}

// CreateAPIKey generates a new programmatic credential. The plaintext key is
// returned exactly once; only its hash is stored.
func (s *AuthService) CreateAPIKey(ctx context.Context, userID uuid.UUID, name string) (string, *model.APIKey, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil, fmt.Errorf("%w: key name is required", model.ErrInvalidInput)
	}

	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	plaintext := apiKeyPrefix + hex.EncodeToString(secret)

	key := &model.APIKey{
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		KeyHash:   HashAPIKey(plaintext),
		KeyPrefix: plaintext[:len(apiKeyPrefix)+5],
		IsActive:  true,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return "", nil, err
	}
	return plaintext, key, nil
}

// ListAPIKeys returns the user's keys, revoked ones included.
func (s *AuthService) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]model.APIKey, error) {
	return s.keys.ListByUser(ctx, userID)
}

// RevokeAPIKey soft-deletes the key.
func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID, userID uuid.UUID) error {
	return s.keys.Deactivate(ctx, keyID, userID)
}

// ValidateAPIKey authenticates a bearer credential for the MCP endpoint: a
// cheap format check first, then a hash lookup. Inactive keys are rejected;
// valid ones have their last-used timestamp touched.
func (s *AuthService) ValidateAPIKey(ctx context.Context, plaintext string) (*model.APIKey, error) {
	if !ValidAPIKeyFormat(plaintext) {
		return nil, model.ErrAPIKeyInvalid
	}

	key, err := s.keys.GetByHash(ctx, HashAPIKey(plaintext))
	if err != nil {
		if errors.Is(err, model.ErrAPIKeyNotFound) {
			return nil, model.ErrAPIKeyInvalid
		}
		return nil, err
	}
	if !key.IsActive {
		return nil, model.ErrAPIKeyInactive
	}

	if err := s.keys.TouchLastUsed(ctx, key.ID); err != nil {
		s.logger.Warn("Failed to touch api key last_used_at", zap.String("keyID", key.ID.String()), zap.Error(err))
	}
	return key, nil
}

// ValidAPIKeyFormat checks the credential shape without touching storage.
func ValidAPIKeyFormat(plaintext string) bool {
	return strings.HasPrefix(plaintext, apiKeyPrefix) &&
		len(plaintext) == len(apiKeyPrefix)+apiKeySecretBytes*2
}

// HashAPIKey is the one-way digest stored instead of the secret.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
