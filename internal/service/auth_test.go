package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"slideforge/internal/mocks"
	"slideforge/internal/model"
)

func newTestAuthService(users *mocks.UserRepository, keys *mocks.APIKeyRepository, credits *mocks.CreditRepository, lifetime time.Duration) *AuthService {
	return NewAuthService(users, keys, credits, "unit-test-secret", lifetime, zap.NewNop())
}

func TestRegisterGrantsSignupCredits(t *testing.T) {
	users := &mocks.UserRepository{}
	credits := &mocks.CreditRepository{}
	userID := uuid.New()

	users.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.User).ID = userID
		}).
		Return(nil).Once()
	credits.On("Grant", mock.Anything, userID, signupCreditGrant, map[string]string{"reason": "signup"}).
		Return(&model.CreditLedgerEntry{
			UserID:        userID,
			Action:        model.ActionGrant,
			CreditsUsed:   -signupCreditGrant,
			BalanceBefore: 0,
			BalanceAfter:  signupCreditGrant,
		}, nil).Once()

	svc := newTestAuthService(users, &mocks.APIKeyRepository{}, credits, time.Hour)
	user, err := svc.Register(context.Background(), "alice", "Alice@Example.com", "password123")
	require.NoError(t, err)

	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized to lowercase")
	assert.Equal(t, signupCreditGrant, user.Credits)
	assert.NotEqual(t, "password123", user.PasswordHash)

	users.AssertExpectations(t)
	credits.AssertExpectations(t)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := newTestAuthService(&mocks.UserRepository{}, &mocks.APIKeyRepository{}, &mocks.CreditRepository{}, time.Hour)
	_, err := svc.Register(context.Background(), "bob", "bob@example.com", "short")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestLoginAndVerifyTokenRoundtrip(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-1"), bcrypt.DefaultCost)
	require.NoError(t, err)

	userID := uuid.New()
	users := &mocks.UserRepository{}
	users.On("GetByUsername", mock.Anything, "carol").
		Return(&model.User{ID: userID, Username: "carol", PasswordHash: string(hash)}, nil).Once()

	svc := newTestAuthService(users, &mocks.APIKeyRepository{}, &mocks.CreditRepository{}, time.Hour)
	token, user, err := svc.Login(context.Background(), "carol", "correct-horse-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, userID, user.ID)

	claims, err := svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "carol", claims.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	users := &mocks.UserRepository{}
	users.On("GetByUsername", mock.Anything, "dave").
		Return(&model.User{ID: uuid.New(), Username: "dave", PasswordHash: string(hash)}, nil).Once()

	svc := newTestAuthService(users, &mocks.APIKeyRepository{}, &mocks.CreditRepository{}, time.Hour)
	_, _, err := svc.Login(context.Background(), "dave", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestLoginUnknownUserHidesExistence(t *testing.T) {
	users := &mocks.UserRepository{}
	users.On("GetByUsername", mock.Anything, "ghost").
		Return(nil, model.ErrUserNotFound).Once()

	svc := newTestAuthService(users, &mocks.APIKeyRepository{}, &mocks.CreditRepository{}, time.Hour)
	_, _, err := svc.Login(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials,
		"unknown username must be indistinguishable from a wrong password")
}

func TestVerifyTokenExpired(t *testing.T) {
	users := &mocks.UserRepository{}
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw-123456"), bcrypt.MinCost)
	users.On("GetByUsername", mock.Anything, "erin").
		Return(&model.User{ID: uuid.New(), Username: "erin", PasswordHash: string(hash)}, nil).Once()

	// Negative lifetime issues an already-expired token.
	svc := newTestAuthService(users, &mocks.APIKeyRepository{}, &mocks.CreditRepository{}, -time.Minute)
	token, _, err := svc.Login(context.Background(), "erin", "pw-123456")
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestVerifyTokenGarbage(t *testing.T) {
	svc := newTestAuthService(&mocks.UserRepository{}, &mocks.APIKeyRepository{}, &mocks.CreditRepository{}, time.Hour)
	_, err := svc.VerifyToken(context.Background(), "not.a.token")
	assert.Error(t, err)
}

func TestCreateAPIKeyShape(t *testing.T) {
	keys := &mocks.APIKeyRepository{}
	keys.On("Create", mock.Anything, mock.AnythingOfType("*model.APIKey")).Return(nil).Once()

	svc := newTestAuthService(&mocks.UserRepository{}, keys, &mocks.CreditRepository{}, time.Hour)
	plaintext, key, err := svc.CreateAPIKey(context.Background(), uuid.New(), "ci pipeline")
	require.NoError(t, err)

	assert.True(t, ValidAPIKeyFormat(plaintext))
	assert.Len(t, plaintext, len(apiKeyPrefix)+apiKeySecretBytes*2)
	assert.Equal(t, HashAPIKey(plaintext), key.KeyHash)
	assert.Equal(t, plaintext[:8], key.KeyPrefix)
	assert.True(t, key.IsActive)
	keys.AssertExpectations(t)
}

func TestValidateAPIKey(t *testing.T) {
	keys := &mocks.APIKeyRepository{}
	svc := newTestAuthService(&mocks.UserRepository{}, keys, &mocks.CreditRepository{}, time.Hour)

	plaintext := apiKeyPrefix + "0123456789abcdef0123456789abcdef0123456789abcdef"
	keyID := uuid.New()
	keys.On("GetByHash", mock.Anything, HashAPIKey(plaintext)).
		Return(&model.APIKey{ID: keyID, UserID: uuid.New(), IsActive: true}, nil).Once()
	keys.On("TouchLastUsed", mock.Anything, keyID).Return(nil).Once()

	key, err := svc.ValidateAPIKey(context.Background(), plaintext)
	require.NoError(t, err)
	assert.Equal(t, keyID, key.ID)
	keys.AssertExpectations(t)
}

func TestValidateAPIKeyRejectsBadFormatWithoutLookup(t *testing.T) {
	keys := &mocks.APIKeyRepository{}
	svc := newTestAuthService(&mocks.UserRepository{}, keys, &mocks.CreditRepository{}, time.Hour)

	_, err := svc.ValidateAPIKey(context.Background(), "sk-wrong-prefix")
	assert.ErrorIs(t, err, model.ErrAPIKeyInvalid)
	keys.AssertNotCalled(t, "GetByHash", mock.Anything, mock.Anything)
}

func TestValidateAPIKeyInactive(t *testing.T) {
	keys := &mocks.APIKeyRepository{}
	svc := newTestAuthService(&mocks.UserRepository{}, keys, &mocks.CreditRepository{}, time.Hour)

	plaintext := apiKeyPrefix + "ffffffffffffffffffffffffffffffffffffffffffffffff"
	keys.On("GetByHash", mock.Anything, HashAPIKey(plaintext)).
		Return(&model.APIKey{ID: uuid.New(), IsActive: false}, nil).Once()

	_, err := svc.ValidateAPIKey(context.Background(), plaintext)
	assert.ErrorIs(t, err, model.ErrAPIKeyInactive)
	keys.AssertNotCalled(t, "TouchLastUsed", mock.Anything, mock.Anything)
}
