package model

import "errors"

// Application-wide standard errors
var (
	// Common resource/DB errors
	ErrNotFound             = errors.New("resource not found")
	ErrPresentationNotFound = errors.New("presentation not found")
	ErrSlideNotFound        = errors.New("slide not found")

	// User & authentication errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this username already exists")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")

	// Token & API key errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrAPIKeyInvalid  = errors.New("api key is invalid")
	ErrAPIKeyInactive = errors.New("api key has been deactivated")

	// Generation errors, classified structurally at the point of failure
	// so handlers never have to sniff error message text.
	ErrAIGenerationFailed = errors.New("ai generation failed")
	ErrModelTimeout       = errors.New("model request timed out")
	ErrPromptTooLong      = errors.New("prompt exceeds the model input limit")
	ErrOutlineFailed      = errors.New("outline generation failed")

	// Credit errors
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrLedgerWriteFailed   = errors.New("failed to record credit ledger entry")

	// Brainstorm errors
	ErrSessionNotFound = errors.New("brainstorm session not found")

	// General request/server errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
