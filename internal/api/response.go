package api

// Stable error codes returned alongside HTTP statuses so clients can branch
// without parsing messages.
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeWrongCredentials    = "WRONG_CREDENTIALS"
	ErrCodeDuplicateUser       = "DUPLICATE_USER"
	ErrCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeTokenInvalid        = "TOKEN_INVALID"
	ErrCodeTokenExpired        = "TOKEN_EXPIRED"
	ErrCodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	ErrCodeGenerationFailed    = "GENERATION_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
