package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slideforge/internal/model"
)

// handleServiceError maps service errors to HTTP responses. Classification is
// by sentinel identity only; message text is never inspected.
func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp ErrorResponse

	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrBadRequest),
		errors.Is(err, model.ErrPromptTooLong):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodeValidation, Message: err.Error()}
	case errors.Is(err, model.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errResp = ErrorResponse{Code: ErrCodeWrongCredentials, Message: "Invalid username or password"}
	case errors.Is(err, model.ErrUserAlreadyExists):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeDuplicateUser, Message: "Username already exists"}
	case errors.Is(err, model.ErrEmailAlreadyExists):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeDuplicateEmail, Message: "Email already exists"}
	case errors.Is(err, model.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: ErrCodeUserNotFound, Message: "User not found"}
	case errors.Is(err, model.ErrTokenExpired):
		statusCode = http.StatusUnauthorized
		errResp = ErrorResponse{Code: ErrCodeTokenExpired, Message: "Token has expired"}
	case errors.Is(err, model.ErrTokenInvalid), errors.Is(err, model.ErrTokenMalformed),
		errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrAPIKeyInvalid),
		errors.Is(err, model.ErrAPIKeyInactive):
		statusCode = http.StatusUnauthorized
		errResp = ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication failed"}
	case errors.Is(err, model.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = ErrorResponse{Code: ErrCodeForbidden, Message: "You do not have access to this resource"}
	case errors.Is(err, model.ErrPresentationNotFound), errors.Is(err, model.ErrSlideNotFound),
		errors.Is(err, model.ErrAPIKeyNotFound), errors.Is(err, model.ErrSessionNotFound),
		errors.Is(err, model.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: ErrCodeNotFound, Message: "Resource not found"}
	case errors.Is(err, model.ErrInsufficientCredits):
		statusCode = http.StatusPaymentRequired
		errResp = ErrorResponse{Code: ErrCodeInsufficientCredits, Message: "Not enough credits for this operation"}
	case errors.Is(err, model.ErrOutlineFailed), errors.Is(err, model.ErrAIGenerationFailed),
		errors.Is(err, model.ErrModelTimeout):
		statusCode = http.StatusBadGateway
		errResp = ErrorResponse{Code: ErrCodeGenerationFailed, Message: "Content generation failed, please retry"}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = ErrorResponse{Code: ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
