package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"slideforge/internal/service"
)

// CreditHandler serves balance and ledger reads.
type CreditHandler struct {
	credits *service.CreditService
}

// NewCreditHandler wires a CreditHandler.
func NewCreditHandler(credits *service.CreditService) *CreditHandler {
	return &CreditHandler{credits: credits}
}

func (h *CreditHandler) balance(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}

	balance, err := h.credits.Balance(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": balance})
}

func (h *CreditHandler) history(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.credits.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
