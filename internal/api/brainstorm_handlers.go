package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slideforge/internal/brainstorm"
	"slideforge/internal/model"
	"slideforge/internal/service"
)

// BrainstormHandler serves the ideation chat endpoints.
type BrainstormHandler struct {
	brainstorm    *brainstorm.Service
	presentations *service.PresentationService
	logger        *zap.Logger
}

// NewBrainstormHandler wires a BrainstormHandler.
func NewBrainstormHandler(svc *brainstorm.Service, presentations *service.PresentationService, logger *zap.Logger) *BrainstormHandler {
	return &BrainstormHandler{
		brainstorm:    svc,
		presentations: presentations,
		logger:        logger.Named("BrainstormHandler"),
	}
}

type startSessionRequest struct {
	Topic string `json:"topic" binding:"required"`
}

func (h *BrainstormHandler) start(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	session, err := h.brainstorm.StartSession(c.Request.Context(), userID, req.Topic)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *BrainstormHandler) get(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	sessionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return
	}

	session, err := h.brainstorm.GetSession(c.Request.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *BrainstormHandler) chat(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	sessionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	session, reply, err := h.brainstorm.Chat(c.Request.Context(), sessionID, userID, req.Message)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply, "session": session})
}

func (h *BrainstormHandler) extractIdeas(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	sessionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return
	}

	ideas, err := h.brainstorm.ExtractIdeas(c.Request.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ideas": ideas})
}

type ideaPresentationRequest struct {
	Idea          brainstorm.Idea `json:"idea" binding:"required"`
	SlideCount    int             `json:"slideCount"`
	Style         string          `json:"style"`
	Language      string          `json:"language"`
	ContentLength string          `json:"contentLength"`
	ImageStyle    string          `json:"imageStyle"`
}

// createPresentation turns a chosen idea into a generation request and runs
// the pipeline in the background; progress arrives over the websocket like a
// directly prompted presentation.
func (h *BrainstormHandler) createPresentation(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	sessionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return
	}
	if _, err := h.brainstorm.GetSession(c.Request.Context(), sessionID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	var req ideaPresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	genReq := model.GenerationRequest{
		Prompt:        req.Idea.ToPrompt(),
		SlideCount:    req.SlideCount,
		Style:         model.PresentationStyle(req.Style),
		Language:      req.Language,
		ContentLength: model.ContentLength(req.ContentLength),
		ImageStyle:    req.ImageStyle,
	}
	if err := service.NormalizeRequest(&genReq); err != nil {
		handleServiceError(c, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
		defer cancel()
		if _, err := h.presentations.Generate(ctx, userID, genReq); err != nil {
			h.logger.Error("Background generation from idea failed",
				zap.String("userID", userID.String()),
				zap.String("sessionID", sessionID.String()),
				zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "generating", "prompt": genReq.Prompt})
}
