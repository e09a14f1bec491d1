package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"slideforge/internal/generation"
	"slideforge/internal/model"
	"slideforge/internal/service"
)

// generationTimeout bounds one full background pipeline run.
const generationTimeout = 10 * time.Minute

// PresentationHandler serves the presentation CRUD and generation endpoints.
type PresentationHandler struct {
	presentations *service.PresentationService
	logger        *zap.Logger
}

// NewPresentationHandler wires a PresentationHandler.
func NewPresentationHandler(presentations *service.PresentationService, logger *zap.Logger) *PresentationHandler {
	return &PresentationHandler{
		presentations: presentations,
		logger:        logger.Named("PresentationHandler"),
	}
}

// create accepts the generation request and runs the pipeline in the
// background; progress reaches the client over the websocket. The response is
// 202 with the request parameters echoed back.
func (h *PresentationHandler) create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}

	var req model.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}
	if err := service.NormalizeRequest(&req); err != nil {
		handleServiceError(c, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
		defer cancel()
		if _, err := h.presentations.Generate(ctx, userID, req); err != nil {
			h.logger.Error("Background generation failed",
				zap.String("userID", userID.String()),
				zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "generating", "request": req})
}

func (h *PresentationHandler) get(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	presentationID, err := parseUUIDParam(c, "id")
	if err != nil {
		return
	}

	doc, err := h.presentations.Get(c.Request.Context(), presentationID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *PresentationHandler) list(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	presentations, err := h.presentations.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presentations": presentations})
}

func (h *PresentationHandler) delete(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	presentationID, err := parseUUIDParam(c, "id")
	if err != nil {
		return
	}

	if err := h.presentations.Delete(c.Request.Context(), presentationID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// save persists a client-side edit of the whole document.
func (h *PresentationHandler) save(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	presentationID, err := parseUUIDParam(c, "id")
	if err != nil {
		return
	}

	var doc model.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}
	doc.Presentation.ID = presentationID

	if err := h.presentations.SaveDocument(c.Request.Context(), userID, &doc); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func (h *PresentationHandler) updateSlide(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	slideID, err := parseUUIDParam(c, "slideId")
	if err != nil {
		return
	}

	var slide model.Slide
	if err := c.ShouldBindJSON(&slide); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}
	slide.ID = slideID

	if err := h.presentations.UpdateSlide(c.Request.Context(), userID, &slide); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, slide)
}

type reorderRequest struct {
	SlideIDs []uuid.UUID `json:"slideIds" binding:"required"`
}

func (h *PresentationHandler) reorderSlides(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	presentationID, err := parseUUIDParam(c, "id")
	if err != nil {
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.SlideIDs) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "slideIds is required"})
		return
	}

	if err := h.presentations.ReorderSlides(c.Request.Context(), presentationID, userID, req.SlideIDs); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reordered"})
}

// regenerateSlide re-runs content generation for one slide synchronously.
func (h *PresentationHandler) regenerateSlide(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	slideID, err := parseUUIDParam(c, "slideId")
	if err != nil {
		return
	}

	slide, err := h.presentations.RegenerateSlide(c.Request.Context(), slideID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, slide)
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

// requestImage enqueues image generation for one slide; the worker persists
// the resulting URL on the slide row.
func (h *PresentationHandler) requestImage(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	slideID, err := parseUUIDParam(c, "slideId")
	if err != nil {
		return
	}

	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	if err := h.presentations.RequestSlideImage(c.Request.Context(), slideID, userID, req.Prompt); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

type generateSlideRequest struct {
	SectionTitle  string   `json:"sectionTitle"`
	BulletPoints  []string `json:"bulletPoints"`
	TemplateType  string   `json:"templateType"`
	Style         string   `json:"style"`
	Language      string   `json:"language"`
	ContentLength string   `json:"contentLength"`
	ImageStyle    string   `json:"imageStyle"`
}

// generateSlide expands a single section into schema-shaped content without
// persisting anything. The editor calls this when redoing one slide locally.
func (h *PresentationHandler) generateSlide(c *gin.Context) {
	var req generateSlideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	content, err := h.presentations.GenerateSlideContent(c.Request.Context(), generation.SlideRequest{
		SectionTitle:  req.SectionTitle,
		BulletPoints:  req.BulletPoints,
		TemplateType:  model.TemplateType(req.TemplateType),
		Style:         model.PresentationStyle(req.Style),
		Language:      req.Language,
		ContentLength: model.ContentLength(req.ContentLength),
		ImageStyle:    req.ImageStyle,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": content})
}

type generateImageRequest struct {
	Prompt       string `json:"prompt"`
	TemplateType string `json:"templateType"`
	Theme        string `json:"theme"`
	ImageStyle   string `json:"imageStyle"`
	SlideID      string `json:"slideId"`
}

// generateImage queues image generation for the referenced slide. The image
// is produced asynchronously by the worker, so imageUrl is empty here and the
// final URL lands on the slide row.
func (h *PresentationHandler) generateImage(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: ErrCodeTokenInvalid, Message: "Authentication required"})
		return
	}
	var req generateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}
	slideID, err := uuid.Parse(req.SlideID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid slideId"})
		return
	}

	if err := h.presentations.RequestSlideImage(c.Request.Context(), slideID, userID, req.Prompt); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"imageUrl": "", "queued": true})
}

// parseUUIDParam reads and validates a UUID path parameter, writing the 400
// itself on failure.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid " + name + " parameter"})
		return uuid.Nil, err
	}
	return id, nil
}
