package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/middleware"
	"github.com/parkandgreet/booking-backend/internal/models"
	"github.com/parkandgreet/booking-backend/internal/services"
)

// WizardHandler exposes the booking wizard over HTTP.
type WizardHandler struct {
	wizard *services.WizardService
	logger *logrus.Logger
}

// NewWizardHandler creates a new WizardHandler
func NewWizardHandler(wizard *services.WizardService, logger *logrus.Logger) *WizardHandler {
	return &WizardHandler{
		wizard: wizard,
		logger: logger,
	}
}

// sessionAndMeta pulls the resolved session id and client metadata for a
// request. The session middleware guarantees the id is present on wizard
// routes; a missing one is a wiring bug.
func sessionAndMeta(c *gin.Context) (uuid.UUID, services.RequestMeta, bool) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Session not resolved",
		})
		return uuid.Nil, services.RequestMeta{}, false
	}
	meta := services.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	return sessionID, meta, true
}

// respondError maps service errors onto HTTP statuses: client mistakes are
// 400, remote service trouble is 502, the rest is 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": validationErr.Message,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrCatalogUnavailable),
		errors.Is(err, services.ErrPricingUnavailable),
		errors.Is(err, services.ErrPromoUnavailable),
		errors.Is(err, services.ErrPersistenceFailed):
		c.JSON(http.StatusBadGateway, gin.H{
			"status":  "error",
			"message": "A required service is temporarily unavailable",
		})
	default:
		logger.WithError(err).Error("Wizard request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Internal server error",
		})
	}
}

// ============================================================================
// DRAFT - GET/PATCH/DELETE /api/v1/wizard/draft
// ============================================================================

// GetDraft returns the current wizard state for the session
// @Summary Get wizard state
// @Description Returns the draft, current step and per-step completeness for the session
// @Tags Wizard
// @Produce json
// @Param X-Wizard-Session header string false "Session id (minted when absent)"
// @Success 200 {object} services.WizardState
// @Failure 500 {object} map[string]interface{}
// @Router /wizard/draft [get]
func (h *WizardHandler) GetDraft(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	state, err := h.wizard.GetState(c.Request.Context(), sessionID, meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// UpdateDraft applies a partial draft update
// @Summary Update draft fields
// @Description Applies the supplied fields, clears dependent selections, persists the draft
// @Tags Wizard
// @Accept json
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Param request body models.DraftUpdate true "Fields to update"
// @Success 200 {object} services.WizardState
// @Failure 400 {object} map[string]interface{}
// @Router /wizard/draft [patch]
func (h *WizardHandler) UpdateDraft(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	var update models.DraftUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	state, err := h.wizard.UpdateDraft(c.Request.Context(), sessionID, &update, meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// ClearDraft deletes the draft, typically after a completed booking
// @Summary Clear the draft
// @Tags Wizard
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Success 200 {object} map[string]interface{}
// @Router /wizard/draft [delete]
func (h *WizardHandler) ClearDraft(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	if err := h.wizard.ClearDraft(c.Request.Context(), sessionID, meta); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Draft cleared",
	})
}

// ============================================================================
// STEP TRANSITIONS - POST /api/v1/wizard/advance | /api/v1/wizard/retreat
// ============================================================================

// Advance moves the wizard one step forward
// @Summary Advance to the next step
// @Description Validates the current step, runs its persistence side effects, then moves forward. The step holds when validation or persistence fails.
// @Tags Wizard
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Success 200 {object} models.AdvanceResult
// @Failure 500 {object} map[string]interface{}
// @Router /wizard/advance [post]
func (h *WizardHandler) Advance(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	result, err := h.wizard.Advance(c.Request.Context(), sessionID, meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Retreat moves the wizard one step back
// @Summary Go back one step
// @Tags Wizard
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Success 200 {object} models.AdvanceResult
// @Router /wizard/retreat [post]
func (h *WizardHandler) Retreat(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	result, err := h.wizard.Retreat(c.Request.Context(), sessionID, meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ============================================================================
// QUOTE & PROMO
// ============================================================================

// GetQuote returns the priced quote for the selected dates
// @Summary Get the current quote
// @Description Returns the package quote for the selected date pair with any promo discount applied
// @Tags Wizard
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Success 200 {object} services.QuoteResult
// @Router /wizard/quote [get]
func (h *WizardHandler) GetQuote(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	quote, err := h.wizard.Quote(c.Request.Context(), sessionID, meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

type promoRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyPromo validates and attaches a promo code
// @Summary Apply a promo code
// @Description Validates the code with the promo service; an invalid code is stored with its message rather than rejected
// @Tags Wizard
// @Accept json
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Param request body promoRequest true "Promo code"
// @Success 200 {object} models.PromoState
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /wizard/promo [post]
func (h *WizardHandler) ApplyPromo(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	var req promoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Promo code is required",
		})
		return
	}

	state, err := h.wizard.ApplyPromo(c.Request.Context(), sessionID, req.Code, meta)
	if err != nil {
		if errors.Is(err, services.ErrEmptyPromoCode) {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "Promo code is required",
			})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// RemovePromo detaches the promo code from the draft
// @Summary Remove the promo code
// @Tags Wizard
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Success 200 {object} map[string]interface{}
// @Router /wizard/promo [delete]
func (h *WizardHandler) RemovePromo(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	if err := h.wizard.RemovePromo(c.Request.Context(), sessionID, meta); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Promo code removed",
	})
}
