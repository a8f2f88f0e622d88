package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/config"
	"github.com/parkandgreet/booking-backend/internal/models"
)

var (
	// ErrPromoUnavailable is returned when the promo validation service
	// cannot be reached
	ErrPromoUnavailable = errors.New("promo validation unavailable")

	// ErrEmptyPromoCode is returned for a blank code
	ErrEmptyPromoCode = errors.New("promo code cannot be empty")
)

// PromoService validates user-entered promo codes against the remote
// service. The discount itself is never computed locally: the server's
// validity flag, percent and message are taken as-is.
type PromoService struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// NewPromoService creates a new promo validation client
func NewPromoService(cfg config.ServicesConfig, logger *logrus.Logger) *PromoService {
	return &PromoService{
		baseURL: cfg.PromoURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type promoRequest struct {
	Code string `json:"code"`
}

type promoResponse struct {
	Valid           bool   `json:"valid"`
	DiscountPercent int    `json:"discount_percent"`
	Message         string `json:"message"`
}

// Validate sends a code for validation and returns the resulting promo
// state. An invalid code is not an error: the state carries Valid=false and
// the server's message.
func (s *PromoService) Validate(ctx context.Context, code string) (*models.PromoState, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyPromoCode
	}

	payload, err := json.Marshal(promoRequest{Code: code})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal promo request: %w", err)
	}

	url := s.baseURL + "/promo/validate"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create promo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithField("code", code).Error("Promo validation request failed")
		return nil, fmt.Errorf("%w: %v", ErrPromoUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrPromoUnavailable, resp.StatusCode)
	}

	var result promoResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrPromoUnavailable, err)
	}

	s.logger.WithFields(logrus.Fields{
		"code":             code,
		"valid":            result.Valid,
		"discount_percent": result.DiscountPercent,
	}).Info("Promo code validated")

	return &models.PromoState{
		Code:            code,
		Valid:           result.Valid,
		DiscountPercent: result.DiscountPercent,
		Message:         result.Message,
	}, nil
}
