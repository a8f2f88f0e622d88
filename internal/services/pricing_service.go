package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/config"
	"github.com/parkandgreet/booking-backend/internal/models"
)

// ErrPricingUnavailable is returned when the pricing service cannot produce
// a quote for a date pair
var ErrPricingUnavailable = errors.New("pricing service unavailable")

// PricingService requests lead-time-tiered quotes from the remote pricing
// service for a (drop-off, pick-up) date pair.
type PricingService struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// NewPricingService creates a new pricing client
func NewPricingService(cfg config.ServicesConfig, logger *logrus.Logger) *PricingService {
	return &PricingService{
		baseURL: cfg.PricingURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// pricingRequest is the calculate request body, field names as the pricing
// service expects them
type pricingRequest struct {
	DropOffDate string `json:"drop_off_date"`
	PickupDate  string `json:"pickup_date"`
}

// Quote requests a price for the date pair. The returned quote carries the
// resolved package id, which the wizard writes back into the draft.
func (s *PricingService) Quote(ctx context.Context, dropoffDate, pickupDate string) (*models.PricingQuote, error) {
	payload, err := json.Marshal(pricingRequest{
		DropOffDate: dropoffDate,
		PickupDate:  pickupDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pricing request: %w", err)
	}

	url := s.baseURL + "/pricing/calculate"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create pricing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"drop_off_date": dropoffDate,
			"pickup_date":   pickupDate,
		}).Error("Pricing request failed")
		return nil, fmt.Errorf("%w: %v", ErrPricingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrPricingUnavailable, resp.StatusCode)
	}

	var quote models.PricingQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrPricingUnavailable, err)
	}

	s.logger.WithFields(logrus.Fields{
		"drop_off_date": dropoffDate,
		"pickup_date":   pickupDate,
		"package":       quote.PackageID,
		"price":         quote.Price,
	}).Info("Pricing quote received")

	return &quote, nil
}
