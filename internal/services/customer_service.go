package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/config"
	"github.com/parkandgreet/booking-backend/internal/models"
)

var (
	// ErrPersistenceFailed is returned when an incremental persistence call
	// does not succeed
	ErrPersistenceFailed = errors.New("persistence call failed")

	// ErrMissingCustomerID is returned when a dependent call is attempted
	// before the customer record has been created
	ErrMissingCustomerID = errors.New("customer id not yet assigned")
)

// SessionHeader carries the wizard session id on every persistence call so
// the backend can correlate the incremental writes of one booking.
const SessionHeader = "X-Wizard-Session"

// CustomerService performs the incremental persistence of draft slices
// against the remote booking API: contact record, vehicle record, billing
// address. The ids assigned by the first two calls are threaded into the
// later ones.
type CustomerService struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// NewCustomerService creates a new customer persistence client
func NewCustomerService(cfg config.ServicesConfig, logger *logrus.Logger) *CustomerService {
	return &CustomerService{
		baseURL: cfg.CustomersURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type customerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type vehicleRequest struct {
	CustomerID   string `json:"customer_id"`
	Registration string `json:"registration"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Colour       string `json:"colour"`
}

type billingRequest struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city"`
	County   string `json:"county,omitempty"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

type persistenceResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

// CreateCustomer persists the contact slice of the draft and returns the
// assigned customer id.
func (s *CustomerService) CreateCustomer(ctx context.Context, sessionID uuid.UUID, draft *models.BookingDraft) (string, error) {
	body := customerRequest{
		FirstName: draft.FirstName,
		LastName:  draft.LastName,
		Email:     draft.Email,
		Phone:     draft.Phone,
	}
	return s.post(ctx, sessionID, http.MethodPost, s.baseURL+"/customers", body)
}

// CreateVehicle persists the vehicle slice. Requires the customer id
// assigned by CreateCustomer.
func (s *CustomerService) CreateVehicle(ctx context.Context, sessionID uuid.UUID, customerID string, draft *models.BookingDraft) (string, error) {
	if customerID == "" {
		return "", ErrMissingCustomerID
	}
	body := vehicleRequest{
		CustomerID:   customerID,
		Registration: draft.Registration,
		Make:         draft.ResolvedMake(),
		Model:        draft.ResolvedModel(),
		Colour:       draft.Colour,
	}
	return s.post(ctx, sessionID, http.MethodPost, s.baseURL+"/vehicles", body)
}

// UpdateBilling persists the billing address slice for an existing customer.
func (s *CustomerService) UpdateBilling(ctx context.Context, sessionID uuid.UUID, customerID string, draft *models.BookingDraft) error {
	if customerID == "" {
		return ErrMissingCustomerID
	}
	body := billingRequest{
		Line1:    draft.BillingLine1,
		Line2:    draft.BillingLine2,
		City:     draft.BillingCity,
		County:   draft.BillingCounty,
		Postcode: draft.BillingPostcode,
		Country:  draft.BillingCountry,
	}
	url := fmt.Sprintf("%s/customers/%s/billing", s.baseURL, customerID)
	_, err := s.post(ctx, sessionID, http.MethodPatch, url, body)
	return err
}

func (s *CustomerService) post(ctx context.Context, sessionID uuid.UUID, method, url string, body interface{}) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal persistence request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create persistence request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SessionHeader, sessionID.String())

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"url":        url,
		}).Error("Persistence request failed")
		return "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d", ErrPersistenceFailed, resp.StatusCode)
	}

	var result persistenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrPersistenceFailed, err)
	}

	if !result.Success {
		return "", ErrPersistenceFailed
	}

	return result.ID, nil
}
