package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parkandgreet/booking-backend/internal/models"
)

// DraftRecord is the durable snapshot of one wizard session: the draft
// itself plus the derived flags that must survive a page reload (current
// step, promo state, the last capacity verdict, and the identifiers assigned
// by the incremental persistence calls).
type DraftRecord struct {
	SessionID  uuid.UUID
	Draft      models.BookingDraft
	Step       models.WizardStep
	Promo      models.PromoState
	CapacityOK bool
	CustomerID string
	VehicleID  string
	UpdatedAt  time.Time
}

// DraftRepository handles wizard draft persistence
type DraftRepository struct {
	db DB
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(db DB) *DraftRepository {
	return &DraftRepository{
		db: db,
	}
}

// Save upserts a draft record keyed by session id. Called on every draft
// mutation, so it must stay a single statement.
func (r *DraftRepository) Save(record *DraftRecord) error {
	draftJSON, err := json.Marshal(record.Draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	promoJSON, err := json.Marshal(record.Promo)
	if err != nil {
		return fmt.Errorf("failed to marshal promo state: %w", err)
	}

	record.UpdatedAt = time.Now()

	query := `
		INSERT INTO wizard_drafts (
			session_id, draft, step, promo,
			capacity_ok, customer_id, vehicle_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			draft = EXCLUDED.draft,
			step = EXCLUDED.step,
			promo = EXCLUDED.promo,
			capacity_ok = EXCLUDED.capacity_ok,
			customer_id = EXCLUDED.customer_id,
			vehicle_id = EXCLUDED.vehicle_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.Exec(
		query,
		record.SessionID,
		draftJSON,
		int(record.Step),
		promoJSON,
		record.CapacityOK,
		record.CustomerID,
		record.VehicleID,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	return nil
}

// Get loads a draft record by session id. Returns nil (no error) when the
// session has no stored draft.
func (r *DraftRepository) Get(sessionID uuid.UUID) (*DraftRecord, error) {
	query := `
		SELECT draft, step, promo, capacity_ok, customer_id, vehicle_id, updated_at
		FROM wizard_drafts
		WHERE session_id = $1
	`

	var (
		draftJSON  []byte
		step       int
		promoJSON  []byte
		capacityOK bool
		customerID string
		vehicleID  string
		updatedAt  time.Time
	)

	err := r.db.QueryRow(query, sessionID).Scan(
		&draftJSON, &step, &promoJSON, &capacityOK, &customerID, &vehicleID, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	record := &DraftRecord{
		SessionID:  sessionID,
		Step:       models.WizardStep(step),
		CapacityOK: capacityOK,
		CustomerID: customerID,
		VehicleID:  vehicleID,
		UpdatedAt:  updatedAt,
	}

	if err := json.Unmarshal(draftJSON, &record.Draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}

	if err := json.Unmarshal(promoJSON, &record.Promo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal promo state: %w", err)
	}

	return record, nil
}

// Delete removes a draft record, used after a booking is successfully paid
func (r *DraftRepository) Delete(sessionID uuid.UUID) error {
	query := `DELETE FROM wizard_drafts WHERE session_id = $1`

	_, err := r.db.Exec(query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	return nil
}
