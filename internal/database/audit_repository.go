package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditRepository persists wizard audit events
type AuditRepository struct {
	db DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{
		db: db,
	}
}

// AuditRecord is one row in the wizard audit log
type AuditRecord struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Action    string
	Step      int
	Details   map[string]interface{}
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// Insert writes a single audit event
func (r *AuditRepository) Insert(record *AuditRecord) error {
	detailsJSON, err := json.Marshal(record.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO wizard_audit_log (
			id, session_id, action, step, details,
			ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Exec(
		query,
		record.ID,
		record.SessionID,
		record.Action,
		record.Step,
		detailsJSON,
		record.IPAddress,
		record.UserAgent,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	return nil
}
