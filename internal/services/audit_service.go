package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/database"
	"github.com/parkandgreet/booking-backend/internal/models"
	"github.com/parkandgreet/booking-backend/internal/utils"
)

// AuditStore is the persistence surface for audit events.
type AuditStore interface {
	Insert(record *database.AuditRecord) error
}

// AuditService records wizard lifecycle events. Audit failures are logged
// and swallowed: they must never affect the booking flow.
type AuditService struct {
	repo   AuditStore
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditStore, logger *logrus.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

// RequestMeta carries the client context attached to every audit event
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LogSessionStarted records a new wizard session
func (s *AuditService) LogSessionStarted(sessionID uuid.UUID, meta RequestMeta) {
	s.log(sessionID, "session_started", 0, map[string]interface{}{}, meta)
}

// LogStepAdvanced records a successful step transition
func (s *AuditService) LogStepAdvanced(sessionID uuid.UUID, from, to models.WizardStep, meta RequestMeta) {
	s.log(sessionID, "step_advanced", int(to), map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	}, meta)
}

// LogStepRetreated records a backwards step transition
func (s *AuditService) LogStepRetreated(sessionID uuid.UUID, from, to models.WizardStep, meta RequestMeta) {
	s.log(sessionID, "step_retreated", int(to), map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	}, meta)
}

// LogPersistenceFailure records a failed incremental persistence call
func (s *AuditService) LogPersistenceFailure(sessionID uuid.UUID, step models.WizardStep, stage, reason string, meta RequestMeta) {
	s.log(sessionID, "persistence_failed", int(step), map[string]interface{}{
		"stage":  stage,
		"reason": reason,
	}, meta)
}

// LogPromoValidated records a promo validation attempt
func (s *AuditService) LogPromoValidated(sessionID uuid.UUID, code string, valid bool, meta RequestMeta) {
	s.log(sessionID, "promo_validated", 0, map[string]interface{}{
		"code":  code,
		"valid": valid,
	}, meta)
}

// LogDraftCleared records a post-payment draft wipe
func (s *AuditService) LogDraftCleared(sessionID uuid.UUID, meta RequestMeta) {
	s.log(sessionID, "draft_cleared", 0, map[string]interface{}{}, meta)
}

func (s *AuditService) log(sessionID uuid.UUID, action string, step int, details map[string]interface{}, meta RequestMeta) {
	details["device_info"] = utils.ParseUserAgent(meta.UserAgent)

	record := &database.AuditRecord{
		ID:        uuid.New(),
		SessionID: sessionID,
		Action:    action,
		Step:      step,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Insert(record); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"action":     action,
		}).Warn("Failed to write audit record")
	}
}
