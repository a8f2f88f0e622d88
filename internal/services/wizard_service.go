package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/config"
	"github.com/parkandgreet/booking-backend/internal/database"
	"github.com/parkandgreet/booking-backend/internal/models"
	"github.com/parkandgreet/booking-backend/pkg/metrics"
	"github.com/parkandgreet/booking-backend/pkg/validator"
)

// Logical fetch resources for generation tagging.
const (
	resourceDepartures = "departures"
	resourceArrivals   = "arrivals"
	resourceQuote      = "quote"
)

// DraftStore is the durable draft persistence surface the wizard needs.
type DraftStore interface {
	Get(sessionID uuid.UUID) (*database.DraftRecord, error)
	Save(record *database.DraftRecord) error
	Delete(sessionID uuid.UUID) error
}

// WizardService orchestrates the 4-step booking wizard: it owns the draft
// lifecycle, gates step transitions on per-step completeness, runs the
// incremental persistence side effects, and keeps the derived flight,
// availability and pricing state consistent with the draft's selections.
type WizardService struct {
	drafts       DraftStore
	catalog      *FlightCatalogService
	availability *AvailabilityService
	matcher      *ReturnMatcherService
	pricing      *PricingService
	promo        *PromoService
	customers    *CustomerService
	audit        *AuditService
	booking      config.BookingConfig
	logger       *logrus.Logger

	phones *validator.PhoneValidator
	emails *validator.EmailValidator

	metrics *metrics.Metrics

	mu        sync.Mutex
	sessions  map[uuid.UUID]*wizardSession
	lastSweep time.Time

	// now is injectable for tests of the minimum-bookable-date floor
	now func() time.Time
}

// NewWizardService creates the wizard orchestrator
func NewWizardService(
	drafts DraftStore,
	catalog *FlightCatalogService,
	availability *AvailabilityService,
	matcher *ReturnMatcherService,
	pricing *PricingService,
	promo *PromoService,
	customers *CustomerService,
	audit *AuditService,
	booking config.BookingConfig,
	logger *logrus.Logger,
) *WizardService {
	return &WizardService{
		drafts:       drafts,
		catalog:      catalog,
		availability: availability,
		matcher:      matcher,
		pricing:      pricing,
		promo:        promo,
		customers:    customers,
		audit:        audit,
		booking:      booking,
		logger:       logger,
		phones:       validator.NewPhoneValidator(),
		emails:       validator.NewEmailValidator(),
		sessions:     map[uuid.UUID]*wizardSession{},
		now:          time.Now,
	}
}

// WithMetrics attaches the Prometheus collectors. Optional; a nil bundle
// disables instrumentation, which the tests rely on.
func (s *WizardService) WithMetrics(m *metrics.Metrics) *WizardService {
	s.metrics = m
	return s
}

// wizardSession is the per-session derived state that does not need to
// survive a process restart: catalog results for the currently selected
// dates, the current quote, inline error messages, and the fetch
// generations. The durable part lives in the DraftRecord.
type wizardSession struct {
	mu     sync.Mutex
	record *database.DraftRecord

	// lastSeen is guarded by the service mutex, not ws.mu
	lastSeen time.Time

	departures       []models.FlightRecord
	departuresDate   string
	departuresLoaded bool
	departuresErr    string

	arrivals       []models.FlightRecord
	arrivalsDate   string
	arrivalsLoaded bool
	arrivalsErr    string

	quote    *models.PricingQuote
	quoteKey string
	quoteErr string

	gens map[string]uint64
}

// nextGen issues a new generation for a resource. Caller must hold ws.mu.
func (ws *wizardSession) nextGen(resource string) uint64 {
	ws.gens[resource]++
	return ws.gens[resource]
}

// isCurrent reports whether a generation is still the latest issued for a
// resource. Caller must hold ws.mu.
func (ws *wizardSession) isCurrent(resource string, gen uint64) bool {
	return ws.gens[resource] == gen
}

// StateMessages are the per-consumer inline error messages. A failure in
// one fetch never blocks unrelated parts of the wizard.
type StateMessages struct {
	Departures string `json:"departures,omitempty"`
	Arrivals   string `json:"arrivals,omitempty"`
	Quote      string `json:"quote,omitempty"`
}

// WizardState is the full wizard snapshot returned to the client.
type WizardState struct {
	SessionID    uuid.UUID               `json:"session_id"`
	Draft        models.BookingDraft     `json:"draft"`
	Step         models.WizardStep       `json:"step"`
	StepName     string                  `json:"step_name"`
	Completeness models.StepCompleteness `json:"completeness"`
	CapacityOK   bool                    `json:"capacity_ok"`
	Promo        models.PromoState       `json:"promo"`
	Quote        *models.PricingQuote    `json:"quote,omitempty"`
	Messages     StateMessages           `json:"messages"`
}

// QuoteResult is the priced total for the current draft, promo applied.
type QuoteResult struct {
	Quote    *models.PricingQuote `json:"quote,omitempty"`
	Promo    models.PromoState    `json:"promo"`
	Discount float64              `json:"discount"`
	Total    float64              `json:"total"`
	Message  string               `json:"message,omitempty"`
}

// ReturnFlightResult is the matcher's pick plus the overnight-adjusted
// display date.
type ReturnFlightResult struct {
	Match               *models.ReturnMatch `json:"match,omitempty"`
	EffectivePickupDate string              `json:"effective_pickup_date,omitempty"`
}

// DepartureBoard is an airline-grouped departures response.
type DepartureBoard struct {
	Date     string                `json:"date"`
	Airlines []string              `json:"airlines"`
	Flights  []models.FlightRecord `json:"flights"`
}

// ============================================================================
// SESSION LIFECYCLE
// ============================================================================

const sessionSweepInterval = time.Minute

// session returns the in-memory session for an id, creating or rehydrating
// it from the draft store on first use.
func (s *WizardService) session(id uuid.UUID, meta RequestMeta) (*wizardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepIdleLocked(now)

	if ws, ok := s.sessions[id]; ok {
		ws.lastSeen = now
		return ws, nil
	}

	record, err := s.drafts.Get(id)
	if err != nil {
		return nil, err
	}

	fresh := record == nil
	if fresh {
		record = &database.DraftRecord{
			SessionID: id,
			Step:      models.StepDetails,
		}
	}

	ws := &wizardSession{
		record:   record,
		lastSeen: now,
		gens:     map[string]uint64{},
	}

	if !fresh && s.rehydrate(record) {
		if err := s.drafts.Save(record); err != nil {
			s.logger.WithError(err).WithField("session_id", id).Warn("Failed to persist rehydrated draft")
		}
	}

	s.sessions[id] = ws
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}

	if fresh {
		s.audit.LogSessionStarted(id, meta)
	}

	return ws, nil
}

// sweepIdleLocked evicts sessions untouched for longer than the configured
// idle TTL. The durable draft stays in the store and the session is rebuilt
// from it on the next request. Caller must hold s.mu.
func (s *WizardService) sweepIdleLocked(now time.Time) {
	ttl := s.booking.SessionIdleTTL
	if ttl <= 0 {
		return
	}
	if now.Sub(s.lastSweep) < sessionSweepInterval {
		return
	}
	s.lastSweep = now

	evicted := 0
	for id, ws := range s.sessions {
		if now.Sub(ws.lastSeen) >= ttl {
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted == 0 {
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}
	s.logger.WithFields(logrus.Fields{
		"evicted":   evicted,
		"remaining": len(s.sessions),
	}).Debug("Evicted idle wizard sessions")
}

// minBookableDate is the earliest drop-off date the wizard accepts.
func (s *WizardService) minBookableDate() string {
	return s.now().AddDate(0, 0, s.booking.MinLeadDays).Format("2006-01-02")
}

// rehydrate applies the minimum-bookable-date floor to a restored draft.
// A drop-off date behind the floor is discarded together with its
// dependents, and the pick-up date with it: a pick-up without a drop-off is
// meaningless. Returns true when anything changed.
func (s *WizardService) rehydrate(record *database.DraftRecord) bool {
	floor := s.minBookableDate()
	draft := &record.Draft
	changed := false

	if draft.DropoffDate != "" && draft.DropoffDate < floor {
		draft.ClearField(models.FieldDropoffDate)
		draft.Invalidate(models.FieldDropoffDate)
		draft.ClearField(models.FieldPickupDate)
		draft.Invalidate(models.FieldPickupDate)
		record.CapacityOK = false
		changed = true
	}

	if draft.PickupDate != "" && draft.PickupDate < floor {
		draft.ClearField(models.FieldPickupDate)
		draft.Invalidate(models.FieldPickupDate)
		record.CapacityOK = false
		changed = true
	}

	if changed {
		s.logger.WithFields(logrus.Fields{
			"session_id": record.SessionID,
			"floor":      floor,
		}).Info("Discarded out-of-range dates on draft rehydration")
	}

	return changed
}

// saveLocked persists the durable record. Caller must hold ws.mu.
func (s *WizardService) saveLocked(ws *wizardSession) {
	if err := s.drafts.Save(ws.record); err != nil {
		s.logger.WithError(err).WithField("session_id", ws.record.SessionID).Error("Failed to persist draft")
	}
}

// GetState returns the wizard snapshot for a session.
func (s *WizardService) GetState(ctx context.Context, id uuid.UUID, meta RequestMeta) (*WizardState, error) {
	ws, err := s.session(id, meta)
	if err != nil {
		return nil, err
	}

	s.refreshCapacity(ctx, ws)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	return s.stateLocked(ws), nil
}

// stateLocked builds the state snapshot. Caller must hold ws.mu.
func (s *WizardService) stateLocked(ws *wizardSession) *WizardState {
	record := ws.record
	return &WizardState{
		SessionID:    record.SessionID,
		Draft:        record.Draft,
		Step:         record.Step,
		StepName:     record.Step.String(),
		Completeness: s.completenessLocked(ws),
		CapacityOK:   record.CapacityOK,
		Promo:        record.Promo,
		Quote:        ws.quote,
		Messages: StateMessages{
			Departures: ws.departuresErr,
			Arrivals:   ws.arrivalsErr,
			Quote:      ws.quoteErr,
		},
	}
}

// ============================================================================
// COMPLETENESS PREDICATES
// ============================================================================

// completenessLocked evaluates the per-step gating predicates. Caller must
// hold ws.mu.
func (s *WizardService) completenessLocked(ws *wizardSession) models.StepCompleteness {
	draft := &ws.record.Draft

	details := draft.FirstName != "" &&
		draft.LastName != "" &&
		s.emails.IsValid(draft.Email) &&
		s.phones.IsValid(draft.Phone) &&
		draft.Registration != "" &&
		draft.MakeResolved() &&
		draft.ModelResolved() &&
		draft.Colour != ""

	trip := draft.DropoffDate != "" &&
		draft.DropoffAirline != "" &&
		draft.DropoffFlightKey != "" &&
		draft.DropoffSlotID != "" &&
		draft.PickupDate != "" &&
		draft.ReturnFlightKey != "" &&
		ws.record.CapacityOK

	pkg := draft.PackageID != ""

	payment := draft.TermsAccepted && draft.BillingComplete()

	return models.StepCompleteness{
		Details: details,
		Trip:    trip,
		Package: pkg,
		Payment: payment,
	}
}

func stepComplete(completeness models.StepCompleteness, step models.WizardStep) bool {
	switch step {
	case models.StepDetails:
		return completeness.Details
	case models.StepTrip:
		return completeness.Trip
	case models.StepPackage:
		return completeness.Package
	case models.StepPayment:
		return completeness.Payment
	default:
		return false
	}
}

// ============================================================================
// DRAFT MUTATION
// ============================================================================

// UpdateDraft applies a partial update, runs dependency invalidation for the
// tracked trip fields, persists the draft, and re-derives capacity and
// pricing for the new date pair.
func (s *WizardService) UpdateDraft(ctx context.Context, id uuid.UUID, update *models.DraftUpdate, meta RequestMeta) (*WizardState, error) {
	ws, err := s.session(id, meta)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	draft := &ws.record.Draft

	if update.FirstName != nil {
		draft.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		draft.LastName = *update.LastName
	}
	if update.Email != nil {
		draft.Email = *update.Email
	}
	if update.Phone != nil {
		draft.Phone = *update.Phone
	}
	if update.Registration != nil {
		draft.Registration = *update.Registration
	}
	if update.Make != nil {
		draft.Make = *update.Make
		if draft.Make != models.OtherVehicleOption {
			draft.MakeOther = ""
		}
	}
	if update.MakeOther != nil {
		draft.MakeOther = *update.MakeOther
	}
	if update.Model != nil {
		draft.Model = *update.Model
		if draft.Model != models.OtherVehicleOption {
			draft.ModelOther = ""
		}
	}
	if update.ModelOther != nil {
		draft.ModelOther = *update.ModelOther
	}
	if update.Colour != nil {
		draft.Colour = *update.Colour
	}

	datesChanged := false

	if update.DropoffDate != nil && *update.DropoffDate != draft.DropoffDate {
		draft.DropoffDate = *update.DropoffDate
		draft.Invalidate(models.FieldDropoffDate)
		ws.resetDeparturesLocked()
		datesChanged = true
	}
	if update.DropoffAirline != nil && *update.DropoffAirline != draft.DropoffAirline {
		draft.DropoffAirline = models.NormalizeAirline(*update.DropoffAirline)
		draft.Invalidate(models.FieldDropoffAirline)
	}
	if update.DropoffFlightKey != nil && *update.DropoffFlightKey != draft.DropoffFlightKey {
		draft.DropoffFlightKey = *update.DropoffFlightKey
		draft.Invalidate(models.FieldDropoffFlight)
	}
	if update.DropoffSlotID != nil {
		draft.DropoffSlotID = *update.DropoffSlotID
	}
	if update.PickupDate != nil && *update.PickupDate != draft.PickupDate {
		draft.PickupDate = *update.PickupDate
		draft.Invalidate(models.FieldPickupDate)
		ws.resetArrivalsLocked()
		datesChanged = true
	}
	if update.ReturnFlightKey != nil {
		draft.ReturnFlightKey = *update.ReturnFlightKey
	}

	if update.BillingLine1 != nil {
		draft.BillingLine1 = *update.BillingLine1
	}
	if update.BillingLine2 != nil {
		draft.BillingLine2 = *update.BillingLine2
	}
	if update.BillingCity != nil {
		draft.BillingCity = *update.BillingCity
	}
	if update.BillingCounty != nil {
		draft.BillingCounty = *update.BillingCounty
	}
	if update.BillingPostcode != nil {
		draft.BillingPostcode = *update.BillingPostcode
	}
	if update.BillingCountry != nil {
		draft.BillingCountry = *update.BillingCountry
	}
	if update.TermsAccepted != nil {
		draft.TermsAccepted = *update.TermsAccepted
	}

	if datesChanged {
		// A quote fetch still in flight was priced for the old pair and must
		// not commit.
		ws.nextGen(resourceQuote)
		ws.quote = nil
		ws.quoteKey = ""
		ws.quoteErr = ""
		ws.record.CapacityOK = false
	}

	s.saveLocked(ws)
	ws.mu.Unlock()

	if datesChanged {
		s.refreshCapacity(ctx, ws)
		s.refreshQuote(ctx, ws)
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	return s.stateLocked(ws), nil
}

// resetDeparturesLocked drops the board and supersedes any fetch for it
// still in flight. Caller must hold ws.mu.
func (ws *wizardSession) resetDeparturesLocked() {
	ws.nextGen(resourceDepartures)
	ws.departures = nil
	ws.departuresDate = ""
	ws.departuresLoaded = false
	ws.departuresErr = ""
}

func (ws *wizardSession) resetArrivalsLocked() {
	ws.nextGen(resourceArrivals)
	ws.arrivals = nil
	ws.arrivalsDate = ""
	ws.arrivalsLoaded = false
	ws.arrivalsErr = ""
}

// ============================================================================
// FLIGHT DATA
// ============================================================================

// Departures fetches (or serves from session state) the outbound flights
// for a date and commits them into the session unless a newer request for
// the resource was issued meanwhile.
func (s *WizardService) Departures(ctx context.Context, id uuid.UUID, date string, meta RequestMeta) (*DepartureBoard, error) {
	ws, err := s.session(id, meta)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	if date == "" {
		date = ws.record.Draft.DropoffDate
	}
	if date == "" {
		ws.mu.Unlock()
		return nil, models.NewValidationError("no drop-off date selected")
	}
	if ws.departuresLoaded && ws.departuresDate == date {
		board := &DepartureBoard{Date: date, Airlines: AirlineNames(ws.departures), Flights: ws.departures}
		ws.mu.Unlock()
		return board, nil
	}
	gen := ws.nextGen(resourceDepartures)
	ws.mu.Unlock()

	fetchStart := time.Now()
	flights, err := s.catalog.Departures(ctx, date)
	s.observeUpstream("flights", fetchStart, err)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.isCurrent(resourceDepartures, gen) {
		// A newer request for departures was issued while this one was in
		// flight; its result must not overwrite fresher state.
		if err != nil {
			return nil, err
		}
		return &DepartureBoard{Date: date, Airlines: AirlineNames(flights), Flights: flights}, nil
	}

	if err != nil {
		ws.departuresErr = "Flight schedule is temporarily unavailable. Please try again."
		return nil, err
	}

	ws.departures = flights
	ws.departuresDate = date
	ws.departuresLoaded = true
	ws.departuresErr = ""

	s.cleanupReturnSelectionLocked(ws)

	return &DepartureBoard{Date: date, Airlines: AirlineNames(flights), Flights: flights}, nil
}

// Arrivals fetches the return flights for a date, with the same generation
// discipline as Departures.
func (s *WizardService) Arrivals(ctx context.Context, id uuid.UUID, date string, meta RequestMeta) ([]models.FlightRecord, error) {
	ws, err := s.session(id, meta)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	if date == "" {
		date = ws.record.Draft.PickupDate
	}
	if date == "" {
		ws.mu.Unlock()
		return nil, models.NewValidationError("no pick-up date selected")
	}
	if ws.arrivalsLoaded && ws.arrivalsDate == date {
		flights := ws.arrivals
		ws.mu.Unlock()
		return flights, nil
	}
	gen := ws.nextGen(resourceArrivals)
	ws.mu.Unlock()

	fetchStart := time.Now()
	flights, err := s.catalog.Arrivals(ctx, date)
	s.observeUpstream("flights", fetchStart, err)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.isCurrent(resourceArrivals, gen) {
		if err != nil {
			return nil, err
		}
		return flights, nil
	}

	if err != nil {
		ws.arrivalsErr = "Flight schedule is temporarily unavailable. Please try again."
		return nil, err
	}

	ws.arrivals = flights
	ws.arrivalsDate = date
	ws.arrivalsLoaded = true
	ws.arrivalsErr = ""

	s.cleanupReturnSelectionLocked(ws)

	return flights, nil
}

// cleanupReturnSelectionLocked drops a stored return-flight selection that
// no fresh arrival corroborates. It only acts once BOTH the departures and
// arrivals for the currently selected dates have loaded, so a restored
// selection is not discarded before its data has had a chance to arrive.
// Caller must hold ws.mu.
func (s *WizardService) cleanupReturnSelectionLocked(ws *wizardSession) {
	draft := &ws.record.Draft
	if draft.ReturnFlightKey == "" {
		return
	}
	if !ws.departuresLoaded || ws.departuresDate != draft.DropoffDate {
		return
	}
	if !ws.arrivalsLoaded || ws.arrivalsDate != draft.PickupDate {
		return
	}
	if FindByKey(ws.arrivals, draft.ReturnFlightKey) != nil {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": ws.record.SessionID,
		"key":        draft.ReturnFlightKey,
	}).Info("Clearing return flight selection not present in fresh arrivals")

	draft.ReturnFlightKey = ""
	s.saveLocked(ws)
}

// Slots resolves the bookable hand-over slots for the currently selected
// outbound flight.
func (s *WizardService) Slots(ctx context.Context, id uuid.UUID, meta RequestMeta) (*models.FlightAvailability, error) {
	ws, err := s.session(id, meta)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	key := ws.record.Draft.DropoffFlightKey
	date := ws.record.Draft.DropoffDate
	ws.mu.Unlock()

	if key == "" || date == "" {
		return nil, models.NewValidationError("no outbound flight selected")
	}

	if _, err := s.Departures(ctx, id, date, meta); err != nil {
		return nil, err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	flight := FindByKey(ws.departures, key)
	if flight == nil {
		return nil, models.NewValidationError("selected flight is no longer in the schedule")
	}

	availability := s.availability.Resolve(flight)
	return &availability, nil
}

// ReturnFlight resolves the best return flight for the current outbound
// selection from the pick-up date's arrivals.
func (s *WizardService) ReturnFlight(ctx context.Context, id uuid.UUID, meta RequestMeta) (*ReturnFlightResult, error) {
	ws, err := s.session(id, meta)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	draft := ws.record.Draft
	ws.mu.Unlock()

	if draft.DropoffFlightKey == "" || draft.DropoffDate == "" {
		return nil, models.NewValidationError("no outbound flight selected")
	}
	if draft.PickupDate == "" {
		return nil, models.NewValidationError("no pick-up date selected")
	}

	if _, err := s.Departures(ctx, id, draft.DropoffDate, meta); err != nil {
		return nil, err
	}
	if _, err := s.Arrivals(ctx, id, draft.PickupDate, meta); err != nil {
		return nil, err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	outbound := FindByKey(ws.departures, draft.DropoffFlightKey)
	if outbound == nil {
		return nil, models.NewValidationError("selected flight is no longer in the schedule")
	}

	match := s.matcher.BestMatch(outbound, ws.arrivals)
	result := &ReturnFlightResult{Match: match}
	if match != nil {
		result.EffectivePickupDate = EffectivePickupDate(ws.record.Draft.PickupDate, match.Overnight)
	}
	return result, nil
}

// ============================================================================
// PRICING & PROMO
// ============================================================================

// refreshCapacity re-runs the whole-range facility check when both dates
// are present and stores the verdict on the durable record.
func (s *WizardService) refreshCapacity(ctx context.Context, ws *wizardSession) {
	ws.mu.Lock()
	dropoff := ws.record.Draft.DropoffDate
	pickup := ws.record.Draft.PickupDate
	ws.mu.Unlock()

	if dropoff == "" || pickup == "" {
		return
	}

	ok, err := s.availability.CheckDateRange(ctx, dropoff, pickup)
	if err != nil {
		s.logger.WithError(err).Warn("Capacity check failed, treating range as unavailable")
		ok = false
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.record.Draft.DropoffDate != dropoff || ws.record.Draft.PickupDate != pickup {
		return
	}
	if ws.record.CapacityOK != ok {
		ws.record.CapacityOK = ok
		s.saveLocked(ws)
	}
}

// refreshQuote fetches a quote for the current date pair if none is cached.
// On success the quote's package id is written into the draft; on failure
// the quote and package are cleared so the Package step cannot complete.
func (s *WizardService) refreshQuote(ctx context.Context, ws *wizardSession) {
	ws.mu.Lock()
	dropoff := ws.record.Draft.DropoffDate
	pickup := ws.record.Draft.PickupDate
	if dropoff == "" || pickup == "" {
		ws.mu.Unlock()
		return
	}
	key := dropoff + "|" + pickup
	if ws.quote != nil && ws.quoteKey == key {
		ws.mu.Unlock()
		return
	}
	gen := ws.nextGen(resourceQuote)
	ws.mu.Unlock()

	fetchStart := time.Now()
	quote, err := s.pricing.Quote(ctx, dropoff, pickup)
	s.observeUpstream("pricing", fetchStart, err)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.isCurrent(resourceQuote, gen) {
		return
	}
	if ws.record.Draft.DropoffDate != dropoff || ws.record.Draft.PickupDate != pickup {
		return
	}

	if err != nil {
		ws.quote = nil
		ws.quoteKey = ""
		ws.quoteErr = "We could not price these dates. Please try again."
		ws.record.Draft.PackageID = ""
		s.saveLocked(ws)
		return
	}

	ws.quote = quote
	ws.quoteKey = key
	ws.quoteErr = ""
	ws.record.Draft.PackageID = quote.PackageID
	s.saveLocked(ws)
}

// Quote returns the current quote with the promo discount applied.
func (s *WizardService) Quote(ctx context.Context, id uuid.UUID, meta RequestMeta) (*QuoteResult, error) {
	ws, err := s.session(id, meta)
	if err != nil {
		return nil, err
	}

	s.refreshQuote(ctx, ws)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	result := &QuoteResult{Promo: ws.record.Promo, Message: ws.quoteErr}
	if ws.quote == nil {
		return result, nil
	}

	result.Quote = ws.quote
	result.Discount = ws.record.Promo.DiscountAmount(*ws.quote)
	result.Total = ws.record.Promo.Total(*ws.quote)
	return result, nil
}

// ApplyPromo validates a code against the promo service and attaches the
// resulting state to the draft. The state is sticky until removed.
func (s *WizardService) ApplyPromo(ctx context.Context, id uuid.UUID, code string, meta RequestMeta) (*models.PromoState, error) {
	ws, err := s.session(id, meta)
	if err != nil {
		return nil, err
	}

	fetchStart := time.Now()
	state, err := s.promo.Validate(ctx, code)
	s.observeUpstream("promo", fetchStart, err)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	ws.record.Promo = *state
	s.saveLocked(ws)
	ws.mu.Unlock()

	s.audit.LogPromoValidated(id, state.Code, state.Valid, meta)

	return state, nil
}

// RemovePromo clears the promo state on explicit user request.
func (s *WizardService) RemovePromo(ctx context.Context, id uuid.UUID, meta RequestMeta) error {
	ws, err := s.session(id, meta)
	if err != nil {
		return err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.record.Promo = models.PromoState{}
	s.saveLocked(ws)
	return nil
}

// ============================================================================
// STEP TRANSITIONS
// ============================================================================

// Advance attempts to move the wizard one step forward.
//
// The current step must be complete, and the step's persistence side
// effects must succeed: leaving Details creates the contact record then the
// vehicle record (which needs the assigned customer id); leaving Package
// stores the billing address. When a persistence call fails the step does
// not move and the result names the failed stage so the caller can decide
// whether to retry.
func (s *WizardService) Advance(ctx context.Context, id uuid.UUID, meta RequestMeta) (*models.AdvanceResult, error) {
	ws, err := s.session(id, meta)
	if err != nil {
		return nil, err
	}

	s.refreshCapacity(ctx, ws)

	ws.mu.Lock()
	step := ws.record.Step
	completeness := s.completenessLocked(ws)
	ws.mu.Unlock()

	if step >= models.StepPayment {
		return &models.AdvanceResult{Advanced: false, Step: step, Message: "already at the final step"}, nil
	}

	if !stepComplete(completeness, step) {
		if s.metrics != nil {
			s.metrics.StepAdvancesTotal.WithLabelValues(step.String(), "incomplete").Inc()
		}
		return &models.AdvanceResult{
			Advanced: false,
			Step:     step,
			Message:  fmt.Sprintf("the %s step is not complete", step),
		}, nil
	}

	switch step {
	case models.StepDetails:
		if result := s.persistDetails(ctx, ws, meta); result != nil {
			s.countFailedAdvance(step, result.FailedStage)
			return result, nil
		}
	case models.StepPackage:
		if result := s.persistBilling(ctx, ws, meta); result != nil {
			s.countFailedAdvance(step, result.FailedStage)
			return result, nil
		}
	}

	ws.mu.Lock()
	ws.record.Step = step + 1
	s.saveLocked(ws)
	newStep := ws.record.Step
	ws.mu.Unlock()

	s.audit.LogStepAdvanced(id, step, newStep, meta)
	if s.metrics != nil {
		s.metrics.StepAdvancesTotal.WithLabelValues(step.String(), "advanced").Inc()
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": id,
		"from":       step.String(),
		"to":         newStep.String(),
	}).Info("Wizard step advanced")

	return &models.AdvanceResult{Advanced: true, Step: newStep}, nil
}

func (s *WizardService) observeUpstream(service string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveUpstream(service, start, err)
	}
}

func (s *WizardService) countFailedAdvance(step models.WizardStep, stage string) {
	if s.metrics == nil {
		return
	}
	s.metrics.StepAdvancesTotal.WithLabelValues(step.String(), "failed").Inc()
	s.metrics.PersistenceFailures.WithLabelValues(stage).Inc()
}

// persistDetails runs the Details->Trip side effects. Returns a failure
// result, or nil when everything succeeded.
func (s *WizardService) persistDetails(ctx context.Context, ws *wizardSession, meta RequestMeta) *models.AdvanceResult {
	ws.mu.Lock()
	draft := ws.record.Draft
	customerID := ws.record.CustomerID
	sessionID := ws.record.SessionID
	step := ws.record.Step
	ws.mu.Unlock()

	if customerID == "" {
		callStart := time.Now()
		assigned, err := s.customers.CreateCustomer(ctx, sessionID, &draft)
		s.observeUpstream("customers", callStart, err)
		if err != nil {
			s.audit.LogPersistenceFailure(sessionID, step, models.StageCustomer, err.Error(), meta)
			return &models.AdvanceResult{
				Advanced:    false,
				Step:        step,
				FailedStage: models.StageCustomer,
				Message:     "We could not save your details. Please try again.",
			}
		}
		customerID = assigned

		ws.mu.Lock()
		ws.record.CustomerID = customerID
		s.saveLocked(ws)
		ws.mu.Unlock()
	}

	callStart := time.Now()
	vehicleID, err := s.customers.CreateVehicle(ctx, sessionID, customerID, &draft)
	s.observeUpstream("customers", callStart, err)
	if err != nil {
		s.audit.LogPersistenceFailure(sessionID, step, models.StageVehicle, err.Error(), meta)
		return &models.AdvanceResult{
			Advanced:    false,
			Step:        step,
			FailedStage: models.StageVehicle,
			Message:     "We could not save your vehicle. Please try again.",
		}
	}

	ws.mu.Lock()
	ws.record.VehicleID = vehicleID
	s.saveLocked(ws)
	ws.mu.Unlock()

	return nil
}

// persistBilling runs the Package->Payment side effect.
func (s *WizardService) persistBilling(ctx context.Context, ws *wizardSession, meta RequestMeta) *models.AdvanceResult {
	ws.mu.Lock()
	draft := ws.record.Draft
	customerID := ws.record.CustomerID
	sessionID := ws.record.SessionID
	step := ws.record.Step
	ws.mu.Unlock()

	callStart := time.Now()
	err := s.customers.UpdateBilling(ctx, sessionID, customerID, &draft)
	s.observeUpstream("customers", callStart, err)
	if err != nil {
		s.audit.LogPersistenceFailure(sessionID, step, models.StageBilling, err.Error(), meta)
		return &models.AdvanceResult{
			Advanced:    false,
			Step:        step,
			FailedStage: models.StageBilling,
			Message:     "We could not save your billing address. Please try again.",
		}
	}

	return nil
}

// Retreat moves the wizard one step back, clamped at Details. No
// persistence side effects run on the way back.
func (s *WizardService) Retreat(ctx context.Context, id uuid.UUID, meta RequestMeta) (*models.AdvanceResult, error) {
	ws, err := s.session(id, meta)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	from := ws.record.Step
	if ws.record.Step > models.StepDetails {
		ws.record.Step--
		s.saveLocked(ws)
	}
	to := ws.record.Step
	ws.mu.Unlock()

	if to != from {
		s.audit.LogStepRetreated(id, from, to, meta)
	}

	return &models.AdvanceResult{Advanced: to != from, Step: to}, nil
}

// ClearDraft wipes the draft after a successful payment.
func (s *WizardService) ClearDraft(ctx context.Context, id uuid.UUID, meta RequestMeta) error {
	if err := s.drafts.Delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, id)
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()

	s.audit.LogDraftCleared(id, meta)

	return nil
}
