package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/services"
)

// FlightHandler exposes flight catalog, slot and return-flight resolution.
type FlightHandler struct {
	wizard *services.WizardService
	logger *logrus.Logger
}

// NewFlightHandler creates a new FlightHandler
func NewFlightHandler(wizard *services.WizardService, logger *logrus.Logger) *FlightHandler {
	return &FlightHandler{
		wizard: wizard,
		logger: logger,
	}
}

// GetDepartures returns the departures board for a date
// @Summary List departures
// @Description Returns the outbound flights for the given date (defaults to the draft's drop-off date), grouped airline names included
// @Tags Flights
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} services.DepartureBoard
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /flights/departures [get]
func (h *FlightHandler) GetDepartures(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	board, err := h.wizard.Departures(c.Request.Context(), sessionID, c.Query("date"), meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, board)
}

// GetArrivals returns the arrivals board for a date
// @Summary List arrivals
// @Description Returns the return flights for the given date (defaults to the draft's pick-up date)
// @Tags Flights
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {array} models.FlightRecord
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /flights/arrivals [get]
func (h *FlightHandler) GetArrivals(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	flights, err := h.wizard.Arrivals(c.Request.Context(), sessionID, c.Query("date"), meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, flights)
}

// GetSlots returns the hand-over slots for the selected outbound flight
// @Summary List drop-off slots
// @Description Resolves the bookable hand-over windows for the draft's outbound flight, including the contact-only and fully-booked states
// @Tags Flights
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Success 200 {object} models.FlightAvailability
// @Failure 400 {object} map[string]interface{}
// @Router /wizard/slots [get]
func (h *FlightHandler) GetSlots(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	availability, err := h.wizard.Slots(c.Request.Context(), sessionID, meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, availability)
}

// GetReturnFlight resolves the best return flight for the selection
// @Summary Resolve the return flight
// @Description Picks the arrival closest by flight number on the outbound's airline and route, flags overnight arrivals
// @Tags Flights
// @Produce json
// @Param X-Wizard-Session header string true "Session id"
// @Success 200 {object} services.ReturnFlightResult
// @Failure 400 {object} map[string]interface{}
// @Router /wizard/return-flight [get]
func (h *FlightHandler) GetReturnFlight(c *gin.Context) {
	sessionID, meta, ok := sessionAndMeta(c)
	if !ok {
		return
	}

	result, err := h.wizard.ReturnFlight(c.Request.Context(), sessionID, meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
