package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/cache"
	"github.com/parkandgreet/booking-backend/internal/config"
	"github.com/parkandgreet/booking-backend/internal/models"
)

var (
	// ErrCatalogUnavailable is returned when the flight schedule service
	// cannot be reached or answers with an unexpected status
	ErrCatalogUnavailable = errors.New("flight catalog unavailable")

	// ErrInvalidDate is returned for dates that are not ISO formatted
	ErrInvalidDate = errors.New("date must be formatted YYYY-MM-DD")
)

// Catalog directions
const (
	DirectionDepartures = "departures"
	DirectionArrivals   = "arrivals"
)

// FlightCatalogService fetches the day's departures and arrivals from the
// remote flight schedule service, normalizes the capacity field variants the
// feed is known to emit, and caches responses per (direction, date).
type FlightCatalogService struct {
	baseURL string
	client  *http.Client
	cache   *cache.RedisCache
	logger  *logrus.Logger
}

// NewFlightCatalogService creates a new flight catalog client
func NewFlightCatalogService(cfg config.ServicesConfig, redisCache *cache.RedisCache, logger *logrus.Logger) *FlightCatalogService {
	return &FlightCatalogService{
		baseURL: cfg.FlightsURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  redisCache,
		logger: logger,
	}
}

// flightDTO mirrors the wire shape of one flight. The capacity fields come
// in two variants depending on feed version: tier/remaining counts, or
// boolean call-us/booked flags. All of them are optional pointers so the
// normalizer can tell "absent" from "zero".
type flightDTO struct {
	Time          string `json:"time"`
	DepartureTime string `json:"departureTime"`

	AirlineCode string `json:"airlineCode"`
	AirlineName string `json:"airlineName"`

	DestinationCode string `json:"destinationCode"`
	DestinationName string `json:"destinationName"`
	OriginCode      string `json:"originCode"`
	OriginName      string `json:"originName"`

	FlightNumber string `json:"flightNumber"`

	CapacityTier        *int  `json:"capacity_tier"`
	IsCallUsOnly        *bool `json:"is_call_us_only"`
	EarlySlotsAvailable *int  `json:"early_slots_available"`
	IsSlot1Booked       *bool `json:"is_slot_1_booked"`
	LateSlotsAvailable  *int  `json:"late_slots_available"`
	IsSlot2Booked       *bool `json:"is_slot_2_booked"`
	AllSlotsBooked      *bool `json:"all_slots_booked"`
	EarlySlotIsLast     *bool `json:"early_slot_is_last"`
	LateSlotIsLast      *bool `json:"late_slot_is_last"`
}

// Departures returns the outbound flights for a drop-off date, with
// normalized capacity descriptors attached.
func (s *FlightCatalogService) Departures(ctx context.Context, date string) ([]models.FlightRecord, error) {
	return s.fetch(ctx, DirectionDepartures, date)
}

// Arrivals returns the return flights for a pick-up date. Arrival records
// carry no capacity descriptor.
func (s *FlightCatalogService) Arrivals(ctx context.Context, date string) ([]models.FlightRecord, error) {
	return s.fetch(ctx, DirectionArrivals, date)
}

func (s *FlightCatalogService) fetch(ctx context.Context, direction, date string) ([]models.FlightRecord, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, ErrInvalidDate
	}

	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx, direction, date); err == nil && cached != nil {
			return cached, nil
		}
	}

	url := fmt.Sprintf("%s/flights/%s/%s", s.baseURL, direction, date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"direction": direction,
			"date":      date,
		}).Error("Flight catalog request failed")
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.WithFields(logrus.Fields{
			"direction": direction,
			"date":      date,
			"status":    resp.StatusCode,
		}).Error("Flight catalog returned unexpected status")
		return nil, fmt.Errorf("%w: status %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	var dtos []flightDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrCatalogUnavailable, err)
	}

	flights := make([]models.FlightRecord, 0, len(dtos))
	for _, dto := range dtos {
		flights = append(flights, dto.toRecord(direction))
	}

	if s.cache != nil {
		_ = s.cache.SetFlights(ctx, direction, date, flights)
	}

	s.logger.WithFields(logrus.Fields{
		"direction": direction,
		"date":      date,
		"count":     len(flights),
	}).Info("Flight catalog fetched")

	return flights, nil
}

// toRecord folds the wire variants into a FlightRecord. Departures get a
// capacity descriptor; arrivals do not.
func (dto flightDTO) toRecord(direction string) models.FlightRecord {
	record := models.FlightRecord{
		Time:            dto.Time,
		DepartureTime:   dto.DepartureTime,
		AirlineCode:     dto.AirlineCode,
		AirlineName:     dto.AirlineName,
		DestinationCode: dto.DestinationCode,
		DestinationName: dto.DestinationName,
		OriginCode:      dto.OriginCode,
		OriginName:      dto.OriginName,
		FlightNumber:    dto.FlightNumber,
	}

	if direction != DirectionDepartures {
		return record
	}

	capacity := &models.CapacityDescriptor{Tier: 1}

	switch {
	case dto.CapacityTier != nil:
		capacity.Tier = *dto.CapacityTier
	case dto.IsCallUsOnly != nil && *dto.IsCallUsOnly:
		capacity.Tier = 0
	}

	switch {
	case dto.EarlySlotsAvailable != nil:
		capacity.EarlyRemaining = *dto.EarlySlotsAvailable
	case dto.IsSlot1Booked != nil:
		if !*dto.IsSlot1Booked {
			capacity.EarlyRemaining = 1
		}
	}

	switch {
	case dto.LateSlotsAvailable != nil:
		capacity.LateRemaining = *dto.LateSlotsAvailable
	case dto.IsSlot2Booked != nil:
		if !*dto.IsSlot2Booked {
			capacity.LateRemaining = 1
		}
	}

	if dto.AllSlotsBooked != nil {
		capacity.AllSlotsBooked = *dto.AllSlotsBooked
		capacity.AllSlotsBookedSet = true
	}

	if dto.EarlySlotIsLast != nil {
		capacity.EarlyIsLast = *dto.EarlySlotIsLast
	}
	if dto.LateSlotIsLast != nil {
		capacity.LateIsLast = *dto.LateSlotIsLast
	} else if dto.EarlySlotIsLast == nil {
		// No markers in the feed: the late window is the last hand-over
		// opportunity of the day.
		capacity.LateIsLast = true
	}

	record.Capacity = capacity
	return record
}

// AirlineNames returns the distinct normalized airline names present in a
// set of flights, sorted for stable display.
func AirlineNames(flights []models.FlightRecord) []string {
	seen := map[string]bool{}
	var names []string
	for _, f := range flights {
		name := models.NormalizeAirline(f.AirlineName)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FlightsForAirline filters flights to one normalized airline name.
func FlightsForAirline(flights []models.FlightRecord, airline string) []models.FlightRecord {
	normalized := models.NormalizeAirline(airline)
	var matched []models.FlightRecord
	for _, f := range flights {
		if models.NormalizeAirline(f.AirlineName) == normalized {
			matched = append(matched, f)
		}
	}
	return matched
}

// FindByKey resolves a stored flight key against fresh catalog data. Returns
// nil when the key no longer matches any flight.
func FindByKey(flights []models.FlightRecord, key string) *models.FlightRecord {
	if key == "" {
		return nil
	}
	for i := range flights {
		if flights[i].Key() == key {
			return &flights[i]
		}
	}
	return nil
}
