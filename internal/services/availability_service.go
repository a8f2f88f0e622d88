package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/cache"
	"github.com/parkandgreet/booking-backend/internal/config"
	"github.com/parkandgreet/booking-backend/internal/models"
)

// Hand-over windows, in minutes before the outbound departure.
const (
	EarlySlotOffsetMinutes = 165
	LateSlotOffsetMinutes  = 120

	EarlySlotID = "early"
	LateSlotID  = "late"

	EarlySlotLabel = "2¾ hours before"
	LateSlotLabel  = "2 hours before"
)

// AvailabilityService derives bookable hand-over slots for an outbound
// flight and performs the whole-range facility capacity check.
type AvailabilityService struct {
	cache  *cache.RedisCache
	cfg    config.BookingConfig
	logger *logrus.Logger
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(redisCache *cache.RedisCache, cfg config.BookingConfig, logger *logrus.Logger) *AvailabilityService {
	return &AvailabilityService{
		cache:  redisCache,
		cfg:    cfg,
		logger: logger,
	}
}

// Resolve computes the availability verdict for one outbound flight.
//
// Tier 0 means online booking is disabled: the slot list is empty and the
// fully-booked state is not evaluated, the customer has to call. Otherwise a
// slot is offered only while its remaining count is positive, and the flight
// is fully booked when the upstream aggregate flag says so (or, when the
// feed omitted the flag, when both windows are exhausted).
func (s *AvailabilityService) Resolve(flight *models.FlightRecord) models.FlightAvailability {
	capacity := flight.Capacity
	if capacity == nil {
		capacity = &models.CapacityDescriptor{Tier: 1}
	}

	if capacity.Tier == 0 {
		return models.FlightAvailability{ContactOnly: true}
	}

	availability := models.FlightAvailability{}

	if capacity.AllSlotsBookedSet {
		availability.FullyBooked = capacity.AllSlotsBooked
	} else {
		availability.FullyBooked = capacity.EarlyRemaining <= 0 && capacity.LateRemaining <= 0
	}

	if capacity.EarlyRemaining > 0 {
		if slotTime, err := SlotTime(flight.Time, EarlySlotOffsetMinutes); err == nil {
			availability.Slots = append(availability.Slots, models.DropoffSlot{
				ID:        EarlySlotID,
				Label:     EarlySlotLabel,
				Time:      slotTime,
				Remaining: capacity.EarlyRemaining,
				LastSlot:  capacity.EarlyIsLast,
			})
		}
	}

	if capacity.LateRemaining > 0 {
		if slotTime, err := SlotTime(flight.Time, LateSlotOffsetMinutes); err == nil {
			availability.Slots = append(availability.Slots, models.DropoffSlot{
				ID:        LateSlotID,
				Label:     LateSlotLabel,
				Time:      slotTime,
				Remaining: capacity.LateRemaining,
				LastSlot:  capacity.LateIsLast,
			})
		}
	}

	return availability
}

// SlotTime subtracts an offset from a HH:MM departure time. A result before
// midnight wraps to the previous day's clock value: a 00:30 departure with
// the early offset yields 21:45.
func SlotTime(departure string, offsetMinutes int) (string, error) {
	parsed, err := time.Parse("15:04", departure)
	if err != nil {
		return "", fmt.Errorf("invalid departure time %q: %w", departure, err)
	}

	minuteOfDay := parsed.Hour()*60 + parsed.Minute() - offsetMinutes
	if minuteOfDay < 0 {
		minuteOfDay += 24 * 60
	}

	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60), nil
}

// CheckDateRange reports whether every calendar day between drop-off and
// pick-up (inclusive) still has facility capacity. The per-day booked-spots
// counters are maintained externally; any day at or over the ceiling makes
// the whole range unavailable.
//
// This is a client-side approximation pending real-time booking counts from
// the backend.
func (s *AvailabilityService) CheckDateRange(ctx context.Context, dropoffDate, pickupDate string) (bool, error) {
	from, err := time.Parse("2006-01-02", dropoffDate)
	if err != nil {
		return false, ErrInvalidDate
	}
	to, err := time.Parse("2006-01-02", pickupDate)
	if err != nil {
		return false, ErrInvalidDate
	}
	if to.Before(from) {
		return false, nil
	}

	var dates []string
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		dates = append(dates, day.Format("2006-01-02"))
	}

	counters := map[string]int{}
	if s.cache != nil {
		counters, err = s.cache.DayCounters(ctx, dates)
		if err != nil {
			return false, err
		}
	}

	for _, date := range dates {
		if counters[date] >= s.cfg.FacilityDailyCapacity {
			s.logger.WithFields(logrus.Fields{
				"date":     date,
				"booked":   counters[date],
				"capacity": s.cfg.FacilityDailyCapacity,
			}).Info("Date range unavailable, day at facility capacity")
			return false, nil
		}
	}

	return true, nil
}
