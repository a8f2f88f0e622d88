package services

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkandgreet/booking-backend/internal/config"
	"github.com/parkandgreet/booking-backend/internal/models"
)

func newAvailabilityService() *AvailabilityService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewAvailabilityService(nil, config.BookingConfig{FacilityDailyCapacity: 120}, logger)
}

func TestResolve(t *testing.T) {
	service := newAvailabilityService()

	t.Run("Tier Zero Is Contact Only", func(t *testing.T) {
		availability := service.Resolve(&models.FlightRecord{
			Time:     "08:30",
			Capacity: &models.CapacityDescriptor{Tier: 0},
		})

		assert.True(t, availability.ContactOnly)
		assert.False(t, availability.FullyBooked, "contact-only short-circuits the booked state")
		assert.Empty(t, availability.Slots)
	})

	t.Run("Both Windows Open", func(t *testing.T) {
		availability := service.Resolve(&models.FlightRecord{
			Time: "08:30",
			Capacity: &models.CapacityDescriptor{
				Tier:           2,
				EarlyRemaining: 3,
				LateRemaining:  1,
				LateIsLast:     true,
			},
		})

		assert.False(t, availability.ContactOnly)
		assert.False(t, availability.FullyBooked)
		require.Len(t, availability.Slots, 2)

		assert.Equal(t, EarlySlotID, availability.Slots[0].ID)
		assert.Equal(t, "05:45", availability.Slots[0].Time)
		assert.Equal(t, 3, availability.Slots[0].Remaining)
		assert.False(t, availability.Slots[0].LastSlot)

		assert.Equal(t, LateSlotID, availability.Slots[1].ID)
		assert.Equal(t, "06:30", availability.Slots[1].Time)
		assert.True(t, availability.Slots[1].LastSlot)
	})

	t.Run("Exhausted Window Is Omitted", func(t *testing.T) {
		availability := service.Resolve(&models.FlightRecord{
			Time: "14:00",
			Capacity: &models.CapacityDescriptor{
				Tier:           1,
				EarlyRemaining: 0,
				LateRemaining:  2,
			},
		})

		require.Len(t, availability.Slots, 1)
		assert.Equal(t, LateSlotID, availability.Slots[0].ID)
		assert.False(t, availability.FullyBooked)
	})

	t.Run("Fully Booked From Aggregate Flag", func(t *testing.T) {
		availability := service.Resolve(&models.FlightRecord{
			Time: "14:00",
			Capacity: &models.CapacityDescriptor{
				Tier:              1,
				EarlyRemaining:    1,
				AllSlotsBooked:    true,
				AllSlotsBookedSet: true,
			},
		})

		// The upstream flag wins even while a window still reports spots
		assert.True(t, availability.FullyBooked)
	})

	t.Run("Fully Booked Derived From Counts", func(t *testing.T) {
		availability := service.Resolve(&models.FlightRecord{
			Time:     "14:00",
			Capacity: &models.CapacityDescriptor{Tier: 1},
		})

		assert.True(t, availability.FullyBooked)
		assert.Empty(t, availability.Slots)
	})

	t.Run("Missing Capacity Defaults To Bookable Tier", func(t *testing.T) {
		availability := service.Resolve(&models.FlightRecord{Time: "14:00"})

		assert.False(t, availability.ContactOnly)
	})
}

func TestSlotTime(t *testing.T) {
	tests := []struct {
		name      string
		departure string
		offset    int
		expected  string
	}{
		{"Morning Early Window", "08:30", EarlySlotOffsetMinutes, "05:45"},
		{"Morning Late Window", "08:30", LateSlotOffsetMinutes, "06:30"},
		{"Midnight Wrap", "00:30", EarlySlotOffsetMinutes, "21:45"},
		{"Exact Midnight Result", "02:00", LateSlotOffsetMinutes, "00:00"},
		{"Just After Midnight", "01:00", LateSlotOffsetMinutes, "23:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := SlotTime(tt.departure, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}

	t.Run("Invalid Time", func(t *testing.T) {
		_, err := SlotTime("25:99", EarlySlotOffsetMinutes)
		assert.Error(t, err)
	})
}

func TestCheckDateRange(t *testing.T) {
	ctx := context.Background()
	service := newAvailabilityService()

	t.Run("No Counter Source Means Available", func(t *testing.T) {
		ok, err := service.CheckDateRange(ctx, "2026-03-10", "2026-03-17")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Day At The Ceiling Is Unavailable", func(t *testing.T) {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		full := NewAvailabilityService(nil, config.BookingConfig{FacilityDailyCapacity: 0}, logger)

		ok, err := full.CheckDateRange(ctx, "2026-03-10", "2026-03-17")
		require.NoError(t, err)
		assert.False(t, ok, "a booked count at the ceiling must close the whole range")
	})

	t.Run("Inverted Range Is Unavailable", func(t *testing.T) {
		ok, err := service.CheckDateRange(ctx, "2026-03-17", "2026-03-10")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Malformed Date", func(t *testing.T) {
		_, err := service.CheckDateRange(ctx, "10/03/2026", "2026-03-17")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})
}
