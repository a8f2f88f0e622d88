package services

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkandgreet/booking-backend/internal/models"
)

func newReturnMatcher() *ReturnMatcherService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewReturnMatcherService(logger)
}

func arrival(number, airline, origin, at string) models.FlightRecord {
	return models.FlightRecord{
		FlightNumber: number,
		AirlineName:  airline,
		OriginCode:   origin,
		Time:         at,
	}
}

func TestBestMatch(t *testing.T) {
	matcher := newReturnMatcher()

	outbound := &models.FlightRecord{
		FlightNumber:    "FR8888",
		AirlineName:     "Ryanair",
		DestinationCode: "FAO",
		Time:            "07:10",
	}

	t.Run("Closest Flight Number Wins", func(t *testing.T) {
		match := matcher.BestMatch(outbound, []models.FlightRecord{
			arrival("FR8880", "Ryanair", "FAO", "09:00"),
			arrival("FR8889", "Ryanair", "FAO", "12:30"),
			arrival("FR8900", "Ryanair", "FAO", "10:15"),
		})

		require.NotNil(t, match)
		assert.Equal(t, "FR8889", match.Flight.FlightNumber)
	})

	t.Run("Airline Alias Matches", func(t *testing.T) {
		// The departures feed labels some services "Ryanair UK"; they are
		// the same carrier for matching purposes
		match := matcher.BestMatch(outbound, []models.FlightRecord{
			arrival("FR8889", "Ryanair UK", "FAO", "12:30"),
		})

		require.NotNil(t, match)
		assert.Equal(t, "FR8889", match.Flight.FlightNumber)
	})

	t.Run("Wrong Origin Is Filtered", func(t *testing.T) {
		match := matcher.BestMatch(outbound, []models.FlightRecord{
			arrival("FR8889", "Ryanair", "ALC", "12:30"),
		})

		assert.Nil(t, match)
	})

	t.Run("Wrong Airline Is Filtered", func(t *testing.T) {
		match := matcher.BestMatch(outbound, []models.FlightRecord{
			arrival("LS888", "Jet2", "FAO", "12:30"),
		})

		assert.Nil(t, match)
	})

	t.Run("Equal Distance Breaks On Earliest Time", func(t *testing.T) {
		match := matcher.BestMatch(outbound, []models.FlightRecord{
			arrival("FR8890", "Ryanair", "FAO", "18:00"),
			arrival("FR8886", "Ryanair", "FAO", "09:00"),
		})

		require.NotNil(t, match)
		assert.Equal(t, "FR8886", match.Flight.FlightNumber)
	})

	t.Run("Non Numeric Flight Number Sorts Last", func(t *testing.T) {
		match := matcher.BestMatch(outbound, []models.FlightRecord{
			arrival("FRCHARTER", "Ryanair", "FAO", "09:00"),
			arrival("FR8600", "Ryanair", "FAO", "18:00"),
		})

		require.NotNil(t, match)
		assert.Equal(t, "FR8600", match.Flight.FlightNumber)
	})

	t.Run("No Candidates", func(t *testing.T) {
		assert.Nil(t, matcher.BestMatch(outbound, nil))
		assert.Nil(t, matcher.BestMatch(nil, []models.FlightRecord{
			arrival("FR8889", "Ryanair", "FAO", "12:30"),
		}))
	})
}

func TestOvernightFlag(t *testing.T) {
	matcher := newReturnMatcher()

	lateOutbound := &models.FlightRecord{
		FlightNumber:    "FR8888",
		AirlineName:     "Ryanair",
		DestinationCode: "FAO",
		Time:            "19:30",
	}

	t.Run("Late Departure Early Arrival Is Overnight", func(t *testing.T) {
		match := matcher.BestMatch(lateOutbound, []models.FlightRecord{
			arrival("FR8889", "Ryanair", "FAO", "01:25"),
		})

		require.NotNil(t, match)
		assert.True(t, match.Overnight)
	})

	t.Run("Late Departure Daytime Arrival Is Not", func(t *testing.T) {
		match := matcher.BestMatch(lateOutbound, []models.FlightRecord{
			arrival("FR8889", "Ryanair", "FAO", "11:00"),
		})

		require.NotNil(t, match)
		assert.False(t, match.Overnight)
	})

	t.Run("Morning Departure Early Arrival Is Not", func(t *testing.T) {
		morning := &models.FlightRecord{
			FlightNumber:    "FR8888",
			AirlineName:     "Ryanair",
			DestinationCode: "FAO",
			Time:            "06:00",
		}
		match := matcher.BestMatch(morning, []models.FlightRecord{
			arrival("FR8889", "Ryanair", "FAO", "01:25"),
		})

		require.NotNil(t, match)
		assert.False(t, match.Overnight)
	})
}

func TestEffectivePickupDate(t *testing.T) {
	assert.Equal(t, "2026-03-17", EffectivePickupDate("2026-03-17", false))
	assert.Equal(t, "2026-03-18", EffectivePickupDate("2026-03-17", true))
	assert.Equal(t, "2026-04-01", EffectivePickupDate("2026-03-31", true), "shift honours month boundaries")
}

func TestNumericFlightNumber(t *testing.T) {
	tests := []struct {
		flightNumber string
		expected     int
	}{
		{"FR8888", 8888},
		{"LS801", 801},
		{"BA2 702", 2702},
		{"CHARTER", -1},
		{"", -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, numericFlightNumber(tt.flightNumber), tt.flightNumber)
	}
}
