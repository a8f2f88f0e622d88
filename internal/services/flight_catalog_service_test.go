package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkandgreet/booking-backend/internal/config"
)

func newCatalogService(baseURL string) *FlightCatalogService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewFlightCatalogService(config.ServicesConfig{
		FlightsURL: baseURL,
		Timeout:    2 * time.Second,
	}, nil, logger)
}

func catalogServer(t *testing.T, flights interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(flights)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCatalogFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("Tier And Count Variant", func(t *testing.T) {
		server := catalogServer(t, []map[string]interface{}{
			{
				"time":                  "08:30",
				"flightNumber":          "LS801",
				"airlineName":           "Jet2",
				"airlineCode":           "LS",
				"destinationCode":       "ALC",
				"capacity_tier":         2,
				"early_slots_available": 3,
				"late_slots_available":  0,
				"late_slot_is_last":     true,
			},
		})
		service := newCatalogService(server.URL)

		flights, err := service.Departures(ctx, "2026-03-10")
		require.NoError(t, err)
		require.Len(t, flights, 1)

		flight := flights[0]
		assert.Equal(t, "LS801@08:30", flight.Key())
		require.NotNil(t, flight.Capacity)
		assert.Equal(t, 2, flight.Capacity.Tier)
		assert.Equal(t, 3, flight.Capacity.EarlyRemaining)
		assert.Equal(t, 0, flight.Capacity.LateRemaining)
		assert.True(t, flight.Capacity.LateIsLast)
	})

	t.Run("Boolean Flag Variant", func(t *testing.T) {
		server := catalogServer(t, []map[string]interface{}{
			{
				"time":            "14:00",
				"flightNumber":    "LS803",
				"airlineName":     "Jet2",
				"is_slot_1_booked": true,
				"is_slot_2_booked": false,
				"all_slots_booked": false,
			},
		})
		service := newCatalogService(server.URL)

		flights, err := service.Departures(ctx, "2026-03-10")
		require.NoError(t, err)
		require.Len(t, flights, 1)

		capacity := flights[0].Capacity
		require.NotNil(t, capacity)
		assert.Equal(t, 1, capacity.Tier, "flag feeds without a tier default to bookable")
		assert.Equal(t, 0, capacity.EarlyRemaining)
		assert.Equal(t, 1, capacity.LateRemaining, "an unbooked flag is a single remaining spot")
		assert.True(t, capacity.AllSlotsBookedSet)
		assert.False(t, capacity.AllSlotsBooked)
	})

	t.Run("Call Us Flag Maps To Tier Zero", func(t *testing.T) {
		server := catalogServer(t, []map[string]interface{}{
			{"time": "14:00", "flightNumber": "LS803", "is_call_us_only": true},
		})
		service := newCatalogService(server.URL)

		flights, err := service.Departures(ctx, "2026-03-10")
		require.NoError(t, err)
		require.Len(t, flights, 1)
		assert.Equal(t, 0, flights[0].Capacity.Tier)
	})

	t.Run("Arrivals Carry No Capacity", func(t *testing.T) {
		server := catalogServer(t, []map[string]interface{}{
			{"time": "21:00", "flightNumber": "LS802", "airlineName": "Jet2", "originCode": "ALC", "capacity_tier": 2},
		})
		service := newCatalogService(server.URL)

		flights, err := service.Arrivals(ctx, "2026-03-10")
		require.NoError(t, err)
		require.Len(t, flights, 1)
		assert.Nil(t, flights[0].Capacity)
	})

	t.Run("Malformed Date Is Rejected Locally", func(t *testing.T) {
		service := newCatalogService("http://127.0.0.1:1")

		_, err := service.Departures(ctx, "10/03/2026")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("Upstream Error Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(server.Close)
		service := newCatalogService(server.URL)

		_, err := service.Departures(ctx, "2026-03-10")
		assert.ErrorIs(t, err, ErrCatalogUnavailable)
	})

	t.Run("Requested Path", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			fmt.Fprint(w, "[]")
		}))
		t.Cleanup(server.Close)
		service := newCatalogService(server.URL)

		_, err := service.Departures(ctx, "2026-03-10")
		require.NoError(t, err)
		assert.Equal(t, "/flights/departures/2026-03-10", gotPath)
	})
}

func TestAirlineHelpers(t *testing.T) {
	server := catalogServer(t, []map[string]interface{}{
		{"time": "06:10", "flightNumber": "FR1882", "airlineName": "Ryanair UK", "capacity_tier": 1},
		{"time": "08:30", "flightNumber": "LS801", "airlineName": "Jet2", "capacity_tier": 1},
		{"time": "09:45", "flightNumber": "FR212", "airlineName": "Ryanair", "capacity_tier": 1},
	})
	service := newCatalogService(server.URL)

	flights, err := service.Departures(context.Background(), "2026-03-10")
	require.NoError(t, err)

	t.Run("Names Are Normalized And Distinct", func(t *testing.T) {
		assert.Equal(t, []string{"Jet2", "Ryanair"}, AirlineNames(flights))
	})

	t.Run("Filter Spans Aliases", func(t *testing.T) {
		ryanair := FlightsForAirline(flights, "Ryanair")
		require.Len(t, ryanair, 2, "the UK-branded service belongs to the same airline")
	})

	t.Run("Find By Key", func(t *testing.T) {
		flight := FindByKey(flights, "LS801@08:30")
		require.NotNil(t, flight)
		assert.Equal(t, "Jet2", flight.AirlineName)

		assert.Nil(t, FindByKey(flights, "LS801@09:30"))
		assert.Nil(t, FindByKey(flights, ""))
	})
}
