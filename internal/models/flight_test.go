package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAirline(t *testing.T) {
	assert.Equal(t, "Ryanair", NormalizeAirline("Ryanair UK"))
	assert.Equal(t, "Ryanair", NormalizeAirline("Ryanair"))
	assert.Equal(t, "Jet2", NormalizeAirline("Jet2"))
	assert.Equal(t, "", NormalizeAirline(""))
}

func TestFlightKey(t *testing.T) {
	flight := FlightRecord{FlightNumber: "LS801", Time: "08:30"}
	assert.Equal(t, "LS801@08:30", flight.Key())
}
