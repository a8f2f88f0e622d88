package models

import "strings"

// ============================================================================
// FLIGHT RECORDS & CAPACITY
// ============================================================================

// CapacityDescriptor is the normalized online-booking capacity for one
// outbound flight. The upstream feed transmits this in two field variants
// (tier/remaining counts vs. boolean booked flags); the catalog client folds
// both into this shape at decode time.
type CapacityDescriptor struct {
	// Tier 0 means online booking is disabled for the flight ("call us only").
	Tier int `json:"tier"`

	// Remaining hand-over capacity per slot window.
	EarlyRemaining int `json:"early_remaining"`
	LateRemaining  int `json:"late_remaining"`

	// AllSlotsBooked is the upstream aggregate flag; AllSlotsBookedSet records
	// whether the feed actually sent it, so the resolver knows when to derive
	// the value from the per-slot counts instead.
	AllSlotsBooked    bool `json:"all_slots_booked"`
	AllSlotsBookedSet bool `json:"all_slots_booked_set"`

	// Per-slot "last slot of the day" markers.
	EarlyIsLast bool `json:"early_is_last"`
	LateIsLast  bool `json:"late_is_last"`
}

// FlightRecord represents one scheduled flight on one date, outbound
// (departure) or return (arrival). Records are owned by the catalog query
// that produced them and are never persisted; the draft references them by
// key only.
type FlightRecord struct {
	Time          string `json:"time"`                    // scheduled local time HH:MM
	DepartureTime string `json:"departureTime,omitempty"` // arrivals: origin departure time

	AirlineCode string `json:"airlineCode"`
	AirlineName string `json:"airlineName"`

	DestinationCode string `json:"destinationCode,omitempty"`
	DestinationName string `json:"destinationName,omitempty"`
	OriginCode      string `json:"originCode,omitempty"`
	OriginName      string `json:"originName,omitempty"`

	FlightNumber string `json:"flightNumber"`

	// Capacity is present on outbound records only.
	Capacity *CapacityDescriptor `json:"capacity,omitempty"`
}

// Key returns the stable reference key the draft stores for a flight
// selection. Flight number alone is not unique across a day's schedule, so
// the scheduled time is folded in.
func (f *FlightRecord) Key() string {
	return f.FlightNumber + "@" + f.Time
}

// airlineAliases collapses known sub-brand display names to their parent
// brand before any airline comparison.
var airlineAliases = map[string]string{
	"Ryanair UK": "Ryanair",
}

// NormalizeAirline folds an airline display name through the alias table.
// Comparison of airlines anywhere in the wizard must go through this.
func NormalizeAirline(name string) string {
	trimmed := strings.TrimSpace(name)
	if canonical, ok := airlineAliases[trimmed]; ok {
		return canonical
	}
	return trimmed
}

// DropoffSlot is a named hand-over window offset before an outbound flight's
// departure. Slots are computed per flight selection, never transmitted by
// the server as such.
type DropoffSlot struct {
	ID        string `json:"id"`    // "early" | "late"
	Label     string `json:"label"` // e.g. "2¾ hours before"
	Time      string `json:"time"`  // HH:MM, wrapped past midnight
	Remaining int    `json:"remaining"`
	LastSlot  bool   `json:"last_slot"`
}

// FlightAvailability is the resolver's verdict for one outbound flight.
type FlightAvailability struct {
	ContactOnly bool          `json:"contact_only"`
	FullyBooked bool          `json:"fully_booked"`
	Slots       []DropoffSlot `json:"slots"`
}

// ReturnMatch is the matcher's single best return candidate for an outbound
// flight, plus the overnight-arrival display hint.
type ReturnMatch struct {
	Flight FlightRecord `json:"flight"`

	// Overnight is true when a late outbound departure pairs with an
	// early-hours arrival; it shifts the displayed pick-up date by one day
	// but never the stored date field.
	Overnight bool `json:"overnight"`
}
