package models

// ============================================================================
// BOOKING DRAFT & FIELD DEPENDENCY GRAPH
// ============================================================================

// DraftField identifies one mutable field of the BookingDraft for dependency
// tracking. Only fields that participate in the invalidation graph need a
// DraftField value.
type DraftField string

const (
	FieldDropoffDate    DraftField = "dropoff_date"
	FieldDropoffAirline DraftField = "dropoff_airline"
	FieldDropoffFlight  DraftField = "dropoff_flight"
	FieldDropoffSlot    DraftField = "dropoff_slot"
	FieldPickupDate     DraftField = "pickup_date"
	FieldReturnFlight   DraftField = "return_flight"
	FieldPackage        DraftField = "package"
)

// fieldDependents is the directed dependency graph over draft fields. An edge
// A -> B means B is derived from (or only valid in the context of) A, so any
// change to A must clear B and everything reachable from B.
var fieldDependents = map[DraftField][]DraftField{
	FieldDropoffDate:    {FieldDropoffAirline, FieldPackage},
	FieldDropoffAirline: {FieldDropoffFlight},
	FieldDropoffFlight:  {FieldDropoffSlot},
	FieldPickupDate:     {FieldReturnFlight, FieldPackage},
}

// DependentsOf returns the direct dependents of a draft field.
func DependentsOf(field DraftField) []DraftField {
	return fieldDependents[field]
}

// BookingDraft is the single mutable aggregate for one in-progress booking.
// It is persisted as JSON on every mutation and rehydrated on session resume.
type BookingDraft struct {
	// Identity
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	// Vehicle. Make/Model accept an "Other" catalog value with a free-text
	// override carried in MakeOther/ModelOther.
	Registration string `json:"registration"`
	Make         string `json:"make"`
	MakeOther    string `json:"make_other"`
	Model        string `json:"model"`
	ModelOther   string `json:"model_other"`
	Colour       string `json:"colour"`

	// Trip. Dates are ISO (YYYY-MM-DD); flight references are keys, not
	// embedded records, and are re-resolved against fresh catalog data.
	DropoffDate      string `json:"dropoff_date"`
	DropoffAirline   string `json:"dropoff_airline"`
	DropoffFlightKey string `json:"dropoff_flight_key"`
	DropoffSlotID    string `json:"dropoff_slot_id"`
	PickupDate       string `json:"pickup_date"`
	ReturnFlightKey  string `json:"return_flight_key"`

	// Package id ("quick" | "longer"), written back by the pricing quote.
	PackageID string `json:"package_id"`

	// Billing address
	BillingLine1    string `json:"billing_line1"`
	BillingLine2    string `json:"billing_line2"`
	BillingCity     string `json:"billing_city"`
	BillingCounty   string `json:"billing_county"`
	BillingPostcode string `json:"billing_postcode"`
	BillingCountry  string `json:"billing_country"`

	TermsAccepted bool `json:"terms_accepted"`
}

// ClearField zeroes a single dependency-tracked field.
func (d *BookingDraft) ClearField(field DraftField) {
	switch field {
	case FieldDropoffDate:
		d.DropoffDate = ""
	case FieldDropoffAirline:
		d.DropoffAirline = ""
	case FieldDropoffFlight:
		d.DropoffFlightKey = ""
	case FieldDropoffSlot:
		d.DropoffSlotID = ""
	case FieldPickupDate:
		d.PickupDate = ""
	case FieldReturnFlight:
		d.ReturnFlightKey = ""
	case FieldPackage:
		d.PackageID = ""
	}
}

// Invalidate clears every field transitively derived from the changed field
// and returns the list of cleared fields in traversal order. The changed
// field itself keeps its new value.
func (d *BookingDraft) Invalidate(changed DraftField) []DraftField {
	var cleared []DraftField

	queue := append([]DraftField(nil), fieldDependents[changed]...)
	seen := map[DraftField]bool{}

	for len(queue) > 0 {
		field := queue[0]
		queue = queue[1:]
		if seen[field] {
			continue
		}
		seen[field] = true

		d.ClearField(field)
		cleared = append(cleared, field)
		queue = append(queue, fieldDependents[field]...)
	}

	return cleared
}

// MakeResolved reports whether the vehicle make is usable: either a catalog
// value, or the "Other" sentinel with a non-empty free-text override.
func (d *BookingDraft) MakeResolved() bool {
	if d.Make == "" {
		return false
	}
	if d.Make == OtherVehicleOption {
		return d.MakeOther != ""
	}
	return true
}

// ModelResolved mirrors MakeResolved for the vehicle model.
func (d *BookingDraft) ModelResolved() bool {
	if d.Model == "" {
		return false
	}
	if d.Model == OtherVehicleOption {
		return d.ModelOther != ""
	}
	return true
}

// ResolvedMake returns the effective make value for persistence.
func (d *BookingDraft) ResolvedMake() string {
	if d.Make == OtherVehicleOption {
		return d.MakeOther
	}
	return d.Make
}

// ResolvedModel returns the effective model value for persistence.
func (d *BookingDraft) ResolvedModel() string {
	if d.Model == OtherVehicleOption {
		return d.ModelOther
	}
	return d.Model
}

// BillingComplete reports whether the billing address has the minimum set of
// fields required before payment (line 1, city, postcode, country).
func (d *BookingDraft) BillingComplete() bool {
	return d.BillingLine1 != "" && d.BillingCity != "" &&
		d.BillingPostcode != "" && d.BillingCountry != ""
}

// OtherVehicleOption is the catalog sentinel that enables the free-text
// make/model overrides.
const OtherVehicleOption = "Other"

// DraftUpdate carries a partial draft mutation. Nil pointers are untouched
// fields; set pointers are applied in declaration order with dependency
// invalidation for the tracked trip fields.
type DraftUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`

	Registration *string `json:"registration"`
	Make         *string `json:"make"`
	MakeOther    *string `json:"make_other"`
	Model        *string `json:"model"`
	ModelOther   *string `json:"model_other"`
	Colour       *string `json:"colour"`

	DropoffDate      *string `json:"dropoff_date"`
	DropoffAirline   *string `json:"dropoff_airline"`
	DropoffFlightKey *string `json:"dropoff_flight_key"`
	DropoffSlotID    *string `json:"dropoff_slot_id"`
	PickupDate       *string `json:"pickup_date"`
	ReturnFlightKey  *string `json:"return_flight_key"`

	BillingLine1    *string `json:"billing_line1"`
	BillingLine2    *string `json:"billing_line2"`
	BillingCity     *string `json:"billing_city"`
	BillingCounty   *string `json:"billing_county"`
	BillingPostcode *string `json:"billing_postcode"`
	BillingCountry  *string `json:"billing_country"`

	TermsAccepted *bool `json:"terms_accepted"`
}
