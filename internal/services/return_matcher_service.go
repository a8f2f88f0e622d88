package services

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/models"
)

// An outbound leaving at or after this hour paired with an arrival before
// overnightArrivalHour lands after midnight, so the displayed pick-up date
// moves one day forward.
const (
	overnightDepartureHour = 18
	overnightArrivalHour   = 6
)

// ReturnMatcherService resolves the single best return flight for a chosen
// outbound flight. Airlines commonly pair an outbound and return service
// under adjacent flight numbers, so after filtering by airline and origin
// the candidate with the closest numeric flight number wins.
type ReturnMatcherService struct {
	logger *logrus.Logger
}

// NewReturnMatcherService creates a new return flight matcher
func NewReturnMatcherService(logger *logrus.Logger) *ReturnMatcherService {
	return &ReturnMatcherService{
		logger: logger,
	}
}

// BestMatch narrows the pick-up date's arrivals to flights operated by the
// outbound's normalized airline whose origin is the outbound's destination,
// then picks the candidate whose numeric flight number is closest to the
// outbound's. Returns nil when nothing matches.
//
// Equal-distance candidates are ordered by earliest scheduled time, then
// flight number, so the result is deterministic.
func (s *ReturnMatcherService) BestMatch(outbound *models.FlightRecord, arrivals []models.FlightRecord) *models.ReturnMatch {
	if outbound == nil {
		return nil
	}

	airline := models.NormalizeAirline(outbound.AirlineName)

	var candidates []models.FlightRecord
	for _, arrival := range arrivals {
		if models.NormalizeAirline(arrival.AirlineName) != airline {
			continue
		}
		if arrival.OriginCode != outbound.DestinationCode {
			continue
		}
		candidates = append(candidates, arrival)
	}

	if len(candidates) == 0 {
		return nil
	}

	if len(candidates) > 1 {
		outboundNumber := numericFlightNumber(outbound.FlightNumber)
		sort.SliceStable(candidates, func(i, j int) bool {
			di := flightNumberDistance(candidates[i].FlightNumber, outboundNumber)
			dj := flightNumberDistance(candidates[j].FlightNumber, outboundNumber)
			if di != dj {
				return di < dj
			}
			if candidates[i].Time != candidates[j].Time {
				return candidates[i].Time < candidates[j].Time
			}
			return candidates[i].FlightNumber < candidates[j].FlightNumber
		})

		s.logger.WithFields(logrus.Fields{
			"outbound":   outbound.FlightNumber,
			"candidates": len(candidates),
			"picked":     candidates[0].FlightNumber,
		}).Debug("Return flight resolved by flight number proximity")
	}

	best := candidates[0]
	return &models.ReturnMatch{
		Flight:    best,
		Overnight: isOvernight(outbound.Time, best.Time),
	}
}

// EffectivePickupDate shifts the displayed pick-up date one day forward for
// an overnight arrival. The stored date field is never changed.
func EffectivePickupDate(pickupDate string, overnight bool) string {
	if !overnight {
		return pickupDate
	}
	parsed, err := time.Parse("2006-01-02", pickupDate)
	if err != nil {
		return pickupDate
	}
	return parsed.AddDate(0, 0, 1).Format("2006-01-02")
}

// numericFlightNumber strips the carrier prefix (and any other non-digit
// characters) from a flight number. Returns -1 when no digits remain.
func numericFlightNumber(flightNumber string) int {
	var digits strings.Builder
	for _, r := range flightNumber {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return -1
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return -1
	}
	return n
}

func flightNumberDistance(flightNumber string, outboundNumber int) int {
	n := numericFlightNumber(flightNumber)
	if n < 0 || outboundNumber < 0 {
		return math.MaxInt
	}
	distance := n - outboundNumber
	if distance < 0 {
		distance = -distance
	}
	return distance
}

func isOvernight(outboundTime, arrivalTime string) bool {
	departure, err := time.Parse("15:04", outboundTime)
	if err != nil {
		return false
	}
	arrival, err := time.Parse("15:04", arrivalTime)
	if err != nil {
		return false
	}
	return departure.Hour() >= overnightDepartureHour && arrival.Hour() < overnightArrivalHour
}
