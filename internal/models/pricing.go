package models

// Package ids resolved by the pricing service.
const (
	PackageQuick  = "quick"
	PackageLonger = "longer"
)

// PricingQuote is the lead-time-tiered price for a (drop-off, pick-up) date
// pair. Quotes are ephemeral: re-fetched on every date-pair change and never
// persisted. Field names match the pricing service response.
type PricingQuote struct {
	Price        float64 `json:"price"`
	PackageID    string  `json:"package"`
	PackageName  string  `json:"package_name"`
	DurationDays int     `json:"duration_days"`
	Week1Price   float64 `json:"week1_price"`
}

// PromoState is the validated promo code attached to the draft. It is sticky
// once validated: only an explicit user removal clears it.
type PromoState struct {
	Code            string `json:"code"`
	Valid           bool   `json:"valid"`
	DiscountPercent int    `json:"discount_percent"`
	Message         string `json:"message"`
}

// DiscountAmount computes the discount a promo takes off a quote. The
// percentage applies to the quoted price, except that a 100% discount on the
// longer package is capped at the one-week-equivalent component: a fully-free
// code on a two-week stay refunds one week, not the whole price.
func (p PromoState) DiscountAmount(quote PricingQuote) float64 {
	if !p.Valid || p.DiscountPercent <= 0 {
		return 0
	}

	if p.DiscountPercent >= 100 {
		if quote.PackageID == PackageLonger {
			return quote.Week1Price
		}
		return quote.Price
	}

	return quote.Price * float64(p.DiscountPercent) / 100
}

// Total applies a promo to a quote, clamped at zero.
func (p PromoState) Total(quote PricingQuote) float64 {
	total := quote.Price - p.DiscountAmount(quote)
	if total < 0 {
		return 0
	}
	return total
}
