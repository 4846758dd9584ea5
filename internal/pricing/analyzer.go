package pricing

import (
	"math"
	"strings"

	"g2a_repricer/internal/g2a"

	"github.com/rs/zerolog/log"
)

// AnalysisResult identifies the reference competitor for a row plus the audit
// data the log note reports.
type AnalysisResult struct {
	CompetitorName   string
	CompetitivePrice *float64 // nil means no usable competitor found

	// AllOffers is the unfiltered offer set, kept for audit logging.
	AllOffers []g2a.Offer
	// BelowFloor holds every offer priced strictly under the configured
	// floor, including blacklisted sellers. It stays empty when the
	// blacklist removes every offer.
	BelowFloor []g2a.Offer
}

// Analyze filters blacklisted sellers and selects the cheapest remaining
// offer as the reference. Ties keep the first-encountered offer.
func Analyze(cfg *RowConfig, offers []g2a.Offer) AnalysisResult {
	filtered := make([]g2a.Offer, 0, len(offers))
	for _, offer := range offers {
		if isBlacklisted(cfg.Blacklist, offer.SellerName()) {
			continue
		}
		filtered = append(filtered, offer)
	}

	result := AnalysisResult{AllOffers: offers}

	if len(filtered) == 0 {
		log.Warn().
			Str("product", cfg.ProductName).
			Int("offers", len(offers)).
			Msg("No valid offers left after blacklist filtering")
		return result
	}

	// Collected over the unfiltered set so underpricing sellers are flagged
	// regardless of blacklist status.
	if cfg.Floor != nil {
		for _, offer := range offers {
			if offer.PriceValue() < *cfg.Floor {
				result.BelowFloor = append(result.BelowFloor, offer)
			}
		}
	}

	lowest := filtered[0]
	for _, offer := range filtered[1:] {
		if offer.PriceValue() < lowest.PriceValue() {
			lowest = offer
		}
	}

	// A set of purely unparseable prices yields no reference either.
	if math.IsInf(lowest.PriceValue(), 1) {
		return result
	}

	price := lowest.PriceValue()
	result.CompetitorName = lowest.SellerName()
	result.CompetitivePrice = &price
	return result
}

func isBlacklisted(blacklist []string, sellerName string) bool {
	for _, entry := range blacklist {
		if strings.EqualFold(strings.TrimSpace(entry), sellerName) {
			return true
		}
	}
	return false
}
