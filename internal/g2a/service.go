package g2a

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"
)

// ListingDetails is the slice of an offer the decision engine consumes.
type ListingDetails struct {
	OfferID      string
	Type         string
	CurrentPrice float64
}

// Service wraps the raw client with the degradation semantics the row
// processor relies on.
type Service struct {
	client *Client
}

func NewService(client *Client) *Service {
	return &Service{client: client}
}

// APICallCount reports API calls made since the last reset.
func (s *Service) APICallCount() int64 {
	return s.client.GetAPICallCount()
}

func (s *Service) ResetAPICallCount() {
	s.client.ResetAPICallCount()
}

// FetchOffers returns the competing offers for a product. It never fails:
// any transport or parse error degrades to an empty list, which the engine
// treats as the defined no-competitor case.
func (s *Service) FetchOffers(ctx context.Context, productID, countryCode string) []Offer {
	offersResp, err := s.client.GetProductOffers(ctx, productID, countryCode)
	if err != nil {
		log.Warn().
			Err(err).
			Str("product_id", productID).
			Msg("Failed to fetch offers, treating as no competition data")
		return nil
	}
	return offersResp.Offers()
}

// GetListingDetails resolves the seller's own listing. Absence of data is a
// row-level abort for the caller.
func (s *Service) GetListingDetails(ctx context.Context, offerID string) (*ListingDetails, error) {
	details, err := s.client.GetOfferDetails(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get offer details for %s: %w", offerID, err)
	}
	return &ListingDetails{
		OfferID:      offerID,
		Type:         details.Type,
		CurrentPrice: details.CurrentPrice(),
	}, nil
}

// GetOfferType resolves just the offer type, for callers that do not need
// the full listing details. Served from the same cache.
func (s *Service) GetOfferType(ctx context.Context, offerID string) (string, error) {
	details, err := s.client.GetOfferDetails(ctx, offerID)
	if err != nil {
		return "", fmt.Errorf("failed to get offer type for %s: %w", offerID, err)
	}
	return details.Type, nil
}

// UpdateOfferPrice pushes a new retail price to the seller's offer.
// Dropshipping offers also carry the configured stock size.
func (s *Service) UpdateOfferPrice(ctx context.Context, offerID, offerType string, newPrice float64, stock *int) error {
	log.Debug().
		Str("offer_id", offerID).
		Str("offer_type", offerType).
		Float64("new_price", newPrice).
		Msg("Updating offer price")

	variant := UpdateOfferVariantPayload{
		Price: UpdatePricePayload{Retail: fmt.Sprintf("%.2f", newPrice)},
	}
	if offerType == "dropshipping" && stock != nil {
		variant.Inventory = &UpdateInventoryPayload{Size: *stock}
	}

	payload := UpdateOfferPayload{
		OfferType: offerType,
		Variant:   variant,
	}

	if err := s.client.PatchOffer(ctx, offerID, payload); err != nil {
		return fmt.Errorf("failed to update price for offer %s: %w", offerID, err)
	}

	log.Info().
		Str("offer_id", offerID).
		Float64("new_price", newPrice).
		Msg("Offer price updated")
	return nil
}

// SimulateTopOffers runs pricing simulations for the cheapest offers so the
// audit note can show post-commission income. Failures degrade to an empty
// result, never a row failure.
func (s *Service) SimulateTopOffers(ctx context.Context, productID string, offers []Offer, limit int) []PricingSimulation {
	if len(offers) == 0 {
		return nil
	}

	sorted := make([]Offer, len(offers))
	copy(sorted, offers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PriceValue() < sorted[j].PriceValue()
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	var simulations []PricingSimulation
	for _, offer := range sorted {
		if math.IsInf(offer.PriceValue(), 1) {
			continue
		}
		simulation, err := s.client.GetPricingSimulation(ctx, productID, offer.PriceValue())
		if err != nil {
			log.Debug().
				Err(err).
				Str("product_id", productID).
				Str("seller", offer.SellerName()).
				Msg("Pricing simulation failed, skipping offer")
			continue
		}
		simulations = append(simulations, *simulation)
	}
	return simulations
}
