package g2a

import (
	"math"
	"strconv"
)

type PriceInfo struct {
	CountryCode  string `json:"countryCode"`
	CurrencyCode string `json:"currencyCode"`
	Value        string `json:"value"`
}

type PriceDetail struct {
	Base  PriceInfo   `json:"base"`
	Final []PriceInfo `json:"final"`
}

type Price struct {
	Retail   PriceDetail  `json:"retail"`
	Business *PriceDetail `json:"business,omitempty"`
}

type SellerInfo struct {
	Name         string `json:"name"`
	Rating       int    `json:"rating"`
	RatingsCount int    `json:"ratingsCount"`
	Tier         string `json:"tier"`
}

type InventoryInfo struct {
	Range string `json:"range"`
}

type Offer struct {
	ID        string        `json:"id"`
	Price     Price         `json:"price"`
	Seller    SellerInfo    `json:"seller"`
	Inventory InventoryInfo `json:"inventory"`
}

// PriceValue extracts the final EUR retail price. Any missing or unparseable
// value yields +Inf so the offer can never win a minimum-price selection.
func (o Offer) PriceValue() float64 {
	for _, info := range o.Price.Retail.Final {
		if info.CurrencyCode != "EUR" {
			continue
		}
		value, err := strconv.ParseFloat(info.Value, 64)
		if err != nil {
			return math.Inf(1)
		}
		return value
	}
	return math.Inf(1)
}

func (o Offer) SellerName() string {
	if o.Seller.Name == "" {
		return "Unknown Seller"
	}
	return o.Seller.Name
}

type MetaInfo struct {
	Page         int `json:"page"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalResults int `json:"totalResults"`
}

type OffersResponse struct {
	Data []Offer   `json:"data"`
	Meta *MetaInfo `json:"meta,omitempty"`
}

func (r *OffersResponse) Offers() []Offer {
	if r == nil {
		return nil
	}
	return r.Data
}

// OfferDetails describes the seller's own listing as returned by the offer
// details endpoint. Only the fields the repricer consumes are mapped.
type OfferDetails struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Variant struct {
		Price struct {
			Retail string `json:"retail"`
		} `json:"price"`
		Inventory struct {
			Size int `json:"size"`
		} `json:"inventory"`
	} `json:"variant"`
}

// CurrentPrice parses the retail price of the listing; +Inf when unusable.
func (d *OfferDetails) CurrentPrice() float64 {
	value, err := strconv.ParseFloat(d.Variant.Price.Retail, 64)
	if err != nil {
		return math.Inf(1)
	}
	return value
}

type OfferDetailsResponse struct {
	Data *OfferDetails `json:"data"`
}

// Update payloads for PATCH /v3/sales/offers/{id}.

type UpdatePricePayload struct {
	Retail string `json:"retail"`
}

type UpdateInventoryPayload struct {
	Size int `json:"size"`
}

type UpdateOfferVariantPayload struct {
	Price     UpdatePricePayload      `json:"price"`
	Inventory *UpdateInventoryPayload `json:"inventory,omitempty"`
}

type UpdateOfferPayload struct {
	OfferType string                    `json:"offerType"`
	Variant   UpdateOfferVariantPayload `json:"variant"`
}

type PricingSimulation struct {
	Income     map[string]string `json:"income"`
	FinalPrice map[string]string `json:"finalePrice"`
}
