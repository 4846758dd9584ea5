package pricing

import (
	"testing"

	"g2a_repricer/internal/g2a"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offer(seller, eurValue string) g2a.Offer {
	return g2a.Offer{
		Seller: g2a.SellerInfo{Name: seller},
		Price: g2a.Price{
			Retail: g2a.PriceDetail{
				Final: []g2a.PriceInfo{{CurrencyCode: "EUR", Value: eurValue}},
			},
		},
	}
}

func TestAnalyzeSelectsLowestOffer(t *testing.T) {
	cfg := baseConfig()
	offers := []g2a.Offer{
		offer("A", "10.00"),
		offer("B", "9.50"),
		offer("C", "11.00"),
	}

	result := Analyze(cfg, offers)
	require.NotNil(t, result.CompetitivePrice)
	assert.Equal(t, "B", result.CompetitorName)
	assert.Equal(t, 9.50, *result.CompetitivePrice)
	assert.Len(t, result.AllOffers, 3)
}

func TestAnalyzeStableMinOnTies(t *testing.T) {
	cfg := baseConfig()
	offers := []g2a.Offer{
		offer("First", "9.50"),
		offer("Second", "9.50"),
	}

	result := Analyze(cfg, offers)
	assert.Equal(t, "First", result.CompetitorName)
}

func TestAnalyzeBlacklistIsCaseInsensitive(t *testing.T) {
	cfg := baseConfig()
	cfg.Blacklist = []string{"CheapSeller"}
	offers := []g2a.Offer{
		offer("cheapseller", "8.00"),
		offer("B", "9.50"),
	}

	result := Analyze(cfg, offers)
	require.NotNil(t, result.CompetitivePrice)
	assert.Equal(t, "B", result.CompetitorName)
	assert.Equal(t, 9.50, *result.CompetitivePrice)

	// The blacklisted seller still shows up in the audit data: it is below
	// the 9.00 floor and stays in the unfiltered offer list.
	require.Len(t, result.BelowFloor, 1)
	assert.Equal(t, "cheapseller", result.BelowFloor[0].SellerName())
	assert.Len(t, result.AllOffers, 2)
}

func TestAnalyzeAllBlacklistedYieldsEmptyResult(t *testing.T) {
	cfg := baseConfig()
	cfg.Blacklist = []string{"A", "B"}
	// Both sellers undercut the 9.00 floor, but with every offer
	// blacklisted the analysis carries no reference and no audit list.
	offers := []g2a.Offer{
		offer("A", "8.00"),
		offer("B", "8.50"),
	}

	result := Analyze(cfg, offers)
	assert.Nil(t, result.CompetitivePrice)
	assert.Empty(t, result.CompetitorName)
	assert.Len(t, result.AllOffers, 2)
	assert.Empty(t, result.BelowFloor)
}

func TestAnalyzeUnparseablePriceNeverSelected(t *testing.T) {
	cfg := baseConfig()
	offers := []g2a.Offer{
		offer("Broken", "not-a-price"),
		offer("B", "9.50"),
	}

	result := Analyze(cfg, offers)
	require.NotNil(t, result.CompetitivePrice)
	assert.Equal(t, "B", result.CompetitorName)
	// +Inf is never below the floor either.
	assert.Empty(t, result.BelowFloor)
}

func TestAnalyzeOnlyUnparseableOffersYieldsNoReference(t *testing.T) {
	cfg := baseConfig()
	offers := []g2a.Offer{
		offer("Broken", ""),
		offer("AlsoBroken", "x"),
	}

	result := Analyze(cfg, offers)
	assert.Nil(t, result.CompetitivePrice)
}

func TestAnalyzeNoFloorSkipsBelowFloorAudit(t *testing.T) {
	cfg := baseConfig()
	cfg.Floor = nil
	offers := []g2a.Offer{offer("A", "0.10")}

	result := Analyze(cfg, offers)
	assert.Empty(t, result.BelowFloor)
}
