package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func fixedJitter(value float64) func(low, high float64) float64 {
	return func(low, high float64) float64 { return value }
}

func baseConfig() *RowConfig {
	return &RowConfig{
		RowIndex:       2,
		ProductName:    "Some Game Global Key",
		OfferURL:       "a93f5a5f-63d2-4a15-abe0-025adf3bec34",
		CompareURL:     "https://www.g2a.com/some-game-i10000070179155",
		CompareEnabled: true,
		Mode:           ModeAlwaysFollow,
		Floor:          floatPtr(9.00),
		Ceiling:        floatPtr(15.00),
		Rounding:       intPtr(2),
	}
}

func listingAt(price float64) Listing {
	return Listing{
		OfferID:      "a93f5a5f-63d2-4a15-abe0-025adf3bec34",
		Type:         "game",
		CurrentPrice: price,
	}
}

func analysisWith(name string, price float64) AnalysisResult {
	return AnalysisResult{CompetitorName: name, CompetitivePrice: &price}
}

func TestRoundUp(t *testing.T) {
	assert.Equal(t, 10.01, RoundUp(10.001, 2))
	assert.Equal(t, 10.00, RoundUp(10.00, 2))
	assert.Equal(t, 10.0, RoundUp(9.01, 0))
	assert.Equal(t, 9.5, RoundUp(9.42, 1))
}

func TestValidate(t *testing.T) {
	cfg := baseConfig()
	require.NoError(t, Validate(cfg))

	cfg = baseConfig()
	cfg.ProductName = ""
	assert.Error(t, Validate(cfg))

	cfg = baseConfig()
	cfg.Rounding = intPtr(-1)
	assert.Error(t, Validate(cfg))

	cfg = baseConfig()
	cfg.CompareURL = ""
	assert.Error(t, Validate(cfg))

	// A disabled comparison does not need a target.
	cfg.CompareEnabled = false
	assert.NoError(t, Validate(cfg))
}

func TestDecideValidationFailed(t *testing.T) {
	engine := NewEngine()
	cfg := baseConfig()
	cfg.ProductName = ""

	decision := engine.Decide(cfg, listingAt(12.00), AnalysisResult{})
	assert.Equal(t, StatusValidationFailed, decision.Status)
}

func TestClampOrderJitterFloorCeiling(t *testing.T) {
	// A jittered price of 25 against floor=10, ceiling=20 must land on 20:
	// the floor clamp runs first and must not override the ceiling clamp.
	engine := NewEngineWithJitter(fixedJitter(0))
	cfg := baseConfig()
	cfg.Floor = floatPtr(10.00)
	cfg.Ceiling = floatPtr(20.00)

	decision := engine.Decide(cfg, listingAt(30.00), analysisWith("A", 25.00))
	require.Equal(t, StatusApply, decision.Status)
	assert.Equal(t, 20.00, decision.FinalPrice)
}

func TestNoFloorBlocksRegardlessOfMode(t *testing.T) {
	engine := NewEngine()

	for _, mode := range []Mode{ModeAlwaysFollow, ModeFollowDownOnly} {
		cfg := baseConfig()
		cfg.Mode = mode
		cfg.Floor = nil

		decision := engine.Decide(cfg, listingAt(12.00), analysisWith("B", 9.50))
		assert.Equal(t, StatusSkipBlocked, decision.Status, "mode %d", mode)
	}
}

func TestFloorViolationForcesFloor(t *testing.T) {
	engine := NewEngineWithJitter(fixedJitter(0.25))
	cfg := baseConfig()

	decision := engine.Decide(cfg, listingAt(8.50), analysisWith("B", 9.50))
	require.Equal(t, StatusApply, decision.Status)
	assert.Equal(t, 9.00, decision.FinalPrice)
}

func TestIdempotenceWithinNoiseBand(t *testing.T) {
	engine := NewEngineWithJitter(fixedJitter(0))
	cfg := baseConfig()

	// Target equals current: repeated rounds must stay skip-unchanged.
	for i := 0; i < 5; i++ {
		decision := engine.Decide(cfg, listingAt(9.50), analysisWith("B", 9.50))
		assert.Equal(t, StatusSkipUnchanged, decision.Status)
	}
}

func TestFollowDownOnlyNeverRaises(t *testing.T) {
	engine := NewEngineWithJitter(fixedJitter(0))
	cfg := baseConfig()
	cfg.Mode = ModeFollowDownOnly

	// Current well below target: favorable hold, never an increase.
	decision := engine.Decide(cfg, listingAt(10.00), analysisWith("B", 14.00))
	assert.Equal(t, StatusSkipUnchanged, decision.Status)

	// Current above target: the decrease applies.
	decision = engine.Decide(cfg, listingAt(14.00), analysisWith("B", 10.00))
	require.Equal(t, StatusApply, decision.Status)
	assert.Equal(t, 10.00, decision.FinalPrice)
}

func TestAlwaysFollowEndToEnd(t *testing.T) {
	engine := NewEngineWithJitter(fixedJitter(0.25))
	cfg := baseConfig()
	cfg.AdjustMin = floatPtr(0.10)
	cfg.AdjustMax = floatPtr(0.30)

	decision := engine.Decide(cfg, listingAt(12.00), analysisWith("B", 9.50))
	require.Equal(t, StatusApply, decision.Status)
	assert.Equal(t, 9.25, decision.FinalPrice)
	assert.Equal(t, "B", decision.CompetitorName)
	assert.Equal(t, 0.25, cfg.AppliedAdjustment)
	assert.Equal(t, "a93f5a5f-63d2-4a15-abe0-025adf3bec34", decision.OfferID)
	assert.Equal(t, "game", decision.ListingType)
}

func TestNoCompetitorFallsBackToCeiling(t *testing.T) {
	engine := NewEngine()
	cfg := baseConfig()

	decision := engine.Decide(cfg, listingAt(12.00), AnalysisResult{})
	require.Equal(t, StatusApply, decision.Status)
	assert.Equal(t, 15.00, decision.FinalPrice)
}

func TestNoCompetitorNoCeilingFallsBackToFloor(t *testing.T) {
	engine := NewEngine()
	cfg := baseConfig()
	cfg.Ceiling = nil

	decision := engine.Decide(cfg, listingAt(12.00), AnalysisResult{})
	require.Equal(t, StatusApply, decision.Status)
	assert.Equal(t, 9.00, decision.FinalPrice)
}

func TestNoCompareModePricesAtFloor(t *testing.T) {
	engine := NewEngine()
	cfg := baseConfig()
	cfg.CompareEnabled = false

	decision := engine.Decide(cfg, listingAt(12.00), AnalysisResult{})
	require.Equal(t, StatusApply, decision.Status)
	assert.Equal(t, 9.00, decision.FinalPrice)
	assert.Equal(t, "No Comparison", decision.CompetitorName)
}

func TestNoCompareModeWithoutFloorFailsValidation(t *testing.T) {
	engine := NewEngine()
	cfg := baseConfig()
	cfg.CompareEnabled = false
	cfg.Floor = nil

	decision := engine.Decide(cfg, listingAt(12.00), AnalysisResult{})
	assert.Equal(t, StatusValidationFailed, decision.Status)
}

func TestThreshold(t *testing.T) {
	cfg := baseConfig()
	// No jitter: 1.5 rounding steps.
	assert.InDelta(t, 0.015, Threshold(cfg), 1e-9)

	cfg.AdjustMin = floatPtr(0.30)
	cfg.AdjustMax = floatPtr(0.10) // unordered on purpose
	assert.InDelta(t, 0.205, Threshold(cfg), 1e-9)

	// Default step 0.01 when rounding is unset.
	cfg = baseConfig()
	cfg.Rounding = nil
	assert.InDelta(t, 0.015, Threshold(cfg), 1e-9)
}
