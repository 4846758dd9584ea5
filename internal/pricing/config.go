package pricing

import (
	"math"
)

// Mode selects how a row follows its competition.
type Mode int

const (
	// ModeNoCompare skips competitor lookup and prices at the floor.
	ModeNoCompare Mode = 0
	// ModeAlwaysFollow tracks the competitive price in both directions.
	ModeAlwaysFollow Mode = 1
	// ModeFollowDownOnly only ever lowers the listing price.
	ModeFollowDownOnly Mode = 2
)

// RowConfig is one listing's repricing configuration, read fresh from the
// spreadsheet each round. It is mutated in-memory only (AppliedAdjustment) and
// never written back except through the log note.
type RowConfig struct {
	RowIndex       int
	ProductName    string
	OfferURL       string // the seller's own listing (offer UUID or URL)
	CompareURL     string // catalog product whose offers are compared
	CompareEnabled bool
	Mode           Mode

	Floor     *float64
	Ceiling   *float64
	Rounding  *int // decimal places, non-negative
	AdjustMin *float64
	AdjustMax *float64

	Blacklist        []string
	RelaxSeconds     int
	WholesaleFormula string
	Stock            *int

	// AppliedAdjustment records the jitter drawn this round, for the log note.
	AppliedAdjustment float64
}

// EffectiveMode folds the comparison-enabled flag into the mode enum: a row
// with comparison disabled behaves as no-compare whatever its mode column says.
func (c *RowConfig) EffectiveMode() Mode {
	if !c.CompareEnabled {
		return ModeNoCompare
	}
	return c.Mode
}

// RoundingStep is the smallest representable price increment for this row.
func (c *RowConfig) RoundingStep() float64 {
	if c.Rounding == nil {
		return 0.01
	}
	return math.Pow(10, -float64(*c.Rounding))
}

// AdjustmentRange returns the jitter bounds sorted into [low, high]; ok is
// false when the range is not configured.
func (c *RowConfig) AdjustmentRange() (low, high float64, ok bool) {
	if c.AdjustMin == nil || c.AdjustMax == nil {
		return 0, 0, false
	}
	low, high = *c.AdjustMin, *c.AdjustMax
	if low > high {
		low, high = high, low
	}
	return low, high, true
}
