package pricing

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"
)

// Status classifies the outcome of one row's pricing decision.
type Status string

const (
	StatusApply            Status = "apply"
	StatusSkipBlocked      Status = "skip-blocked"
	StatusSkipUnchanged    Status = "skip-unchanged"
	StatusValidationFailed Status = "validation-failed"

	// StatusError marks a row whose processing failed outside the decision
	// state machine (unreachable offer, rejected update, panic). It is set
	// by the orchestrator, never by Decide.
	StatusError Status = "error"
)

// Decision is the engine's output for one row. FinalPrice, OfferID and
// ListingType are meaningful only when Status is StatusApply.
type Decision struct {
	Status         Status
	FinalPrice     float64
	PreviousPrice  float64
	CompetitorName string
	Rationale      string
	OfferID        string
	ListingType    string
}

// Listing is the seller's own offer as the engine sees it.
type Listing struct {
	OfferID      string
	Type         string
	CurrentPrice float64
}

// Engine decides whether and how to move a listing's price. The jitter draw
// is injectable so tests can fix it.
type Engine struct {
	jitter func(low, high float64) float64
}

func NewEngine() *Engine {
	return &Engine{
		jitter: func(low, high float64) float64 {
			return low + rand.Float64()*(high-low)
		},
	}
}

// NewEngineWithJitter builds an engine with a fixed jitter strategy.
func NewEngineWithJitter(jitter func(low, high float64) float64) *Engine {
	return &Engine{jitter: jitter}
}

// Validate checks the terminal-reject conditions for a row.
func Validate(cfg *RowConfig) error {
	if cfg.ProductName == "" {
		return fmt.Errorf("product name is required")
	}
	if cfg.Rounding != nil && *cfg.Rounding < 0 {
		return fmt.Errorf("price rounding cannot be negative")
	}
	if cfg.CompareEnabled && cfg.CompareURL == "" {
		return fmt.Errorf("comparison target is required when comparison is enabled")
	}
	return nil
}

// RoundUp rounds a price upward to n decimal places. The upward bias is
// deliberate: the listing never undercuts the computed target.
func RoundUp(x float64, n int) float64 {
	multiplier := math.Pow(10, float64(n))
	return math.Ceil(x*multiplier) / multiplier
}

// Threshold is the minimum price delta required before the engine acts,
// sized to absorb jitter noise and rounding error.
func Threshold(cfg *RowConfig) float64 {
	step := cfg.RoundingStep()
	width := 0.0
	if low, high, ok := cfg.AdjustmentRange(); ok {
		width = high - low
	}
	return math.Max(width+0.5*step, 1.5*step)
}

// Decide runs the full decision state machine for one row.
func (e *Engine) Decide(cfg *RowConfig, listing Listing, analysis AnalysisResult) Decision {
	if err := Validate(cfg); err != nil {
		log.Warn().
			Str("product", cfg.ProductName).
			Err(err).
			Msg("Row validation failed")
		return Decision{
			Status:    StatusValidationFailed,
			Rationale: err.Error(),
		}
	}

	if cfg.EffectiveMode() == ModeNoCompare {
		return e.decideNoCompare(cfg, listing)
	}
	return e.decideCompare(cfg, listing, analysis)
}

// decideNoCompare bypasses competitor data and prices at the floor.
func (e *Engine) decideNoCompare(cfg *RowConfig, listing Listing) Decision {
	if cfg.Floor == nil {
		return Decision{
			Status:    StatusValidationFailed,
			Rationale: "no-compare mode requires a floor price",
		}
	}
	target := e.roundPrice(cfg, *cfg.Floor)
	return Decision{
		Status:         StatusApply,
		FinalPrice:     target,
		PreviousPrice:  listing.CurrentPrice,
		CompetitorName: "No Comparison",
		Rationale:      fmt.Sprintf("no comparison, pricing at floor %.3f", target),
		OfferID:        listing.OfferID,
		ListingType:    listing.Type,
	}
}

func (e *Engine) decideCompare(cfg *RowConfig, listing Listing, analysis AnalysisResult) Decision {
	// An unset floor is unsafe to auto-price against, regardless of mode.
	if cfg.Floor == nil {
		return Decision{
			Status:    StatusSkipBlocked,
			Rationale: "no floor price configured, not updating",
		}
	}
	floor := *cfg.Floor
	current := listing.CurrentPrice

	// Safety correction: a listing already below its floor is pulled back
	// to the floor before any comparison or jitter applies.
	if current < floor {
		return Decision{
			Status:         StatusApply,
			FinalPrice:     floor,
			PreviousPrice:  current,
			CompetitorName: analysis.CompetitorName,
			Rationale:      fmt.Sprintf("current price %.3f is below floor %.3f, forcing floor", current, floor),
			OfferID:        listing.OfferID,
			ListingType:    listing.Type,
		}
	}

	target, ok := e.computeTarget(cfg, analysis.CompetitivePrice)
	if !ok {
		// No reference and no ceiling: fall back to floor-only pricing.
		target = e.roundPrice(cfg, floor)
	}

	if target < floor {
		return Decision{
			Status:         StatusSkipBlocked,
			FinalPrice:     target,
			CompetitorName: analysis.CompetitorName,
			Rationale:      fmt.Sprintf("target price %.3f is below floor %.3f, not updating", target, floor),
		}
	}

	threshold := Threshold(cfg)
	diff := current - target

	switch cfg.EffectiveMode() {
	case ModeFollowDownOnly:
		if math.Abs(diff) <= threshold {
			return Decision{
				Status:         StatusSkipUnchanged,
				CompetitorName: analysis.CompetitorName,
				Rationale:      fmt.Sprintf("price %.3f within noise band of target %.3f", current, target),
			}
		}
		if current < target {
			// Already cheaper than the target. Treated as intentionally
			// favorable: this mode never raises a price back up.
			return Decision{
				Status:         StatusSkipUnchanged,
				CompetitorName: analysis.CompetitorName,
				Rationale:      fmt.Sprintf("current price %.3f already below target %.3f, holding", current, target),
			}
		}
		return e.apply(cfg, listing, analysis, target)

	default: // ModeAlwaysFollow
		if math.Abs(diff) <= threshold {
			return Decision{
				Status:         StatusSkipUnchanged,
				CompetitorName: analysis.CompetitorName,
				Rationale:      fmt.Sprintf("price %.3f within noise band of target %.3f", current, target),
			}
		}
		return e.apply(cfg, listing, analysis, target)
	}
}

func (e *Engine) apply(cfg *RowConfig, listing Listing, analysis AnalysisResult, target float64) Decision {
	name := analysis.CompetitorName
	if name == "" {
		name = "Max price (fallback)"
	}
	return Decision{
		Status:         StatusApply,
		FinalPrice:     target,
		PreviousPrice:  listing.CurrentPrice,
		CompetitorName: name,
		Rationale:      fmt.Sprintf("following %s, updating to %.3f", name, target),
		OfferID:        listing.OfferID,
		ListingType:    listing.Type,
	}
}

// computeTarget derives the raw target price. Order matters: jitter first,
// then the floor clamp, then the ceiling clamp, then upward rounding.
func (e *Engine) computeTarget(cfg *RowConfig, reference *float64) (float64, bool) {
	var price float64
	switch {
	case reference != nil:
		price = *reference
		if low, high, ok := cfg.AdjustmentRange(); ok {
			adjustment := e.jitter(low, high)
			cfg.AppliedAdjustment = adjustment
			price -= adjustment
		}
	case cfg.Ceiling != nil:
		// No usable competitor: hold at the ceiling.
		price = *cfg.Ceiling
	default:
		return 0, false
	}

	if cfg.Floor != nil {
		price = math.Max(price, *cfg.Floor)
	}
	if cfg.Ceiling != nil {
		price = math.Min(price, *cfg.Ceiling)
	}

	return e.roundPrice(cfg, price), true
}

func (e *Engine) roundPrice(cfg *RowConfig, price float64) float64 {
	if cfg.Rounding == nil {
		return price
	}
	return RoundUp(price, *cfg.Rounding)
}
