package pricing

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"g2a_repricer/internal/g2a"
)

const noteTimeFormat = "02/01/2006 15:04:05"

// BuildNote renders the human-readable log note written back to the row.
// Every row gets one, success or failure.
func BuildNote(decision Decision, cfg *RowConfig, analysis AnalysisResult, now time.Time) string {
	var b strings.Builder
	b.WriteString(now.Format(noteTimeFormat))
	b.WriteString(" ")

	switch decision.Status {
	case StatusApply:
		if cfg.EffectiveMode() == ModeNoCompare {
			fmt.Fprintf(&b, "No comparison, updated to %.3f\n", decision.FinalPrice)
		} else {
			fmt.Fprintf(&b, "Updated to %.3f\n", decision.FinalPrice)
		}
	case StatusSkipBlocked, StatusSkipUnchanged, StatusValidationFailed:
		fmt.Fprintf(&b, "%s\n", decision.Rationale)
	}

	if cfg.EffectiveMode() != ModeNoCompare {
		writeAnalysisBlock(&b, cfg, analysis)
	}

	if cfg.WholesaleFormula != "" && decision.Status == StatusApply {
		wholesale := EvaluateFormula(decision.FinalPrice, cfg.WholesaleFormula)
		fmt.Fprintf(&b, "Wholesale = %.6f\n", wholesale)
	}

	return b.String()
}

func writeAnalysisBlock(b *strings.Builder, cfg *RowConfig, analysis AnalysisResult) {
	name := analysis.CompetitorName
	price := analysis.CompetitivePrice
	if price == nil || math.IsInf(*price, 1) {
		name = "Max price (fallback)"
		price = cfg.Ceiling
	}
	if name != "" && price != nil {
		fmt.Fprintf(b, "- Reference: %s = %.6f\n", name, *price)
	}

	fmt.Fprintf(b, "Floor = %s, Ceiling = %s\n", formatBound(cfg.Floor), formatBound(cfg.Ceiling))

	if len(analysis.BelowFloor) > 0 {
		entries := make([]string, 0, 6)
		for _, offer := range analysis.BelowFloor {
			if len(entries) == 6 {
				break
			}
			entries = append(entries, fmt.Sprintf("%s = %.6f", offer.SellerName(), offer.PriceValue()))
		}
		fmt.Fprintf(b, "Sellers below floor:\n %s\n", strings.Join(entries, "; "))
	}

	if len(analysis.AllOffers) > 0 {
		b.WriteString("Top 4 sellers:\n")
		sorted := make([]g2a.Offer, len(analysis.AllOffers))
		copy(sorted, analysis.AllOffers)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].PriceValue() < sorted[j].PriceValue()
		})
		for i, offer := range sorted {
			if i == 4 {
				break
			}
			fmt.Fprintf(b, "- %s: %.6f\n", offer.SellerName(), offer.PriceValue())
		}
	}
}

func formatBound(bound *float64) string {
	if bound == nil {
		return "None"
	}
	return fmt.Sprintf("%.6f", *bound)
}
