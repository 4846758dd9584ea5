// Package audit writes per-round xlsx reports of pricing decisions so that
// repricing behavior can be reviewed offline without digging through logs.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"g2a_repricer/internal/pricing"
)

// Record captures everything relevant to one row's decision in a round.
type Record struct {
	Config   pricing.RowConfig
	Analysis pricing.AnalysisResult
	Decision pricing.Decision
}

// Exporter writes audit workbooks into a directory. A nil Exporter (or one
// created from an empty directory) is a no-op, so callers never need to
// guard their Export calls.
type Exporter struct {
	dir string
}

// NewExporter returns an Exporter writing into dir, or nil when dir is empty.
func NewExporter(dir string) *Exporter {
	if dir == "" {
		return nil
	}
	return &Exporter{dir: dir}
}

// Export writes one workbook for the given round. Failures are logged and
// returned but are never fatal to the caller's round loop.
func (e *Exporter) Export(round int, records []Record, now time.Time) error {
	if e == nil || len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("creating audit directory: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close audit workbook")
		}
	}()

	const decisionsSheet = "Decisions"
	f.SetSheetName(f.GetSheetName(0), decisionsSheet)
	writeDecisions(f, decisionsSheet, records)

	const belowFloorSheet = "Below Floor"
	if _, err := f.NewSheet(belowFloorSheet); err == nil {
		writeBelowFloor(f, belowFloorSheet, records)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("round_%04d_%s.xlsx", round, now.Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving audit workbook: %w", err)
	}

	log.Info().
		Str("path", path).
		Int("records", len(records)).
		Msg("Audit workbook written")

	return nil
}

func writeDecisions(f *excelize.File, sheet string, records []Record) {
	headers := []string{"Row", "Product", "Status", "Final Price", "Competitor", "Rationale", "Floor", "Ceiling", "Reference Price"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range records {
		row := i + 2
		setCell(f, sheet, 1, row, rec.Config.RowIndex)
		setCell(f, sheet, 2, row, rec.Config.ProductName)
		setCell(f, sheet, 3, row, string(rec.Decision.Status))
		if rec.Decision.Status == pricing.StatusApply {
			setCell(f, sheet, 4, row, rec.Decision.FinalPrice)
		}
		setCell(f, sheet, 5, row, rec.Decision.CompetitorName)
		setCell(f, sheet, 6, row, rec.Decision.Rationale)
		if rec.Config.Floor != nil {
			setCell(f, sheet, 7, row, *rec.Config.Floor)
		}
		if rec.Config.Ceiling != nil {
			setCell(f, sheet, 8, row, *rec.Config.Ceiling)
		}
		if rec.Analysis.CompetitivePrice != nil {
			setCell(f, sheet, 9, row, *rec.Analysis.CompetitivePrice)
		}
	}
}

func writeBelowFloor(f *excelize.File, sheet string, records []Record) {
	headers := []string{"Row", "Product", "Seller", "Price", "Floor"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range records {
		for _, offender := range rec.Analysis.BelowFloor {
			setCell(f, sheet, 1, row, rec.Config.RowIndex)
			setCell(f, sheet, 2, row, rec.Config.ProductName)
			setCell(f, sheet, 3, row, offender.SellerName())
			setCell(f, sheet, 4, row, offender.PriceValue())
			if rec.Config.Floor != nil {
				setCell(f, sheet, 5, row, *rec.Config.Floor)
			}
			row++
		}
	}
}

func setCell(f *excelize.File, sheet string, col, row int, value any) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	f.SetCellValue(sheet, cell, value)
}
