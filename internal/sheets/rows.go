package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"g2a_repricer/internal/pricing"

	"github.com/rs/zerolog/log"
)

// Column layout of the pricing sheet, one row per listing:
//
//	A check flag    B product name   C own offer URL  D compare URL
//	E compare mode  F floor          G ceiling        H rounding
//	I adjust min    J adjust max     K blacklist CSV  L relax seconds
//	M wholesale formula  N stock     O note           P last update
const (
	colCheck = iota
	colProductName
	colOfferURL
	colCompareURL
	colMode
	colFloor
	colCeiling
	colRounding
	colAdjustMin
	colAdjustMax
	colBlacklist
	colRelax
	colFormula
	colStock
)

// firstDataRow skips the header row.
const firstDataRow = 2

// LoadRowConfigs reads the pricing sheet and parses every checked row into a
// RowConfig. Rows with the check flag cleared are skipped.
func LoadRowConfigs(ctx context.Context, client *Client) ([]*pricing.RowConfig, error) {
	spreadsheetID, sheetName := sheetLocation()
	readRange := fmt.Sprintf("%s!A%d:P1000", sheetName, firstDataRow)

	log.Debug().Str("range", readRange).Msg("Reading pricing sheet")
	data, err := client.ReadSheet(ctx, spreadsheetID, readRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing sheet: %w", err)
	}

	var configs []*pricing.RowConfig
	for i, row := range data {
		rowIndex := firstDataRow + i
		if !isChecked(extractStringField(row, colCheck)) {
			continue
		}

		cfg := parseRowConfig(row, rowIndex)
		if cfg.ProductName == "" {
			log.Debug().Int("row", rowIndex).Msg("Skipping row with empty product name")
			continue
		}
		configs = append(configs, cfg)
	}

	log.Debug().
		Int("total_rows", len(data)).
		Int("parsed_rows", len(configs)).
		Msg("Finished parsing pricing sheet")

	return configs, nil
}

func parseRowConfig(row []interface{}, rowIndex int) *pricing.RowConfig {
	modeValue := 1
	if parsed, ok := parseIntCell(row, colMode); ok {
		modeValue = parsed
	}

	cfg := &pricing.RowConfig{
		RowIndex:         rowIndex,
		ProductName:      extractStringField(row, colProductName),
		OfferURL:         extractStringField(row, colOfferURL),
		CompareURL:       extractStringField(row, colCompareURL),
		CompareEnabled:   modeValue != int(pricing.ModeNoCompare),
		Mode:             pricing.Mode(modeValue),
		Floor:            parseFloatCell(row, colFloor),
		Ceiling:          parseFloatCell(row, colCeiling),
		AdjustMin:        parseFloatCell(row, colAdjustMin),
		AdjustMax:        parseFloatCell(row, colAdjustMax),
		Blacklist:        parseBlacklist(extractStringField(row, colBlacklist)),
		WholesaleFormula: extractStringField(row, colFormula),
	}

	if rounding, ok := parseIntCell(row, colRounding); ok {
		cfg.Rounding = &rounding
	}
	if relax, ok := parseIntCell(row, colRelax); ok {
		cfg.RelaxSeconds = relax
	}
	if stock, ok := parseIntCell(row, colStock); ok {
		cfg.Stock = &stock
	}

	return cfg
}

// isChecked accepts the values operators actually type into the check column.
func isChecked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "x", "yes":
		return true
	}
	return false
}

func parseBlacklist(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var sellers []string
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			sellers = append(sellers, trimmed)
		}
	}
	return sellers
}

// extractStringField safely extracts a string field from a row at the given index
func extractStringField(row []interface{}, index int) string {
	if len(row) > index && row[index] != nil {
		return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
	}
	return ""
}

// parseFloatCell parses an optional numeric cell; malformed values stay nil.
// Comma decimal separators are tolerated.
func parseFloatCell(row []interface{}, index int) *float64 {
	raw := extractStringField(row, index)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		log.Debug().Str("value", raw).Int("column", index).Msg("Skipping unparseable numeric cell")
		return nil
	}
	return &value
}

func parseIntCell(row []interface{}, index int) (int, bool) {
	raw := extractStringField(row, index)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Debug().Str("value", raw).Int("column", index).Msg("Skipping unparseable integer cell")
		return 0, false
	}
	return value, true
}
