package sheets

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// RowLogUpdate carries the note and timestamp written back for one row.
type RowLogUpdate struct {
	RowIndex   int
	Note       string
	LastUpdate string
}

// WriteLogBatch writes every row's note and last-update cells in a single
// batched request at the end of a round.
func WriteLogBatch(ctx context.Context, client *Client, updates []RowLogUpdate) error {
	if len(updates) == 0 {
		log.Debug().Msg("No log updates to write")
		return nil
	}

	spreadsheetID, sheetName := sheetLocation()

	data := make([]*sheetsv4.ValueRange, 0, len(updates))
	for _, update := range updates {
		data = append(data, &sheetsv4.ValueRange{
			Range:  fmt.Sprintf("%s!O%d:P%d", sheetName, update.RowIndex, update.RowIndex),
			Values: [][]interface{}{{update.Note, update.LastUpdate}},
		})
	}

	if err := client.BatchUpdateRanges(ctx, spreadsheetID, data); err != nil {
		return fmt.Errorf("failed to write log batch: %w", err)
	}

	log.Info().Int("rows", len(updates)).Msg("Wrote round log batch")
	return nil
}
