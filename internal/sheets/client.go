package sheets

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client wraps the Sheets service. The spreadsheet transport is not safe for
// concurrent use while rows fan out, so every call serializes on the mutex.
type Client struct {
	mu      sync.Mutex
	service *sheets.Service
}

func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service: service,
	}, nil
}

func (c *Client) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, range_).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	return resp.Values, nil
}

// BatchUpdateRanges writes several ranges in one request, used for the
// end-of-round log batch.
func (c *Client) BatchUpdateRanges(ctx context.Context, spreadsheetID string, data []*sheets.ValueRange) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}

	_, err := c.service.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to batch update ranges: %w", err)
	}

	return nil
}
