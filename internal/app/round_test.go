package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"g2a_repricer/internal/g2a"
	"g2a_repricer/internal/pricing"
)

const testOfferID = "a93f5a5f-63d2-4a15-abe0-025adf3bec34"

type noHeaders struct{}

func (noHeaders) AuthHeaders(ctx context.Context) (map[string]string, error) {
	return nil, nil
}

func testRunner(service *g2a.Service, settings Settings) (*Runner, *[]time.Duration) {
	var slept []time.Duration
	runner := &Runner{
		Service:  service,
		Engine:   pricing.NewEngine(),
		Settings: settings,
		sleep: func(ctx context.Context, d time.Duration) {
			slept = append(slept, d)
		},
	}
	return runner, &slept
}

func TestRelaxRunsAfterFailedRow(t *testing.T) {
	runner, slept := testRunner(nil, Settings{Workers: 1})

	cfg := &pricing.RowConfig{
		RowIndex:     2,
		ProductName:  "Game Key",
		OfferURL:     "not-an-offer-id",
		RelaxSeconds: 3,
	}

	outcome := runner.processRowSafe(context.Background(), cfg)

	assert.True(t, outcome.failed)
	require.Len(t, *slept, 1)
	assert.Equal(t, 3*time.Second, (*slept)[0])
}

func TestRelaxRunsAfterDryRunApply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "GET", r.Method, "dry run must never write")
		fmt.Fprint(w, `{"data":{"id":"`+testOfferID+`","type":"game","variant":{"price":{"retail":"12.00"},"inventory":{"size":0}}}}`)
	}))
	defer srv.Close()

	service := g2a.NewService(g2a.NewClient(srv.URL, noHeaders{}))
	runner, slept := testRunner(service, Settings{Workers: 1, DryRun: true})

	floor := 9.0
	cfg := &pricing.RowConfig{
		RowIndex:     2,
		ProductName:  "Game Key",
		OfferURL:     testOfferID,
		Mode:         pricing.ModeNoCompare,
		Floor:        &floor,
		RelaxSeconds: 2,
	}

	outcome := runner.processRowSafe(context.Background(), cfg)

	assert.True(t, outcome.applied)
	assert.Equal(t, pricing.StatusApply, outcome.record.Decision.Status)
	require.Len(t, *slept, 1)
	assert.Equal(t, 2*time.Second, (*slept)[0])
}

func TestRelaxSkippedWhenUnconfigured(t *testing.T) {
	runner, slept := testRunner(nil, Settings{Workers: 1})

	cfg := &pricing.RowConfig{
		RowIndex:    2,
		ProductName: "Game Key",
		OfferURL:    "not-an-offer-id",
	}

	runner.processRowSafe(context.Background(), cfg)
	assert.Empty(t, *slept)
}

func TestFailureOutcomeUsesErrorStatus(t *testing.T) {
	runner, _ := testRunner(nil, Settings{Workers: 1})

	cfg := &pricing.RowConfig{RowIndex: 4, ProductName: "Game Key", OfferURL: "garbage"}
	outcome := runner.processRowSafe(context.Background(), cfg)

	assert.True(t, outcome.failed)
	assert.Equal(t, pricing.StatusError, outcome.record.Decision.Status)
	assert.Contains(t, outcome.logUpdate.Note, "Error:")

	// Engine-level rejects keep their own status.
	invalid := &pricing.RowConfig{RowIndex: 5}
	outcome = runner.processRowSafe(context.Background(), invalid)
	assert.Equal(t, pricing.StatusValidationFailed, outcome.record.Decision.Status)
}
