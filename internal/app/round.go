package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"g2a_repricer/internal/audit"
	"g2a_repricer/internal/config"
	"g2a_repricer/internal/g2a"
	"g2a_repricer/internal/notifications"
	"g2a_repricer/internal/pricing"
	"g2a_repricer/internal/retry"
	"g2a_repricer/internal/sheets"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// sheetTimeFormat matches the timestamp style used in the row log notes.
const sheetTimeFormat = "02/01/2006 15:04:05"

// Runner wires the clients together and executes pricing rounds.
type Runner struct {
	Service       *g2a.Service
	SheetsClient  *sheets.Client
	Notifications *notifications.Client
	Engine        *pricing.Engine
	Auditor       *audit.Exporter
	Settings      Settings

	// sleep is swapped out by tests; nil means real time.
	sleep func(ctx context.Context, d time.Duration)

	round int
}

// rowOutcome is everything one processed row contributes back to the round.
type rowOutcome struct {
	logUpdate sheets.RowLogUpdate
	record    audit.Record
	change    *notifications.PriceChange
	applied   bool
	failed    bool
}

// RunRound performs one complete pricing pass over the sheet. It returns an
// error only for round-level failures (sheet unreadable); per-row failures
// are absorbed into that row's log note.
func (r *Runner) RunRound(ctx context.Context) error {
	r.round++
	log.Debug().Int("round", r.round).Msg("Starting pricing round")
	r.Service.ResetAPICallCount()

	rows, err := retry.WithRetry(ctx, config.DefaultResilienceConfig.SheetIO, func(ctx context.Context) ([]*pricing.RowConfig, error) {
		return sheets.LoadRowConfigs(ctx, r.SheetsClient)
	})
	if err != nil {
		return fmt.Errorf("loading row configs: %w", err)
	}

	if len(rows) == 0 {
		log.Info().Int("round", r.round).Msg("No checked rows, nothing to do")
		return nil
	}

	log.Debug().
		Int("round", r.round).
		Int("rows", len(rows)).
		Int("workers", r.Settings.Workers).
		Msg("Processing checked rows")

	var (
		mu       sync.Mutex
		outcomes []rowOutcome
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.Settings.Workers)
	for _, cfg := range rows {
		cfg := cfg
		group.Go(func() error {
			outcome := r.processRowSafe(groupCtx, cfg)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors, so Wait only orders the collection.
	_ = group.Wait()

	r.finishRound(ctx, outcomes)
	return nil
}

// processRowSafe guards processRow against panics so one bad row can never
// take down the round loop. The panic becomes that row's log note. The relax
// delay runs after every row, whatever the outcome.
func (r *Runner) processRowSafe(ctx context.Context, cfg *pricing.RowConfig) (outcome rowOutcome) {
	defer r.relax(ctx, cfg)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Int("row", cfg.RowIndex).
				Str("product", cfg.ProductName).
				Interface("panic", rec).
				Msg("Row processing panicked")
			outcome = r.failureOutcome(cfg, fmt.Sprintf("Internal error: %v", rec))
		}
	}()
	return r.processRow(ctx, cfg)
}

func (r *Runner) processRow(ctx context.Context, cfg *pricing.RowConfig) rowOutcome {
	log.Debug().
		Int("row", cfg.RowIndex).
		Str("product", cfg.ProductName).
		Msg("Processing row")

	if err := pricing.Validate(cfg); err != nil {
		decision := pricing.Decision{Status: pricing.StatusValidationFailed, Rationale: fmt.Sprintf("Validation error: %v", err)}
		return r.decisionOutcome(cfg, pricing.AnalysisResult{}, decision)
	}

	offerID, ok := g2a.OfferIDFrom(cfg.OfferURL)
	if !ok {
		return r.failureOutcome(cfg, fmt.Sprintf("Error: no offer id in %q", cfg.OfferURL))
	}

	listing, err := retry.WithRetry(ctx, config.DefaultResilienceConfig.APIRequest, func(ctx context.Context) (*g2a.ListingDetails, error) {
		return r.Service.GetListingDetails(ctx, offerID)
	})
	if err != nil {
		log.Warn().
			Err(err).
			Int("row", cfg.RowIndex).
			Str("offer_id", offerID).
			Msg("Failed to resolve listing details")
		return r.failureOutcome(cfg, fmt.Sprintf("Error: could not load offer details: %v", err))
	}

	analysis := r.analyzeCompetition(ctx, cfg)

	decision := r.Engine.Decide(cfg, pricing.Listing{
		OfferID:      listing.OfferID,
		Type:         listing.Type,
		CurrentPrice: listing.CurrentPrice,
	}, analysis)

	log.Debug().
		Int("row", cfg.RowIndex).
		Str("product", cfg.ProductName).
		Str("status", string(decision.Status)).
		Float64("final_price", decision.FinalPrice).
		Str("rationale", decision.Rationale).
		Msg("Pricing decision")

	if decision.Status == pricing.StatusApply {
		if err := r.applyDecision(ctx, cfg, decision); err != nil {
			return r.failureOutcome(cfg, fmt.Sprintf("Error: price update failed: %v", err))
		}
	}

	return r.decisionOutcome(cfg, analysis, decision)
}

// analyzeCompetition fetches and analyzes competitor offers for rows that
// compare. Fetch failures degrade to an empty analysis.
func (r *Runner) analyzeCompetition(ctx context.Context, cfg *pricing.RowConfig) pricing.AnalysisResult {
	if !cfg.CompareEnabled {
		return pricing.AnalysisResult{}
	}

	productID, ok := g2a.ProductIDFromURL(cfg.CompareURL)
	if !ok {
		log.Warn().
			Int("row", cfg.RowIndex).
			Str("compare_url", cfg.CompareURL).
			Msg("No product id in compare URL, treating as no competition data")
		return pricing.AnalysisResult{}
	}

	id := strconv.FormatInt(productID, 10)
	offers := r.Service.FetchOffers(ctx, id, r.Settings.CountryCode)
	analysis := pricing.Analyze(cfg, offers)

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		for _, sim := range r.Service.SimulateTopOffers(ctx, id, analysis.AllOffers, 5) {
			log.Debug().
				Int("row", cfg.RowIndex).
				Interface("income", sim.Income).
				Msg("Pricing simulation for top offer")
		}
	}

	return analysis
}

func (r *Runner) applyDecision(ctx context.Context, cfg *pricing.RowConfig, decision pricing.Decision) error {
	if r.Settings.DryRun {
		log.Info().
			Int("row", cfg.RowIndex).
			Str("product", cfg.ProductName).
			Float64("price", decision.FinalPrice).
			Msg("Dry run, skipping price update")
		return nil
	}

	_, err := retry.WithRetry(ctx, config.DefaultResilienceConfig.APIRequest, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.Service.UpdateOfferPrice(ctx, decision.OfferID, decision.ListingType, decision.FinalPrice, cfg.Stock)
	})
	return err
}

// relax pauses this worker before it grabs the next row, giving the
// marketplace time to settle. Configured per row, in seconds.
func (r *Runner) relax(ctx context.Context, cfg *pricing.RowConfig) {
	if cfg.RelaxSeconds <= 0 {
		return
	}
	delay := time.Duration(cfg.RelaxSeconds) * time.Second
	if r.sleep != nil {
		r.sleep(ctx, delay)
		return
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func (r *Runner) decisionOutcome(cfg *pricing.RowConfig, analysis pricing.AnalysisResult, decision pricing.Decision) rowOutcome {
	now := time.Now()
	outcome := rowOutcome{
		logUpdate: sheets.RowLogUpdate{
			RowIndex:   cfg.RowIndex,
			Note:       pricing.BuildNote(decision, cfg, analysis, now),
			LastUpdate: now.Format(sheetTimeFormat),
		},
		record:  audit.Record{Config: *cfg, Analysis: analysis, Decision: decision},
		applied: decision.Status == pricing.StatusApply,
		failed:  decision.Status == pricing.StatusValidationFailed,
	}
	if outcome.applied {
		outcome.change = &notifications.PriceChange{
			ProductName: cfg.ProductName,
			OldPrice:    decision.PreviousPrice,
			NewPrice:    decision.FinalPrice,
			Competitor:  decision.CompetitorName,
		}
	}
	return outcome
}

// failureOutcome records a row that could not reach a pricing decision.
func (r *Runner) failureOutcome(cfg *pricing.RowConfig, note string) rowOutcome {
	now := time.Now()
	return rowOutcome{
		logUpdate: sheets.RowLogUpdate{
			RowIndex:   cfg.RowIndex,
			Note:       now.Format(sheetTimeFormat) + " " + note,
			LastUpdate: now.Format(sheetTimeFormat),
		},
		record: audit.Record{
			Config:   *cfg,
			Decision: pricing.Decision{Status: pricing.StatusError, Rationale: note},
		},
		failed: true,
	}
}

// finishRound writes log notes back to the sheet, exports the audit workbook
// and sends notifications. None of these can fail the round.
func (r *Runner) finishRound(ctx context.Context, outcomes []rowOutcome) {
	// Workers finish in arbitrary order; restore sheet order for the
	// write-back and the audit workbook.
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].logUpdate.RowIndex < outcomes[j].logUpdate.RowIndex
	})

	var (
		logUpdates []sheets.RowLogUpdate
		records    []audit.Record
		changes    []notifications.PriceChange
		applied    int
		failed     int
	)
	for _, outcome := range outcomes {
		logUpdates = append(logUpdates, outcome.logUpdate)
		records = append(records, outcome.record)
		if outcome.change != nil {
			changes = append(changes, *outcome.change)
		}
		if outcome.applied {
			applied++
		}
		if outcome.failed {
			failed++
		}
	}

	_, err := retry.WithRetry(ctx, config.DefaultResilienceConfig.SheetIO, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, sheets.WriteLogBatch(ctx, r.SheetsClient, logUpdates)
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to write log notes back to sheet")
	}

	if err := r.Auditor.Export(r.round, records, time.Now()); err != nil {
		log.Warn().Err(err).Msg("Audit export failed")
	}

	if len(changes) > 0 {
		r.Notifications.NotifyPriceChanges(ctx, changes)
	}

	log.Info().
		Int("round", r.round).
		Int("rows", len(outcomes)).
		Int("applied", applied).
		Int("skipped", len(outcomes)-applied-failed).
		Int("failed", failed).
		Int64("api_calls", r.Service.APICallCount()).
		Msg("Pricing round complete")
}
