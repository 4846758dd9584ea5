package main

import (
	"context"
	"time"

	"g2a_repricer/internal/app"
	"g2a_repricer/internal/audit"
	"g2a_repricer/internal/pricing"

	"github.com/rs/zerolog/log"
)

func main() {
	log.Debug().Msg("Starting application")
	app.SetupEnvironment()

	ctx := context.Background()
	manager, service, sheetsClient := app.InitializeClients(ctx)
	defer manager.Close()

	settings := app.LoadSettings()
	runner := &app.Runner{
		Service:       service,
		SheetsClient:  sheetsClient,
		Notifications: app.InitializeNotificationClient(),
		Engine:        pricing.NewEngine(),
		Auditor:       audit.NewExporter(settings.AuditDir),
		Settings:      settings,
	}

	log.Info().
		Int("workers", settings.Workers).
		Dur("round_interval", settings.RoundInterval).
		Bool("dry_run", settings.DryRun).
		Msg("Starting G2A repricer. Running immediately and then continuously...")

	for {
		if err := runner.RunRound(ctx); err != nil {
			// A failed round leaves the sheet untouched, so a short pause
			// and a fresh attempt is always safe.
			log.Error().
				Err(err).
				Dur("backoff", settings.FailureBackoff).
				Msg("Pricing round failed, backing off")
			time.Sleep(settings.FailureBackoff)
			continue
		}
		time.Sleep(settings.RoundInterval)
	}
}
