package app

import "time"

// Settings holds the runtime tuning knobs for the repricing loop, all
// sourced from the environment with sensible defaults.
type Settings struct {
	// Workers caps concurrent row processing within a round.
	Workers int
	// RoundInterval is how long to sleep between pricing rounds.
	RoundInterval time.Duration
	// FailureBackoff is the pause after a catastrophic round failure.
	FailureBackoff time.Duration
	// CountryCode scopes competitor offer listings to one market.
	CountryCode string
	// AuditDir, when non-empty, enables per-round xlsx audit exports.
	AuditDir string
	// DryRun disables PATCH calls so decisions are logged but not applied.
	DryRun bool
}

// LoadSettings reads the loop configuration from the environment.
func LoadSettings() Settings {
	workers := GetEnvInt("WORKERS", 1)
	if workers < 1 {
		workers = 1
	}
	return Settings{
		Workers:        workers,
		RoundInterval:  time.Duration(GetEnvInt("ROUND_INTERVAL_SECONDS", 10)) * time.Second,
		FailureBackoff: 30 * time.Second,
		CountryCode:    GetEnvWithDefault("COUNTRY_CODE", "DE"),
		AuditDir:       GetEnvWithDefault("AUDIT_EXPORT_DIR", ""),
		DryRun:         GetEnvWithDefault("DRY_RUN", "false") == "true",
	}
}
