package config

import (
	"time"

	"g2a_repricer/internal/retry"
)

type ResilienceConfig struct {
	APIRequest retry.Config
	SheetIO    retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	APIRequest: retry.Config{
		MaxRetries: 5,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    15 * time.Second,
	},
	SheetIO: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    15 * time.Second,
	},
}
