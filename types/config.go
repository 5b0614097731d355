package types

import (
	"time"
)

// ConfirmConfig tunes how long the confirm stage waits for a receipt.
// Zero MaxDuration and MaxAttempts mean poll until the context is cancelled.
// Durations are read from JSON as strings like "3s"; see Duration.
type ConfirmConfig struct {
	Interval    time.Duration `json:"interval,omitempty"`
	Multiplier  float64       `json:"multiplier,omitempty" validate:"omitempty,gte=1"`
	MaxInterval time.Duration `json:"maxInterval,omitempty"`
	MaxDuration time.Duration `json:"maxDuration,omitempty"`
	MaxAttempts int           `json:"maxAttempts,omitempty" validate:"gte=0"`
}

// S3Config selects the S3 content store instead of the HTTP storage service.
type S3Config struct {
	Bucket   string `json:"bucket" validate:"required"`
	Region   string `json:"region" validate:"required"`
	Endpoint string `json:"endpoint,omitempty" validate:"omitempty,url"`
	Prefix   string `json:"prefix,omitempty"`
}

// Config contains global configuration for wallet hopper.
type Config struct {
	// Preference lookup service (GET) and durable storage service (POST).
	LookupURL string    `json:"lookupUrl" validate:"required,url"`
	StoreURL  string    `json:"storeUrl,omitempty" validate:"required_without=S3,omitempty,url"`
	S3        *S3Config `json:"s3,omitempty"`

	// Swap aggregator base URL, e.g. https://api.1inch.io/v5.2
	QuoteURL           string  `json:"quoteUrl" validate:"required,url"`
	QuoteAPIKey        string  `json:"quoteApiKey,omitempty"`
	QuoteRatePerSecond float64 `json:"quoteRatePerSecond,omitempty" validate:"gte=0"`
	SlippagePercent    float64 `json:"slippagePercent,omitempty" validate:"gte=0,lte=50"`

	// Pointer registry contract per chain id.
	PointerRegistry map[int64]string `json:"pointerRegistry,omitempty" validate:"dive,eth_addr"`

	BridgeRelayerFeePct int64 `json:"bridgeRelayerFeePct,omitempty"`

	Confirm ConfirmConfig `json:"confirm"`

	HTTPTimeout time.Duration `json:"httpTimeout,omitempty"`
	CacheTTL    time.Duration `json:"cacheTtl,omitempty"`
	RedisAddr   string        `json:"redisAddr,omitempty" validate:"omitempty,hostname_port"`

	LogLevel      string `json:"logLevel,omitempty" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics bool   `json:"enableMetrics,omitempty"`
}

// DefaultConfig returns the settings the hosted deployment uses.
func DefaultConfig() *Config {
	return &Config{
		LookupURL:           "http://localhost:3000/api/wallet-meta",
		StoreURL:            "http://localhost:3000/api/store",
		QuoteURL:            "https://api.1inch.io/v5.2",
		QuoteRatePerSecond:  1,
		SlippagePercent:     1,
		PointerRegistry:     map[int64]string{},
		BridgeRelayerFeePct: 1,
		Confirm: ConfirmConfig{
			Interval:   3 * time.Second,
			Multiplier: 1,
		},
		HTTPTimeout: 30 * time.Second,
		CacheTTL:    time.Minute,
		LogLevel:    "info",
	}
}
