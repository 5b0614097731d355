package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tkeith/wallet-hopper-2/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// ParsePreferenceDocument parses and validates a preference document from JSON
func ParsePreferenceDocument(data []byte) (*types.PreferenceDocument, error) {
	var doc types.PreferenceDocument

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, types.NewError(types.ErrInvalidDocument, "failed to parse preference document", err)
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, types.NewError(types.ErrInvalidDocument, "preference document validation failed", err)
	}

	return &doc, nil
}

// SerializePreferenceDocument renders a document the way it is stored: indented JSON.
func SerializePreferenceDocument(doc *types.PreferenceDocument) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// ValidatePaymentIntent checks the fields of a payment intent.
func ValidatePaymentIntent(intent *types.PaymentIntent) error {
	if intent == nil {
		return types.Errorf(types.ErrInvalidIntent, "payment intent is required")
	}
	if err := validate.Struct(intent); err != nil {
		return types.NewError(types.ErrInvalidIntent, "payment intent validation failed", err)
	}
	if _, err := ValidateAmount(intent.Amount); err != nil {
		return types.NewError(types.ErrInvalidIntent, "invalid payment amount", err)
	}
	return nil
}

// ParseConfig parses Config from JSON on top of the defaults
func ParseConfig(data []byte) (*types.Config, error) {
	config := types.DefaultConfig()

	if err := json.Unmarshal(data, config); err != nil {
		return nil, types.NewError(types.ErrConfigError, "failed to parse config", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ValidateConfig runs the struct-tag validation on a config.
func ValidateConfig(config *types.Config) error {
	if config == nil {
		return types.Errorf(types.ErrConfigError, "config is required")
	}
	if err := validate.Struct(config); err != nil {
		return types.NewError(types.ErrConfigError, "config validation failed", err)
	}
	return nil
}

// LoadConfigFile reads and parses a JSON config file.
func LoadConfigFile(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("failed to read config %s", path), err)
	}
	return ParseConfig(data)
}

// ConfigFromEnv overlays WALLETHOPPER_* environment variables onto config.
func ConfigFromEnv(config *types.Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("WALLETHOPPER_LOOKUP_URL", &config.LookupURL)
	setString("WALLETHOPPER_STORE_URL", &config.StoreURL)
	setString("WALLETHOPPER_QUOTE_URL", &config.QuoteURL)
	setString("WALLETHOPPER_QUOTE_API_KEY", &config.QuoteAPIKey)
	setString("WALLETHOPPER_REDIS_ADDR", &config.RedisAddr)
	setString("WALLETHOPPER_LOG_LEVEL", &config.LogLevel)

	if v := getenv("WALLETHOPPER_CONFIRM_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return types.NewError(types.ErrConfigError, "invalid WALLETHOPPER_CONFIRM_INTERVAL", err)
		}
		config.Confirm.Interval = d
	}
	if v := getenv("WALLETHOPPER_CONFIRM_MAX_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return types.NewError(types.ErrConfigError, "invalid WALLETHOPPER_CONFIRM_MAX_DURATION", err)
		}
		config.Confirm.MaxDuration = d
	}
	if v := getenv("WALLETHOPPER_ENABLE_METRICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return types.NewError(types.ErrConfigError, "invalid WALLETHOPPER_ENABLE_METRICS", err)
		}
		config.EnableMetrics = b
	}
	if v := getenv("WALLETHOPPER_POINTER_REGISTRY"); v != "" {
		// chainId=address[,chainId=address]
		if config.PointerRegistry == nil {
			config.PointerRegistry = map[int64]string{}
		}
		for _, pair := range strings.Split(v, ",") {
			id, addr, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				return types.Errorf(types.ErrConfigError, "invalid pointer registry entry %q", pair)
			}
			chainID, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return types.NewError(types.ErrConfigError, fmt.Sprintf("invalid chain id %q", id), err)
			}
			config.PointerRegistry[chainID] = addr
		}
	}

	return ValidateConfig(config)
}
