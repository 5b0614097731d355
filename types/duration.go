package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration decodes from a duration string such as "3s" or "1m30s". Plain
// numbers are taken as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*d = Duration(time.Duration(x))
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", x, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func setDuration(dst *time.Duration, src *Duration) {
	if src != nil {
		*dst = time.Duration(*src)
	}
}

func (c *ConfirmConfig) UnmarshalJSON(b []byte) error {
	type plain ConfirmConfig
	aux := struct {
		*plain
		Interval    *Duration `json:"interval,omitempty"`
		MaxInterval *Duration `json:"maxInterval,omitempty"`
		MaxDuration *Duration `json:"maxDuration,omitempty"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	setDuration(&c.Interval, aux.Interval)
	setDuration(&c.MaxInterval, aux.MaxInterval)
	setDuration(&c.MaxDuration, aux.MaxDuration)
	return nil
}

func (c *Config) UnmarshalJSON(b []byte) error {
	type plain Config
	aux := struct {
		*plain
		HTTPTimeout *Duration `json:"httpTimeout,omitempty"`
		CacheTTL    *Duration `json:"cacheTtl,omitempty"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	setDuration(&c.HTTPTimeout, aux.HTTPTimeout)
	setDuration(&c.CacheTTL, aux.CacheTTL)
	return nil
}
