package pipeline

import (
	"context"
	"time"

	"github.com/tkeith/wallet-hopper-2/types"
)

const DefaultConfirmInterval = 3 * time.Second

// ConfirmPolicy controls receipt polling. The zero bounds poll until the
// context ends, with a fixed Interval between polls.
type ConfirmPolicy struct {
	Interval    time.Duration
	Multiplier  float64
	MaxInterval time.Duration
	MaxDuration time.Duration
	MaxAttempts int
}

// DefaultConfirmPolicy polls every three seconds without a bound.
func DefaultConfirmPolicy() ConfirmPolicy {
	return ConfirmPolicy{Interval: DefaultConfirmInterval, Multiplier: 1}
}

// PolicyFromConfig fills unset fields from the defaults.
func PolicyFromConfig(c types.ConfirmConfig) ConfirmPolicy {
	p := ConfirmPolicy{
		Interval:    c.Interval,
		Multiplier:  c.Multiplier,
		MaxInterval: c.MaxInterval,
		MaxDuration: c.MaxDuration,
		MaxAttempts: c.MaxAttempts,
	}
	return p.normalized()
}

func (p ConfirmPolicy) normalized() ConfirmPolicy {
	if p.Interval <= 0 {
		p.Interval = DefaultConfirmInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	return p
}

// next returns the delay that follows d.
func (p ConfirmPolicy) next(d time.Duration) time.Duration {
	if p.Multiplier == 1 {
		return d
	}
	n := time.Duration(float64(d) * p.Multiplier)
	if p.MaxInterval > 0 && n > p.MaxInterval {
		n = p.MaxInterval
	}
	return n
}

// Sleeper blocks for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
