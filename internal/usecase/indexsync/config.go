package indexsync

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config tunes dispatch concurrency and the retry curve.
type Config struct {
	// Workers bounds operations dispatched to the engine at once.
	Workers int
	// MaxAttempts bounds dispatches per operation, the first one included.
	MaxAttempts         int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Workers:             8,
		MaxAttempts:         5,
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         5 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.5,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1")
	}
	if c.InitialInterval <= 0 || c.MaxInterval < c.InitialInterval {
		return fmt.Errorf("backoff intervals must satisfy 0 < initial <= max")
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("backoff multiplier must be >= 1")
	}
	if c.RandomizationFactor < 0 || c.RandomizationFactor > 1 {
		return fmt.Errorf("backoff randomization factor must be in [0, 1]")
	}
	return nil
}

func (c Config) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialInterval
	b.MaxInterval = c.MaxInterval
	b.Multiplier = c.Multiplier
	b.RandomizationFactor = c.RandomizationFactor
	b.Reset()
	return b
}
