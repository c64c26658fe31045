package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Config holds retry configuration.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Logger       logr.Logger
	Operation    string
}

// Option is a functional option for retry configuration.
type Option func(*Config)

func defaults() *Config {
	return &Config{
		MaxRetries:   5,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Logger:       logr.Discard(),
		Operation:    "operation",
	}
}

// backoff returns the delay sequence between attempts.
func (c *Config) backoff() *wait.Backoff {
	return &wait.Backoff{
		Duration: c.InitialDelay,
		Factor:   c.Multiplier,
		Cap:      c.MaxDelay,
		Steps:    c.MaxRetries + 1,
	}
}

// WithExponentialBackoff runs operation until it succeeds, returns a Fatal
// error, or has failed MaxRetries+1 times. Delays grow by Multiplier up to
// MaxDelay. Cancelling ctx stops the wait between attempts.
func WithExponentialBackoff(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	cfg := defaults()
	for _, opt := range opts {
		opt(cfg)
	}
	backoff := cfg.backoff()

	for attempt := 1; ; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}
		if attempt > cfg.MaxRetries {
			return fmt.Errorf("%s failed after %d attempts: %w", cfg.Operation, attempt, err)
		}

		delay := backoff.Step()
		cfg.Logger.V(1).Info("Retrying after transient error",
			"operation", cfg.Operation, "attempt", attempt, "delay", delay.String(), "error", err.Error())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled after %d attempts: %w", cfg.Operation, attempt, ctx.Err())
		case <-timer.C:
		}
	}
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = n }
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) { c.InitialDelay = d }
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) { c.MaxDelay = d }
}

// WithMultiplier sets the backoff factor.
func WithMultiplier(m float64) Option {
	return func(c *Config) { c.Multiplier = m }
}

// WithLogger logs every retry at verbosity 1.
func WithLogger(l logr.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithOperation names the operation in logs and the final error.
func WithOperation(name string) Option {
	return func(c *Config) { c.Operation = name }
}

// FatalError marks an error that must not be retried.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err so WithExponentialBackoff returns it immediately.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err or anything it wraps came from Fatal.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
