// Package timeouts provides the per-operation deadlines used by handlers,
// stores and jobs.
//
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list queries and dashboards
//   - Long: multi-collection transactions (transfer, petition approval)
//   - Batch: CSV imports, exports and the on-call backfill
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 2 * time.Minute
)

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

var defaults = Config{
	Ping:   DefaultPing,
	Short:  DefaultShort,
	Medium: DefaultMedium,
	Long:   DefaultLong,
	Batch:  DefaultBatch,
}

var (
	mu  sync.RWMutex
	cur = defaults
)

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(cur)
}

func Ping() time.Duration   { return get(func(c Config) time.Duration { return c.Ping }) }
func Short() time.Duration  { return get(func(c Config) time.Duration { return c.Short }) }
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }
func Long() time.Duration   { return get(func(c Config) time.Duration { return c.Long }) }
func Batch() time.Duration  { return get(func(c Config) time.Duration { return c.Batch }) }

// Configure overrides the non-zero values in cfg. Call it during startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, f := range fields(&cur) {
		if v := f.pick(cfg); v > 0 {
			*f.dst = v
		}
	}
}

// Reset restores all timeouts to their default values.
func Reset() {
	mu.Lock()
	cur = defaults
	mu.Unlock()
}

// Current returns the timeouts in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

type field struct {
	env  string
	dst  *time.Duration
	pick func(Config) time.Duration
}

func fields(c *Config) []field {
	return []field{
		{"RESIDENCYHUB_TIMEOUT_PING", &c.Ping, func(x Config) time.Duration { return x.Ping }},
		{"RESIDENCYHUB_TIMEOUT_SHORT", &c.Short, func(x Config) time.Duration { return x.Short }},
		{"RESIDENCYHUB_TIMEOUT_MEDIUM", &c.Medium, func(x Config) time.Duration { return x.Medium }},
		{"RESIDENCYHUB_TIMEOUT_LONG", &c.Long, func(x Config) time.Duration { return x.Long }},
		{"RESIDENCYHUB_TIMEOUT_BATCH", &c.Batch, func(x Config) time.Duration { return x.Batch }},
	}
}

// ConfigureFromEnv reads RESIDENCYHUB_TIMEOUT_{PING,SHORT,MEDIUM,LONG,BATCH}
// as Go durations ("5s", "2m"). Invalid or non-positive values are ignored.
// Returns the number of timeouts set.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	n := 0
	for _, f := range fields(&cur) {
		v := os.Getenv(f.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*f.dst = d
			n++
		}
	}
	return n
}

// WithTimeout creates a context with timeout and returns a cancel function that
// logs a warning if the context was canceled due to deadline exceeded.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "curriculum import")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
