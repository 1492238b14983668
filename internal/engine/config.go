package engine

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/bamsammich/copycat/internal/event"
)

// Strategy decides whether an existing destination file is skipped or
// overwritten. The zero value is StrategyDate.
type Strategy int

const (
	// StrategyDate skips files whose modification times match.
	StrategyDate Strategy = iota
	// StrategyNone overwrites every file.
	StrategyNone
	// StrategyExists skips every file that already exists at the destination.
	StrategyExists
)

var strategyNames = [...]string{
	StrategyDate:   "date",
	StrategyNone:   "none",
	StrategyExists: "exists",
}

func (s Strategy) String() string {
	if s >= 0 && int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s >= 0 && int(s) < len(strategyNames)
}

// ParseStrategy parses none, exists or date (case-insensitive).
func ParseStrategy(s string) (Strategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown comparison strategy %q (use none, exists or date)", s)
}

// Config describes how a tree is copied. It is read concurrently by every
// task of a run and must not be modified once passed to New or Copy.
type Config struct {
	// Logger receives progress and error records. Nil uses slog.Default().
	Logger *slog.Logger
	// Events, if set, receives one event per outcome. Sends never block.
	Events chan<- event.Event

	// Threads is the worker count. Zero means runtime.NumCPU().
	Threads int
	// ModTimeWindow truncates modification times before they are compared,
	// for filesystems with coarse timestamps.
	ModTimeWindow time.Duration
	// BWLimit caps aggregate throughput in bytes per second. Zero is unlimited.
	BWLimit int64

	Comparison       Strategy
	FollowSymlinks   bool
	PreserveMetadata bool
	// SizeAware rewrites same-size destinations in place instead of
	// removing them before the copy.
	SizeAware bool
	// Verify compares BLAKE3 digests of every file copied in the run.
	Verify bool
}

// DefaultConfig returns the defaults used by the command line: date
// comparison, timestamps preserved, symlinks not followed, one worker per CPU.
func DefaultConfig() Config {
	return Config{
		Comparison:       StrategyDate,
		PreserveMetadata: true,
	}
}

func (c Config) validate() error {
	if c.Threads < 0 {
		return &ConfigError{Field: "threads", Err: fmt.Errorf("must be positive, got %d", c.Threads)}
	}
	if !c.Comparison.Valid() {
		return &ConfigError{Field: "comparison", Err: fmt.Errorf("unknown strategy %d", int(c.Comparison))}
	}
	if c.ModTimeWindow < 0 {
		return &ConfigError{Field: "mtime window", Err: fmt.Errorf("must not be negative, got %s", c.ModTimeWindow)}
	}
	if c.BWLimit < 0 {
		return &ConfigError{Field: "bwlimit", Err: fmt.Errorf("must not be negative, got %d", c.BWLimit)}
	}
	return nil
}

func (c Config) workers() int {
	if c.Threads == 0 {
		return runtime.NumCPU()
	}
	return c.Threads
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c Config) policy() Policy {
	return Policy{
		Strategy:      c.Comparison,
		SizeAware:     c.SizeAware,
		ModTimeWindow: c.ModTimeWindow,
	}
}
