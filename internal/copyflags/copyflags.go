// Package copyflags maps the bitset used by foreign-language bindings onto
// an engine configuration.
package copyflags

import (
	"fmt"
	"strings"

	"github.com/bamsammich/copycat/internal/engine"
)

// Flags is a set of copy options. Bit values are part of the binding ABI
// and must not change.
type Flags uint32

const (
	None           Flags = 1 << 0
	Overwrite      Flags = 1 << 1
	Recursive      Flags = 1 << 2
	SkipExisting   Flags = 1 << 3
	NoOverwrite    Flags = 1 << 4
	FollowSymlinks Flags = 1 << 5

	known = None | Overwrite | Recursive | SkipExisting | NoOverwrite | FollowSymlinks
)

var names = []struct {
	name string
	flag Flags
}{
	{"none", None},
	{"overwrite", Overwrite},
	{"recursive", Recursive},
	{"skip_existing", SkipExisting},
	{"no_overwrite", NoOverwrite},
	{"follow_symlinks", FollowSymlinks},
}

// Has reports whether every bit of flag is set in f.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// Strategy returns the comparison strategy selected by f. SkipExisting and
// NoOverwrite keep existing files; without them every file is rewritten.
// Modification times are never compared.
func (f Flags) Strategy() engine.Strategy {
	if f.Has(SkipExisting) || f.Has(NoOverwrite) {
		return engine.StrategyExists
	}
	return engine.StrategyNone
}

// Config builds an engine configuration for f. Recursive is implied: the
// engine always copies whole trees.
func (f Flags) Config(threads int) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Threads = threads
	cfg.Comparison = f.Strategy()
	cfg.FollowSymlinks = f.Has(FollowSymlinks)
	return cfg
}

func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	var parts []string
	for _, n := range names {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if rest := f &^ known; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Parse parses a "|"-separated list of flag names, as produced by String.
func Parse(s string) (Flags, error) {
	var f Flags
	if strings.TrimSpace(s) == "" || s == "0" {
		return 0, nil
	}
	for _, part := range strings.Split(s, "|") {
		part = strings.ToLower(strings.TrimSpace(part))
		found := false
		for _, n := range names {
			if n.name == part {
				f |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown copy flag %q", part)
		}
	}
	return f, nil
}
