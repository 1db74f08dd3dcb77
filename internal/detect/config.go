package detect

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidConfiguration is returned by NewClassifier before any event is
// processed.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Config holds the classifier thresholds and name heuristics. Zero values
// fall back to DefaultConfig.
type Config struct {
	BruteForceThreshold int
	// BruteForceWindow, when set, additionally requires BruteForceThreshold
	// failures inside one window.
	BruteForceWindow   time.Duration
	MultiHostThreshold int
	OffHours           []int

	BadPatterns        []string
	PrivilegedPatterns []string
	Allowlist          []string
}

const (
	DefaultBruteForceThreshold = 5
	DefaultMultiHostThreshold  = 3
)

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		BruteForceThreshold: DefaultBruteForceThreshold,
		MultiHostThreshold:  DefaultMultiHostThreshold,
		OffHours:            []int{0, 1, 2, 3, 4},
		BadPatterns:         []string{"hacker", "guest", "test", "scanner"},
		PrivilegedPatterns:  []string{"admin", "root"},
		Allowlist:           []string{"backup_admin"},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BruteForceThreshold == 0 {
		c.BruteForceThreshold = def.BruteForceThreshold
	}
	if c.MultiHostThreshold == 0 {
		c.MultiHostThreshold = def.MultiHostThreshold
	}
	if c.OffHours == nil {
		c.OffHours = def.OffHours
	}
	if c.BadPatterns == nil {
		c.BadPatterns = def.BadPatterns
	}
	if c.PrivilegedPatterns == nil {
		c.PrivilegedPatterns = def.PrivilegedPatterns
	}
	if c.Allowlist == nil {
		c.Allowlist = def.Allowlist
	}
	return c
}

func (c Config) validate() error {
	if c.BruteForceThreshold < 1 {
		return fmt.Errorf("%w: brute force threshold must be >= 1, got %d", ErrInvalidConfiguration, c.BruteForceThreshold)
	}
	if c.MultiHostThreshold < 1 {
		return fmt.Errorf("%w: multi host threshold must be >= 1, got %d", ErrInvalidConfiguration, c.MultiHostThreshold)
	}
	if c.BruteForceWindow < 0 {
		return fmt.Errorf("%w: brute force window must not be negative", ErrInvalidConfiguration)
	}
	for _, h := range c.OffHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("%w: off hour %d outside 0-23", ErrInvalidConfiguration, h)
		}
	}
	return nil
}

// compilePatterns builds case-insensitive, unanchored matchers. A plain
// word therefore behaves as a substring match.
func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", ErrInvalidConfiguration, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func hourSet(hours []int) [24]bool {
	var set [24]bool
	for _, h := range hours {
		set[h] = true
	}
	return set
}

// ascending returns the set members in ascending order.
func ascending(hours [24]bool) []int {
	var out []int
	for h, ok := range hours {
		if ok {
			out = append(out, h)
		}
	}
	return out
}
