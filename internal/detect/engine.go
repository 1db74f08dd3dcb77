package detect

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"loggedin/internal/aggregate"
	"loggedin/internal/types"
)

// Classifier applies the detection rules to aggregated statistics
type Classifier struct {
	cfg        Config
	offHours   [24]bool
	bad        []*regexp.Regexp
	privileged []*regexp.Regexp
	allow      map[string]bool
}

// Outcome is the result of one classification pass
type Outcome struct {
	SuspiciousUsers []string
	Alerts          []types.Alert
}

// NewClassifier validates the configuration and compiles its patterns.
func NewClassifier(cfg Config) (*Classifier, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	bad, err := compilePatterns(cfg.BadPatterns)
	if err != nil {
		return nil, err
	}
	privileged, err := compilePatterns(cfg.PrivilegedPatterns)
	if err != nil {
		return nil, err
	}

	allow := make(map[string]bool, len(cfg.Allowlist))
	for _, u := range cfg.Allowlist {
		allow[strings.ToLower(strings.TrimSpace(u))] = true
	}

	return &Classifier{
		cfg:        cfg,
		offHours:   hourSet(cfg.OffHours),
		bad:        bad,
		privileged: privileged,
		allow:      allow,
	}, nil
}

// Config returns the effective configuration after defaults.
func (c *Classifier) Config() Config {
	return c.cfg
}

// outcome collects alerts per kind and suspicious users in first-flagged order.
type outcome struct {
	flagged    map[string]bool
	suspicious []string
	byKind     map[types.AlertKind][]types.Alert
}

func (o *outcome) flag(user string, reason types.Reason) {
	o.byKind[types.KindSuspiciousAccount] = append(o.byKind[types.KindSuspiciousAccount], types.SuspiciousAccount(user, reason))
	if !o.flagged[user] {
		o.flagged[user] = true
		o.suspicious = append(o.suspicious, user)
	}
}

func (o *outcome) emit(a types.Alert) {
	o.byKind[a.Kind] = append(o.byKind[a.Kind], a)
}

// Classify evaluates every rule over the full result. Users are visited in
// order of first appearance so the output is reproducible.
func (c *Classifier) Classify(res *aggregate.Result) Outcome {
	o := &outcome{
		flagged: make(map[string]bool),
		byKind:  make(map[types.AlertKind][]types.Alert),
	}

	if res != nil {
		c.checkBruteForce(res, o)
		c.checkNames(res, o)
		c.checkUnusualHours(res, o)
		c.checkMultiHost(res, o)
	}

	alerts := make([]types.Alert, 0)
	for _, kind := range types.KindOrder {
		alerts = append(alerts, o.byKind[kind]...)
	}
	suspicious := make([]string, 0, len(o.suspicious))
	suspicious = append(suspicious, o.suspicious...)

	return Outcome{SuspiciousUsers: suspicious, Alerts: alerts}
}

// Rule 1: repeated failures
func (c *Classifier) checkBruteForce(res *aggregate.Result, o *outcome) {
	res.Each(func(st *aggregate.UserStats) {
		if st.FailedCount < c.cfg.BruteForceThreshold {
			return
		}
		if c.cfg.BruteForceWindow > 0 && !burstWithin(st.FailedTimes, c.cfg.BruteForceThreshold, c.cfg.BruteForceWindow) {
			return
		}
		o.emit(types.BruteForce(st.User, st.FailedCount))
		o.flag(st.User, types.ReasonExcessiveFailures)
	})
}

// burstWithin reports whether n timestamps fall inside one window.
func burstWithin(times []time.Time, n int, window time.Duration) bool {
	if len(times) < n {
		return false
	}
	sorted := append([]time.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	for i := 0; i+n-1 < len(sorted); i++ {
		if sorted[i+n-1].Sub(sorted[i]) <= window {
			return true
		}
	}
	return false
}

// Rule 2: name heuristics
func (c *Classifier) checkNames(res *aggregate.Result, o *outcome) {
	res.Each(func(st *aggregate.UserStats) {
		if c.allow[strings.ToLower(st.User)] {
			return
		}
		if matchAny(c.bad, st.User) {
			o.flag(st.User, types.ReasonKnownBadPattern)
			return
		}
		if matchAny(c.privileged, st.User) {
			o.flag(st.User, types.ReasonPrivilegedNameHeuristic)
		}
	})
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Rule 3: batch-level off-hours logins
func (c *Classifier) checkUnusualHours(res *aggregate.Result, o *outcome) {
	var seen [24]bool
	var users []string
	res.Each(func(st *aggregate.UserStats) {
		hit := false
		for _, h := range st.LoginHours {
			if c.offHours[h] {
				seen[h] = true
				hit = true
			}
		}
		if hit {
			users = append(users, st.User)
		}
	})

	if hours := ascending(seen); len(hours) > 0 {
		o.emit(types.UnusualHours(hours, users))
	}
}

// Rule 4: one account across many hosts
func (c *Classifier) checkMultiHost(res *aggregate.Result, o *outcome) {
	res.Each(func(st *aggregate.UserStats) {
		if st.HostCount() >= c.cfg.MultiHostThreshold {
			o.emit(types.MultiHostLogin(st.User, st.Hosts))
		}
	})
}
