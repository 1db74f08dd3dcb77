package aggregate

import (
	"time"

	"loggedin/internal/event"
)

// UserStats is the per-user state built while consuming one batch.
type UserStats struct {
	User         string
	FailedCount  int
	SuccessCount int
	AdminCount   int
	LogoutCount  int
	OtherCount   int

	// Hosts holds distinct hosts in first-seen order.
	Hosts []string
	// LoginHours holds the hour of every successful or admin login.
	LoginHours  []int
	FailedTimes []time.Time

	FirstSeen time.Time
	LastSeen  time.Time

	seenHosts map[string]bool
}

func newUserStats(user string) *UserStats {
	return &UserStats{
		User:      user,
		seenHosts: make(map[string]bool),
	}
}

// HostCount returns the number of distinct hosts used.
func (s *UserStats) HostCount() int {
	return len(s.Hosts)
}

// Total is the number of events attributed to the user.
func (s *UserStats) Total() int {
	return s.FailedCount + s.SuccessCount + s.AdminCount + s.LogoutCount + s.OtherCount
}

func (s *UserStats) addHost(host string) {
	if s.seenHosts[host] {
		return
	}
	s.seenHosts[host] = true
	s.Hosts = append(s.Hosts, host)
}

func (s *UserStats) touch(ts time.Time) {
	if s.FirstSeen.IsZero() || ts.Before(s.FirstSeen) {
		s.FirstSeen = ts
	}
	if ts.After(s.LastSeen) {
		s.LastSeen = ts
	}
}

func (s *UserStats) add(r event.Record) {
	switch r.ID() {
	case event.FailedLogin:
		s.FailedCount++
		s.FailedTimes = append(s.FailedTimes, r.Timestamp())
	case event.SuccessfulLogin:
		s.SuccessCount++
	case event.AdminLogin:
		s.AdminCount++
	case event.Logout, event.UserInitiatedLogout:
		s.LogoutCount++
	default:
		s.OtherCount++
	}

	if r.ID().IsLogin() {
		s.LoginHours = append(s.LoginHours, r.Hour())
	}

	s.addHost(r.Host())
	s.touch(r.Timestamp())
}

// Counts holds the batch-wide tallies.
type Counts struct {
	Total         int
	ByEvent       map[event.ID]int
	ByHost        map[string]int
	HourlySuccess [24]int
	HourlyFailure [24]int
}

func newCounts() Counts {
	return Counts{
		ByEvent: make(map[event.ID]int),
		ByHost:  make(map[string]int),
	}
}

// EventSum adds up the per-type tallies.
func (c Counts) EventSum() int {
	sum := 0
	for _, n := range c.ByEvent {
		sum += n
	}
	return sum
}

// Result is the output of one aggregation run.
type Result struct {
	Users  map[string]*UserStats
	Order  []string
	Counts Counts
}

func newResult() *Result {
	return &Result{
		Users:  make(map[string]*UserStats),
		Counts: newCounts(),
	}
}

// Get returns the stats for a user, nil if the user was never seen.
func (r *Result) Get(user string) *UserStats {
	return r.Users[user]
}

// Len is the number of distinct users.
func (r *Result) Len() int {
	return len(r.Order)
}

// Each visits users in order of first appearance.
func (r *Result) Each(fn func(*UserStats)) {
	for _, u := range r.Order {
		fn(r.Users[u])
	}
}

func (r *Result) user(name string) *UserStats {
	st, ok := r.Users[name]
	if !ok {
		st = newUserStats(name)
		r.Users[name] = st
		r.Order = append(r.Order, name)
	}
	return st
}

func (r *Result) add(rec event.Record) {
	r.user(rec.User()).add(rec)

	c := &r.Counts
	c.Total++
	c.ByEvent[rec.ID()]++
	c.ByHost[rec.Host()]++

	switch {
	case rec.ID().IsLogin():
		c.HourlySuccess[rec.Hour()]++
	case rec.ID() == event.FailedLogin:
		c.HourlyFailure[rec.Hour()]++
	}
}

// Aggregate consumes the batch in a single pass. Input records are never
// modified; an empty batch yields an empty result.
func Aggregate(events []event.Record) *Result {
	res := newResult()
	for _, rec := range events {
		res.add(rec)
	}
	return res
}
