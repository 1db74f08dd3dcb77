package aggregate

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"loggedin/internal/event"
)

// Merge combines independently aggregated results. Counts add, host sets
// union and hour lists concatenate, all in argument order.
func Merge(parts ...*Result) *Result {
	out := newResult()
	for _, p := range parts {
		if p == nil {
			continue
		}
		for _, name := range p.Order {
			out.user(name).merge(p.Users[name])
		}

		c := &out.Counts
		c.Total += p.Counts.Total
		for id, n := range p.Counts.ByEvent {
			c.ByEvent[id] += n
		}
		for host, n := range p.Counts.ByHost {
			c.ByHost[host] += n
		}
		for h := 0; h < 24; h++ {
			c.HourlySuccess[h] += p.Counts.HourlySuccess[h]
			c.HourlyFailure[h] += p.Counts.HourlyFailure[h]
		}
	}
	return out
}

func (s *UserStats) merge(o *UserStats) {
	s.FailedCount += o.FailedCount
	s.SuccessCount += o.SuccessCount
	s.AdminCount += o.AdminCount
	s.LogoutCount += o.LogoutCount
	s.OtherCount += o.OtherCount

	for _, h := range o.Hosts {
		s.addHost(h)
	}
	s.LoginHours = append(s.LoginHours, o.LoginHours...)
	s.FailedTimes = append(s.FailedTimes, o.FailedTimes...)

	if !o.FirstSeen.IsZero() {
		s.touch(o.FirstSeen)
	}
	if !o.LastSeen.IsZero() {
		s.touch(o.LastSeen)
	}
}

// AggregateSharded partitions the batch by user, aggregates each shard in
// its own goroutine and merges the shards. The result matches Aggregate,
// including user order.
func AggregateSharded(events []event.Record, shards int) *Result {
	if shards <= 1 || len(events) < shards {
		return Aggregate(events)
	}

	buckets := make([][]event.Record, shards)
	for _, rec := range events {
		i := xxhash.Sum64String(rec.User()) % uint64(shards)
		buckets[i] = append(buckets[i], rec)
	}

	parts := make([]*Result, shards)
	var wg sync.WaitGroup
	for i := range buckets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			parts[i] = Aggregate(buckets[i])
		}(i)
	}
	wg.Wait()

	merged := Merge(parts...)

	// Shard order is arbitrary; restore first appearance in the input.
	merged.Order = merged.Order[:0]
	seen := make(map[string]bool, len(merged.Users))
	for _, rec := range events {
		if !seen[rec.User()] {
			seen[rec.User()] = true
			merged.Order = append(merged.Order, rec.User())
		}
	}
	return merged
}
