package report

import (
	"errors"
	"fmt"
	"sort"

	"loggedin/internal/aggregate"
	"loggedin/internal/detect"
	"loggedin/internal/event"
	"loggedin/internal/types"
)

// ErrInvariantViolation signals an aggregation bug: the event totals do not
// add up. It is never recovered from.
var ErrInvariantViolation = errors.New("report invariant violation")

// UserCount pairs a user with a tally
type UserCount struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}

// HostCount pairs a host with a tally
type HostCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

// UserSummary is the per-user snapshot exposed in a report
type UserSummary struct {
	User         string   `json:"user"`
	Failed       int      `json:"failed"`
	Successful   int      `json:"successful"`
	Admin        int      `json:"admin"`
	Logout       int      `json:"logout"`
	Other        int      `json:"other"`
	Hosts        []string `json:"hosts"`
	LoginHours   []int    `json:"login_hours"`
	FirstSeen    string   `json:"first_seen"`
	LastSeen     string   `json:"last_seen"`
	IsSuspicious bool     `json:"is_suspicious"`
}

// HourBucket is one bar of the hourly activity chart
type HourBucket struct {
	Hour    int `json:"hour"`
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// EventSlice is one slice of the event distribution chart
type EventSlice struct {
	EventID event.ID `json:"event_id"`
	Name    string   `json:"name"`
	Count   int      `json:"count"`
}

// Charts carries the series a chart renderer needs
type Charts struct {
	Hourly            []HourBucket `json:"hourly"`
	EventDistribution []EventSlice `json:"event_distribution"`
	HostActivity      []HostCount  `json:"host_activity"`
}

// Report is the final result of one analysis run. It holds no reference to
// the aggregation state that produced it.
type Report struct {
	TotalEvents     int              `json:"total_events"`
	EventTypeCounts map[event.ID]int `json:"event_type_counts"`
	FailedLogins    []UserCount      `json:"failed_logins"`
	SuspiciousUsers []string         `json:"suspicious_users"`
	Alerts          []types.Alert    `json:"alerts"`
	Users           []UserSummary    `json:"users"`
	Charts          Charts           `json:"charts"`
}

// AlertsOf returns the alerts of one kind in report order.
func (r *Report) AlertsOf(kind types.AlertKind) []types.Alert {
	var out []types.Alert
	for _, a := range r.Alerts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Assemble composes the aggregation and classification results into a
// Report. It fails only when the event totals disagree.
func Assemble(events []event.Record, res *aggregate.Result, out detect.Outcome) (*Report, error) {
	if res == nil {
		res = aggregate.Aggregate(nil)
	}
	if err := checkTotals(len(events), res.Counts); err != nil {
		return nil, err
	}

	r := &Report{
		TotalEvents:     len(events),
		EventTypeCounts: make(map[event.ID]int, len(res.Counts.ByEvent)),
		FailedLogins:    failedRanking(res),
		SuspiciousUsers: append(make([]string, 0, len(out.SuspiciousUsers)), out.SuspiciousUsers...),
		Alerts:          make([]types.Alert, 0, len(out.Alerts)),
		Users:           userSummaries(res, out.SuspiciousUsers),
		Charts:          buildCharts(res.Counts),
	}
	for id, n := range res.Counts.ByEvent {
		r.EventTypeCounts[id] = n
	}
	for _, a := range out.Alerts {
		r.Alerts = append(r.Alerts, a.Clone())
	}
	return r, nil
}

// Analyze runs aggregate, classify and assemble over one batch.
func Analyze(events []event.Record, c *detect.Classifier) (*Report, error) {
	res := aggregate.Aggregate(events)
	return Assemble(events, res, c.Classify(res))
}

// AnalyzeSharded is Analyze with the aggregation spread over shards.
func AnalyzeSharded(events []event.Record, c *detect.Classifier, shards int) (*Report, error) {
	res := aggregate.AggregateSharded(events, shards)
	return Assemble(events, res, c.Classify(res))
}

func checkTotals(n int, c aggregate.Counts) error {
	if sum := c.EventSum(); n != c.Total || n != sum {
		return fmt.Errorf("%w: %d input events, aggregated total %d, per-type sum %d", ErrInvariantViolation, n, c.Total, sum)
	}
	return nil
}

// failedRanking sorts by failed count descending, ties by user ascending.
func failedRanking(res *aggregate.Result) []UserCount {
	ranking := make([]UserCount, 0)
	res.Each(func(st *aggregate.UserStats) {
		if st.FailedCount > 0 {
			ranking = append(ranking, UserCount{User: st.User, Count: st.FailedCount})
		}
	})
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Count != ranking[j].Count {
			return ranking[i].Count > ranking[j].Count
		}
		return ranking[i].User < ranking[j].User
	})
	return ranking
}

func userSummaries(res *aggregate.Result, suspicious []string) []UserSummary {
	flagged := make(map[string]bool, len(suspicious))
	for _, u := range suspicious {
		flagged[u] = true
	}

	out := make([]UserSummary, 0, res.Len())
	res.Each(func(st *aggregate.UserStats) {
		out = append(out, UserSummary{
			User:         st.User,
			Failed:       st.FailedCount,
			Successful:   st.SuccessCount,
			Admin:        st.AdminCount,
			Logout:       st.LogoutCount,
			Other:        st.OtherCount,
			Hosts:        append(make([]string, 0, len(st.Hosts)), st.Hosts...),
			LoginHours:   append(make([]int, 0, len(st.LoginHours)), st.LoginHours...),
			FirstSeen:    st.FirstSeen.UTC().Format("2006-01-02T15:04:05Z"),
			LastSeen:     st.LastSeen.UTC().Format("2006-01-02T15:04:05Z"),
			IsSuspicious: flagged[st.User],
		})
	})
	return out
}

func buildCharts(c aggregate.Counts) Charts {
	ch := Charts{
		Hourly:            make([]HourBucket, 24),
		EventDistribution: make([]EventSlice, 0, len(c.ByEvent)),
		HostActivity:      make([]HostCount, 0, len(c.ByHost)),
	}
	for h := 0; h < 24; h++ {
		ch.Hourly[h] = HourBucket{Hour: h, Success: c.HourlySuccess[h], Failure: c.HourlyFailure[h]}
	}

	for id, n := range c.ByEvent {
		ch.EventDistribution = append(ch.EventDistribution, EventSlice{EventID: id, Name: id.Name(), Count: n})
	}
	sort.Slice(ch.EventDistribution, func(i, j int) bool {
		return ch.EventDistribution[i].EventID < ch.EventDistribution[j].EventID
	})

	for host, n := range c.ByHost {
		ch.HostActivity = append(ch.HostActivity, HostCount{Host: host, Count: n})
	}
	sort.Slice(ch.HostActivity, func(i, j int) bool {
		if ch.HostActivity[i].Count != ch.HostActivity[j].Count {
			return ch.HostActivity[i].Count > ch.HostActivity[j].Count
		}
		return ch.HostActivity[i].Host < ch.HostActivity[j].Host
	})
	return ch
}
