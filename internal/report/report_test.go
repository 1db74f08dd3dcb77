package report

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loggedin/internal/aggregate"
	"loggedin/internal/detect"
	"loggedin/internal/event"
	"loggedin/internal/sample"
	"loggedin/internal/types"
)

var base = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func at(hour int, id event.ID, user, host string) event.Record {
	return event.MustNew(base.Add(time.Duration(hour)*time.Hour), id, user, host)
}

func classifier(t *testing.T) *detect.Classifier {
	t.Helper()
	c, err := detect.NewClassifier(detect.DefaultConfig())
	require.NoError(t, err)
	return c
}

func TestAnalyze_Empty(t *testing.T) {
	r, err := Analyze(nil, classifier(t))
	require.NoError(t, err)

	assert.Equal(t, 0, r.TotalEvents)
	assert.Empty(t, r.EventTypeCounts)
	assert.Empty(t, r.FailedLogins)
	assert.Empty(t, r.SuspiciousUsers)
	assert.Empty(t, r.Alerts)
	assert.Len(t, r.Charts.Hourly, 24)
}

func TestAnalyze_FailedLoginRanking(t *testing.T) {
	var events []event.Record
	add := func(user string, n int) {
		for i := 0; i < n; i++ {
			events = append(events, at(10, event.FailedLogin, user, "WS01"))
		}
	}
	add("u1", 2)
	add("u3", 5)
	add("u2", 5)
	events = append(events, at(11, event.SuccessfulLogin, "u4", "WS01"))

	r, err := Analyze(events, classifier(t))
	require.NoError(t, err)

	assert.Equal(t, []UserCount{{"u2", 5}, {"u3", 5}, {"u1", 2}}, r.FailedLogins)
}

func TestAnalyze_CountConservation(t *testing.T) {
	c := classifier(t)
	for seed := int64(1); seed <= 5; seed++ {
		events := sample.New(seed).Records(200, base)

		r, err := Analyze(events, c)
		require.NoError(t, err)

		sum := 0
		for _, n := range r.EventTypeCounts {
			sum += n
		}
		assert.Equal(t, r.TotalEvents, sum, "seed %d", seed)
		assert.Equal(t, len(events), r.TotalEvents, "seed %d", seed)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	c := classifier(t)
	events := sample.New(42).Records(150, base)

	first, err := Analyze(events, c)
	require.NoError(t, err)
	second, err := Analyze(events, c)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var a, b bytes.Buffer
	require.NoError(t, WriteJSON(&a, first))
	require.NoError(t, WriteJSON(&b, second))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestAnalyzeSharded_MatchesAnalyze(t *testing.T) {
	c := classifier(t)
	events := sample.New(7).Records(300, base)

	single, err := Analyze(events, c)
	require.NoError(t, err)
	sharded, err := AnalyzeSharded(events, c, 4)
	require.NoError(t, err)
	assert.Equal(t, single, sharded)
}

func TestAssemble_InvariantViolation(t *testing.T) {
	events := []event.Record{
		at(1, event.SuccessfulLogin, "john", "WS01"),
		at(2, event.FailedLogin, "john", "WS01"),
	}
	res := aggregate.Aggregate(events[:1])

	_, err := Assemble(events, res, detect.Outcome{})
	assert.ErrorIs(t, err, ErrInvariantViolation)

	res = aggregate.Aggregate(events)
	res.Counts.ByEvent[event.Logout]++
	_, err = Assemble(events, res, detect.Outcome{})
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestAssemble_DoesNotShareState(t *testing.T) {
	events := []event.Record{
		at(9, event.SuccessfulLogin, "john", "A"),
		at(10, event.SuccessfulLogin, "john", "B"),
		at(11, event.SuccessfulLogin, "john", "C"),
	}
	c := classifier(t)
	res := aggregate.Aggregate(events)
	out := c.Classify(res)

	r, err := Assemble(events, res, out)
	require.NoError(t, err)

	res.Get("john").Hosts[0] = "Z"
	res.Counts.ByEvent[event.SuccessfulLogin] = 99
	out.SuspiciousUsers = append(out.SuspiciousUsers, "late")

	mh := r.AlertsOf(types.KindMultiHostLogin)
	require.Len(t, mh, 1)
	assert.Equal(t, []string{"A", "B", "C"}, mh[0].Hosts)
	assert.Equal(t, []string{"A", "B", "C"}, r.Users[0].Hosts)
	assert.Equal(t, 3, r.EventTypeCounts[event.SuccessfulLogin])
	assert.Empty(t, r.SuspiciousUsers)
}

func TestAnalyze_Charts(t *testing.T) {
	events := []event.Record{
		at(3, event.SuccessfulLogin, "john", "WS01"),
		at(3, event.FailedLogin, "john", "WS01"),
		at(4, event.AdminLogin, "admin", "DC01"),
		at(5, event.ID(4648), "svc", "DC01"),
		at(6, event.Logout, "john", "WS02"),
	}

	r, err := Analyze(events, classifier(t))
	require.NoError(t, err)

	assert.Equal(t, HourBucket{Hour: 3, Success: 1, Failure: 1}, r.Charts.Hourly[3])
	assert.Equal(t, HourBucket{Hour: 4, Success: 1}, r.Charts.Hourly[4])
	assert.Equal(t, []HostCount{{"DC01", 2}, {"WS01", 2}, {"WS02", 1}}, r.Charts.HostActivity)

	var ids []event.ID
	for _, s := range r.Charts.EventDistribution {
		ids = append(ids, s.EventID)
	}
	assert.Equal(t, []event.ID{event.SuccessfulLogin, event.FailedLogin, event.Logout, 4648, event.AdminLogin}, ids)
	assert.Equal(t, 1, r.EventTypeCounts[4648])
}

func TestWriteText(t *testing.T) {
	var events []event.Record
	for i := 0; i < 6; i++ {
		events = append(events, at(1, event.FailedLogin, "hacker@bad.com", "WS02"))
	}
	events = append(events, at(2, event.SuccessfulLogin, "admin@domain.com", "SRV01"))

	r, err := Analyze(events, classifier(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = WriteText(&buf, r, TextOptions{
		Type:        TypeTechnical,
		GeneratedAt: base,
		Explain:     func(a types.Alert) string { return "why: " + string(a.Kind) },
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Technical Analysis Report - 2023-01-01 00:00:00")
	assert.Contains(t, out, "- hacker@bad.com: 6 attempts")
	assert.Contains(t, out, "[BRUTE FORCE ATTEMPTS]")
	assert.Contains(t, out, "Unusual login hours detected: 2:00")
	assert.Contains(t, out, "why: brute_force")
	assert.Contains(t, out, fmt.Sprintf("- Event %d (Failed Login): 6 occurrences", event.FailedLogin))
	assert.NotContains(t, out, "EXECUTIVE SUMMARY")
}

func TestWriteText_SecuritySummary(t *testing.T) {
	r, err := Analyze([]event.Record{at(9, event.SuccessfulLogin, "guest\x1b[31m", "WS01")}, classifier(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r, TextOptions{GeneratedAt: base}))

	out := buf.String()
	assert.Contains(t, out, "Found 1 critical security events and 0 security warnings.")
	assert.Contains(t, out, "CRITICAL FINDINGS REQUIRE IMMEDIATE ATTENTION")
	assert.NotContains(t, out, "\x1b")
}

func TestWriteText_UnknownType(t *testing.T) {
	r, err := Analyze(nil, classifier(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = WriteText(&buf, r, TextOptions{Type: "securty", GeneratedAt: base})
	assert.ErrorIs(t, err, ErrUnknownReportType)
	assert.Empty(t, buf.String())
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "john.doe@domain.com", "john.doe@domain.com"},
		{"escape sequence", "guest\x1b[31m", "guest[31m"},
		{"delete", "ro\x7fot", "root"},
		{"c1 csi", "adm\u009b2Jin", "adm2Jin"},
		{"c1 bounds", "a\u0080b\u009fc", "abc"},
		{"keeps newline and tab", "a\tb\nc", "a\tb\nc"},
		{"keeps non ascii", "josé ü", "josé ü"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
