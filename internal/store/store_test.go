package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loggedin/internal/detect"
	"loggedin/internal/event"
	"loggedin/internal/report"
)

var base = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "loggedin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func analyze(t *testing.T, events []event.Record) *report.Report {
	t.Helper()
	c, err := detect.NewClassifier(detect.DefaultConfig())
	require.NoError(t, err)
	r, err := report.Analyze(events, c)
	require.NoError(t, err)
	return r
}

func failures(user string, n int) []event.Record {
	var out []event.Record
	for i := 0; i < n; i++ {
		out = append(out, event.MustNew(base.Add(time.Duration(i)*time.Minute), event.FailedLogin, user, "WS02"))
	}
	return out
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	events := append(failures("hacker@bad.com", 6),
		event.MustNew(base.Add(3*time.Hour), event.SuccessfulLogin, "admin@domain.com", "SRV01"))
	r := analyze(t, events)

	runID := NewRunID()
	require.NoError(t, s.SaveRun(ctx, runID, base, events, r))

	loaded, err := s.LoadReport(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, r, loaded)

	latest, err := s.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.TotalEvents, latest.TotalEvents)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	first, second := NewRunID(), NewRunID()
	require.NoError(t, s.SaveRun(ctx, first, base, failures("john", 2), analyze(t, failures("john", 2))))
	require.NoError(t, s.SaveRun(ctx, second, base.Add(time.Hour), failures("hacker", 5), analyze(t, failures("hacker", 5))))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, 5, runs[0].TotalEvents)
	assert.Equal(t, 1, runs[0].Suspicious)
	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, 0, runs[1].Alerts)
}

func TestStore_TopFailedUsersAcrossRuns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	a := append(failures("u1", 2), failures("u2", 3)...)
	b := append(failures("u2", 2), failures("u3", 5)...)
	require.NoError(t, s.SaveRun(ctx, NewRunID(), base, a, analyze(t, a)))
	require.NoError(t, s.SaveRun(ctx, NewRunID(), base.Add(time.Hour), b, analyze(t, b)))

	top, err := s.TopFailedUsers(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []report.UserCount{{User: "u2", Count: 5}, {User: "u3", Count: 5}, {User: "u1", Count: 2}}, top)
}

func TestStore_NotFound(t *testing.T) {
	s := openStore(t)

	_, err := s.LatestReport(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LoadReport(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
	assert.NotEqual(t, id, NewRunID())
}
