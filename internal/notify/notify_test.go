package notify

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loggedin/internal/types"
)

type recordingSink struct {
	name string
	err  error
	mu   sync.Mutex
	got  [][]types.Alert
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Send(_ context.Context, alerts []types.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, alerts)
	return r.err
}

func TestBroker_FiltersByRisk(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	b := NewBroker(types.RiskHigh, sink)

	err := b.Notify(context.Background(), []types.Alert{
		types.BruteForce("hacker", 6),
		types.MultiHostLogin("john", []string{"A", "B", "C"}),
	})
	require.NoError(t, err)
	require.Len(t, sink.got, 1)
	assert.Equal(t, []types.Alert{types.BruteForce("hacker", 6)}, sink.got[0])
}

func TestBroker_NothingToSend(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	b := NewBroker(types.RiskHigh, sink)

	require.NoError(t, b.Notify(context.Background(), []types.Alert{types.UnusualHours([]int{2}, []string{"x"})}))
	assert.Empty(t, sink.got)
	assert.False(t, NewBroker("").Enabled())
}

func TestBroker_FailingSinkDoesNotStopOthers(t *testing.T) {
	boom := errors.New("boom")
	bad := &recordingSink{name: "bad", err: boom}
	good := &recordingSink{name: "good"}
	b := NewBroker(types.RiskMedium, bad, good)

	err := b.Notify(context.Background(), []types.Alert{types.BruteForce("hacker", 6)})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "bad")
	assert.Len(t, good.got, 1)
}

func TestSplunkHEC_Send(t *testing.T) {
	var (
		auth   string
		events []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			var ev map[string]any
			if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
				t.Errorf("bad hec payload: %v", err)
			}
			events = append(events, ev)
		}
		w.Write([]byte(`{"text":"Success","code":0}`))
	}))
	defer srv.Close()

	hec := NewSplunkHEC(SplunkConfig{URL: srv.URL, Token: "abc-123", Index: "security"})
	err := hec.Send(context.Background(), []types.Alert{
		types.BruteForce("hacker@bad.com", 6),
		types.SuspiciousAccount("hacker@bad.com", types.ReasonExcessiveFailures),
	})
	require.NoError(t, err)

	assert.Equal(t, "Splunk abc-123", auth)
	require.Len(t, events, 2)
	assert.Equal(t, "loggedin:alert", events[0]["sourcetype"])
	assert.Equal(t, "LoggedIn", events[0]["source"])
	assert.Equal(t, "security", events[0]["index"])
	inner := events[0]["event"].(map[string]any)
	assert.Equal(t, "brute_force", inner["kind"])
	assert.EqualValues(t, 6, inner["failed_count"])
}

func TestSplunkHEC_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"text":"Invalid token","code":4}`, http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSplunkHEC(SplunkConfig{URL: srv.URL, Token: "bad"}).Send(context.Background(), []types.Alert{types.BruteForce("x", 5)})
	assert.ErrorContains(t, err, "403")
}

func TestDiscordSink_Send(t *testing.T) {
	var content string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Errorf("bad discord payload: %v", err)
		}
		content = msg.Content
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscordSink(srv.URL)
	d.now = func() time.Time { return time.Date(2023, 1, 1, 12, 30, 0, 0, time.UTC) }

	require.NoError(t, d.Send(context.Background(), []types.Alert{types.BruteForce("hacker@bad.com", 6)}))
	assert.True(t, strings.HasPrefix(content, "**[12:30:00] LoggedIn: 1 alert(s)**"))
	assert.Contains(t, content, "- **HIGH** User hacker@bad.com failed 6 login attempts")
}

func TestDiscordSink_TruncatesLongDigest(t *testing.T) {
	var content string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg struct {
			Content string `json:"content"`
		}
		json.NewDecoder(r.Body).Decode(&msg)
		content = msg.Content
	}))
	defer srv.Close()

	var alerts []types.Alert
	for i := 0; i < 200; i++ {
		alerts = append(alerts, types.BruteForce(strings.Repeat("u", 20), i))
	}
	require.NoError(t, NewDiscordSink(srv.URL).Send(context.Background(), alerts))
	assert.LessOrEqual(t, len(content), discordMaxContent)
	assert.True(t, strings.HasSuffix(content, "...\n"))
}
