package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"loggedin/internal/types"
)

const (
	splunkSourcetype = "loggedin:alert"
	splunkSource     = "LoggedIn"
)

// SplunkConfig locates a Splunk HTTP Event Collector
type SplunkConfig struct {
	URL      string // e.g. https://splunk:8088/services/collector/event
	Token    string
	Index    string
	Insecure bool // skip TLS verification for self-signed lab instances
}

// SplunkHEC forwards each alert as one HEC event
type SplunkHEC struct {
	cfg    SplunkConfig
	client *http.Client
}

type hecEvent struct {
	Event      types.Alert `json:"event"`
	Sourcetype string      `json:"sourcetype"`
	Source     string      `json:"source"`
	Index      string      `json:"index,omitempty"`
}

func NewSplunkHEC(cfg SplunkConfig) *SplunkHEC {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for lab setups
	}
	return &SplunkHEC{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second, Transport: transport},
	}
}

func (s *SplunkHEC) Name() string { return "splunk" }

// Send posts all alerts in one request; HEC accepts concatenated event objects.
func (s *SplunkHEC) Send(ctx context.Context, alerts []types.Alert) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range alerts {
		ev := hecEvent{Event: a, Sourcetype: splunkSourcetype, Source: splunkSource, Index: s.cfg.Index}
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("failed to encode hec event: %w", err)
		}
	}
	return postJSON(ctx, s.client, s.cfg.URL, buf.Bytes(), map[string]string{
		"Authorization": "Splunk " + s.cfg.Token,
	})
}
