package notify

import (
	"context"
	"errors"
	"fmt"

	"loggedin/internal/logging"
	"loggedin/internal/metrics"
	"loggedin/internal/types"
)

// Sink delivers alerts to one external destination
type Sink interface {
	Name() string
	Send(ctx context.Context, alerts []types.Alert) error
}

// Broker fans alerts out to every configured sink
type Broker struct {
	sinks   []Sink
	minRisk types.RiskLevel
}

// NewBroker creates a broker forwarding alerts at or above minRisk.
func NewBroker(minRisk types.RiskLevel, sinks ...Sink) *Broker {
	if minRisk == "" {
		minRisk = types.RiskMedium
	}
	return &Broker{sinks: sinks, minRisk: minRisk}
}

// Enabled reports whether any sink is configured.
func (b *Broker) Enabled() bool {
	return len(b.sinks) > 0
}

// Notify sends the qualifying alerts to each sink. A failing sink does not
// stop the others; all failures are returned joined.
func (b *Broker) Notify(ctx context.Context, alerts []types.Alert) error {
	log := logging.For("notify")

	var selected []types.Alert
	for _, a := range alerts {
		if a.Risk.AtLeast(b.minRisk) {
			selected = append(selected, a)
		}
	}
	if len(selected) == 0 || len(b.sinks) == 0 {
		return nil
	}

	var errs []error
	for _, s := range b.sinks {
		if err := s.Send(ctx, selected); err != nil {
			metrics.NotificationsSent.WithLabelValues(s.Name(), "error").Inc()
			log.Error().Err(err).Str("sink", s.Name()).Msg("failed to deliver alerts")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		metrics.NotificationsSent.WithLabelValues(s.Name(), "ok").Inc()
		log.Info().Str("sink", s.Name()).Int("alerts", len(selected)).Msg("alerts delivered")
	}
	return errors.Join(errs...)
}
