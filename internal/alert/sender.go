// Package alert fans alerts out to user-configured sinks. A sink
// failure is logged and never short-circuits the other sinks or the
// caller — alerting must not block polling or actions.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/flotilla-dev/flotilla/internal/logging"
	"github.com/flotilla-dev/flotilla/internal/metrics"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// AlerterStore loads the configured alert destinations.
type AlerterStore interface {
	ListEnabledAlerters() ([]types.Alerter, error)
}

// Sender dispatches alerts to every enabled alerter.
type Sender struct {
	store   AlerterStore
	log     *logging.Logger
	timeout time.Duration
}

// NewSender creates a Sender. timeout bounds each sink call.
func NewSender(store AlerterStore, log *logging.Logger, timeout time.Duration) *Sender {
	return &Sender{store: store, log: log, timeout: timeout}
}

// Send dispatches each alert to each enabled alerter concurrently and
// waits for all of them. Errors are logged, never returned.
func (s *Sender) Send(ctx context.Context, alerts []types.Alert) {
	if len(alerts) == 0 {
		return
	}
	alerters, err := s.store.ListEnabledAlerters()
	if err != nil {
		s.log.Error("failed to load alerters", "error", err)
		return
	}
	if len(alerters) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, alert := range alerts {
		for _, alerter := range alerters {
			wg.Add(1)
			go func(alert types.Alert, alerter types.Alerter) {
				defer wg.Done()
				s.sendOne(ctx, alert, alerter)
			}(alert, alerter)
		}
	}
	wg.Wait()
}

func (s *Sender) sendOne(ctx context.Context, alert types.Alert, alerter types.Alerter) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var err error
	switch alerter.Config.Type {
	case types.AlerterSlack:
		err = sendSlack(ctx, alerter.Config.URL, alert)
	case types.AlerterCustom:
		err = sendCustom(ctx, alerter.Config.URL, alert)
	case types.AlerterMQTT:
		err = sendMQTT(alerter.Config.URL, alerter.Config.Topic, alert)
	default:
		s.log.Error("unknown alerter type", "alerter", alerter.Name, "type", alerter.Config.Type)
		return
	}
	if err != nil {
		metrics.AlertsSent.WithLabelValues(alerter.Config.Type, "error").Inc()
		s.log.Error("failed to send alert",
			"alerter", alerter.Name, "type", alerter.Config.Type, "alert", alert.Type, "error", err)
		return
	}
	metrics.AlertsSent.WithLabelValues(alerter.Config.Type, "ok").Inc()
}
