// internal/monitor/notifier.go
package monitor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/signalnine/housewatch/internal/format"
	"github.com/signalnine/housewatch/internal/metrics"
	"github.com/signalnine/housewatch/internal/protocol"
	"github.com/signalnine/housewatch/internal/webhook"
)

// Sender delivers one alert
type Sender interface {
	Deliver(ctx context.Context, a protocol.Alert) error
}

// Recorder keeps a history of alerts and their delivery outcome
type Recorder interface {
	Record(pipeline string, a protocol.Alert, deliveryErr error) (string, error)
}

// Deps are the collaborators shared by both monitors.
// Journal and Metrics are optional.
type Deps struct {
	Sender    Sender
	Formatter format.Formatter
	Journal   Recorder
	Metrics   *metrics.Metrics
	Log       zerolog.Logger
}

// notifier hands alerts to the sender and never lets a failure escape
type notifier struct {
	pipeline string
	deps     Deps
	log      zerolog.Logger
}

func newNotifier(pipeline string, deps Deps, log zerolog.Logger) *notifier {
	return &notifier{pipeline: pipeline, deps: deps, log: log}
}

// notify returns whether the alert was delivered
func (n *notifier) notify(ctx context.Context, a protocol.Alert) bool {
	err := n.deps.Sender.Deliver(ctx, a)

	outcome := "delivered"
	if err != nil {
		outcome = "failed"
		n.log.Error().
			Err(err).
			Str("kind", string(a.Kind)).
			Str("title", a.Title).
			Bool("retryable", webhook.IsRetryable(err)).
			Msg("Alert delivery failed")
	} else {
		n.log.Info().
			Str("kind", string(a.Kind)).
			Str("title", a.Title).
			Str("severity", a.Severity.String()).
			Msg("Alert delivered")
	}

	if n.deps.Metrics != nil {
		n.deps.Metrics.Alerts.WithLabelValues(n.pipeline, string(a.Kind), outcome).Inc()
	}

	if n.deps.Journal != nil {
		if _, jerr := n.deps.Journal.Record(n.pipeline, a, err); jerr != nil {
			n.log.Warn().Err(jerr).Str("title", a.Title).Msg("Failed to journal alert")
		}
	}

	return err == nil
}
