// internal/monitor/power.go
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/signalnine/housewatch/internal/nut"
	"github.com/signalnine/housewatch/internal/tracker"
)

const powerPipeline = "power"

// Poller queries a status service over one connection
type Poller interface {
	ListVars(ctx context.Context, ups string) (nut.Snapshot, error)
	Close() error
}

// DialFunc opens a Poller connection
type DialFunc func(ctx context.Context, addr string) (Poller, error)

// DialNUT connects to upsd
func DialNUT(ctx context.Context, addr string) (Poller, error) {
	return nut.Dial(ctx, addr)
}

// PowerConfig configures the UPS pipeline
type PowerConfig struct {
	Address           string
	UPS               string
	PollInterval      time.Duration
	DialTimeout       time.Duration
	StatusField       string
	Interesting       []string
	ReconnectAttempts uint
	ReconnectInterval time.Duration // first backoff step
	Dial              DialFunc      // nil uses DialNUT
}

// PowerMonitor polls a UPS and alerts when its status changes
type PowerMonitor struct {
	cfg     PowerConfig
	deps    Deps
	tracker *tracker.StatusTracker
	notify  *notifier
	log     zerolog.Logger

	poller Poller
}

// NewPowerMonitor creates the UPS pipeline
func NewPowerMonitor(cfg PowerConfig, deps Deps) *PowerMonitor {
	if cfg.Dial == nil {
		cfg.Dial = DialNUT
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = time.Second
	}
	if cfg.ReconnectAttempts == 0 {
		cfg.ReconnectAttempts = 1
	}

	log := deps.Log.With().Str("pipeline", powerPipeline).Str("ups", cfg.UPS).Logger()

	return &PowerMonitor{
		cfg:     cfg,
		deps:    deps,
		tracker: tracker.NewStatusTracker(cfg.UPS, cfg.StatusField, cfg.Interesting),
		notify:  newNotifier(powerPipeline, deps, log),
		log:     log,
	}
}

// Run polls until ctx is cancelled. It returns an error only when the
// status service cannot be reached after the configured reconnect attempts.
func (m *PowerMonitor) Run(ctx context.Context) error {
	m.log.Info().
		Str("addr", m.cfg.Address).
		Dur("interval", m.cfg.PollInterval).
		Msg("Power monitor starting")

	if err := m.connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer m.disconnect()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	// Run immediately on start
	if err := m.Poll(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Power monitor shutting down")
			return nil
		case <-ticker.C:
			if err := m.Poll(ctx); err != nil {
				return err
			}
		}
	}
}

// Poll runs one query and reports a status change if there is one.
// Malformed responses are logged and skipped; a lost connection is
// re-established before returning.
func (m *PowerMonitor) Poll(ctx context.Context) error {
	if m.poller == nil {
		if err := m.connect(ctx); err != nil {
			return err
		}
	}

	snap, err := m.poller.ListVars(ctx, m.cfg.UPS)
	switch {
	case err == nil:
		m.countPoll("ok")
	case ctx.Err() != nil:
		return nil
	case nut.IsProtocolError(err):
		m.countPoll("protocol_error")
		m.log.Warn().Err(err).Msg("Malformed upsd response, skipping poll")
		return nil
	default:
		m.countPoll("connection_error")
		m.log.Warn().Err(err).Msg("Lost upsd connection, reconnecting")
		m.disconnect()
		if m.deps.Metrics != nil {
			m.deps.Metrics.Reconnects.WithLabelValues(powerPipeline).Inc()
		}
		if err := m.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		return nil
	}

	m.observe(ctx, snap)
	return nil
}

func (m *PowerMonitor) observe(ctx context.Context, snap nut.Snapshot) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.SetUPSStatus(m.cfg.UPS, snap.Get(m.statusField()))
	}

	change, ok := m.tracker.Observe(snap)
	if !ok {
		return
	}

	m.log.Info().Str("from", change.Old).Str("to", change.New).Msg("UPS status changed")
	m.notify.notify(ctx, m.deps.Formatter.StatusChange(change))
}

// connect dials with exponential backoff, giving up after ReconnectAttempts
func (m *PowerMonitor) connect(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.ReconnectInterval
	bo.MaxInterval = 30 * time.Second

	attempt := 0
	operation := func() (Poller, error) {
		attempt++

		dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
		defer cancel()
		return m.cfg.Dial(dialCtx, m.cfg.Address)
	}

	notify := func(err error, next time.Duration) {
		m.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("upsd connect failed")
	}

	poller, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(m.cfg.ReconnectAttempts),
		backoff.WithNotify(notify))
	if err != nil {
		return fmt.Errorf("connect to upsd at %s after %d attempts: %w", m.cfg.Address, attempt, err)
	}

	m.log.Info().Str("addr", m.cfg.Address).Msg("Connected to upsd")
	m.poller = poller
	return nil
}

func (m *PowerMonitor) disconnect() {
	if m.poller == nil {
		return
	}
	if err := m.poller.Close(); err != nil {
		m.log.Debug().Err(err).Msg("Closing upsd connection")
	}
	m.poller = nil
}

func (m *PowerMonitor) countPoll(result string) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.Polls.WithLabelValues(powerPipeline, result).Inc()
	}
}

func (m *PowerMonitor) statusField() string {
	if m.cfg.StatusField == "" {
		return tracker.DefaultStatusField
	}
	return m.cfg.StatusField
}
