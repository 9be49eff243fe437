// internal/monitor/sensor.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/signalnine/housewatch/internal/protocol"
	"github.com/signalnine/housewatch/internal/stream"
	"github.com/signalnine/housewatch/internal/tracker"
)

const sensorPipeline = "sensor"

// LineSource yields classified lines until it returns an error
type LineSource interface {
	Next() (stream.Line, error)
}

// StartFunc launches a line source
type StartFunc func(ctx context.Context, name string, args ...string) (LineSource, error)

// StartProcess runs name as a child process
func StartProcess(ctx context.Context, name string, args ...string) (LineSource, error) {
	p, err := stream.Start(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SensorConfig configures the radio sensor pipeline
type SensorConfig struct {
	Command  string
	Args     []string
	Model    string
	Registry tracker.DeviceRegistry
	Start    StartFunc // nil uses StartProcess
}

// SensorMonitor reads decoder output, forwards diagnostics in batches and
// alerts on events from registered sensors
type SensorMonitor struct {
	cfg    SensorConfig
	deps   Deps
	filter tracker.SensorFilter
	buffer tracker.DiagnosticBuffer
	notify *notifier
	log    zerolog.Logger
}

// NewSensorMonitor creates the sensor pipeline
func NewSensorMonitor(cfg SensorConfig, deps Deps) *SensorMonitor {
	if cfg.Start == nil {
		cfg.Start = StartProcess
	}

	log := deps.Log.With().Str("pipeline", sensorPipeline).Logger()

	return &SensorMonitor{
		cfg:    cfg,
		deps:   deps,
		filter: tracker.SensorFilter{Registry: cfg.Registry, Model: cfg.Model},
		notify: newNotifier(sensorPipeline, deps, log),
		log:    log,
	}
}

// Run starts the decoder and handles its output until it exits or ctx is
// cancelled. The decoder ending on its own is reported and returned as an
// error wrapping stream.ErrSourceClosed; it is not restarted.
func (m *SensorMonitor) Run(ctx context.Context) error {
	m.log.Info().
		Str("command", m.cfg.Command).
		Strs("args", m.cfg.Args).
		Int("devices", len(m.cfg.Registry)).
		Msg("Sensor monitor starting")

	src, err := m.cfg.Start(ctx, m.cfg.Command, m.cfg.Args...)
	if err != nil {
		return fmt.Errorf("start sensor decoder: %w", err)
	}
	if s, ok := src.(interface{ Stop() error }); ok {
		defer s.Stop()
	}

	return m.Consume(ctx, src)
}

// Consume handles lines from src until it is exhausted
func (m *SensorMonitor) Consume(ctx context.Context, src LineSource) error {
	for {
		line, err := src.Next()
		if err != nil {
			if ctx.Err() != nil {
				m.log.Info().Msg("Sensor monitor shutting down")
				return nil
			}
			return m.sourceEnded(ctx, src, err)
		}
		m.HandleLine(ctx, line)
	}
}

// HandleLine processes one line. Diagnostic lines are buffered; a
// structured line first flushes the buffer as its own alert and is then
// decoded and matched against the device registry.
func (m *SensorMonitor) HandleLine(ctx context.Context, line stream.Line) {
	m.log.Debug().Str("kind", line.Kind.String()).Str("line", line.Text).Msg("Decoder output")
	if m.deps.Metrics != nil {
		m.deps.Metrics.Lines.WithLabelValues(sensorPipeline, line.Kind.String()).Inc()
	}

	switch line.Kind {
	case stream.KindDiagnostic:
		m.buffer.Add(line.Text)
	case stream.KindStructured:
		m.flushDiagnostics(ctx)
		m.handleEvent(ctx, line.Text)
	}
}

// Pending returns the number of buffered diagnostic lines
func (m *SensorMonitor) Pending() int {
	return m.buffer.Len()
}

func (m *SensorMonitor) handleEvent(ctx context.Context, text string) {
	ev, err := protocol.DecodeSensorEvent(text)
	if err != nil {
		if m.deps.Metrics != nil {
			m.deps.Metrics.DecodeFailures.WithLabelValues(sensorPipeline).Inc()
		}
		m.log.Warn().Err(err).Str("line", text).Msg("Failed to decode sensor event")
		return
	}

	label, ok := m.filter.Match(ev)
	if !ok {
		m.log.Debug().Uint64("id", ev.ID).Str("model", ev.Model).Msg("Ignoring unregistered sensor")
		return
	}

	m.log.Info().Uint64("id", ev.ID).Str("device", label).Str("event", ev.Event).Msg("Sensor triggered")
	m.notify.notify(ctx, m.deps.Formatter.SensorTrigger(protocol.SensorTrigger{Label: label, Event: ev}))
}

func (m *SensorMonitor) flushDiagnostics(ctx context.Context) {
	dropped := m.buffer.Dropped()
	lines := m.buffer.Flush()
	if lines == nil {
		return
	}
	if dropped > 0 {
		m.log.Warn().Int("dropped", dropped).Msg("Diagnostic buffer overflowed, oldest lines dropped")
	}
	m.notify.notify(ctx, m.deps.Formatter.DiagnosticFlush(protocol.DiagnosticFlush{Lines: lines}))
}

// sourceEnded reports the end of the decoder output and builds the error Run returns
func (m *SensorMonitor) sourceEnded(ctx context.Context, src LineSource, readErr error) error {
	var exitErr error
	if w, ok := src.(interface{ Wait() error }); ok {
		exitErr = w.Wait()
	}
	if !errors.Is(readErr, io.EOF) {
		exitErr = errors.Join(readErr, exitErr)
	}

	m.log.Error().Err(exitErr).Str("command", m.cfg.Command).Msg("Sensor decoder output ended")

	// Whatever it printed last usually explains why
	m.flushDiagnostics(ctx)
	m.notify.notify(ctx, m.deps.Formatter.SourceExit(protocol.SourceExit{Source: m.cfg.Command, Err: exitErr}))

	if exitErr != nil {
		return fmt.Errorf("%s: %w: %w", m.cfg.Command, stream.ErrSourceClosed, exitErr)
	}
	return fmt.Errorf("%s: %w", m.cfg.Command, stream.ErrSourceClosed)
}
