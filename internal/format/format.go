// internal/format/format.go
package format

import (
	"fmt"
	"strings"

	"github.com/signalnine/housewatch/internal/protocol"
	"github.com/signalnine/housewatch/internal/tracker"
)

// Status values that pick a non-default severity
const (
	statusOnline      = "OL"
	statusDischarging = "OB DISCHRG"
)

// Formatter turns pipeline events into alerts. Its methods are pure.
type Formatter struct {
	// Mention is prepended to every summary, e.g. "<@1234>: "
	Mention string
	Phrases tracker.StatusPhrases
}

// New creates a Formatter using the default status phrases
func New(mention string) Formatter {
	return Formatter{Mention: mention, Phrases: tracker.DefaultStatusPhrases}
}

// StatusSeverity classifies a raw UPS status
func StatusSeverity(status string) protocol.Severity {
	switch status {
	case statusOnline:
		return protocol.SeverityNominal
	case statusDischarging:
		return protocol.SeverityCritical
	default:
		return protocol.SeverityInformational
	}
}

// StatusChange formats a UPS status transition
func (f Formatter) StatusChange(ev protocol.StatusChange) protocol.Alert {
	return protocol.Alert{
		Kind:     protocol.KindStatus,
		Summary:  fmt.Sprintf("%sUPS Status: `%s` → `%s`", f.Mention, f.describe(ev.Old), f.describe(ev.New)),
		Title:    "Status Change: " + ev.Entity,
		Severity: StatusSeverity(ev.New),
		Fields:   append([]protocol.Field(nil), ev.Fields...),
	}
}

// SensorTrigger formats an event from a registered sensor, listing every
// raw field so the alert can be traced back to the decoder output
func (f Formatter) SensorTrigger(ev protocol.SensorTrigger) protocol.Alert {
	return protocol.Alert{
		Kind:        protocol.KindSensor,
		Summary:     fmt.Sprintf("%s**%s** - %s", f.Mention, ev.Event.Event, ev.Label),
		Title:       ev.Event.Event,
		Description: ev.Label,
		Severity:    protocol.SeverityWarning,
		Fields:      append([]protocol.Field(nil), ev.Event.Fields...),
	}
}

// DiagnosticFlush formats buffered decoder output
func (f Formatter) DiagnosticFlush(ev protocol.DiagnosticFlush) protocol.Alert {
	return protocol.Alert{
		Kind:        protocol.KindDiagnostics,
		Summary:     f.Mention + "Starting up!",
		Title:       "Starting Up...",
		Description: strings.Join(ev.Lines, "\n"),
		Severity:    protocol.SeverityInformational,
	}
}

// SourceExit formats the end of an input source
func (f Formatter) SourceExit(ev protocol.SourceExit) protocol.Alert {
	reason := "end of stream"
	if ev.Err != nil {
		reason = ev.Err.Error()
	}
	return protocol.Alert{
		Kind:        protocol.KindSourceExit,
		Summary:     fmt.Sprintf("%s%s stopped, no further sensor alerts will be sent", f.Mention, ev.Source),
		Title:       "Sensor Source Stopped",
		Description: reason,
		Severity:    protocol.SeverityCritical,
	}
}

func (f Formatter) describe(status string) string {
	if f.Phrases == nil {
		return status
	}
	return f.Phrases.Describe(status)
}
