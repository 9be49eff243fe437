// internal/protocol/types.go
package protocol

import "fmt"

// Severity classifies how an alert should be presented
type Severity int

const (
	SeverityInformational Severity = iota
	SeverityNominal
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityNominal:
		return "nominal"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "informational"
	}
}

// Kind tells which pipeline event an alert was built from
type Kind string

const (
	KindStatus      Kind = "status"
	KindSensor      Kind = "sensor"
	KindDiagnostics Kind = "diagnostics"
	KindSourceExit  Kind = "source_exit"
)

// Field is one named value shown in an alert table
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Alert is a formatted notification, ready for delivery
type Alert struct {
	Kind        Kind     `json:"kind"`
	Summary     string   `json:"summary"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity"`
	Fields      []Field  `json:"fields,omitempty"`
}

// StatusChange is emitted when a polled entity reports a new status
type StatusChange struct {
	Entity string
	Old    string
	New    string
	Fields []Field // caller-declared order
}

// SensorEvent is one decoded structured line from the sensor decoder.
// Fields keeps the order the keys appeared in on the line.
type SensorEvent struct {
	ID     uint64
	HasID  bool
	Model  string
	Event  string
	Fields []Field
}

// SensorTrigger is a SensorEvent from a registered device
type SensorTrigger struct {
	Label string
	Event SensorEvent
}

// DiagnosticFlush carries buffered diagnostic lines, in arrival order
type DiagnosticFlush struct {
	Lines []string
}

// SourceExit reports that an input source stopped producing data
type SourceExit struct {
	Source string
	Err    error
}

// DecodeError means a line that looked structured could not be decoded
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode structured line %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
