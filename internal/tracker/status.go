// internal/tracker/status.go
package tracker

import (
	"github.com/signalnine/housewatch/internal/nut"
	"github.com/signalnine/housewatch/internal/protocol"
)

// UnknownStatus is the status assumed before the first poll
const UnknownStatus = "Unknown"

// DefaultStatusField is the NUT variable holding the UPS status flags
const DefaultStatusField = "ups.status"

// StatusTracker remembers the last status of one UPS and reports changes.
// It is not safe for concurrent use; one driver loop owns it.
type StatusTracker struct {
	entity      string
	field       string
	interesting []string
	last        string
	seen        bool
}

// NewStatusTracker tracks statusField of entity. interesting lists the
// variables copied into every change, in display order.
func NewStatusTracker(entity, statusField string, interesting []string) *StatusTracker {
	if statusField == "" {
		statusField = DefaultStatusField
	}
	return &StatusTracker{
		entity:      entity,
		field:       statusField,
		interesting: append([]string(nil), interesting...),
		last:        UnknownStatus,
	}
}

// Current returns the last observed status
func (t *StatusTracker) Current() string {
	return t.last
}

// Observe records the status in snap. It returns a change, and true, on
// the first observation and whenever the status differs from the previous one.
func (t *StatusTracker) Observe(snap nut.Snapshot) (protocol.StatusChange, bool) {
	next := snap.Get(t.field)
	prev := t.last
	first := !t.seen
	t.last = next
	t.seen = true

	if next == prev && !first {
		return protocol.StatusChange{}, false
	}

	fields := make([]protocol.Field, 0, len(t.interesting))
	for _, name := range t.interesting {
		fields = append(fields, protocol.Field{Name: name, Value: snap.Get(name)})
	}

	return protocol.StatusChange{
		Entity: t.entity,
		Old:    prev,
		New:    next,
		Fields: fields,
	}, true
}
