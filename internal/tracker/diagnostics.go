// internal/tracker/diagnostics.go
package tracker

// MaxDiagnosticLines caps how many pending lines are kept between events
const MaxDiagnosticLines = 500

// DiagnosticBuffer collects diagnostic lines until the next structured event
type DiagnosticBuffer struct {
	lines   []string
	dropped int
}

// Add appends a line. Past MaxDiagnosticLines the oldest lines are dropped.
func (b *DiagnosticBuffer) Add(line string) {
	b.lines = append(b.lines, line)

	var truncated bool
	if b.lines, truncated = CapLines(b.lines); truncated {
		b.dropped++
	}
}

// Len returns the number of pending lines
func (b *DiagnosticBuffer) Len() int {
	return len(b.lines)
}

// Dropped returns how many lines were discarded since the last flush
func (b *DiagnosticBuffer) Dropped() int {
	return b.dropped
}

// Flush returns the pending lines in arrival order and empties the buffer.
// It returns nil when nothing is pending.
func (b *DiagnosticBuffer) Flush() []string {
	if len(b.lines) == 0 {
		return nil
	}
	lines := b.lines
	b.lines = nil
	b.dropped = 0
	return lines
}

// CapLines returns at most MaxDiagnosticLines from the end of the slice (most recent)
// Returns true if lines were truncated
func CapLines(lines []string) ([]string, bool) {
	if len(lines) <= MaxDiagnosticLines {
		return lines, false
	}
	return lines[len(lines)-MaxDiagnosticLines:], true
}
