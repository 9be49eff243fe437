// internal/stream/reader.go
package stream

import (
	"bufio"
	"io"
	"strings"
)

// Kind is the classification of one output line
type Kind int

const (
	KindBlank Kind = iota
	KindDiagnostic
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindDiagnostic:
		return "diagnostic"
	case KindStructured:
		return "structured"
	default:
		return "blank"
	}
}

// Line is a classified line with its terminator removed
type Line struct {
	Kind Kind
	Text string
}

// Classify reports whether line is a structured event (starts with '{')
// or diagnostic text. Trailing line terminators are ignored.
func Classify(line string) Kind {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case line == "":
		return KindBlank
	case line[0] == '{':
		return KindStructured
	default:
		return KindDiagnostic
	}
}

// Reader yields classified, non-blank lines from an underlying stream.
// Once it returns an error (io.EOF at end of stream) it keeps returning it.
type Reader struct {
	r   *bufio.Reader
	err error
}

// NewReader creates a Reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next blocks until the next non-blank line is available
func (r *Reader) Next() (Line, error) {
	for {
		if r.err != nil {
			return Line{}, r.err
		}

		raw, err := r.r.ReadString('\n')
		if err != nil {
			// A final line without a terminator is still delivered
			r.err = err
		}

		text := strings.TrimRight(raw, "\r\n")
		kind := Classify(text)
		if kind == KindBlank {
			continue
		}
		return Line{Kind: kind, Text: text}, nil
	}
}
