// internal/nut/errors.go
package nut

import (
	"errors"
	"fmt"
)

// ConnectionError means the connection to upsd could not be established or
// was lost. The connection must be discarded.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("upsd connection %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError means a response did not follow the expected grammar.
// The connection stays usable.
type ProtocolError struct {
	UPS  string
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("upsd response for %s: %v (line %q)", e.UPS, e.Err, e.Line)
	}
	return fmt.Sprintf("upsd response for %s: %v", e.UPS, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err requires a reconnect
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsProtocolError reports whether err is a malformed response
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
