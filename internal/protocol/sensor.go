// internal/protocol/sensor.go
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DecodeSensorEvent decodes a flat JSON object, keeping key order.
// Nested objects and arrays are kept as compact JSON text.
func DecodeSensorEvent(line string) (SensorEvent, error) {
	var ev SensorEvent

	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return ev, &DecodeError{Line: line, Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ev, &DecodeError{Line: line, Err: errors.New("not a JSON object")}
	}

	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return ev, &DecodeError{Line: line, Err: err}
		}
		name, ok := tok.(string)
		if !ok {
			return ev, &DecodeError{Line: line, Err: fmt.Errorf("unexpected key %v", tok)}
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return ev, &DecodeError{Line: line, Err: err}
		}
		value, err := renderValue(raw)
		if err != nil {
			return ev, &DecodeError{Line: line, Err: fmt.Errorf("field %q: %w", name, err)}
		}

		// Repeated keys keep their first position, last value wins
		if i, seen := index[name]; seen {
			ev.Fields[i].Value = value
		} else {
			index[name] = len(ev.Fields)
			ev.Fields = append(ev.Fields, Field{Name: name, Value: value})
		}

		switch name {
		case "id":
			ev.ID, ev.HasID = parseID(raw)
		case "model":
			ev.Model = value
		case "event":
			ev.Event = value
		}
	}

	if _, err := dec.Token(); err != nil {
		return ev, &DecodeError{Line: line, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return ev, &DecodeError{Line: line, Err: errors.New("trailing data after object")}
	}

	return ev, nil
}

func renderValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", errors.New("empty value")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		// numbers, true, false, null
		return string(raw), nil
	}
}

func parseID(raw json.RawMessage) (uint64, bool) {
	id, err := strconv.ParseUint(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
