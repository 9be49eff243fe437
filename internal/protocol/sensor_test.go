// internal/protocol/sensor_test.go
package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSensorEvent(t *testing.T) {
	line := `{"time":"2026-02-03 12:00:00","model":"Govee-Water","id":16402,"event":"Water Leak","leak_num":3,"battery_ok":true,"mic":"CRC"}`

	ev, err := DecodeSensorEvent(line)
	require.NoError(t, err)

	assert.True(t, ev.HasID)
	assert.Equal(t, uint64(16402), ev.ID)
	assert.Equal(t, "Govee-Water", ev.Model)
	assert.Equal(t, "Water Leak", ev.Event)

	names := make([]string, 0, len(ev.Fields))
	for _, f := range ev.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"time", "model", "id", "event", "leak_num", "battery_ok", "mic"}, names)
	assert.Equal(t, Field{Name: "battery_ok", Value: "true"}, ev.Fields[5])
	assert.Equal(t, Field{Name: "leak_num", Value: "3"}, ev.Fields[4])
}

func TestDecodeSensorEventNonNumericID(t *testing.T) {
	ev, err := DecodeSensorEvent(`{"model":"Acurite-Tower","id":"A1"}`)
	require.NoError(t, err)

	assert.False(t, ev.HasID)
	assert.Equal(t, "A1", ev.Fields[1].Value)
}

func TestDecodeSensorEventNested(t *testing.T) {
	ev, err := DecodeSensorEvent(`{"id":1, "codes": [1, 2], "extra": {"a": null}}`)
	require.NoError(t, err)

	assert.Equal(t, "[1,2]", ev.Fields[1].Value)
	assert.Equal(t, `{"a":null}`, ev.Fields[2].Value)
}

func TestDecodeSensorEventErrors(t *testing.T) {
	tests := []string{
		`{`,
		`{"id": 16402,`,
		`{not json}`,
		`{"id":1} trailing`,
		`{"id":1}{"id":2}`,
	}

	for _, line := range tests {
		_, err := DecodeSensorEvent(line)
		require.Error(t, err, line)

		var decErr *DecodeError
		assert.ErrorAs(t, err, &decErr, line)
		assert.Equal(t, line, decErr.Line)
	}
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "nominal", SeverityNominal.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "critical", SeverityCritical.String())
	assert.Equal(t, "informational", SeverityInformational.String())
}
