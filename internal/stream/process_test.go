// internal/stream/process_test.go
package stream

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, next func() (Line, error)) []Line {
	t.Helper()

	var lines []Line
	for {
		line, err := next()
		if err == io.EOF {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
}

func TestProcessMergesStderr(t *testing.T) {
	script := `echo "rtl_433 version 23.11"; echo "Found Rafael Micro R820T tuner" >&2; echo '{"id":16402,"model":"Govee-Water"}'; echo "Exiting" >&2`

	p, err := Start(context.Background(), "sh", "-c", script)
	require.NoError(t, err)

	lines := readAll(t, p.Next)
	require.NoError(t, p.Wait())

	assert.Equal(t, []Line{
		{Kind: KindDiagnostic, Text: "rtl_433 version 23.11"},
		{Kind: KindDiagnostic, Text: "Found Rafael Micro R820T tuner"},
		{Kind: KindStructured, Text: `{"id":16402,"model":"Govee-Water"}`},
		{Kind: KindDiagnostic, Text: "Exiting"},
	}, lines)
}

func TestProcessExitStatus(t *testing.T) {
	p, err := Start(context.Background(), "sh", "-c", "echo usb_open error; exit 3")
	require.NoError(t, err)

	lines := readAll(t, p.Next)
	assert.Len(t, lines, 1)

	err = p.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sh exited")

	// Wait is idempotent
	assert.Equal(t, err, p.Wait())
}

func TestProcessStop(t *testing.T) {
	p, err := Start(context.Background(), "sh", "-c", "echo ready; sleep 30")
	require.NoError(t, err)

	line, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "ready", line.Text)

	assert.Error(t, p.Stop())
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(context.Background(), "/nonexistent/rtl_433", "-F", "json")
	assert.Error(t, err)
}
