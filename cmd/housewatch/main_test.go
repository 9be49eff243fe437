// cmd/housewatch/main_test.go
package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/housewatch/internal/config"
	"github.com/signalnine/housewatch/internal/journal"
	"github.com/signalnine/housewatch/internal/protocol"
)

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	err := printEntries(&buf, []journal.Entry{
		{
			Pipeline:  "power",
			Alert:     protocol.Alert{Kind: protocol.KindStatus, Title: "Status Change: apc-1", Severity: protocol.SeverityCritical},
			Delivered: true,
			CreatedAt: time.Now(),
		},
		{
			Pipeline:  "sensor",
			Alert:     protocol.Alert{Kind: protocol.KindSensor, Title: "Water Leak", Severity: protocol.SeverityWarning},
			Error:     "webhook returned 429: slow down",
			CreatedAt: time.Now(),
		},
	})
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "TIME"))
	assert.Contains(t, lines[1], "Status Change: apc-1")
	assert.Contains(t, lines[1], "critical")
	assert.Contains(t, lines[2], "no: webhook returned 429: slow down")
}

func TestNewWebhookClient(t *testing.T) {
	_, err := newWebhookClient(config.WebhookConfig{URL: "https://example.com/hook", RetryAttempts: 3})
	assert.NoError(t, err)

	_, err = newWebhookClient(config.WebhookConfig{URL: "https://example.com/hook", Interface: "an-interface-name-too-long"})
	assert.Error(t, err)
}

func TestLoadConfigSinglePipeline(t *testing.T) {
	t.Setenv("HOUSEWATCH_WEBHOOK_URL", "https://example.com/hook")
	configPath = ""

	cfg, err := loadConfig(pipelineSensor)
	require.NoError(t, err)
	assert.False(t, cfg.Power.Enabled)
	assert.True(t, cfg.Sensor.Enabled)

	cfg, err = loadConfig(pipelineAll)
	require.NoError(t, err)
	assert.True(t, cfg.Power.Enabled)
	assert.True(t, cfg.Sensor.Enabled)
}
