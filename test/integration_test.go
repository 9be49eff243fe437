// test/integration_test.go
package test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/signalnine/housewatch/internal/format"
	"github.com/signalnine/housewatch/internal/journal"
	"github.com/signalnine/housewatch/internal/metrics"
	"github.com/signalnine/housewatch/internal/monitor"
	"github.com/signalnine/housewatch/internal/protocol"
	"github.com/signalnine/housewatch/internal/stream"
	"github.com/signalnine/housewatch/internal/tracker"
	"github.com/signalnine/housewatch/internal/webhook"
)

// webhookRecorder is a Discord stand-in that keeps every message posted to it
type webhookRecorder struct {
	mu       sync.Mutex
	messages []webhook.Message
}

func (r *webhookRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var msg webhook.Message
	if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (r *webhookRecorder) received() []webhook.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]webhook.Message(nil), r.messages...)
}

// startUpsd serves LIST VAR requests, answering with the given statuses in
// order and repeating the last one
func startUpsd(t *testing.T, ups string, statuses ...string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		for i := 0; ; i++ {
			req, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if strings.TrimSpace(req) != "LIST VAR "+ups {
				fmt.Fprintf(conn, "ERR UNKNOWN-COMMAND\n")
				continue
			}

			status := statuses[min(i, len(statuses)-1)]
			fmt.Fprintf(conn, "BEGIN LIST VAR %s\n", ups)
			fmt.Fprintf(conn, "VAR %s ups.status \"%s\"\n", ups, status)
			fmt.Fprintf(conn, "VAR %s ups.load \"23\"\n", ups)
			fmt.Fprintf(conn, "VAR %s input.voltage \"121.0\"\n", ups)
			fmt.Fprintf(conn, "END LIST VAR %s\n", ups)
		}
	}()

	return ln.Addr().String()
}

// TestIntegrationPipelines runs both pipelines against a fake upsd, a shell
// script standing in for the radio decoder and a local webhook
func TestIntegrationPipelines(t *testing.T) {
	// 1. Start the webhook receiver
	recorder := &webhookRecorder{}
	hook := httptest.NewServer(recorder)
	defer hook.Close()

	// 2. Open a journal in a temp dir
	j, err := journal.Open(filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer j.Close()

	deps := monitor.Deps{
		Sender: webhook.New(hook.URL, webhook.WithThumbnails(map[protocol.Kind]string{
			protocol.KindSensor: "https://example.com/leak.jpg",
		})),
		Formatter: format.New("<@1234>: "),
		Journal:   j,
		Metrics:   metrics.New(),
		Log:       zerolog.New(zerolog.NewTestWriter(t)),
	}

	// 3. Run the sensor pipeline to the end of its output
	sensor := monitor.NewSensorMonitor(monitor.SensorConfig{
		Command: "sh",
		Args: []string{"-c", strings.Join([]string{
			`echo "rtl_433 version 23.11 branch master" >&2`,
			`echo "Tuned to 433.920MHz."`,
			`echo '{"time":"2026-02-03 12:00:00","model":"Govee-Water","id":16402,"event":"Water Leak","leak_num":1}'`,
			`echo '{"time":"2026-02-03 12:00:01","model":"Govee-Water","id":99999,"event":"Water Leak"}'`,
		}, "; ")},
		Model:    "Govee-Water",
		Registry: tracker.DeviceRegistry{16402: "#1: Under the downstairs bathroom toilet"},
	}, deps)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sensor.Run(ctx); !errors.Is(err, stream.ErrSourceClosed) {
		t.Fatalf("sensor Run = %v, want ErrSourceClosed", err)
	}

	// 4. Run the power pipeline until both status changes are delivered
	addr := startUpsd(t, "apc-1", "OL", "OL", "OB DISCHRG")
	power := monitor.NewPowerMonitor(monitor.PowerConfig{
		Address:      addr,
		UPS:          "apc-1",
		PollInterval: 20 * time.Millisecond,
		Interesting:  []string{"ups.status", "ups.load", "battery.runtime"},
	}, deps)

	powerCtx, stopPower := context.WithCancel(ctx)
	powerErr := make(chan error, 1)
	go func() { powerErr <- power.Run(powerCtx) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(recorder.received()) < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("received %d messages, want 5", len(recorder.received()))
		}
		time.Sleep(10 * time.Millisecond)
	}
	stopPower()
	if err := <-powerErr; err != nil {
		t.Fatalf("power Run: %v", err)
	}

	// 5. Check what reached the webhook
	msgs := recorder.received()
	if len(msgs) != 5 {
		t.Fatalf("received %d messages, want 5", len(msgs))
	}

	diag := msgs[0]
	if diag.Content != "<@1234>: Starting up!" {
		t.Errorf("diagnostics content = %q", diag.Content)
	}
	if !strings.Contains(diag.Embeds[0].Description, "Tuned to 433.920MHz.") {
		t.Errorf("diagnostics description = %q", diag.Embeds[0].Description)
	}

	leak := msgs[1]
	if leak.Content != "<@1234>: **Water Leak** - #1: Under the downstairs bathroom toilet" {
		t.Errorf("leak content = %q", leak.Content)
	}
	if leak.Embeds[0].Color != 0xFFFF00 {
		t.Errorf("leak color = %#x, want 0xffff00", leak.Embeds[0].Color)
	}
	if leak.Embeds[0].Thumbnail == nil || leak.Embeds[0].Thumbnail.URL != "https://example.com/leak.jpg" {
		t.Errorf("leak thumbnail = %+v", leak.Embeds[0].Thumbnail)
	}

	if msgs[2].Embeds[0].Title != "Sensor Source Stopped" {
		t.Errorf("exit title = %q", msgs[2].Embeds[0].Title)
	}

	online := msgs[3]
	if online.Content != "<@1234>: UPS Status: `Unknown` → `Online`" {
		t.Errorf("online content = %q", online.Content)
	}
	fields := online.Embeds[0].Fields
	if len(fields) != 3 || fields[1].Value != "23" || fields[2].Value != "\u200b" {
		t.Errorf("online fields = %+v", fields)
	}

	onBattery := msgs[4]
	if onBattery.Embeds[0].Color != 0xFF0000 {
		t.Errorf("on battery color = %#x, want 0xff0000", onBattery.Embeds[0].Color)
	}

	// 6. Every alert is journaled as delivered
	entries, err := j.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("journal has %d entries, want 5", len(entries))
	}
	for _, e := range entries {
		if !e.Delivered {
			t.Errorf("entry %s (%s) not delivered: %s", e.ID, e.Alert.Title, e.Error)
		}
	}
	if entries[0].Alert.Severity != protocol.SeverityCritical || entries[0].Pipeline != "power" {
		t.Errorf("newest entry = %+v", entries[0])
	}

	counts, err := j.KindCounts()
	if err != nil {
		t.Fatalf("KindCounts: %v", err)
	}
	if counts[string(protocol.KindSensor)] != 1 || counts[string(protocol.KindStatus)] != 2 {
		t.Errorf("kind counts = %v", counts)
	}
}

// TestIntegrationWebhookFailure checks that a rejected delivery is journaled
// and does not stop the pipeline
func TestIntegrationWebhookFailure(t *testing.T) {
	var calls int
	var mu sync.Mutex
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			http.Error(w, `{"message": "Invalid Webhook Token"}`, http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	j, err := journal.Open(filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer j.Close()

	m := monitor.NewSensorMonitor(monitor.SensorConfig{
		Model:    "Govee-Water",
		Registry: tracker.DeviceRegistry{16402: "toilet"},
	}, monitor.Deps{
		Sender:    webhook.New(hook.URL),
		Formatter: format.New(""),
		Journal:   j,
		Log:       zerolog.New(zerolog.NewTestWriter(t)),
	})

	event := stream.Line{Kind: stream.KindStructured, Text: `{"id":16402,"model":"Govee-Water","event":"leak"}`}
	m.HandleLine(context.Background(), event)
	m.HandleLine(context.Background(), event)

	failed, err := j.Failed("", 10)
	if err != nil {
		t.Fatalf("Failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed entries = %d, want 1", len(failed))
	}
	if !strings.Contains(failed[0].Error, "401") {
		t.Errorf("failed entry error = %q, want status 401", failed[0].Error)
	}

	all, err := j.Recent("sensor", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("journaled %d alerts, want 2", len(all))
	}
}
