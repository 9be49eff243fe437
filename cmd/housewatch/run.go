// cmd/housewatch/run.go
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/signalnine/housewatch/internal/config"
	"github.com/signalnine/housewatch/internal/format"
	"github.com/signalnine/housewatch/internal/journal"
	"github.com/signalnine/housewatch/internal/logger"
	"github.com/signalnine/housewatch/internal/metrics"
	"github.com/signalnine/housewatch/internal/monitor"
	"github.com/signalnine/housewatch/internal/protocol"
	"github.com/signalnine/housewatch/internal/tracker"
	"github.com/signalnine/housewatch/internal/webhook"
)

type pipelineSet int

const (
	pipelinePower pipelineSet = 1 << iota
	pipelineSensor

	pipelineAll = pipelinePower | pipelineSensor
)

func loadConfig(which pipelineSet) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// A single-pipeline command runs that pipeline even if the file disables it
	switch which {
	case pipelinePower:
		cfg.Power.Enabled, cfg.Sensor.Enabled = true, false
	case pipelineSensor:
		cfg.Power.Enabled, cfg.Sensor.Enabled = false, true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func newWebhookClient(cfg config.WebhookConfig) (*webhook.Client, error) {
	hc, err := webhook.NewHTTPClient(webhook.TransportConfig{
		Timeout:   cfg.Timeout,
		Interface: cfg.Interface,
	})
	if err != nil {
		return nil, err
	}

	var retry webhook.RetryPolicy = webhook.NoRetry{}
	if cfg.RetryAttempts > 1 {
		retry = webhook.BackoffRetry{
			MaxTries:        cfg.RetryAttempts,
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
		}
	}

	thumbnails := make(map[protocol.Kind]string, len(cfg.Thumbnails))
	for kind, url := range cfg.Thumbnails {
		thumbnails[protocol.Kind(kind)] = url
	}

	return webhook.New(cfg.URL,
		webhook.WithHTTPClient(hc),
		webhook.WithRetry(retry),
		webhook.WithRateLimit(cfg.RatePerMinute),
		webhook.WithThumbnails(thumbnails),
	), nil
}

func runPipelines(ctx context.Context, which pipelineSet) error {
	cfg, err := loadConfig(which)
	if err != nil {
		return err
	}
	log := logger.WithComponent("housewatch")

	sender, err := newWebhookClient(cfg.Webhook)
	if err != nil {
		return fmt.Errorf("webhook transport: %w", err)
	}

	m := metrics.New()
	deps := monitor.Deps{
		Sender:    sender,
		Formatter: format.New(cfg.Webhook.Mention),
		Metrics:   m,
		Log:       log,
	}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		deps.Journal = j
	}

	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	var server errgroup.Group
	if cfg.Metrics.ListenAddr != "" {
		srv := metrics.NewServer(cfg.Metrics.ListenAddr, m, logger.WithComponent("metrics"))
		server.Go(func() error {
			if err := srv.Run(serverCtx); err != nil {
				log.Error().Err(err).Str("addr", cfg.Metrics.ListenAddr).Msg("Metrics server failed")
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	var pipelines errgroup.Group
	if cfg.Power.Enabled {
		pm := monitor.NewPowerMonitor(monitor.PowerConfig{
			Address:           cfg.Power.Address,
			UPS:               cfg.Power.UPS,
			PollInterval:      cfg.Power.PollInterval,
			DialTimeout:       cfg.Power.DialTimeout,
			StatusField:       cfg.Power.StatusField,
			Interesting:       cfg.Power.InterestingFields,
			ReconnectAttempts: cfg.Power.ReconnectAttempts,
		}, deps)
		pipelines.Go(pipelineRunner(ctx, log, "power", pm.Run))
	}
	if cfg.Sensor.Enabled {
		sm := monitor.NewSensorMonitor(monitor.SensorConfig{
			Command:  cfg.Sensor.Command,
			Args:     cfg.Sensor.Args,
			Model:    cfg.Sensor.Model,
			Registry: tracker.DeviceRegistry(cfg.Sensor.Devices),
		}, deps)
		pipelines.Go(pipelineRunner(ctx, log, "sensor", sm.Run))
	}

	// Pipelines are independent: one ending does not stop the other
	err = pipelines.Wait()
	stopServer()
	return errors.Join(err, server.Wait())
}

func pipelineRunner(ctx context.Context, log zerolog.Logger, name string, run func(context.Context) error) func() error {
	return func() error {
		if err := run(ctx); err != nil {
			log.Error().Err(err).Str("pipeline", name).Msg("Pipeline stopped")
			return fmt.Errorf("%s pipeline: %w", name, err)
		}
		return nil
	}
}
