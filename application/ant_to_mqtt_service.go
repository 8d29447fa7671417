package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMQTTTopic       = "antplus"
	DefaultReportInterval  = 30 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

var (
	ErrAntStickNotOpen       = fmt.Errorf("ant stick not opened")
	ErrAntChannelUnavailable = fmt.Errorf("ant channel unavailable")
)

type AntToMQTTService interface {
	Run(ctx context.Context) error
}

type AntToMQTTServiceParams struct {
	AntStick   AntStick
	MQTTClient MQTTClient

	MQTTTopic string
	Profiles  []SensorProfile

	Registry       FieldRegistry
	Manufacturers  ManufacturerTable
	CacheTTL       time.Duration
	PublishOptions PublishOptions

	RetryPolicy     RetryPolicy
	ReportInterval  time.Duration
	ShutdownTimeout time.Duration

	Metrics Metrics

	Log zerolog.Logger
}

func (p *AntToMQTTServiceParams) EnsureDefaults() {
	if p.MQTTTopic == "" {
		p.MQTTTopic = DefaultMQTTTopic
	}

	if len(p.Profiles) == 0 {
		p.Profiles = AllSensorProfiles
	}

	if p.ReportInterval == 0 {
		p.ReportInterval = DefaultReportInterval
	}

	if p.ShutdownTimeout == 0 {
		p.ShutdownTimeout = DefaultShutdownTimeout
	}

	if p.Metrics == nil {
		p.Metrics = nopMetrics{}
	}
}

type antToMQTTService struct {
	params AntToMQTTServiceParams

	cache    *ExpiryCache
	pipeline *PublishPipeline

	mu      sync.Mutex
	channel AntChannel

	shutdownOnce sync.Once

	log zerolog.Logger
}

func NewAntToMQTTService(params AntToMQTTServiceParams) (AntToMQTTService, error) {
	if params.AntStick == nil {
		return nil, fmt.Errorf("AntStick is nil")
	}
	if params.MQTTClient == nil {
		return nil, fmt.Errorf("MQTTClient is nil")
	}
	params.EnsureDefaults()

	t := &antToMQTTService{params: params, log: params.Log}

	cache, err := NewExpiryCache(ExpiryCacheParams{
		OnExpire: func(topic string, value string) {
			t.pipeline.PublishReset(topic, value)
		},
		Metrics: params.Metrics,
		Log:     params.Log.With().Str("module", "expiry-cache").Logger(),
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := NewPublishPipeline(PublishPipelineParams{
		MQTTClient:     params.MQTTClient,
		Cache:          cache,
		Registry:       params.Registry,
		Manufacturers:  params.Manufacturers,
		TTL:            params.CacheTTL,
		PublishOptions: params.PublishOptions,
		Metrics:        params.Metrics,
		Log:            params.Log.With().Str("module", "publish-pipeline").Logger(),
	})
	if err != nil {
		return nil, err
	}

	t.cache = cache
	t.pipeline = pipeline
	return t, nil
}

func (t *antToMQTTService) Run(ctx context.Context) error {
	defer t.shutdown()

	channel, err := t.connect(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	g := errgroup.Group{}

	// ant event handler
	g.Go(func() error {
		t.log.Info().Msgf("start publishing on topic: %s", t.params.MQTTTopic)
		defer t.log.Info().Msg("stop publishing")

		return t.dispatch(ctx, channel.Events())
	})

	// mqtt publish reporter
	g.Go(func() error {
		return t.report(ctx)
	})

	return g.Wait()
}

func (t *antToMQTTService) connect(ctx context.Context) (AntChannel, error) {
	mqttSupervisor, err := NewSupervisor(SupervisorParams[MQTTClient]{
		Name: "mqtt broker",
		Connect: func(ctx context.Context) (MQTTClient, error) {
			return t.params.MQTTClient, t.params.MQTTClient.Connect(ctx)
		},
		Policy: t.params.RetryPolicy,
		Log:    t.log,
	})
	if err != nil {
		return nil, err
	}
	if _, err := mqttSupervisor.Start(ctx); err != nil {
		return nil, err
	}

	stickSupervisor, err := NewSupervisor(SupervisorParams[AntStick]{
		Name: "ant stick",
		Connect: func(ctx context.Context) (AntStick, error) {
			opened, err := t.params.AntStick.Open(ctx)
			if err != nil {
				return nil, err
			}
			if !opened {
				return nil, ErrAntStickNotOpen
			}
			return t.params.AntStick, nil
		},
		Policy: t.params.RetryPolicy,
		Log:    t.log,
	})
	if err != nil {
		return nil, err
	}
	if _, err := stickSupervisor.Start(ctx); err != nil {
		return nil, err
	}

	channelSupervisor, err := NewSupervisor(SupervisorParams[AntChannel]{
		Name: "ant channel",
		Connect: func(ctx context.Context) (AntChannel, error) {
			channel, err := t.params.AntStick.Channel(ctx)
			if err != nil {
				return nil, err
			}
			if channel == nil {
				return nil, ErrAntChannelUnavailable
			}
			return channel, nil
		},
		Install: func(channel AntChannel) {
			t.mu.Lock()
			t.channel = channel
			t.mu.Unlock()
		},
		Policy: t.params.RetryPolicy,
		Log:    t.log,
	})
	if err != nil {
		return nil, err
	}
	channel, err := channelSupervisor.Start(ctx)
	if err != nil {
		return nil, err
	}

	for _, profile := range t.params.Profiles {
		if err := channel.Attach(profile); err != nil {
			return nil, fmt.Errorf("attach %s sensor: %w", profile, err)
		}
		t.log.Debug().Str("profile", string(profile)).Msg("sensor attached")
	}

	if err := channel.StartScanner(ctx); err != nil {
		return nil, fmt.Errorf("start scanner: %w", err)
	}
	t.log.Info().Int("profiles", len(t.params.Profiles)).Msg("scanner started")

	return channel, nil
}

func (t *antToMQTTService) dispatch(ctx context.Context, events <-chan SensorEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				// no reconnect here; the bridge stays up until terminated
				t.log.Error().Msg("ant channel closed")
				<-ctx.Done()
				return nil
			}
			t.handleEvent(ev)
		}
	}
}

func (t *antToMQTTService) handleEvent(ev SensorEvent) {
	switch ev.Kind {
	case SensorEventData:
		prefix := DeviceTopic(t.params.MQTTTopic, ev.Profile, ev.DeviceID)
		n := t.pipeline.Publish(prefix, ev.Payload)
		t.log.Trace().Str("prefix", prefix).Int("fields", n).Msg("sensor data")
	case SensorEventDetected:
		t.log.Info().
			Str("profile", string(ev.Profile)).
			Int("device_id", ev.DeviceID).
			Msg("sensor detected")
	}
}

func (t *antToMQTTService) report(ctx context.Context) error {
	ticker := time.NewTicker(t.params.ReportInterval)
	defer ticker.Stop()

	lastStatus := t.params.MQTTClient.Status()

ReporterLoop:
	for {
		select {
		case <-ctx.Done():
			break ReporterLoop
		case <-ticker.C:
			newStatus := t.params.MQTTClient.Status()
			msgPerMin := float64(newStatus.MessageCount-lastStatus.MessageCount) / t.params.ReportInterval.Minutes()

			t.log.Info().
				Float64("msg_per_min", msgPerMin).
				Uint64("failed", newStatus.FailedCount-lastStatus.FailedCount).
				Int("pending_expiries", t.cache.Len()).
				Bool("is_connected", newStatus.Connected).
				Time("last_time_published", newStatus.LastTimePublished).
				Msg("publish report")

			lastStatus = newStatus
		}
	}

	return nil
}

// shutdown releases the expiry timers and both connections exactly once.
// Close failures and panics are logged and never propagated.
func (t *antToMQTTService) shutdown() {
	t.shutdownOnce.Do(func() {
		t.log.Info().Msg("shutting down")
		t.cache.Close()

		t.mu.Lock()
		channel := t.channel
		t.mu.Unlock()

		if channel != nil {
			t.closeResource("ant channel", channel.Close)
		}
		t.closeResource("ant stick", t.params.AntStick.Close)
		t.closeResource("mqtt client", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), t.params.ShutdownTimeout)
			defer cancel()
			return t.params.MQTTClient.Disconnect(ctx)
		})
	})
}

func (t *antToMQTTService) closeResource(name string, closeFunc func() error) {
	var err error
	var catcher panics.Catcher
	catcher.Try(func() {
		err = closeFunc()
	})

	if r := catcher.Recovered(); r != nil {
		t.log.Error().Str("resource", name).Interface("panic", r.Value).Msgf("failed to close %s", name)
		return
	}
	if err != nil {
		t.log.Error().Err(err).Str("resource", name).Msgf("failed to close %s", name)
		return
	}
	t.log.Info().Str("resource", name).Msgf("%s closed", name)
}
