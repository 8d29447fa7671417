package adapters

import (
	"antplus-to-mqtt/application"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	MQTTDefaultConnectTimeout    = 30 * time.Second
	MQTTDefaultPublishTimeout    = 5 * time.Second
	MQTTDefaultDisconnectQuiesce = 250 * time.Millisecond
)

var (
	ErrMQTTNotConnected   = fmt.Errorf("not connected")
	ErrMQTTConnectTimeout = fmt.Errorf("connect timeout")
	ErrMQTTPublishTimeout = fmt.Errorf("publish timeout")
)

type MQTTClientParams struct {
	ClientID string
	Username string
	Password string
	MQTTUrl  string

	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	NewClientFunc func(options *mqtt.ClientOptions) mqtt.Client

	Log zerolog.Logger
}

func (m *MQTTClientParams) EnsureDefaults() {
	if m.ConnectTimeout == 0 {
		m.ConnectTimeout = MQTTDefaultConnectTimeout
	}

	if m.PublishTimeout == 0 {
		m.PublishTimeout = MQTTDefaultPublishTimeout
	}

	if m.NewClientFunc == nil {
		m.NewClientFunc = mqtt.NewClient
	}
}

// MQTTClient speaks MQTT 3.1.1. Publish options that only exist in MQTT 5,
// such as message expiry, are dropped.
type MQTTClient struct {
	params MQTTClientParams

	client mqtt.Client

	connected          uint64
	msgCount           uint64
	failedCount        uint64
	msgCountUpdateTime atomic.Pointer[time.Time]

	log zerolog.Logger
}

func NewMQTTClient(params MQTTClientParams) *MQTTClient {
	params.EnsureDefaults()

	m := &MQTTClient{params: params, log: params.Log}
	m.client = m.newMqttClient()

	t := time.Unix(0, 0)
	m.msgCountUpdateTime.Store(&t)

	return m
}

func (m *MQTTClient) Connect(ctx context.Context) error {
	if atomic.LoadUint64(&m.connected) == 1 {
		return nil
	}

	tc := time.NewTimer(m.params.ConnectTimeout)
	defer tc.Stop()

	token := m.client.Connect()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tc.C:
		return ErrMQTTConnectTimeout
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	}

	atomic.StoreUint64(&m.connected, 1)
	return nil
}

func (m *MQTTClient) Disconnect(ctx context.Context) error {
	quiesce := MQTTDefaultDisconnectQuiesce
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < quiesce {
			quiesce = remaining
		}
	}
	if quiesce < 0 {
		quiesce = 0
	}

	m.client.Disconnect(uint(quiesce.Milliseconds()))
	atomic.StoreUint64(&m.connected, 0)
	m.log.Info().Msg("disconnected")
	return nil
}

func (m *MQTTClient) IsConnected() bool {
	if atomic.LoadUint64(&m.connected) == 0 {
		return false
	}
	return true
}

func (m *MQTTClient) Status() application.MQTTStatus {
	return application.MQTTStatus{
		MessageCount:      atomic.LoadUint64(&m.msgCount),
		FailedCount:       atomic.LoadUint64(&m.failedCount),
		LastTimePublished: *m.msgCountUpdateTime.Load(),
		Connected:         m.IsConnected(),
	}
}

func (m *MQTTClient) PublishAsync(topic string, payload []byte, opts application.PublishOptions, callback func(err error)) {
	if !m.IsConnected() {
		atomic.AddUint64(&m.failedCount, 1)
		if callback != nil {
			callback(ErrMQTTNotConnected)
		}
		return
	}

	token := m.client.Publish(topic, opts.QoS, opts.Retained, payload)
	go func() {
		err := m.awaitPublish(token)
		if callback != nil {
			callback(err)
		}
	}()
}

func (m *MQTTClient) awaitPublish(token mqtt.Token) error {
	tc := time.NewTimer(m.params.PublishTimeout)
	defer tc.Stop()

	select {
	case <-tc.C:
		atomic.AddUint64(&m.failedCount, 1)
		return ErrMQTTPublishTimeout
	case <-token.Done():
		if token.Error() != nil {
			atomic.AddUint64(&m.failedCount, 1)
			return token.Error()
		}
	}

	t := time.Now()
	m.msgCountUpdateTime.Store(&t)
	atomic.AddUint64(&m.msgCount, 1)
	return nil
}

func (m *MQTTClient) PublishHandler(client mqtt.Client, msg mqtt.Message) {
	// do nothing
}

func (m *MQTTClient) OnConnect(client mqtt.Client) {
	m.log.Info().Msgf("connected")
	atomic.StoreUint64(&m.connected, 1)
}

func (m *MQTTClient) OnConnectionLost(client mqtt.Client, err error) {
	m.log.Warn().Msgf("connect lost: %v", err)
	atomic.StoreUint64(&m.connected, 0)
}

func (m *MQTTClient) OnReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	m.log.Info().Msg("reconnecting")
}

func (m *MQTTClient) newMqttClient() mqtt.Client {
	opts := mqtt.NewClientOptions()

	opts.AddBroker(m.params.MQTTUrl)
	opts.SetClientID(m.params.ClientID)
	opts.SetUsername(m.params.Username)
	opts.SetPassword(m.params.Password)

	// the first connect is retried by the caller; the library only
	// restores sessions that were up once
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)

	opts.SetDefaultPublishHandler(m.PublishHandler)
	opts.OnConnect = m.OnConnect
	opts.OnConnectionLost = m.OnConnectionLost
	opts.OnReconnecting = m.OnReconnecting

	return m.params.NewClientFunc(opts)
}

var _ application.MQTTClient = &MQTTClient{}
