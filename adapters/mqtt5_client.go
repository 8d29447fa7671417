package adapters

import (
	"antplus-to-mqtt/application"
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/rs/zerolog"
)

const MQTT5DefaultKeepAlive = 30

type MQTT5ClientParams struct {
	ClientID string
	Username string
	Password string
	MQTTUrl  string

	KeepAlive      uint16
	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	Log zerolog.Logger
}

func (m *MQTT5ClientParams) EnsureDefaults() {
	if m.KeepAlive == 0 {
		m.KeepAlive = MQTT5DefaultKeepAlive
	}

	if m.ConnectTimeout == 0 {
		m.ConnectTimeout = MQTTDefaultConnectTimeout
	}

	if m.PublishTimeout == 0 {
		m.PublishTimeout = MQTTDefaultPublishTimeout
	}
}

// MQTT5Client publishes over MQTT 5 and forwards the message expiry
// interval to the broker. Once the first connection is up, autopaho keeps
// reconnecting in the background.
type MQTT5Client struct {
	params MQTT5ClientParams

	brokerURL *url.URL

	mu     sync.Mutex
	cm     *autopaho.ConnectionManager
	cmCtx  context.Context
	cancel context.CancelFunc

	connected          uint64
	msgCount           uint64
	failedCount        uint64
	msgCountUpdateTime atomic.Pointer[time.Time]

	log zerolog.Logger
}

func NewMQTT5Client(params MQTT5ClientParams) (*MQTT5Client, error) {
	params.EnsureDefaults()

	brokerURL, err := url.Parse(params.MQTTUrl)
	if err != nil {
		return nil, fmt.Errorf("parse mqtt url: %w", err)
	}

	m := &MQTT5Client{params: params, brokerURL: brokerURL, log: params.Log}
	m.cmCtx, m.cancel = context.WithCancel(context.Background())

	t := time.Unix(0, 0)
	m.msgCountUpdateTime.Store(&t)

	return m, nil
}

func (m *MQTT5Client) Connect(ctx context.Context) error {
	cm, err := m.connectionManager()
	if err != nil {
		return err
	}

	connCtx, cancel := context.WithTimeout(ctx, m.params.ConnectTimeout)
	defer cancel()

	if err := cm.AwaitConnection(connCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrMQTTConnectTimeout
	}
	return nil
}

func (m *MQTT5Client) connectionManager() (*autopaho.ConnectionManager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cm != nil {
		return m.cm, nil
	}

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{m.brokerURL},
		KeepAlive:                     m.params.KeepAlive,
		ConnectTimeout:                m.params.ConnectTimeout,
		CleanStartOnInitialConnection: true,
		ConnectUsername:               m.params.Username,
		ConnectPassword:               []byte(m.params.Password),
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			m.log.Info().Msg("connected")
			atomic.StoreUint64(&m.connected, 1)
		},
		OnConnectError: func(err error) {
			m.log.Warn().Err(err).Msg("connect error")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: m.params.ClientID,
			OnClientError: func(err error) {
				m.log.Warn().Msgf("connect lost: %v", err)
				atomic.StoreUint64(&m.connected, 0)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				m.log.Warn().Uint8("reason_code", d.ReasonCode).Msg("disconnected by server")
				atomic.StoreUint64(&m.connected, 0)
			},
		},
	}

	cm, err := autopaho.NewConnection(m.cmCtx, cfg)
	if err != nil {
		return nil, err
	}
	m.cm = cm
	return cm, nil
}

func (m *MQTT5Client) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	cm := m.cm
	m.mu.Unlock()

	defer m.cancel()
	atomic.StoreUint64(&m.connected, 0)

	if cm == nil {
		return nil
	}
	if err := cm.Disconnect(ctx); err != nil {
		return err
	}
	m.log.Info().Msg("disconnected")
	return nil
}

func (m *MQTT5Client) IsConnected() bool {
	return atomic.LoadUint64(&m.connected) == 1
}

func (m *MQTT5Client) Status() application.MQTTStatus {
	return application.MQTTStatus{
		MessageCount:      atomic.LoadUint64(&m.msgCount),
		FailedCount:       atomic.LoadUint64(&m.failedCount),
		LastTimePublished: *m.msgCountUpdateTime.Load(),
		Connected:         m.IsConnected(),
	}
}

func (m *MQTT5Client) PublishAsync(topic string, payload []byte, opts application.PublishOptions, callback func(err error)) {
	pb := &paho.Publish{
		Topic:   topic,
		QoS:     opts.QoS,
		Retain:  opts.Retained,
		Payload: payload,
	}
	if expiry := uint32(opts.MessageExpiry / time.Second); expiry > 0 {
		pb.Properties = &paho.PublishProperties{MessageExpiry: &expiry}
	}

	go func() {
		err := m.publish(pb)
		if callback != nil {
			callback(err)
		}
	}()
}

func (m *MQTT5Client) publish(pb *paho.Publish) error {
	m.mu.Lock()
	cm := m.cm
	m.mu.Unlock()

	if cm == nil || !m.IsConnected() {
		atomic.AddUint64(&m.failedCount, 1)
		return ErrMQTTNotConnected
	}

	ctx, cancel := context.WithTimeout(m.cmCtx, m.params.PublishTimeout)
	defer cancel()

	if _, err := cm.Publish(ctx, pb); err != nil {
		atomic.AddUint64(&m.failedCount, 1)
		if ctx.Err() == context.DeadlineExceeded {
			return ErrMQTTPublishTimeout
		}
		return err
	}

	t := time.Now()
	m.msgCountUpdateTime.Store(&t)
	atomic.AddUint64(&m.msgCount, 1)
	return nil
}

var _ application.MQTTClient = &MQTT5Client{}
