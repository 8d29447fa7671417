package adapters

import (
	"antplus-to-mqtt/application"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

const (
	AntDefaultDialTimeout  = 5 * time.Second
	AntDefaultReplyTimeout = 5 * time.Second
	AntDefaultEventBuffer  = 64
)

var (
	ErrAntNotConnected   = fmt.Errorf("ant daemon not connected")
	ErrAntUnknownProfile = fmt.Errorf("unknown sensor profile")
)

type antCommand struct {
	Cmd     string `json:"cmd"`
	Profile string `json:"profile,omitempty"`
}

type antMessage struct {
	Event    string         `json:"event"`
	OK       bool           `json:"ok"`
	Error    string         `json:"error"`
	Profile  string         `json:"profile"`
	DeviceID int            `json:"deviceId"`
	Data     map[string]any `json:"data"`
}

type AntDaemonStickParams struct {
	// Address of the radio daemon, unix:///path or tcp://host:port.
	Address string

	DialTimeout  time.Duration
	ReplyTimeout time.Duration
	EventBuffer  int

	// for testing
	DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

	Log zerolog.Logger
}

func (a *AntDaemonStickParams) EnsureDefaults() {
	if a.DialTimeout == 0 {
		a.DialTimeout = AntDefaultDialTimeout
	}

	if a.ReplyTimeout == 0 {
		a.ReplyTimeout = AntDefaultReplyTimeout
	}

	if a.EventBuffer == 0 {
		a.EventBuffer = AntDefaultEventBuffer
	}

	if a.DialFunc == nil {
		dialer := &net.Dialer{Timeout: a.DialTimeout}
		a.DialFunc = dialer.DialContext
	}
}

// AntDaemonStick drives an ANT+ USB stick through a radio daemon that
// decodes the sensor pages and streams them as JSON lines.
type AntDaemonStick struct {
	params AntDaemonStickParams

	network string
	address string

	mu      sync.Mutex
	conn    net.Conn
	enc     *json.Encoder
	dec     *json.Decoder
	channel *antDaemonChannel

	wg conc.WaitGroup

	log zerolog.Logger
}

func NewAntDaemonStick(params AntDaemonStickParams) (*AntDaemonStick, error) {
	params.EnsureDefaults()

	u, err := url.Parse(params.Address)
	if err != nil {
		return nil, fmt.Errorf("parse ant daemon address: %w", err)
	}

	var address string
	switch u.Scheme {
	case "unix":
		address = u.Path
	case "tcp":
		address = u.Host
	default:
		return nil, fmt.Errorf("ant daemon address must be unix:// or tcp://, got %q", params.Address)
	}
	if address == "" {
		return nil, fmt.Errorf("ant daemon address is empty: %q", params.Address)
	}

	return &AntDaemonStick{
		params:  params,
		network: u.Scheme,
		address: address,
		log:     params.Log,
	}, nil
}

func (a *AntDaemonStick) Open(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.open(ctx)
}

// Channel opens the scan channel. A connection dropped by an earlier failed
// request is dialed and opened again first.
func (a *AntDaemonStick) Channel(ctx context.Context) (application.AntChannel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.channel != nil {
		return a.channel, nil
	}
	if a.conn == nil {
		opened, err := a.open(ctx)
		if err != nil {
			return nil, err
		}
		if !opened {
			return nil, nil
		}
	}

	reply, err := a.request(antCommand{Cmd: "channel"}, "channel")
	if err != nil {
		a.dropConn()
		return nil, err
	}
	if !reply.OK {
		a.log.Warn().Str("reason", reply.Error).Msg("could not open ant channel")
		return nil, nil
	}

	ch := &antDaemonChannel{
		stick:  a,
		events: make(chan application.SensorEvent, a.params.EventBuffer),
		done:   make(chan struct{}),
		log:    a.log,
	}
	a.channel = ch
	a.wg.Go(func() {
		ch.read(a.dec)
	})

	a.log.Info().Msg("ant channel opened")
	return ch, nil
}

func (a *AntDaemonStick) Close() error {
	a.mu.Lock()
	if a.conn == nil {
		a.mu.Unlock()
		return nil
	}

	sendErr := a.send(antCommand{Cmd: "close"})
	if a.channel != nil {
		a.channel.stop()
	}
	closeErr := a.conn.Close()
	a.conn = nil
	a.channel = nil
	a.mu.Unlock()

	a.wg.Wait()

	if closeErr != nil {
		return closeErr
	}
	return sendErr
}

// open dials the daemon if needed and asks it to open the stick. The caller
// holds mu.
func (a *AntDaemonStick) open(ctx context.Context) (bool, error) {
	if a.conn == nil {
		conn, err := a.params.DialFunc(ctx, a.network, a.address)
		if err != nil {
			return false, err
		}
		a.conn = conn
		a.enc = json.NewEncoder(conn)
		a.dec = json.NewDecoder(conn)
	}

	reply, err := a.request(antCommand{Cmd: "open"}, "opened")
	if err != nil {
		a.dropConn()
		return false, err
	}
	if !reply.OK {
		a.log.Warn().Str("reason", reply.Error).Msg("could not open ant stick")
		return false, nil
	}

	a.log.Info().Msg("ant stick opened")
	return true, nil
}

// request sends cmd and waits for the reply event, skipping anything else.
// The caller holds mu.
func (a *AntDaemonStick) request(cmd antCommand, replyEvent string) (antMessage, error) {
	if err := a.send(cmd); err != nil {
		return antMessage{}, err
	}

	if err := a.conn.SetReadDeadline(time.Now().Add(a.params.ReplyTimeout)); err != nil {
		return antMessage{}, err
	}
	defer a.conn.SetReadDeadline(time.Time{})

	for {
		var msg antMessage
		if err := a.dec.Decode(&msg); err != nil {
			return antMessage{}, fmt.Errorf("waiting for %s: %w", replyEvent, err)
		}
		if msg.Event == replyEvent {
			return msg, nil
		}
		a.log.Debug().Str("event", msg.Event).Msgf("skipping event while waiting for %s", replyEvent)
	}
}

// send writes one command. The caller holds mu.
func (a *AntDaemonStick) send(cmd antCommand) error {
	if a.conn == nil {
		return ErrAntNotConnected
	}
	return a.enc.Encode(cmd)
}

func (a *AntDaemonStick) dropConn() {
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
}

type antDaemonChannel struct {
	stick *AntDaemonStick

	events   chan application.SensorEvent
	done     chan struct{}
	stopOnce sync.Once

	log zerolog.Logger
}

func (c *antDaemonChannel) Attach(profile application.SensorProfile) error {
	if !application.IsSensorProfile(profile) {
		return fmt.Errorf("%w: %s", ErrAntUnknownProfile, profile)
	}
	return c.command(antCommand{Cmd: "attach", Profile: string(profile)})
}

func (c *antDaemonChannel) StartScanner(ctx context.Context) error {
	return c.command(antCommand{Cmd: "scan"})
}

func (c *antDaemonChannel) Events() <-chan application.SensorEvent {
	return c.events
}

// Close stops the scanner. The connection itself is released by the stick.
func (c *antDaemonChannel) Close() error {
	err := c.command(antCommand{Cmd: "stop"})
	c.stop()
	if errors.Is(err, ErrAntNotConnected) {
		return nil
	}
	return err
}

func (c *antDaemonChannel) command(cmd antCommand) error {
	c.stick.mu.Lock()
	defer c.stick.mu.Unlock()
	return c.stick.send(cmd)
}

func (c *antDaemonChannel) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

func (c *antDaemonChannel) read(dec *json.Decoder) {
	defer close(c.events)

	for {
		var msg antMessage
		if err := dec.Decode(&msg); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				c.log.Error().Err(err).Msg("failed to read ant event")
			}
			return
		}

		var ev application.SensorEvent
		switch msg.Event {
		case "data":
			ev = application.SensorEvent{
				Kind:     application.SensorEventData,
				Profile:  application.SensorProfile(msg.Profile),
				DeviceID: msg.DeviceID,
				Payload:  msg.Data,
			}
		case "detected":
			ev = application.SensorEvent{
				Kind:     application.SensorEventDetected,
				Profile:  application.SensorProfile(msg.Profile),
				DeviceID: msg.DeviceID,
			}
		case "error":
			c.log.Warn().Str("reason", msg.Error).Msg("ant daemon error")
			continue
		default:
			c.log.Debug().Str("event", msg.Event).Msg("ignoring ant event")
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

var _ application.AntStick = &AntDaemonStick{}
var _ application.AntChannel = &antDaemonChannel{}
