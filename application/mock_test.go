package application

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) PublishAsync(topic string, payload []byte, opts PublishOptions, callback func(err error)) {
	args := m.Called(topic, string(payload), opts)
	if callback != nil {
		callback(args.Error(0))
	}
}

func (m *MockMQTTClient) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMQTTClient) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMQTTClient) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockMQTTClient) Status() MQTTStatus {
	args := m.Called()
	return args.Get(0).(MQTTStatus)
}

var _ MQTTClient = &MockMQTTClient{}

type MockAntStick struct {
	mock.Mock
}

func (m *MockAntStick) Open(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockAntStick) Channel(ctx context.Context) (AntChannel, error) {
	args := m.Called(ctx)

	var channel AntChannel
	if chInt := args.Get(0); chInt != nil {
		channel = chInt.(AntChannel)
	}
	return channel, args.Error(1)
}

func (m *MockAntStick) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ AntStick = &MockAntStick{}

type MockAntChannel struct {
	mock.Mock
}

func (m *MockAntChannel) Attach(profile SensorProfile) error {
	args := m.Called(profile)
	return args.Error(0)
}

func (m *MockAntChannel) StartScanner(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAntChannel) Events() <-chan SensorEvent {
	args := m.Called()
	return args.Get(0).(<-chan SensorEvent)
}

func (m *MockAntChannel) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ AntChannel = &MockAntChannel{}

// fakeTimer fires only when the test says so.
type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Fire runs the callback unless the timer was stopped.
func (t *fakeTimer) Fire() {
	if t.stopped || t.fired {
		return
	}
	t.fired = true
	t.f()
}

// FireLate runs the callback even if the timer was stopped, like a
// runtime timer that fired just before Stop was called.
func (t *fakeTimer) FireLate() {
	t.fired = true
	t.f()
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTimers) AfterFunc(d time.Duration, fn func()) ExpiryTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{d: d, f: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

func (f *fakeTimers) Get(i int) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[i]
}

func (f *fakeTimers) Last() *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[len(f.timers)-1]
}

type resetRecorder struct {
	mu     sync.Mutex
	resets []string
}

func (r *resetRecorder) OnExpire(topic string, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, topic+"="+value)
}

func (r *resetRecorder) Resets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.resets...)
}

func (r *resetRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resets)
}
