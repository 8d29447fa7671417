package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const DefaultRetryDelay = 5 * time.Second

var ErrRetryExhausted = fmt.Errorf("retry attempts exhausted")

type Backoff int

const (
	BackoffConstant Backoff = iota
	BackoffExponential
)

func ParseBackoff(s string) (Backoff, error) {
	switch s {
	case "", "constant":
		return BackoffConstant, nil
	case "exponential":
		return BackoffExponential, nil
	}
	return BackoffConstant, fmt.Errorf("invalid backoff strategy: %s", s)
}

// RetryPolicy controls how a Supervisor waits between failed attempts.
// MaxAttempts of zero retries forever.
type RetryPolicy struct {
	Delay       time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	Backoff     Backoff

	// for testing
	Sleep func(ctx context.Context, d time.Duration) error
}

func (p *RetryPolicy) EnsureDefaults() {
	if p.Delay == 0 {
		p.Delay = DefaultRetryDelay
	}

	if p.MaxDelay == 0 {
		p.MaxDelay = 12 * p.Delay
	}

	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
}

// DelayFor returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) DelayFor(attempt int) time.Duration {
	if p.Backoff != BackoffExponential || attempt <= 1 {
		return p.Delay
	}

	d := p.Delay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			return p.MaxDelay
		}
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type SupervisorState int32

const (
	SupervisorIdle SupervisorState = iota
	SupervisorAttempting
	SupervisorWaiting
	SupervisorConnected
)

func (s SupervisorState) String() string {
	switch s {
	case SupervisorIdle:
		return "idle"
	case SupervisorAttempting:
		return "attempting"
	case SupervisorWaiting:
		return "waiting"
	case SupervisorConnected:
		return "connected"
	}
	return "unknown"
}

type SupervisorParams[T any] struct {
	Name string

	// Connect returns an error when the attempt should be retried.
	Connect func(ctx context.Context) (T, error)
	// Install runs once with the live handle before Start returns.
	Install func(handle T)

	Policy RetryPolicy

	Log zerolog.Logger
}

// Supervisor retries a connection until it succeeds. It does not watch the
// connection afterwards; reconnecting an established session is left to the
// transport.
type Supervisor[T any] struct {
	params SupervisorParams[T]

	state    atomic.Int32
	attempts atomic.Int64

	log zerolog.Logger
}

func NewSupervisor[T any](params SupervisorParams[T]) (*Supervisor[T], error) {
	if params.Connect == nil {
		return nil, fmt.Errorf("Connect is nil")
	}
	params.Policy.EnsureDefaults()

	return &Supervisor[T]{
		params: params,
		log:    params.Log.With().Str("supervisor", params.Name).Logger(),
	}, nil
}

func (s *Supervisor[T]) Start(ctx context.Context) (T, error) {
	var zero T
	for {
		s.setState(SupervisorAttempting)
		attempt := int(s.attempts.Add(1))

		handle, err := s.params.Connect(ctx)
		if err == nil {
			s.setState(SupervisorConnected)
			s.log.Info().Int("attempt", attempt).Msgf("%s connected", s.params.Name)
			if s.params.Install != nil {
				s.params.Install(handle)
			}
			return handle, nil
		}

		if ctx.Err() != nil {
			s.setState(SupervisorIdle)
			return zero, ctx.Err()
		}

		if s.params.Policy.MaxAttempts > 0 && attempt >= s.params.Policy.MaxAttempts {
			s.setState(SupervisorIdle)
			return zero, fmt.Errorf("%s: %w after %d attempts: %v", s.params.Name, ErrRetryExhausted, attempt, err)
		}

		delay := s.params.Policy.DelayFor(attempt)
		s.setState(SupervisorWaiting)
		s.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msgf("could not connect %s", s.params.Name)

		if err := s.params.Policy.Sleep(ctx, delay); err != nil {
			s.setState(SupervisorIdle)
			return zero, err
		}
	}
}

func (s *Supervisor[T]) State() SupervisorState {
	return SupervisorState(s.state.Load())
}

func (s *Supervisor[T]) Attempts() int {
	return int(s.attempts.Load())
}

func (s *Supervisor[T]) setState(state SupervisorState) {
	s.state.Store(int32(state))
}
