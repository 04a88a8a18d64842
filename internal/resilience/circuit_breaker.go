// Package resilience short-circuits model strategies that keep failing to
// train so that requests go straight to the fallback predictor.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/OldStager01/finy-forecast/pkg/models"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type BreakerConfig struct {
	MaxFailures int
	Timeout     time.Duration
	// HalfOpenMax is the number of consecutive successful trainings needed
	// to close a half-open breaker.
	HalfOpenMax int
	// Counts reports whether err counts as a failure. Nil counts every error.
	Counts        func(err error) bool
	OnStateChange func(kind models.Strategy, from, to State)
}

// Breaker tracks consecutive training failures of one strategy.
type Breaker struct {
	kind         models.Strategy
	cfg          BreakerConfig
	now          func() time.Time
	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	lastFailTime time.Time
}

func NewBreaker(kind models.Strategy, cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 1
	}
	return &Breaker{kind: kind, cfg: cfg, now: time.Now}
}

// Execute runs fn unless the breaker is open. It never retries.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailTime) >= b.cfg.Timeout {
			b.transitionTo(StateHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || (b.cfg.Counts != nil && !b.cfg.Counts(err)) {
		switch b.state {
		case StateClosed:
			b.failures = 0
		case StateHalfOpen:
			b.successes++
			if b.successes >= b.cfg.HalfOpenMax {
				b.transitionTo(StateClosed)
			}
		}
		return
	}

	b.lastFailTime = b.now()
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			b.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		b.transitionTo(StateOpen)
	}
}

func (b *Breaker) transitionTo(to State) {
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	if b.cfg.OnStateChange != nil && from != to {
		go b.cfg.OnStateChange(b.kind, from, to)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}

// Breakers lazily holds one breaker per strategy.
type Breakers struct {
	cfg      BreakerConfig
	mu       sync.Mutex
	breakers map[models.Strategy]*Breaker
}

func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, breakers: make(map[models.Strategy]*Breaker)}
}

func (s *Breakers) For(kind models.Strategy) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[kind]
	if !ok {
		b = NewBreaker(kind, s.cfg)
		s.breakers[kind] = b
	}
	return b
}

// States snapshots the state of every breaker created so far.
func (s *Breakers) States() map[models.Strategy]State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.Strategy]State, len(s.breakers))
	for kind, b := range s.breakers {
		out[kind] = b.State()
	}
	return out
}
