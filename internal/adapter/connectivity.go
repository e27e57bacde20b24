package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/fieldledger/fieldledger/internal/logger"
)

// ConnectivitySignal is a boolean "online" observable. Set publishes only
// transitions; subscribers receive the new state on a buffered channel and
// must drain it promptly (a slow subscriber loses intermediate transitions,
// never the latest Online() value).
type ConnectivitySignal struct {
	mu     sync.Mutex
	online bool
	ch     chan bool
}

func NewConnectivitySignal(online bool) *ConnectivitySignal {
	return &ConnectivitySignal{
		online: online,
		ch:     make(chan bool, 8),
	}
}

// Online returns the current connectivity state.
func (s *ConnectivitySignal) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Changes returns the channel carrying state transitions.
func (s *ConnectivitySignal) Changes() <-chan bool {
	return s.ch
}

// Set records the observed state and publishes it if it changed.
func (s *ConnectivitySignal) Set(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()

	if !changed {
		return
	}
	select {
	case s.ch <- online:
	default:
		// Buffer full: the subscriber will observe the latest state via
		// Online() on its next wakeup.
	}
}

// Prober drives a ConnectivitySignal by polling the remote health endpoint.
type Prober struct {
	remote   RemoteService
	signal   *ConnectivitySignal
	interval time.Duration
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewProber(remote RemoteService, signal *ConnectivitySignal, interval time.Duration, logger *logger.Logger) *Prober {
	return &Prober{
		remote:   remote,
		signal:   signal,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the probing goroutine. It pings immediately, then every
// interval, until ctx is cancelled or Stop is called. A previously running
// prober is stopped first.
func (p *Prober) Start(ctx context.Context) {
	p.Stop()

	p.mu.Lock()
	probeCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		t := time.NewTicker(p.interval)
		defer t.Stop()

		p.probe(probeCtx)
		for {
			select {
			case <-probeCtx.Done():
				return
			case <-t.C:
				p.probe(probeCtx)
			}
		}
	}()
}

// Stop cancels the probing goroutine and blocks until it has exited. Safe to
// call when the prober is not running.
func (p *Prober) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *Prober) probe(ctx context.Context) {
	err := p.remote.Ping(ctx)
	online := err == nil
	if !online {
		p.logger.Debug().Err(err).Msg("connectivity probe failed")
	}
	p.signal.Set(online)
}
