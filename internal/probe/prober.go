// Package probe runs the liveness sweep: every registered agent's health
// surface is polled on an interval and the outcomes feed the registry's
// flap-debounce state machines.
package probe

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ferrova/agentdeck/internal/registry"
	"go.uber.org/zap"
)

// TransitionFunc is called for every debounced liveness change. It runs on
// a prober goroutine and should hand off anything slow.
type TransitionFunc func(tr registry.Transition)

// Prober polls agent health endpoints concurrently with a bounded number of
// in-flight probes. Probing is side-effect-free on the target (an
// idempotent GET) and failures never surface to registry readers — they
// only move the debounce counters.
type Prober struct {
	reg         *registry.Registry
	client      *http.Client
	interval    time.Duration
	timeout     time.Duration
	maxInFlight int
	logger      *zap.Logger

	// cbMu guards onTransition separately from mu: Stop holds mu while
	// waiting for the sweep goroutine, which reads the callback.
	cbMu         sync.Mutex
	onTransition TransitionFunc

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a prober. maxInFlight bounds concurrent probes so a large
// registry cannot exhaust sockets; values below 1 mean unbounded enough (1).
func New(reg *registry.Registry, interval, timeout time.Duration, maxInFlight int, logger *zap.Logger) *Prober {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Prober{
		reg:         reg,
		client:      &http.Client{Timeout: timeout},
		interval:    interval,
		timeout:     timeout,
		maxInFlight: maxInFlight,
		logger:      logger,
	}
}

// OnTransition registers the callback for debounced liveness changes. Safe
// to call while sweeps are running; in-flight probes may still use the
// previous callback.
func (p *Prober) OnTransition(fn TransitionFunc) {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()
	p.onTransition = fn
}

func (p *Prober) transitionFn() TransitionFunc {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()
	return p.onTransition
}

// Start launches the periodic sweep loop in a background goroutine.
func (p *Prober) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.Sweep(context.Background())
			}
		}
	}()
	p.logger.Info("prober started",
		zap.Duration("interval", p.interval),
		zap.Duration("timeout", p.timeout),
		zap.Int("max_in_flight", p.maxInFlight))
}

// Stop halts the sweep loop and waits for it to exit. In-flight probes run
// to completion or timeout on their own.
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop = nil
	p.done = nil
}

// Sweep probes every agent in the current snapshot once and returns how
// many agents were probed. Also used as the forced cycle behind POST /probe.
func (p *Prober) Sweep(ctx context.Context) int {
	agents := p.reg.List()
	if len(agents) == 0 {
		return 0
	}

	fn := p.transitionFn()
	sem := make(chan struct{}, p.maxInFlight)
	var wg sync.WaitGroup
	for _, a := range agents {
		wg.Add(1)
		sem <- struct{}{}
		go func(a registry.AgentStatus) {
			defer wg.Done()
			defer func() { <-sem }()
			p.probeOne(ctx, a, fn)
		}(a)
	}
	wg.Wait()
	return len(agents)
}

// probeOne issues one health check and records the outcome. Timeouts and
// connection failures are failures toward the debounce counter, never
// errors to anyone.
func (p *Prober) probeOne(ctx context.Context, a registry.AgentStatus, fn TransitionFunc) {
	ok := p.check(ctx, a.Descriptor.BaseURL)
	tr, changed := p.reg.RecordProbe(a.Descriptor.Key(), ok, time.Now())
	if !ok {
		p.logger.Debug("probe failed",
			zap.String("agent", a.Descriptor.Name),
			zap.String("base_url", a.Descriptor.BaseURL))
	}
	if changed && fn != nil {
		fn(tr)
	}
}

// check reports whether GET <baseUrl>/health answered 200 within the probe
// timeout.
func (p *Prober) check(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := strings.TrimRight(baseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
