// Package health serves liveness and readiness probes.
//
// Probes run in the background and flip state only after a number of
// consecutive failures or successes, so a single slow ping does not take the
// instance out of rotation.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc reports whether a dependency is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects which endpoint a probe contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// Probe describes a registered check.
type Probe struct {
	Name    string
	Kind    Kind
	Timeout time.Duration
	Check   CheckFunc

	// FailureThreshold consecutive failures mark the probe unhealthy.
	// Defaults to 3.
	FailureThreshold int
	// SuccessThreshold consecutive successes mark it healthy again.
	// Defaults to 1.
	SuccessThreshold int
}

type probeState struct {
	Probe

	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	// Only touched by the goroutine running the probe.
	fails, oks int
}

func (p *probeState) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	if err := p.Check(ctx); err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		p.oks = 0
		p.fails++
		if p.fails >= p.FailureThreshold {
			p.healthy.Store(false)
		}
		return
	}
	p.lastErr.Store(nil)
	p.fails = 0
	p.oks++
	if p.oks >= p.SuccessThreshold {
		p.healthy.Store(true)
	}
}

func (p *probeState) failure() string {
	if msg := p.lastErr.Load(); msg != nil {
		return *msg
	}
	return "check is unhealthy"
}

// Service tracks probe state and the manual readiness switch.
type Service struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probeState
}

// New returns a Service with no probes. It reports not ready until SetReady.
func New() *Service {
	return &Service{}
}

// Register adds a probe. Probes start healthy.
func (s *Service) Register(p Probe) {
	if p.FailureThreshold <= 0 {
		p.FailureThreshold = 3
	}
	if p.SuccessThreshold <= 0 {
		p.SuccessThreshold = 1
	}
	if p.Timeout <= 0 {
		p.Timeout = time.Second
	}
	st := &probeState{Probe: p}
	st.healthy.Store(true)

	s.mu.Lock()
	s.probes = append(s.probes, st)
	s.mu.Unlock()
}

// Run executes every probe immediately and then every interval until ctx is
// done. It always returns nil after ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range s.snapshot(nil) {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				p.run(ctx)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

// SetReady toggles the manual readiness switch.
func (s *Service) SetReady(ready bool) { s.ready.Store(ready) }

// Ready reports whether the switch is on and every readiness probe passes.
func (s *Service) Ready() bool {
	if !s.ready.Load() {
		return false
	}
	return len(failures(s.snapshot(ptr(Readiness)))) == 0
}

// LiveHandler serves /livez.
func (s *Service) LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, failures(s.snapshot(ptr(Liveness))))
	})
}

// ReadyHandler serves /readyz.
func (s *Service) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		failed := failures(s.snapshot(ptr(Readiness)))
		if !s.ready.Load() {
			failed["_readiness"] = "service is not ready"
		}
		writeStatus(w, failed)
	})
}

func ptr[T any](v T) *T { return &v }

func (s *Service) snapshot(kind *Kind) []*probeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*probeState, 0, len(s.probes))
	for _, p := range s.probes {
		if kind == nil || p.Kind == *kind {
			out = append(out, p)
		}
	}
	return out
}

func failures(probes []*probeState) map[string]string {
	failed := make(map[string]string)
	for _, p := range probes {
		if !p.healthy.Load() {
			failed[p.Name] = p.failure()
		}
	}
	return failed
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	status := http.StatusOK
	var e jx.Encoder
	e.ObjStart()
	if len(failed) == 0 {
		e.FieldStart("status")
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.FieldStart("status")
		e.Str("unhealthy")
		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		sort.Strings(names)
		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failed[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
