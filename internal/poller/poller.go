// Package poller keeps the dashboard's single live Snapshot in step with the
// remote collector.
//
// A Poller fetches once on start and then on a fixed interval. Every tick
// issues its own fetch, so slow responses may overlap. By default the last
// response to resolve wins, whatever order the requests were issued in; with
// DiscardStale set, a response older than the last applied one is dropped.
//
// Subscribers are called synchronously, in subscription order, from the
// goroutine that applied the snapshot. They must not block and must not call
// Refresh themselves.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/observability"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

// DefaultInterval is the refresh period used when none is configured
const DefaultInterval = 5 * time.Second

// ErrStale is returned by Refresh when its response was older than the
// snapshot already applied and DiscardStale is set
var ErrStale = errors.New("poller: response superseded by a newer snapshot")

// Fetcher retrieves the current collector state
type Fetcher interface {
	FetchData(ctx context.Context) (models.Snapshot, error)
}

// Subscriber receives every applied snapshot
type Subscriber func(models.Snapshot)

// Config holds poller settings
type Config struct {
	Interval     time.Duration
	DiscardStale bool
}

type subscription struct {
	id int
	fn Subscriber
}

// Poller owns the canonical snapshot
type Poller struct {
	fetcher Fetcher
	cfg     Config
	metrics *observability.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	snapshot models.Snapshot
	has      bool

	subMu  sync.Mutex
	subs   []subscription
	nextID int

	// publishMu serializes apply+notify so subscribers see snapshots in apply order
	publishMu sync.Mutex
	applied   uint64
	issued    atomic.Uint64

	lifeMu  sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a poller. metrics may be nil.
func New(fetcher Fetcher, cfg Config, metrics *observability.Metrics) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Poller{
		fetcher: fetcher,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
	}
}

// Snapshot returns the live snapshot. The zero Snapshot is returned before the first successful poll.
func (p *Poller) Snapshot() models.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// HasSnapshot reports whether any poll has succeeded yet
func (p *Poller) HasSnapshot() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.has
}

// Subscribe registers fn for every applied snapshot and returns a function that removes it
func (p *Poller) Subscribe(fn Subscriber) (unsubscribe func()) {
	p.subMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs = append(p.subs, subscription{id: id, fn: fn})
	p.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.subMu.Lock()
			defer p.subMu.Unlock()
			for i, s := range p.subs {
				if s.id == id {
					p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Refresh fetches once. On success the new snapshot replaces the old one and
// every subscriber has been notified by the time Refresh returns. On failure
// the previous snapshot is kept.
func (p *Poller) Refresh(ctx context.Context) (models.Snapshot, error) {
	seq := p.issued.Add(1)
	start := time.Now()

	snap, err := p.fetcher.FetchData(ctx)
	took := time.Since(start)
	if err != nil {
		p.metrics.ObservePoll(observability.ResultFailure, took)
		log.Error().Err(err).Uint64("seq", seq).Dur("latency", took).Msg("Poll failed, keeping previous snapshot")
		return models.Snapshot{}, err
	}

	applied, ok := p.publish(seq, snap)
	if !ok {
		p.metrics.ObservePoll(observability.ResultStale, took)
		log.Warn().Uint64("seq", seq).Msg("Discarding stale poll response")
		return p.Snapshot(), ErrStale
	}

	p.metrics.ObservePoll(observability.ResultSuccess, took)
	p.metrics.SetNodes(len(applied.Nodes))
	log.Debug().Uint64("seq", seq).Int("nodes", len(applied.Nodes)).Dur("latency", took).Msg("Snapshot applied")
	return applied, nil
}

func (p *Poller) publish(seq uint64, snap models.Snapshot) (models.Snapshot, bool) {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	if p.cfg.DiscardStale && seq < p.applied {
		return models.Snapshot{}, false
	}
	if seq > p.applied {
		p.applied = seq
	}

	snap.FetchedAt = p.now()

	p.mu.Lock()
	p.snapshot = snap
	p.has = true
	p.mu.Unlock()

	for _, s := range p.subscribers() {
		s.fn(snap)
	}
	return snap, true
}

func (p *Poller) subscribers() []subscription {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	return append([]subscription(nil), p.subs...)
}

// Run polls immediately and then every interval until ctx is done. It waits
// for in-flight polls before returning.
func (p *Poller) Run(ctx context.Context) {
	log.Info().Dur("interval", p.cfg.Interval).Bool("discard_stale", p.cfg.DiscardStale).Msg("Poller started")

	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		log.Info().Msg("Poller stopped")
	}()

	poll := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// failures are logged by Refresh
			_, _ = p.Refresh(ctx)
		}()
	}

	poll()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

// Start runs the poll loop in the background. Only the first call has any
// effect, and none after Stop.
func (p *Poller) Start(ctx context.Context) {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		p.Run(ctx)
	}()
}

// Stop cancels the poll loop and waits for it to exit. It is safe to call more than once.
func (p *Poller) Stop() {
	p.lifeMu.Lock()
	if p.stopped {
		p.lifeMu.Unlock()
		return
	}
	p.stopped = true
	cancel, done := p.cancel, p.done
	p.lifeMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
