package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/metrics"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

// DefaultPollInterval is the delay between listing fetches while a job runs.
const DefaultPollInterval = 3 * time.Second

// Fetcher loads the authoritative listing.
type Fetcher interface {
	GetListing(ctx context.Context, id string) (*types.Listing, error)
}

// PollerOptions configure a Poller.
type PollerOptions struct {
	Interval time.Duration
	Logger   *logger.Logger
	Metrics  *metrics.WorkflowMetrics
	// OnTick observes every fetch, successful or not.
	OnTick func(listing *types.Listing, err error)
}

type pollTask struct {
	awaited enums.ListingStatus
	cancel  context.CancelFunc
	done    chan struct{}

	// stopping is set once the loop is cancelled or settled; guarded by Poller.mu.
	stopping bool
}

// Poller runs at most one polling loop per listing id.
type Poller struct {
	fetch    Fetcher
	interval time.Duration
	logg     *logger.Logger
	metrics  *metrics.WorkflowMetrics
	onTick   func(*types.Listing, error)

	mu    sync.Mutex
	tasks map[string]*pollTask
}

func NewPoller(fetch Fetcher, opts PollerOptions) *Poller {
	p := &Poller{
		fetch:    fetch,
		interval: opts.Interval,
		logg:     opts.Logger,
		metrics:  opts.Metrics,
		onTick:   opts.OnTick,
		tasks:    make(map[string]*pollTask),
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	if p.logg == nil {
		p.logg = logger.Nop()
	}
	return p
}

// Start polls id until its status leaves awaited, ctx ends or Stop is called.
// onUpdate receives every fetched listing. Returns false when a loop for id
// is already running. A loop that is still winding down after Stop is
// replaced, and its successor only fetches once it has exited.
func (p *Poller) Start(ctx context.Context, id string, awaited enums.ListingStatus, onUpdate func(*types.Listing)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	previous, ok := p.tasks[id]
	if ok && !previous.stopping {
		return false
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task := &pollTask{awaited: awaited, cancel: cancel, done: make(chan struct{})}
	p.tasks[id] = task
	var after <-chan struct{}
	if ok {
		after = previous.done
	}
	go p.run(taskCtx, id, task, after, onUpdate)
	return true
}

func (p *Poller) run(ctx context.Context, id string, task *pollTask, after <-chan struct{}, onUpdate func(*types.Listing)) {
	defer close(task.done)
	defer p.forget(id, task)
	defer task.cancel()

	if after != nil {
		select {
		case <-after:
		case <-ctx.Done():
			return
		}
	}

	ctx = p.logg.WithFields(ctx, map[string]any{
		"listing_id": id,
		"awaiting":   task.awaited.String(),
	})
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p.metrics.IncPollTick(task.awaited.String())
		listing, err := p.fetch.GetListing(ctx, id)
		if ctx.Err() != nil {
			return
		}
		if p.onTick != nil {
			p.onTick(listing, err)
		}
		if err != nil {
			p.metrics.IncPollError(task.awaited.String())
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "workflow.poll_failed")
			continue
		}
		settled := listing.Status != task.awaited
		if settled {
			// Retire before onUpdate so a Start issued from it queues a successor.
			p.retire(task)
		}
		if onUpdate != nil {
			onUpdate(listing)
		}
		if settled {
			p.logg.Debug(p.logg.WithField(ctx, "status", listing.Status.String()), "workflow.poll_settled")
			return
		}
	}
}

func (p *Poller) retire(task *pollTask) {
	p.mu.Lock()
	task.stopping = true
	p.mu.Unlock()
}

func (p *Poller) forget(id string, task *pollTask) {
	p.mu.Lock()
	if p.tasks[id] == task {
		delete(p.tasks, id)
	}
	p.mu.Unlock()
}

// Stop cancels the loop for id without waiting for it to exit. The loop
// stays registered until it has returned.
func (p *Poller) Stop(id string) {
	p.mu.Lock()
	task, ok := p.tasks[id]
	if ok {
		task.stopping = true
	}
	p.mu.Unlock()
	if ok {
		task.cancel()
	}
}

// StopAll cancels every loop and waits for them to exit.
func (p *Poller) StopAll() {
	p.mu.Lock()
	tasks := make([]*pollTask, 0, len(p.tasks))
	for _, task := range p.tasks {
		task.stopping = true
		tasks = append(tasks, task)
	}
	p.mu.Unlock()
	for _, task := range tasks {
		task.cancel()
		<-task.done
	}
}

// Running reports whether a loop for id is live and not winding down.
func (p *Poller) Running(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.tasks[id]
	return ok && !task.stopping
}

// Wait blocks until the loop for id exits or ctx ends.
func (p *Poller) Wait(ctx context.Context, id string) error {
	p.mu.Lock()
	task, ok := p.tasks[id]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-task.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
