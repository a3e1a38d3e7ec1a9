package ebay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/angelmondragon/brandinbox/internal/listings"
	"github.com/angelmondragon/brandinbox/pkg/config"
	"github.com/angelmondragon/brandinbox/pkg/logger"
)

var (
	ErrPublisherNotStarted = errors.New("ebay publisher is not running")
	ErrQueueFull           = errors.New("ebay publish queue is full")
)

type itemPublisher interface {
	PublishItem(ctx context.Context, item Item) (*Result, error)
}

// Publisher queues publish jobs and runs them on a bounded worker pool.
// Outcomes are reported to the sink exactly like the automation callback.
type Publisher struct {
	client  itemPublisher
	jobs    chan listings.PublishJob
	workers int
	logg    *logger.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewPublisher builds a publisher; call Start before triggering jobs.
func NewPublisher(client itemPublisher, cfg config.PublishConfig, logg *logger.Logger) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("ebay client is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = 16
	}
	return &Publisher{
		client:  client,
		jobs:    make(chan listings.PublishJob, queue),
		workers: workers,
		logg:    logg,
	}, nil
}

// TriggerPublish enqueues a job without blocking.
func (p *Publisher) TriggerPublish(ctx context.Context, job listings.PublishJob) error {
	if !p.running.Load() {
		return ErrPublisherNotStarted
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the workers. They stop when ctx is cancelled.
func (p *Publisher) Start(ctx context.Context, sink listings.CompletionSink) {
	if sink == nil || !p.running.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.work(ctx, sink)
		}()
	}
	go func() {
		<-ctx.Done()
		p.running.Store(false)
	}()
}

// Wait blocks until every worker has exited.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

func (p *Publisher) work(ctx context.Context, sink listings.CompletionSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			p.handle(ctx, sink, job)
		}
	}
}

func (p *Publisher) handle(ctx context.Context, sink listings.CompletionSink, job listings.PublishJob) {
	logCtx := p.logg.WithListingID(ctx, job.ListingID)

	result := listings.PublishResult{ListingID: job.ListingID}
	published, err := p.client.PublishItem(ctx, Item{
		ListingID:   job.ListingID,
		Title:       job.Title,
		Description: job.Description,
		CategoryID:  job.CategoryID,
		ConditionID: job.ConditionID,
		Price:       job.Price,
		Quantity:    job.Quantity,
		ImageURLs:   job.ImageURLs,
	})
	if err != nil {
		p.logg.Error(logCtx, "ebay.publish_failed", err)
		msg := err.Error()
		result.ErrorMessage = &msg
	} else {
		result.Success = true
		result.EbayItemID = published.ListingID
		result.EbayURL = published.URL
	}

	// The listing must leave publishing even if shutdown started mid-call.
	if _, err := sink.CompletePublish(context.WithoutCancel(ctx), result); err != nil {
		p.logg.Error(logCtx, "ebay.completion_failed", err)
	}
}
