package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/metrics"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

var (
	ErrNoListing   = errors.New("no listing loaded")
	ErrNoSelection = errors.New("select at least one image to approve")
	ErrClosed      = errors.New("workflow controller closed")
)

const subscriberBuffer = 8

// ListingAPI is the slice of the API client the controller drives.
type ListingAPI interface {
	Fetcher
	UpdateListing(ctx context.Context, id string, in types.ListingUpdate) (*types.Listing, error)
	DeleteListing(ctx context.Context, id string) error
	GenerateMedia(ctx context.Context, id string, mediaType enums.MediaType) (*types.Listing, error)
	ApproveMedia(ctx context.Context, id string, selected []int) (*types.Listing, error)
	Publish(ctx context.Context, id string) (*types.Listing, error)
}

// Options configure a Controller.
type Options struct {
	PollInterval time.Duration
	Logger       *logger.Logger
	Metrics      *metrics.WorkflowMetrics
	OnTick       func(listing *types.Listing, err error)
}

// State is a snapshot of everything a view needs to render one listing.
type State struct {
	Listing   *types.Listing
	InFlight  Action
	Polling   bool
	Deleted   bool
	Err       error
	Selection []int
}

func (s State) Busy() bool { return s.InFlight != "" }

func (s State) Status() enums.ListingStatus {
	if s.Listing == nil {
		return ""
	}
	return s.Listing.Status
}

func (s State) Badge() Badge { return BadgeFor(s.Status()) }

// ListingError is the server-recorded failure shown while status is error.
func (s State) ListingError() string {
	if s.Status() != enums.ListingStatusError || s.Listing.ErrorMessage == nil {
		return ""
	}
	return *s.Listing.ErrorMessage
}

func (s State) ready() bool { return s.Listing != nil && !s.Deleted && !s.Busy() }

// CanGenerate covers the first generation and retry after an error.
func (s State) CanGenerate() bool {
	st := s.Status()
	return s.ready() && (st == enums.ListingStatusDraft || st == enums.ListingStatusError)
}

func (s State) CanRegenerate() bool {
	return s.ready() && s.Status() == enums.ListingStatusMediaReady
}

// CanApprove is false while any action runs, and while images exist but none is selected.
func (s State) CanApprove() bool {
	if !s.ready() || s.Status() != enums.ListingStatusMediaReady {
		return false
	}
	return len(s.Listing.ImageURLs()) == 0 || len(s.Selection) > 0
}

func (s State) CanPublish() bool {
	return s.ready() && s.Status() == enums.ListingStatusApproved
}

func (s State) CanSave() bool {
	return s.ready() && !Awaiting(s.Status()) && s.Status() != enums.ListingStatusPublished
}

func (s State) CanDelete() bool { return s.ready() }

// Controller tracks one listing. It never computes the next status: every
// action and poll tick replaces the local copy with the server's.
type Controller struct {
	api     ListingAPI
	logg    *logger.Logger
	metrics *metrics.WorkflowMetrics
	guard   Guard
	poller  *Poller

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	listing *types.Listing
	err     error
	deleted bool
	review  *ReviewSession
	closed  bool

	subMu sync.Mutex
	subs  map[chan State]struct{}
}

func NewController(api ListingAPI, opts Options) *Controller {
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:     api,
		logg:    logg,
		metrics: opts.Metrics,
		poller: NewPoller(api, PollerOptions{
			Interval: opts.PollInterval,
			Logger:   logg,
			Metrics:  opts.Metrics,
			OnTick:   opts.OnTick,
		}),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[chan State]struct{}),
	}
}

// Load fetches id and starts polling when it is awaiting a job.
func (c *Controller) Load(ctx context.Context, id string) error {
	listing, err := c.api.GetListing(ctx, id)
	if err != nil {
		c.setErr(err)
		return err
	}
	c.mu.Lock()
	c.deleted = false
	c.mu.Unlock()
	c.apply(listing)
	return nil
}

func (c *Controller) Listing() *types.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listing
}

func (c *Controller) State() State {
	c.mu.RLock()
	st := State{Listing: c.listing, Err: c.err, Deleted: c.deleted}
	review := c.review
	c.mu.RUnlock()

	st.InFlight = c.guard.InFlight()
	if st.Listing != nil {
		st.Polling = c.poller.Running(st.Listing.ID)
	}
	if review != nil {
		st.Selection = review.SelectedIndices()
	}
	return st
}

// Subscribe streams state snapshots. Slow readers only miss intermediate states.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, subscriberBuffer)
	c.subMu.Lock()
	if c.subs == nil {
		close(ch)
		c.subMu.Unlock()
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			if _, ok := c.subs[ch]; ok {
				delete(c.subs, ch)
				close(ch)
			}
			c.subMu.Unlock()
		})
	}
}

func (c *Controller) Save(ctx context.Context, update types.ListingUpdate) error {
	return c.run(ctx, ActionSave, func(ctx context.Context, id string) (*types.Listing, error) {
		return c.api.UpdateListing(ctx, id, update)
	})
}

// GenerateMedia starts the first generation or retries after an error.
func (c *Controller) GenerateMedia(ctx context.Context) error {
	return c.generate(ctx, ActionGenerateMedia, enums.MediaTypeAll)
}

// RegenerateImages drops the review selection once the server accepts the
// request. A refused or failed call leaves the selection intact.
func (c *Controller) RegenerateImages(ctx context.Context) error {
	return c.run(ctx, ActionRegenerateImages, func(ctx context.Context, id string) (*types.Listing, error) {
		listing, err := c.api.GenerateMedia(ctx, id, enums.MediaTypeImages)
		if err != nil {
			return nil, err
		}
		if review := c.Review(); review != nil {
			review.Invalidate()
		}
		return listing, nil
	})
}

func (c *Controller) RegenerateVideo(ctx context.Context) error {
	return c.generate(ctx, ActionRegenerateVideo, enums.MediaTypeVideo)
}

func (c *Controller) generate(ctx context.Context, action Action, mediaType enums.MediaType) error {
	return c.run(ctx, action, func(ctx context.Context, id string) (*types.Listing, error) {
		return c.api.GenerateMedia(ctx, id, mediaType)
	})
}

// Approve sends the review selection; with no images it approves as-is.
func (c *Controller) Approve(ctx context.Context) error {
	var selected []int
	if review := c.Review(); review != nil {
		selected = review.SelectedIndices()
	}
	if listing := c.Listing(); listing != nil && len(listing.ImageURLs()) > 0 && len(selected) == 0 {
		return ErrNoSelection
	}
	return c.run(ctx, ActionApprove, func(ctx context.Context, id string) (*types.Listing, error) {
		return c.api.ApproveMedia(ctx, id, selected)
	})
}

func (c *Controller) Publish(ctx context.Context) error {
	return c.run(ctx, ActionPublish, func(ctx context.Context, id string) (*types.Listing, error) {
		return c.api.Publish(ctx, id)
	})
}

// Delete removes the listing and stops any polling for it.
func (c *Controller) Delete(ctx context.Context) error {
	return c.run(ctx, ActionDelete, func(ctx context.Context, id string) (*types.Listing, error) {
		if err := c.api.DeleteListing(ctx, id); err != nil {
			return nil, err
		}
		c.poller.Stop(id)
		c.mu.Lock()
		c.deleted = true
		c.mu.Unlock()
		return nil, nil
	})
}

// ClearError dismisses the request error banner.
func (c *Controller) ClearError() {
	c.setErr(nil)
}

// BeginReview opens a fresh review session over the current listing, ending any previous one.
func (c *Controller) BeginReview() *ReviewSession {
	c.mu.Lock()
	previous := c.review
	session := newReviewSession(c.listing, c.endReview)
	c.review = session
	c.mu.Unlock()

	if previous != nil {
		previous.End()
	}
	c.publish()
	return session
}

func (c *Controller) Review() *ReviewSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.review
}

func (c *Controller) endReview(session *ReviewSession) {
	c.mu.Lock()
	if c.review == session {
		c.review = nil
	}
	c.mu.Unlock()
}

// Close stops polling and releases subscribers. The controller is unusable afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	review := c.review
	c.mu.Unlock()

	c.cancel()
	c.poller.StopAll()
	if review != nil {
		review.End()
	}

	c.subMu.Lock()
	for ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.subMu.Unlock()
}

// WaitIdle blocks until polling for the current listing stops or ctx ends.
func (c *Controller) WaitIdle(ctx context.Context) error {
	listing := c.Listing()
	if listing == nil {
		return nil
	}
	return c.poller.Wait(ctx, listing.ID)
}

func (c *Controller) run(ctx context.Context, action Action, call func(ctx context.Context, id string) (*types.Listing, error)) error {
	c.mu.RLock()
	closed, listing := c.closed, c.listing
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if listing == nil {
		return ErrNoListing
	}

	release, err := c.guard.TryAcquire(action)
	if err != nil {
		return err
	}
	c.setErr(nil)

	updated, err := call(ctx, listing.ID)
	release()
	if err != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"listing_id": listing.ID,
			"action":     string(action),
			"error":      err.Error(),
		}), "workflow.action_failed")
		c.setErr(err)
		return err
	}
	if updated != nil {
		c.apply(updated)
	} else {
		c.publish()
	}
	return nil
}

// apply replaces the local listing wholesale and reconciles polling.
func (c *Controller) apply(listing *types.Listing) {
	if listing == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	previous := c.listing
	c.listing = listing
	review := c.review
	c.mu.Unlock()

	if review != nil {
		review.SetListingSnapshot(listing)
	}
	if previous != nil && previous.Status != listing.Status {
		c.metrics.IncTransition(previous.Status.String(), listing.Status.String())
		c.logg.Info(c.logg.WithFields(c.ctx, map[string]any{
			"listing_id": listing.ID,
			"from":       previous.Status.String(),
			"to":         listing.Status.String(),
		}), "workflow.transition")
	}

	if Awaiting(listing.Status) {
		c.poller.Start(c.ctx, listing.ID, listing.Status, c.apply)
	} else {
		c.poller.Stop(listing.ID)
	}
	c.publish()
}

func (c *Controller) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) publish() {
	st := c.State()
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- st:
		default:
			// Drop the oldest snapshot so the newest is always delivered.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}
