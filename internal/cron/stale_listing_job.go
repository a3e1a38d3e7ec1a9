package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/metrics"
	"go.uber.org/multierr"
)

const (
	defaultGeneratingTimeout = 30 * time.Minute
	defaultPublishingTimeout = 15 * time.Minute
	defaultExpireBatch       = 100
)

type staleExpirer interface {
	ExpireStale(ctx context.Context, status enums.ListingStatus, cutoff time.Time, limit int) (int, error)
}

// StaleListingJobParams configure the stale listing sweep.
type StaleListingJobParams struct {
	Logger            *logger.Logger
	Listings          staleExpirer
	Metrics           *metrics.CronJobMetrics
	GeneratingTimeout time.Duration
	PublishingTimeout time.Duration
	BatchSize         int
}

// NewStaleListingJob builds the job that errors out listings whose callback never arrived.
func NewStaleListingJob(params StaleListingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listings service required")
	}
	generating := params.GeneratingTimeout
	if generating <= 0 {
		generating = defaultGeneratingTimeout
	}
	publishing := params.PublishingTimeout
	if publishing <= 0 {
		publishing = defaultPublishingTimeout
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpireBatch
	}
	return &staleListingJob{
		logg:     params.Logger,
		listings: params.Listings,
		metrics:  params.Metrics,
		timeouts: map[enums.ListingStatus]time.Duration{
			enums.ListingStatusGeneratingMedia: generating,
			enums.ListingStatusPublishing:      publishing,
		},
		batch: batch,
		now:   time.Now,
	}, nil
}

type staleListingJob struct {
	logg     *logger.Logger
	listings staleExpirer
	metrics  *metrics.CronJobMetrics
	timeouts map[enums.ListingStatus]time.Duration
	batch    int
	now      func() time.Time
}

func (j *staleListingJob) Name() string { return "stale-listing-expiry" }

// Run sweeps both awaited statuses. A failure in one does not skip the other.
func (j *staleListingJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error
	for _, status := range []enums.ListingStatus{enums.ListingStatusGeneratingMedia, enums.ListingStatusPublishing} {
		cutoff := now.Add(-j.timeouts[status])
		expired, err := j.listings.ExpireStale(ctx, status, cutoff, j.batch)
		j.metrics.AddExpired(status.String(), expired)

		logCtx := j.logg.WithFields(ctx, map[string]any{
			"status":  status.String(),
			"cutoff":  cutoff,
			"expired": expired,
		})
		if err != nil {
			j.logg.Error(logCtx, "stale listing sweep failed", err)
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", status, err))
			continue
		}
		j.logg.Info(logCtx, "stale listing sweep complete")
	}
	return errs
}
