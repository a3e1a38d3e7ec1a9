package listings

import (
	"context"

	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/shopspring/decimal"
)

// MediaJob is everything the automation needs to generate media for a listing.
type MediaJob struct {
	ListingID       string
	ProductName     string
	ProductPhotoURL string
	TargetAudience  string
	ProductFeatures string
	VideoSetting    string
	MediaType       enums.MediaType
}

// PublishJob is the marketplace-ready snapshot of an approved listing.
type PublishJob struct {
	ListingID   string
	UserID      uint
	Title       string
	Description string
	CategoryID  string
	ConditionID string
	Price       decimal.Decimal
	Quantity    int
	ImageURLs   []string
	EbayToken   *string
}

// MediaTrigger starts asynchronous media generation.
type MediaTrigger interface {
	TriggerMediaGeneration(ctx context.Context, job MediaJob) error
}

// PublishTrigger starts asynchronous marketplace publishing.
type PublishTrigger interface {
	TriggerPublish(ctx context.Context, job PublishJob) error
}

// MediaResult reports the outcome of a media generation job.
type MediaResult struct {
	ListingID    string
	Success      bool
	ImageURLs    []string
	VideoURL     *string
	ImagePrompt  *string
	VideoPrompt  *string
	ErrorMessage *string
}

// PublishResult reports the outcome of a publish job.
type PublishResult struct {
	ListingID    string
	Success      bool
	EbayItemID   string
	EbayURL      string
	Fees         decimal.NullDecimal
	ErrorMessage *string
}

// CompletionSink receives publish results from in-process publishers.
type CompletionSink interface {
	CompletePublish(ctx context.Context, result PublishResult) (*Completion, error)
}

// Completion describes how a callback was applied.
type Completion struct {
	ListingID string
	Status    enums.ListingStatus
	Ignored   bool
}
