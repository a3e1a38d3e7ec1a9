// Package webhooks applies automation callbacks to listings.
package webhooks

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/brandinbox/internal/listings"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/angelmondragon/brandinbox/pkg/logger"
)

const (
	AckStatusSuccess = "success"
	AckStatusIgnored = "ignored"
)

type completer interface {
	CompleteMedia(ctx context.Context, result listings.MediaResult) (*listings.Completion, error)
	CompletePublish(ctx context.Context, result listings.PublishResult) (*listings.Completion, error)
}

// Ack is the body returned to the workflow.
type Ack struct {
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	ListingID     string  `json:"listing_id"`
	ListingStatus string  `json:"listing_status"`
	EbayItemID    *string `json:"ebay_item_id,omitempty"`
}

type Service struct {
	listings completer
	logg     *logger.Logger
}

func NewService(listings completer, logg *logger.Logger) (*Service, error) {
	if listings == nil {
		return nil, errors.New("listings service is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{listings: listings, logg: logg}, nil
}

// HandleMediaComplete records the outcome of a media generation job.
func (s *Service) HandleMediaComplete(ctx context.Context, payload MediaCompletePayload) (*Ack, error) {
	listingID := strings.TrimSpace(payload.ListingID)
	if listingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id is required")
	}

	result := listings.MediaResult{
		ListingID:    listingID,
		Success:      payload.Success(),
		ErrorMessage: payload.ErrorMessage,
	}
	if result.Success {
		result.ImageURLs = payload.ImageURLs()
		result.VideoURL = payload.VideoURL()
		if payload.Prompts != nil {
			result.ImagePrompt = payload.Prompts.ImagePrompt
			result.VideoPrompt = payload.Prompts.VideoPrompt
		}
	}

	completion, err := s.listings.CompleteMedia(ctx, result)
	if err != nil {
		return nil, err
	}
	ack := s.ack(ctx, completion, "Media completion processed", "media")
	return ack, nil
}

// HandleEbayComplete records the outcome of a publish job.
func (s *Service) HandleEbayComplete(ctx context.Context, payload EbayCompletePayload) (*Ack, error) {
	listingID := strings.TrimSpace(payload.ListingID)
	if listingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id is required")
	}

	result := listings.PublishResult{
		ListingID:    listingID,
		Success:      payload.Succeeded(),
		ErrorMessage: payload.ErrorMessage,
	}
	if result.Success {
		result.EbayItemID = deref(payload.EbayItemID)
		result.EbayURL = deref(payload.EbayURL)
		result.Fees = ParseFees(payload.Fees)
	}

	completion, err := s.listings.CompletePublish(ctx, result)
	if err != nil {
		return nil, err
	}
	ack := s.ack(ctx, completion, "eBay publish completion processed", "ebay")
	if !completion.Ignored && result.Success && result.EbayItemID != "" {
		itemID := result.EbayItemID
		ack.EbayItemID = &itemID
	}
	return ack, nil
}

func (s *Service) ack(ctx context.Context, completion *listings.Completion, message, kind string) *Ack {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"listing_id": completion.ListingID,
		"status":     completion.Status,
		"callback":   kind,
	})
	if completion.Ignored {
		s.logg.Warn(ctx, "webhook.ignored")
		return &Ack{
			Status:        AckStatusIgnored,
			Message:       "Listing is not awaiting this callback",
			ListingID:     completion.ListingID,
			ListingStatus: completion.Status.String(),
		}
	}
	s.logg.Info(ctx, "webhook.applied")
	return &Ack{
		Status:        AckStatusSuccess,
		Message:       message,
		ListingID:     completion.ListingID,
		ListingStatus: completion.Status.String(),
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
