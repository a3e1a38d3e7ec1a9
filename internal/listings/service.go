package listings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/brandinbox/internal/events"
	"github.com/angelmondragon/brandinbox/pkg/db/models"
	dbtypes "github.com/angelmondragon/brandinbox/pkg/db/types"
	"github.com/angelmondragon/brandinbox/pkg/enums"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/metrics"
	"github.com/angelmondragon/brandinbox/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultTargetAudience = "General audience"
	defaultVideoSetting   = "Casual indoor setting"

	defaultMediaFailure   = "Media generation failed"
	defaultPublishFailure = "eBay publishing failed"

	msgNotFound = "Listing not found"
)

// Service defines every listing operation exposed by the API and the callbacks.
type Service interface {
	Create(ctx context.Context, userID uint, in types.ListingCreate) (*types.Listing, error)
	List(ctx context.Context, userID uint, status *enums.ListingStatus) ([]types.Listing, error)
	Get(ctx context.Context, userID uint, id string) (*types.Listing, error)
	Update(ctx context.Context, userID uint, id string, in types.ListingUpdate) (*types.Listing, error)
	Delete(ctx context.Context, userID uint, id string) error

	GenerateMedia(ctx context.Context, userID uint, id string, mediaType enums.MediaType) (*types.Listing, error)
	ApproveMedia(ctx context.Context, userID uint, id string, selected []int) (*types.Listing, error)
	Publish(ctx context.Context, userID uint, id string) (*types.Listing, error)

	CompleteMedia(ctx context.Context, result MediaResult) (*Completion, error)
	CompletePublish(ctx context.Context, result PublishResult) (*Completion, error)
	ExpireStale(ctx context.Context, status enums.ListingStatus, cutoff time.Time, limit int) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

type service struct {
	repo    *Repository
	tx      txRunner
	users   userLoader
	media   MediaTrigger
	publish PublishTrigger
	events  events.Publisher
	metrics *metrics.WorkflowMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// ServiceParams bundles the dependencies required to build a listings service.
type ServiceParams struct {
	Repo    *Repository
	Tx      txRunner
	Users   userLoader
	Media   MediaTrigger
	Publish PublishTrigger
	Events  events.Publisher
	Metrics *metrics.WorkflowMetrics
	Logger  *logger.Logger
}

// NewService wires a listings service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media trigger required")
	}
	if params.Publish == nil {
		return nil, fmt.Errorf("publish trigger required")
	}
	pub := params.Events
	if pub == nil {
		pub = events.Nop{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		users:   params.Users,
		media:   params.Media,
		publish: params.Publish,
		events:  pub,
		metrics: params.Metrics,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uint, in types.ListingCreate) (*types.Listing, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Title is required")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Description is required")
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	listing := &models.Listing{
		ID:                uuid.NewString(),
		UserID:            userID,
		Title:             title,
		Description:       description,
		CategoryID:        in.CategoryID,
		ConditionID:       in.ConditionID,
		Price:             decimal.NewFromFloat(in.Price).Round(2),
		Quantity:          in.Quantity,
		ProductPhotoURL:   in.ProductPhotoURL,
		UploadedImageURLs: dbtypes.StringList(in.UploadedImageURLs).Clone(),
		ModelAvatarURL:    in.ModelAvatarURL,
		TargetAudience:    in.TargetAudience,
		ProductFeatures:   in.ProductFeatures,
		VideoSetting:      in.VideoSetting,
		ImagePrompt:       in.ImagePrompt,
		VideoPrompt:       in.VideoPrompt,
		GenerateImage:     in.GenerateImage,
		GenerateVideo:     in.GenerateVideo,
		Status:            enums.ListingStatusDraft,
		StatusChangedAt:   now,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}

	s.logg.Info(s.logg.WithListingID(ctx, listing.ID), "listing.created")
	return s.Get(ctx, userID, listing.ID)
}

func (s *service) List(ctx context.Context, userID uint, status *enums.ListingStatus) ([]types.Listing, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *status)
	}
	rows, err := s.repo.ListForUser(ctx, userID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}
	return ToDTOs(rows), nil
}

func (s *service) Get(ctx context.Context, userID uint, id string) (*types.Listing, error) {
	listing, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return ToDTO(listing), nil
}

func (s *service) Update(ctx context.Context, userID uint, id string, in types.ListingUpdate) (*types.Listing, error) {
	if _, err := s.load(ctx, userID, id); err != nil {
		return nil, err
	}

	fields, err := updateFields(in)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.now().UTC()
		if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
		}
	}
	return s.Get(ctx, userID, id)
}

func (s *service) Delete(ctx context.Context, userID uint, id string) error {
	var deleted bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindForUser(ctx, id, userID); err != nil {
			return err
		}
		ok, err := repo.Delete(ctx, id, userID)
		deleted = ok
		return err
	})
	if err != nil {
		return s.mapLoadError(err)
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgNotFound)
	}
	s.logg.Info(s.logg.WithListingID(ctx, id), "listing.deleted")
	return nil
}

func (s *service) GenerateMedia(ctx context.Context, userID uint, id string, mediaType enums.MediaType) (*types.Listing, error) {
	if mediaType == "" {
		mediaType = enums.MediaTypeAll
	}
	if !mediaType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media_type must be one of all, images, video")
	}

	listing, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if listing.ProductPhotoURL == nil || strings.TrimSpace(*listing.ProductPhotoURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product photo URL is required")
	}
	if !listing.Status.CanGenerateMedia() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "Media generation is not allowed while listing is %s", listing.Status)
	}

	scope := mediaType
	if err := s.transition(ctx, s.repo, listing, enums.ListingStatusGeneratingMedia, nil, map[string]any{
		"pending_media_type": scope,
	}); err != nil {
		return nil, err
	}

	if err := s.media.TriggerMediaGeneration(ctx, mediaJobFor(listing, scope)); err != nil {
		return nil, s.failTrigger(ctx, listing, "Failed to trigger media generation", err)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"listing_id": listing.ID,
		"media_type": scope,
	}), "listing.media_generation_started")
	return s.Get(ctx, userID, id)
}

func (s *service) ApproveMedia(ctx context.Context, userID uint, id string, selected []int) (*types.Listing, error) {
	listing, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if listing.Status != enums.ListingStatusMediaReady {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Media is not ready for approval")
	}

	var images []string
	if listing.Media != nil {
		images = listing.Media.ImageURLs
	}
	approved, err := selectImages(images, selected)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, s.repo, listing, enums.ListingStatusApproved, nil, map[string]any{
		"approved_image_urls": dbtypes.StringList(approved),
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

func (s *service) Publish(ctx context.Context, userID uint, id string) (*types.Listing, error) {
	listing, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if listing.Status != enums.ListingStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Listing must be approved before publishing")
	}

	images := publishImages(listing)
	if len(images) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Listing must have media before publishing")
	}

	var ebayToken *string
	if s.users != nil {
		user, err := s.users.FindByID(ctx, listing.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing owner")
		}
		ebayToken = user.EbayAccessToken
	}

	if err := s.transition(ctx, s.repo, listing, enums.ListingStatusPublishing, nil, nil); err != nil {
		return nil, err
	}

	job := PublishJob{
		ListingID:   listing.ID,
		UserID:      listing.UserID,
		Title:       listing.Title,
		Description: ToDTO(listing).DisplayDescription(),
		CategoryID:  valueOr(listing.CategoryID, "default"),
		ConditionID: valueOr(listing.ConditionID, "1000"),
		Price:       listing.Price,
		Quantity:    listing.Quantity,
		ImageURLs:   images,
		EbayToken:   ebayToken,
	}
	if err := s.publish.TriggerPublish(ctx, job); err != nil {
		return nil, s.failTrigger(ctx, listing, "Failed to trigger eBay publishing", err)
	}

	s.logg.Info(s.logg.WithListingID(ctx, listing.ID), "listing.publish_started")
	return s.Get(ctx, userID, id)
}

func (s *service) CompleteMedia(ctx context.Context, result MediaResult) (*Completion, error) {
	var (
		completion *Completion
		changed    *models.Listing
		from       enums.ListingStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindByID(ctx, result.ListingID)
		if err != nil {
			return err
		}
		if listing.Status != enums.ListingStatusGeneratingMedia {
			completion = &Completion{ListingID: listing.ID, Status: listing.Status, Ignored: true}
			return nil
		}
		from = listing.Status

		if !result.Success {
			msg := valueOr(result.ErrorMessage, defaultMediaFailure)
			if err := s.applyTransition(ctx, repo, listing, enums.ListingStatusError, &msg, map[string]any{
				"pending_media_type": nil,
			}); err != nil {
				return err
			}
		} else {
			scope := enums.MediaTypeAll
			if listing.PendingMediaType != nil {
				scope = *listing.PendingMediaType
			}
			if _, err := repo.ReplaceMedia(ctx, listing.ID, scope, result.ImageURLs, result.VideoURL); err != nil {
				return err
			}
			fields := map[string]any{"pending_media_type": nil}
			if result.ImagePrompt != nil {
				fields["image_prompt"] = *result.ImagePrompt
			}
			if result.VideoPrompt != nil {
				fields["video_prompt"] = *result.VideoPrompt
			}
			if err := s.applyTransition(ctx, repo, listing, enums.ListingStatusMediaReady, nil, fields); err != nil {
				return err
			}
		}
		changed = listing
		completion = &Completion{ListingID: listing.ID, Status: listing.Status}
		return nil
	})
	if err != nil {
		return nil, s.mapLoadError(err)
	}
	if changed != nil {
		s.afterTransition(ctx, changed, from)
	}
	return completion, nil
}

func (s *service) CompletePublish(ctx context.Context, result PublishResult) (*Completion, error) {
	var (
		completion *Completion
		changed    *models.Listing
		from       enums.ListingStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindByID(ctx, result.ListingID)
		if err != nil {
			return err
		}
		if listing.Status != enums.ListingStatusPublishing {
			completion = &Completion{ListingID: listing.ID, Status: listing.Status, Ignored: true}
			return nil
		}
		from = listing.Status

		if result.Success && strings.TrimSpace(result.EbayItemID) != "" {
			published := &models.PublishedListing{
				ListingID:   listing.ID,
				EbayItemID:  result.EbayItemID,
				EbayURL:     result.EbayURL,
				EbayFees:    result.Fees,
				PublishedAt: s.now().UTC(),
			}
			if err := repo.CreatePublished(ctx, published); err != nil {
				return err
			}
			if err := s.applyTransition(ctx, repo, listing, enums.ListingStatusPublished, nil, nil); err != nil {
				return err
			}
		} else {
			msg := valueOr(result.ErrorMessage, defaultPublishFailure)
			if err := s.applyTransition(ctx, repo, listing, enums.ListingStatusError, &msg, nil); err != nil {
				return err
			}
		}
		changed = listing
		completion = &Completion{ListingID: listing.ID, Status: listing.Status}
		return nil
	})
	if err != nil {
		return nil, s.mapLoadError(err)
	}
	if changed != nil {
		s.afterTransition(ctx, changed, from)
	}
	return completion, nil
}

// ExpireStale moves listings stuck in an awaited status since before cutoff to error.
func (s *service) ExpireStale(ctx context.Context, status enums.ListingStatus, cutoff time.Time, limit int) (int, error) {
	var msg string
	switch status {
	case enums.ListingStatusGeneratingMedia:
		msg = "Media generation timed out"
	case enums.ListingStatusPublishing:
		msg = "Publishing timed out"
	default:
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "status %s cannot expire", status)
	}

	ids, err := s.repo.ListStaleIDs(ctx, status, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale listings")
	}

	expired := 0
	for _, id := range ids {
		listing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return expired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stale listing")
		}
		if listing.Status != status {
			continue
		}
		message := msg
		err = s.transition(ctx, s.repo, listing, enums.ListingStatusError, &message, map[string]any{
			"pending_media_type": nil,
		})
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *service) load(ctx context.Context, userID uint, id string) (*models.Listing, error) {
	listing, err := s.repo.FindForUser(ctx, id, userID)
	if err != nil {
		return nil, s.mapLoadError(err)
	}
	return listing, nil
}

func (s *service) mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgNotFound)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing store unavailable")
}

// transition commits a status change and emits it once committed.
func (s *service) transition(ctx context.Context, repo *Repository, listing *models.Listing, to enums.ListingStatus, errMsg *string, fields map[string]any) error {
	from := listing.Status
	if err := s.applyTransition(ctx, repo, listing, to, errMsg, fields); err != nil {
		return err
	}
	s.afterTransition(ctx, listing, from)
	return nil
}

// applyTransition writes the status change and mirrors it onto listing.
func (s *service) applyTransition(ctx context.Context, repo *Repository, listing *models.Listing, to enums.ListingStatus, errMsg *string, fields map[string]any) error {
	from := listing.Status
	if !from.CanTransition(to) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "Cannot move listing from %s to %s", from, to)
	}

	values := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	if to == enums.ListingStatusError && errMsg != nil {
		values["error_message"] = *errMsg
	} else {
		values["error_message"] = nil
	}

	at := s.now().UTC()
	ok, err := repo.TransitionStatus(ctx, listing.ID, from, to, at, values)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "Listing status changed while the request was processed")
	}

	listing.Status = to
	listing.StatusChangedAt = at
	listing.ErrorMessage = nil
	if to == enums.ListingStatusError {
		listing.ErrorMessage = errMsg
	}
	return nil
}

func (s *service) afterTransition(ctx context.Context, listing *models.Listing, from enums.ListingStatus) {
	s.metrics.IncTransition(from.String(), listing.Status.String())

	ctx = s.logg.WithFields(ctx, map[string]any{
		"listing_id": listing.ID,
		"from":       from,
		"to":         listing.Status,
	})
	s.logg.Info(ctx, "listing.status_changed")

	event := events.ListingStatusChanged{
		ListingID:    listing.ID,
		UserID:       listing.UserID,
		From:         from,
		To:           listing.Status,
		ErrorMessage: listing.ErrorMessage,
		OccurredAt:   listing.StatusChangedAt,
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		s.logg.Error(ctx, "listing.status_event_failed", err)
	}
}

// failTrigger records a synchronous automation failure on the listing and
// returns the error reported to the caller.
func (s *service) failTrigger(ctx context.Context, listing *models.Listing, prefix string, cause error) error {
	msg := fmt.Sprintf("%s: %s", prefix, cause.Error())

	// The request may already be cancelled; the failure must still land.
	writeCtx := context.WithoutCancel(ctx)
	if err := s.transition(writeCtx, s.repo, listing, enums.ListingStatusError, &msg, map[string]any{
		"pending_media_type": nil,
	}); err != nil {
		s.logg.Error(s.logg.WithListingID(writeCtx, listing.ID), "listing.trigger_failure_not_recorded", err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, cause, msg)
}

func mediaJobFor(listing *models.Listing, scope enums.MediaType) MediaJob {
	return MediaJob{
		ListingID:       listing.ID,
		ProductName:     listing.Title,
		ProductPhotoURL: valueOr(listing.ProductPhotoURL, ""),
		TargetAudience:  valueOr(listing.TargetAudience, defaultTargetAudience),
		ProductFeatures: valueOr(listing.ProductFeatures, listing.Description),
		VideoSetting:    valueOr(listing.VideoSetting, defaultVideoSetting),
		MediaType:       scope,
	}
}

// selectImages resolves the reviewer's indices against the generated images.
// No indices means every image is approved, which is stored as an empty list.
func selectImages(images []string, selected []int) ([]string, error) {
	if len(selected) == 0 {
		return nil, nil
	}
	seen := make(map[int]struct{}, len(selected))
	indices := make([]int, 0, len(selected))
	for _, idx := range selected {
		if idx < 0 || idx >= len(images) {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "Selected image index %d is out of range", idx)
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]string, 0, len(indices))
	for _, idx := range indices {
		out = append(out, images[idx])
	}
	return out, nil
}

func publishImages(listing *models.Listing) []string {
	if len(listing.ApprovedImageURLs) > 0 {
		return listing.ApprovedImageURLs.Clone()
	}
	if listing.Media == nil {
		return nil
	}
	return listing.Media.ImageURLs.Clone()
}

func updateFields(in types.ListingUpdate) (map[string]any, error) {
	fields := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Title is required")
		}
		fields["title"] = title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Description is required")
		}
		fields["description"] = description
	}
	if in.Price != nil {
		if err := validatePrice(*in.Price); err != nil {
			return nil, err
		}
		fields["price"] = decimal.NewFromFloat(*in.Price).Round(2)
	}
	if in.Quantity != nil {
		if err := validateQuantity(*in.Quantity); err != nil {
			return nil, err
		}
		fields["quantity"] = *in.Quantity
	}
	if in.UploadedImageURLs != nil {
		fields["uploaded_image_urls"] = dbtypes.StringList(*in.UploadedImageURLs).Clone()
	}
	if in.GenerateImage != nil {
		fields["generate_image"] = *in.GenerateImage
	}
	if in.GenerateVideo != nil {
		fields["generate_video"] = *in.GenerateVideo
	}

	optional := map[string]*string{
		"category_id":       in.CategoryID,
		"condition_id":      in.ConditionID,
		"product_photo_url": in.ProductPhotoURL,
		"model_avatar_url":  in.ModelAvatarURL,
		"target_audience":   in.TargetAudience,
		"product_features":  in.ProductFeatures,
		"video_setting":     in.VideoSetting,
		"image_prompt":      in.ImagePrompt,
		"video_prompt":      in.VideoPrompt,
	}
	for column, value := range optional {
		if value != nil {
			fields[column] = *value
		}
	}
	return fields, nil
}

func validatePrice(price float64) error {
	if price < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Price must be greater than or equal to 0")
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be at least 1")
	}
	return nil
}

func valueOr(value *string, fallback string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return fallback
	}
	return *value
}
