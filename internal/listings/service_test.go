package listings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/brandinbox/internal/events"
	"github.com/angelmondragon/brandinbox/internal/users"
	"github.com/angelmondragon/brandinbox/pkg/db"
	"github.com/angelmondragon/brandinbox/pkg/db/models"
	"github.com/angelmondragon/brandinbox/pkg/enums"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/angelmondragon/brandinbox/pkg/migrate"
	"github.com/angelmondragon/brandinbox/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeMediaTrigger struct {
	mu   sync.Mutex
	jobs []MediaJob
	err  error
}

func (f *fakeMediaTrigger) TriggerMediaGeneration(_ context.Context, job MediaJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return f.err
}

type fakePublishTrigger struct {
	mu   sync.Mutex
	jobs []PublishJob
	err  error
}

func (f *fakePublishTrigger) TriggerPublish(_ context.Context, job PublishJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return f.err
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.ListingStatusChanged
}

func (r *recordingEvents) PublishStatusChanged(_ context.Context, event events.ListingStatusChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type harness struct {
	svc     Service
	raw     *service
	media   *fakeMediaTrigger
	publish *fakePublishTrigger
	events  *recordingEvents
	conn    *gorm.DB
	userID  uint
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migrate.Run(context.Background(), sqlDB, migrate.DialectSQLite, "", "up"))

	userRepo := users.NewRepository(conn)
	token := "ebay-user-token"
	user, err := userRepo.Create(context.Background(), users.CreateUserDTO{Email: "seller@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	require.NoError(t, userRepo.UpdateEbayToken(context.Background(), user.ID, &token))

	h := &harness{
		media:   &fakeMediaTrigger{},
		publish: &fakePublishTrigger{},
		events:  &recordingEvents{},
		conn:    conn,
		userID:  user.ID,
	}
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(conn),
		Tx:      db.Wrap(conn),
		Users:   userRepo,
		Media:   h.media,
		Publish: h.publish,
		Events:  h.events,
	})
	require.NoError(t, err)
	h.svc = svc
	h.raw = svc.(*service)
	return h
}

func (h *harness) createMug(t *testing.T) *types.Listing {
	t.Helper()
	photo := "https://cdn.example.com/mug.png"
	category := "4"
	condition := "1000"
	listing, err := h.svc.Create(context.Background(), h.userID, types.ListingCreate{
		Title:           "Test Mug",
		Description:     "A sturdy ceramic mug",
		CategoryID:      &category,
		ConditionID:     &condition,
		Price:           9.99,
		Quantity:        3,
		ProductPhotoURL: &photo,
	})
	require.NoError(t, err)
	return listing
}

func (h *harness) toMediaReady(t *testing.T, id string, images ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.GenerateMedia(ctx, h.userID, id, "")
	require.NoError(t, err)
	video := "https://cdn.example.com/mug.mp4"
	_, err = h.svc.CompleteMedia(ctx, MediaResult{ListingID: id, Success: true, ImageURLs: images, VideoURL: &video})
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestCreateStartsInDraft(t *testing.T) {
	h := newHarness(t)
	listing := h.createMug(t)

	require.Equal(t, enums.ListingStatusDraft, listing.Status)
	require.Equal(t, 9.99, listing.Price)
	require.Equal(t, 3, listing.Quantity)
	require.Nil(t, listing.Media)
	require.Nil(t, listing.PublishedListing)
	require.Nil(t, listing.ErrorMessage)
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, h.userID, types.ListingCreate{Title: "  ", Description: "d", Quantity: 1})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.Create(ctx, h.userID, types.ListingCreate{Title: "t", Description: "d", Price: -1, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.Create(ctx, h.userID, types.ListingCreate{Title: "t", Description: "d", Quantity: 0})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestGetScopesToOwner(t *testing.T) {
	h := newHarness(t)
	listing := h.createMug(t)

	_, err := h.svc.Get(context.Background(), h.userID+1, listing.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
	require.Equal(t, "Listing not found", pkgerrors.As(err).Message())
}

func TestListFiltersByStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.createMug(t)
	second := h.createMug(t)
	_, err := h.svc.GenerateMedia(ctx, h.userID, second.ID, "")
	require.NoError(t, err)

	all, err := h.svc.List(ctx, h.userID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	draft := enums.ListingStatusDraft
	drafts, err := h.svc.List(ctx, h.userID, &draft)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, first.ID, drafts[0].ID)

	bogus := enums.ListingStatus("archived")
	_, err = h.svc.List(ctx, h.userID, &bogus)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateNeverChangesStatus(t *testing.T) {
	h := newHarness(t)
	listing := h.createMug(t)

	title := "Test Mug XL"
	price := 12.5
	updated, err := h.svc.Update(context.Background(), h.userID, listing.ID, types.ListingUpdate{Title: &title, Price: &price})
	require.NoError(t, err)
	require.Equal(t, "Test Mug XL", updated.Title)
	require.Equal(t, 12.5, updated.Price)
	require.Equal(t, enums.ListingStatusDraft, updated.Status)

	empty := " "
	_, err = h.svc.Update(context.Background(), h.userID, listing.ID, types.ListingUpdate{Description: &empty})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestDeleteRemovesListing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.createMug(t)
	h.toMediaReady(t, listing.ID, "https://cdn.example.com/1.png")

	require.NoError(t, h.svc.Delete(ctx, h.userID, listing.ID))
	_, err := h.svc.Get(ctx, h.userID, listing.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	err = h.svc.Delete(ctx, h.userID, listing.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestGenerateMediaMovesToGenerating(t *testing.T) {
	h := newHarness(t)
	listing := h.createMug(t)

	got, err := h.svc.GenerateMedia(context.Background(), h.userID, listing.ID, "")
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusGeneratingMedia, got.Status)

	require.Len(t, h.media.jobs, 1)
	job := h.media.jobs[0]
	require.Equal(t, enums.MediaTypeAll, job.MediaType)
	require.Equal(t, "Test Mug", job.ProductName)
	require.Equal(t, "General audience", job.TargetAudience)
	require.Equal(t, "A sturdy ceramic mug", job.ProductFeatures)
	require.Equal(t, "Casual indoor setting", job.VideoSetting)

	require.Len(t, h.events.events, 1)
	require.Equal(t, enums.ListingStatusDraft, h.events.events[0].From)
	require.Equal(t, enums.ListingStatusGeneratingMedia, h.events.events[0].To)
}

func TestGenerateMediaRequiresPhoto(t *testing.T) {
	h := newHarness(t)
	listing, err := h.svc.Create(context.Background(), h.userID, types.ListingCreate{Title: "t", Description: "d", Quantity: 1})
	require.NoError(t, err)

	_, err = h.svc.GenerateMedia(context.Background(), h.userID, listing.ID, "")
	requireCode(t, err, pkgerrors.CodeValidation)
	require.Equal(t, "Product photo URL is required", pkgerrors.As(err).Message())
	require.Empty(t, h.media.jobs)
}

func TestGenerateMediaRejectedWhileGenerating(t *testing.T) {
	h := newHarness(t)
	listing := h.createMug(t)
	_, err := h.svc.GenerateMedia(context.Background(), h.userID, listing.ID, "")
	require.NoError(t, err)

	_, err = h.svc.GenerateMedia(context.Background(), h.userID, listing.ID, enums.MediaTypeImages)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Equal(t, "Media generation is not allowed while listing is generating_media", pkgerrors.As(err).Message())
}

func TestGenerateMediaTriggerFailureMovesToError(t *testing.T) {
	h := newHarness(t)
	listing := h.createMug(t)
	h.media.err = errors.New("connection refused")

	_, err := h.svc.GenerateMedia(context.Background(), h.userID, listing.ID, "")
	requireCode(t, err, pkgerrors.CodeUpstream)
	require.Equal(t, "Failed to trigger media generation: connection refused", pkgerrors.As(err).Message())

	got, err := h.svc.Get(context.Background(), h.userID, listing.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusError, got.Status)
	require.NotNil(t, got.ErrorMessage)
	require.Contains(t, *got.ErrorMessage, "connection refused")

	h.media.err = nil
	retried, err := h.svc.GenerateMedia(context.Background(), h.userID, listing.ID, "")
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusGeneratingMedia, retried.Status)
	require.Nil(t, retried.ErrorMessage)
}

func TestCompleteMediaSuccessAndScopedRegenerate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.createMug(t)
	h.toMediaReady(t, listing.ID, "https://cdn.example.com/1.png", "https://cdn.example.com/2.png", "https://cdn.example.com/3.png")

	ready, err := h.svc.Get(ctx, h.userID, listing.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusMediaReady, ready.Status)
	require.Len(t, ready.Media.ImageURLs, 3)
	require.NotNil(t, ready.Media.VideoURL)

	_, err = h.svc.GenerateMedia(ctx, h.userID, listing.ID, enums.MediaTypeImages)
	require.NoError(t, err)
	completion, err := h.svc.CompleteMedia(ctx, MediaResult{
		ListingID: listing.ID,
		Success:   true,
		ImageURLs: []string{"https://cdn.example.com/4.png"},
	})
	require.NoError(t, err)
	require.False(t, completion.Ignored)
	require.Equal(t, enums.ListingStatusMediaReady, completion.Status)

	regenerated, err := h.svc.Get(ctx, h.userID, listing.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"https://cdn.example.com/4.png"}, regenerated.Media.ImageURLs)
	require.NotNil(t, regenerated.Media.VideoURL, "images-only regeneration keeps the video")
}

func TestCompleteMediaFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.createMug(t)
	_, err := h.svc.GenerateMedia(ctx, h.userID, listing.ID, "")
	require.NoError(t, err)

	completion, err := h.svc.CompleteMedia(ctx, MediaResult{ListingID: listing.ID})
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusError, completion.Status)

	got, err := h.svc.Get(ctx, h.userID, listing.ID)
	require.NoError(t, err)
	require.Equal(t, "Media generation failed", *got.ErrorMessage)
	require.Nil(t, got.Media)
}

func TestCompleteMediaIgnoredOutsideGenerating(t *testing.T) {
	h := newHarness(t)
	listing := h.createMug(t)

	completion, err := h.svc.CompleteMedia(context.Background(), MediaResult{ListingID: listing.ID, Success: true})
	require.NoError(t, err)
	require.True(t, completion.Ignored)
	require.Equal(t, enums.ListingStatusDraft, completion.Status)

	_, err = h.svc.CompleteMedia(context.Background(), MediaResult{ListingID: "missing"})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestApproveMedia(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.createMug(t)

	_, err := h.svc.ApproveMedia(ctx, h.userID, listing.ID, nil)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Equal(t, "Media is not ready for approval", pkgerrors.As(err).Message())

	h.toMediaReady(t, listing.ID, "https://cdn.example.com/1.png", "https://cdn.example.com/2.png", "https://cdn.example.com/3.png")

	_, err = h.svc.ApproveMedia(ctx, h.userID, listing.ID, []int{5})
	requireCode(t, err, pkgerrors.CodeValidation)

	approved, err := h.svc.ApproveMedia(ctx, h.userID, listing.ID, []int{2, 0, 2})
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusApproved, approved.Status)
	require.Equal(t, []string{"https://cdn.example.com/1.png", "https://cdn.example.com/3.png"}, approved.ApprovedImageURLs)
}

func TestPublishFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.createMug(t)

	_, err := h.svc.Publish(ctx, h.userID, listing.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Equal(t, "Listing must be approved before publishing", pkgerrors.As(err).Message())

	h.toMediaReady(t, listing.ID, "https://cdn.example.com/1.png", "https://cdn.example.com/2.png")
	_, err = h.svc.ApproveMedia(ctx, h.userID, listing.ID, []int{1})
	require.NoError(t, err)

	publishing, err := h.svc.Publish(ctx, h.userID, listing.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusPublishing, publishing.Status)
	require.Nil(t, publishing.PublishedListing)

	require.Len(t, h.publish.jobs, 1)
	job := h.publish.jobs[0]
	require.Equal(t, []string{"https://cdn.example.com/2.png"}, job.ImageURLs)
	require.Equal(t, "4", job.CategoryID)
	require.Equal(t, "1000", job.ConditionID)
	require.True(t, job.Price.Equal(decimal.RequireFromString("9.99")))
	require.NotNil(t, job.EbayToken)
	require.Equal(t, "ebay-user-token", *job.EbayToken)

	fees := decimal.NewNullDecimal(decimal.RequireFromString("1.25"))
	completion, err := h.svc.CompletePublish(ctx, PublishResult{
		ListingID:  listing.ID,
		Success:    true,
		EbayItemID: "110553",
		EbayURL:    "https://www.sandbox.ebay.com/itm/110553",
		Fees:       fees,
	})
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusPublished, completion.Status)

	published, err := h.svc.Get(ctx, h.userID, listing.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusPublished, published.Status)
	require.NotNil(t, published.PublishedListing)
	require.Equal(t, "110553", published.PublishedListing.EbayItemID)
	require.NotNil(t, published.PublishedListing.EbayFees)
	require.InDelta(t, 1.25, *published.PublishedListing.EbayFees, 0.001)

	again, err := h.svc.CompletePublish(ctx, PublishResult{ListingID: listing.ID, Success: true, EbayItemID: "999"})
	require.NoError(t, err)
	require.True(t, again.Ignored)
}

func TestPublishTriggerFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.createMug(t)
	h.toMediaReady(t, listing.ID, "https://cdn.example.com/1.png")
	_, err := h.svc.ApproveMedia(ctx, h.userID, listing.ID, nil)
	require.NoError(t, err)

	h.publish.err = errors.New("timeout")
	_, err = h.svc.Publish(ctx, h.userID, listing.ID)
	requireCode(t, err, pkgerrors.CodeUpstream)
	require.Equal(t, "Failed to trigger eBay publishing: timeout", pkgerrors.As(err).Message())

	got, err := h.svc.Get(ctx, h.userID, listing.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusError, got.Status)
	require.Nil(t, got.PublishedListing)
}

func TestCompletePublishFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.createMug(t)
	h.toMediaReady(t, listing.ID, "https://cdn.example.com/1.png")
	_, err := h.svc.ApproveMedia(ctx, h.userID, listing.ID, nil)
	require.NoError(t, err)
	_, err = h.svc.Publish(ctx, h.userID, listing.ID)
	require.NoError(t, err)

	completion, err := h.svc.CompletePublish(ctx, PublishResult{ListingID: listing.ID})
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusError, completion.Status)

	got, err := h.svc.Get(ctx, h.userID, listing.ID)
	require.NoError(t, err)
	require.Equal(t, "eBay publishing failed", *got.ErrorMessage)
	require.Nil(t, got.PublishedListing)
}

func TestExpireStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	base := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	h.raw.now = func() time.Time { return base }

	stale := h.createMug(t)
	_, err := h.svc.GenerateMedia(ctx, h.userID, stale.ID, "")
	require.NoError(t, err)

	h.raw.now = func() time.Time { return base.Add(20 * time.Minute) }
	fresh := h.createMug(t)
	_, err = h.svc.GenerateMedia(ctx, h.userID, fresh.ID, "")
	require.NoError(t, err)

	expired, err := h.svc.ExpireStale(ctx, enums.ListingStatusGeneratingMedia, base.Add(10*time.Minute), 10)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	got, err := h.svc.Get(ctx, h.userID, stale.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusError, got.Status)
	require.Equal(t, "Media generation timed out", *got.ErrorMessage)

	stillGenerating, err := h.svc.Get(ctx, h.userID, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ListingStatusGeneratingMedia, stillGenerating.Status)

	_, err = h.svc.ExpireStale(ctx, enums.ListingStatusDraft, base, 10)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestToDTOExposesPublicationOnlyWhenPublished(t *testing.T) {
	for _, status := range enums.ListingStatuses() {
		row := &models.Listing{
			ID:     "listing-1",
			Status: status,
			PublishedListing: &models.PublishedListing{
				ListingID:  "listing-1",
				EbayItemID: "110553",
			},
		}
		dto := ToDTO(row)
		if status == enums.ListingStatusPublished {
			require.NotNil(t, dto.PublishedListing, status)
		} else {
			require.Nil(t, dto.PublishedListing, status)
		}
	}
}

func TestToDTOHidesStaleErrorMessage(t *testing.T) {
	msg := "old failure"
	dto := ToDTO(&models.Listing{Status: enums.ListingStatusDraft, ErrorMessage: &msg})
	require.Nil(t, dto.ErrorMessage)

	dto = ToDTO(&models.Listing{Status: enums.ListingStatusError, ErrorMessage: &msg})
	require.NotNil(t, dto.ErrorMessage)
}
