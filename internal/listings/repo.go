package listings

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/brandinbox/pkg/db/models"
	dbtypes "github.com/angelmondragon/brandinbox/pkg/db/types"
	"github.com/angelmondragon/brandinbox/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists listings together with their media and publication rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Media").Preload("PublishedListing")
}

// Create inserts a listing row without associations.
func (r *Repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error
}

// FindByID loads a listing and its relations regardless of owner.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	if err := r.withRelations(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindForUser loads a listing owned by userID.
func (r *Repository) FindForUser(ctx context.Context, id string, userID uint) (*models.Listing, error) {
	var listing models.Listing
	if err := r.withRelations(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListForUser returns the caller's listings, newest first, optionally filtered by status.
func (r *Repository) ListForUser(ctx context.Context, userID uint, status *enums.ListingStatus) ([]models.Listing, error) {
	query := r.withRelations(ctx).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var rows []models.Listing
	if err := query.Order("created_at DESC").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateFields applies a partial content update. Status columns are never touched here.
func (r *Repository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// TransitionStatus moves a listing from one status to another only if it is
// still in from. The boolean is false when another writer got there first.
func (r *Repository) TransitionStatus(ctx context.Context, id string, from, to enums.ListingStatus, at time.Time, fields map[string]any) (bool, error) {
	values := map[string]any{
		"status":            to,
		"status_changed_at": at,
		"updated_at":        at,
	}
	for k, v := range fields {
		values[k] = v
	}

	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReplaceMedia writes the scoped media fields, creating the row on first completion.
func (r *Repository) ReplaceMedia(ctx context.Context, listingID string, scope enums.MediaType, images []string, video *string) (*models.Media, error) {
	var media models.Media
	err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).First(&media).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		media = models.Media{ListingID: listingID}
	case err != nil:
		return nil, err
	}

	if scope.IncludesImages() {
		media.ImageURLs = dbtypes.StringList(images).Clone()
	}
	if scope.IncludesVideo() {
		media.VideoURL = video
	}

	if err := r.db.WithContext(ctx).Save(&media).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

// CreatePublished records the marketplace listing, replacing any stale row.
func (r *Repository) CreatePublished(ctx context.Context, published *models.PublishedListing) error {
	if err := r.DeletePublished(ctx, published.ListingID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(published).Error
}

// DeletePublished removes the publication record for a listing, if any.
func (r *Repository) DeletePublished(ctx context.Context, listingID string) error {
	return r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Delete(&models.PublishedListing{}).Error
}

// Delete removes a listing and its dependent rows. Returns false when nothing matched.
func (r *Repository) Delete(ctx context.Context, id string, userID uint) (bool, error) {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("listing_id = ?", id).Delete(&models.Media{}).Error; err != nil {
		return false, err
	}
	if err := tx.Where("listing_id = ?", id).Delete(&models.PublishedListing{}).Error; err != nil {
		return false, err
	}
	res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Listing{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListStaleIDs returns listings that entered status before cutoff.
func (r *Repository) ListStaleIDs(ctx context.Context, status enums.ListingStatus, cutoff time.Time, limit int) ([]string, error) {
	var ids []string
	query := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("status = ? AND status_changed_at < ?", status, cutoff).
		Order("status_changed_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
