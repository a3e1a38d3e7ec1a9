package listings

import (
	"github.com/angelmondragon/brandinbox/pkg/db/models"
	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

// ToDTO converts a listing row into its wire shape. The publication record is
// only exposed while the listing is published.
func ToDTO(l *models.Listing) *types.Listing {
	if l == nil {
		return nil
	}

	out := &types.Listing{
		ID:                  l.ID,
		UserID:              l.UserID,
		Title:               l.Title,
		Description:         l.Description,
		EnrichedDescription: l.EnrichedDescription,
		CategoryID:          l.CategoryID,
		ConditionID:         l.ConditionID,
		Price:               l.Price.InexactFloat64(),
		Quantity:            l.Quantity,
		ProductPhotoURL:     l.ProductPhotoURL,
		UploadedImageURLs:   l.UploadedImageURLs.Clone(),
		ModelAvatarURL:      l.ModelAvatarURL,
		TargetAudience:      l.TargetAudience,
		ProductFeatures:     l.ProductFeatures,
		VideoSetting:        l.VideoSetting,
		ImagePrompt:         l.ImagePrompt,
		VideoPrompt:         l.VideoPrompt,
		GenerateImage:       l.GenerateImage,
		GenerateVideo:       l.GenerateVideo,
		Status:              l.Status,
		ApprovedImageURLs:   l.ApprovedImageURLs.Clone(),
		CreatedAt:           l.CreatedAt,
	}
	if !l.UpdatedAt.IsZero() {
		updated := l.UpdatedAt
		out.UpdatedAt = &updated
	}
	if l.Status == enums.ListingStatusError {
		out.ErrorMessage = l.ErrorMessage
	}

	if l.Media != nil {
		images := l.Media.ImageURLs.Clone()
		if images == nil {
			images = []string{}
		}
		out.Media = &types.Media{
			ID:        l.Media.ID,
			ListingID: l.Media.ListingID,
			ImageURLs: images,
			VideoURL:  l.Media.VideoURL,
			CreatedAt: l.Media.CreatedAt,
		}
	}

	if l.Status == enums.ListingStatusPublished && l.PublishedListing != nil {
		p := l.PublishedListing
		out.PublishedListing = &types.PublishedListing{
			ID:          p.ID,
			ListingID:   p.ListingID,
			EbayItemID:  p.EbayItemID,
			EbayURL:     p.EbayURL,
			PublishedAt: p.PublishedAt,
		}
		if p.EbayFees.Valid {
			fees := p.EbayFees.Decimal.InexactFloat64()
			out.PublishedListing.EbayFees = &fees
		}
	}
	return out
}

// ToDTOs converts a slice of listing rows.
func ToDTOs(rows []models.Listing) []types.Listing {
	out := make([]types.Listing, 0, len(rows))
	for i := range rows {
		out = append(out, *ToDTO(&rows[i]))
	}
	return out
}
