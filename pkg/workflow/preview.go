package workflow

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/brandinbox/pkg/forms"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

// Preview is the marketplace-style rendering of a listing before publish.
type Preview struct {
	Title       string
	Description string
	Price       string
	Quantity    int
	Category    string
	Condition   string
	Images      []string
	VideoURL    string
	Badge       Badge
}

// BuildPreview renders listing with the review selection applied when a session is given.
func BuildPreview(listing *types.Listing, review *ReviewSession) Preview {
	if listing == nil {
		return Preview{}
	}
	p := Preview{
		Title:       listing.Title,
		Description: listing.DisplayDescription(),
		Price:       FormatPrice(listing.Price),
		Quantity:    listing.Quantity,
		Category:    optionLabel(listing.CategoryID, forms.CategoryLabel),
		Condition:   optionLabel(listing.ConditionID, forms.ConditionLabel),
		Badge:       BadgeFor(listing.Status),
	}
	if review != nil {
		p.Images = review.VisibleImages()
	} else if len(listing.ApprovedImageURLs) > 0 {
		p.Images = append([]string(nil), listing.ApprovedImageURLs...)
	} else {
		p.Images = append([]string(nil), listing.ImageURLs()...)
	}
	if listing.Media != nil && listing.Media.VideoURL != nil {
		p.VideoURL = *listing.Media.VideoURL
	}
	return p
}

// FormatPrice renders a USD amount with two decimals.
func FormatPrice(price float64) string {
	return "$" + decimal.NewFromFloat(price).StringFixed(2)
}

func optionLabel(id *string, lookup func(string) (string, bool)) string {
	if id == nil || *id == "" {
		return "Not specified"
	}
	if label, ok := lookup(*id); ok {
		return label
	}
	return *id
}
