package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PublishedListing records the marketplace listing created for a published Listing.
type PublishedListing struct {
	ID          uint                `gorm:"column:id;primaryKey;autoIncrement"`
	ListingID   string              `gorm:"column:listing_id;type:varchar(36);not null;uniqueIndex"`
	EbayItemID  string              `gorm:"column:ebay_item_id;not null"`
	EbayURL     string              `gorm:"column:ebay_url;not null"`
	EbayFees    decimal.NullDecimal `gorm:"column:ebay_fees;type:numeric(12,2)"`
	PublishedAt time.Time           `gorm:"column:published_at;not null"`
}
