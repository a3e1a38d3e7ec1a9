package models

import (
	"time"

	dbtypes "github.com/angelmondragon/brandinbox/pkg/db/types"
)

// Media holds the generated assets for a listing. Regeneration replaces fields wholesale.
type Media struct {
	ID        uint               `gorm:"column:id;primaryKey;autoIncrement"`
	ListingID string             `gorm:"column:listing_id;type:varchar(36);not null;uniqueIndex"`
	ImageURLs dbtypes.StringList `gorm:"column:image_urls;type:jsonb"`
	VideoURL  *string            `gorm:"column:video_url"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Media is stored in the singular table the schema migrations create.
func (Media) TableName() string {
	return "media"
}
