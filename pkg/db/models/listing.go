package models

import (
	"time"

	dbtypes "github.com/angelmondragon/brandinbox/pkg/db/types"
	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/shopspring/decimal"
)

// Listing is a seller product moving through the generate/approve/publish workflow.
type Listing struct {
	ID     string `gorm:"column:id;type:varchar(36);primaryKey"`
	UserID uint   `gorm:"column:user_id;not null;index"`

	Title               string          `gorm:"column:title;not null"`
	Description         string          `gorm:"column:description;not null"`
	EnrichedDescription *string         `gorm:"column:enriched_description"`
	CategoryID          *string         `gorm:"column:category_id"`
	ConditionID         *string         `gorm:"column:condition_id"`
	Price               decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity            int             `gorm:"column:quantity;not null"`

	ProductPhotoURL   *string            `gorm:"column:product_photo_url"`
	UploadedImageURLs dbtypes.StringList `gorm:"column:uploaded_image_urls;type:jsonb"`
	ModelAvatarURL    *string            `gorm:"column:model_avatar_url"`
	TargetAudience    *string            `gorm:"column:target_audience"`
	ProductFeatures   *string            `gorm:"column:product_features"`
	VideoSetting      *string            `gorm:"column:video_setting"`
	ImagePrompt       *string            `gorm:"column:image_prompt"`
	VideoPrompt       *string            `gorm:"column:video_prompt"`
	GenerateImage     bool               `gorm:"column:generate_image;not null;default:false"`
	GenerateVideo     bool               `gorm:"column:generate_video;not null;default:false"`

	Status            enums.ListingStatus `gorm:"column:status;type:varchar(32);not null;index"`
	ErrorMessage      *string             `gorm:"column:error_message"`
	ApprovedImageURLs dbtypes.StringList  `gorm:"column:approved_image_urls;type:jsonb"`
	PendingMediaType  *enums.MediaType    `gorm:"column:pending_media_type;type:varchar(16)"`
	StatusChangedAt   time.Time           `gorm:"column:status_changed_at;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Media            *Media            `gorm:"foreignKey:ListingID;references:ID"`
	PublishedListing *PublishedListing `gorm:"foreignKey:ListingID;references:ID"`
}
