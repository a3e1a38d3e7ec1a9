package types

import (
	"time"

	"github.com/angelmondragon/brandinbox/pkg/enums"
)

// Listing is the wire shape of a listing shared by the API and the client SDK.
type Listing struct {
	ID                  string              `json:"id"`
	UserID              uint                `json:"user_id"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	EnrichedDescription *string             `json:"enriched_description,omitempty"`
	CategoryID          *string             `json:"category_id,omitempty"`
	ConditionID         *string             `json:"condition_id,omitempty"`
	Price               float64             `json:"price"`
	Quantity            int                 `json:"quantity"`
	ProductPhotoURL     *string             `json:"product_photo_url,omitempty"`
	UploadedImageURLs   []string            `json:"uploaded_image_urls,omitempty"`
	ModelAvatarURL      *string             `json:"model_avatar_url,omitempty"`
	TargetAudience      *string             `json:"target_audience,omitempty"`
	ProductFeatures     *string             `json:"product_features,omitempty"`
	VideoSetting        *string             `json:"video_setting,omitempty"`
	ImagePrompt         *string             `json:"image_prompt,omitempty"`
	VideoPrompt         *string             `json:"video_prompt,omitempty"`
	GenerateImage       bool                `json:"generate_image"`
	GenerateVideo       bool                `json:"generate_video"`
	Status              enums.ListingStatus `json:"status"`
	ErrorMessage        *string             `json:"error_message,omitempty"`
	ApprovedImageURLs   []string            `json:"approved_image_urls,omitempty"`
	Media               *Media              `json:"media,omitempty"`
	PublishedListing    *PublishedListing   `json:"published_listing,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           *time.Time          `json:"updated_at,omitempty"`
}

// ImageURLs returns the generated images, or nil when no media exists yet.
func (l *Listing) ImageURLs() []string {
	if l == nil || l.Media == nil {
		return nil
	}
	return l.Media.ImageURLs
}

// DisplayDescription prefers the enriched description when present.
func (l *Listing) DisplayDescription() string {
	if l == nil {
		return ""
	}
	if l.EnrichedDescription != nil && *l.EnrichedDescription != "" {
		return *l.EnrichedDescription
	}
	return l.Description
}

type Media struct {
	ID        uint      `json:"id"`
	ListingID string    `json:"listing_id"`
	ImageURLs []string  `json:"image_urls"`
	VideoURL  *string   `json:"video_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PublishedListing struct {
	ID          uint      `json:"id"`
	ListingID   string    `json:"listing_id"`
	EbayItemID  string    `json:"ebay_item_id"`
	EbayURL     string    `json:"ebay_url"`
	EbayFees    *float64  `json:"ebay_fees,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// ListingCreate is the POST /listings body.
type ListingCreate struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	CategoryID        *string  `json:"category_id,omitempty"`
	ConditionID       *string  `json:"condition_id,omitempty"`
	Price             float64  `json:"price"`
	Quantity          int      `json:"quantity"`
	ProductPhotoURL   *string  `json:"product_photo_url,omitempty"`
	UploadedImageURLs []string `json:"uploaded_image_urls,omitempty"`
	ModelAvatarURL    *string  `json:"model_avatar_url,omitempty"`
	TargetAudience    *string  `json:"target_audience,omitempty"`
	ProductFeatures   *string  `json:"product_features,omitempty"`
	VideoSetting      *string  `json:"video_setting,omitempty"`
	ImagePrompt       *string  `json:"image_prompt,omitempty"`
	VideoPrompt       *string  `json:"video_prompt,omitempty"`
	GenerateImage     bool     `json:"generate_image"`
	GenerateVideo     bool     `json:"generate_video"`
}

// ListingUpdate is the PUT/PATCH /listings/{id} body; nil fields are left unchanged.
type ListingUpdate struct {
	Title             *string   `json:"title,omitempty"`
	Description       *string   `json:"description,omitempty"`
	CategoryID        *string   `json:"category_id,omitempty"`
	ConditionID       *string   `json:"condition_id,omitempty"`
	Price             *float64  `json:"price,omitempty"`
	Quantity          *int      `json:"quantity,omitempty"`
	ProductPhotoURL   *string   `json:"product_photo_url,omitempty"`
	UploadedImageURLs *[]string `json:"uploaded_image_urls,omitempty"`
	ModelAvatarURL    *string   `json:"model_avatar_url,omitempty"`
	TargetAudience    *string   `json:"target_audience,omitempty"`
	ProductFeatures   *string   `json:"product_features,omitempty"`
	VideoSetting      *string   `json:"video_setting,omitempty"`
	ImagePrompt       *string   `json:"image_prompt,omitempty"`
	VideoPrompt       *string   `json:"video_prompt,omitempty"`
	GenerateImage     *bool     `json:"generate_image,omitempty"`
	GenerateVideo     *bool     `json:"generate_video,omitempty"`
}

// GenerateMediaRequest scopes a (re)generation; an empty media type means all.
type GenerateMediaRequest struct {
	MediaType enums.MediaType `json:"media_type,omitempty"`
}

// ApproveMediaRequest carries the reviewer's chosen images.
type ApproveMediaRequest struct {
	SelectedImageIndices []int `json:"selected_image_indices,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID        uint       `json:"id"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UploadResult struct {
	URLs  []string `json:"urls"`
	Count int      `json:"count"`
}
