// Package forms holds the client-side form rules. Every validator returns the
// first failing rule only.
package forms

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/brandinbox/pkg/types"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

// ValidationError blocks submission; no request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ListingInput mirrors the editor fields as the user typed them.
type ListingInput struct {
	Title           string
	Description     string
	CategoryID      string
	ConditionID     string
	Price           string
	Quantity        string
	ProductPhotoURL string
	UploadedImages  []string
	ModelAvatarURL  string
	TargetAudience  string
	ProductFeatures string
	VideoSetting    string
	ImagePrompt     string
	VideoPrompt     string
	GenerateImage   bool
	GenerateVideo   bool
}

// ValidateListing applies the create/edit rules in order.
func ValidateListing(in ListingInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "Title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("description", "Description is required")
	}
	category := strings.TrimSpace(in.CategoryID)
	if category == "" {
		return invalid("category_id", "Category is required")
	}
	if _, ok := CategoryLabel(category); !ok {
		return invalid("category_id", "Please select a valid category")
	}
	if _, ok := parsePrice(in.Price); !ok {
		return invalid("price", "Price must be greater than 0")
	}
	if _, ok := parseQuantity(in.Quantity); !ok {
		return invalid("quantity", "Quantity must be greater than 0")
	}
	condition := strings.TrimSpace(in.ConditionID)
	if condition == "" {
		return invalid("condition_id", "Condition is required")
	}
	if _, ok := ConditionLabel(condition); !ok {
		return invalid("condition_id", "Please select a valid condition")
	}
	if in.GenerateImage {
		if strings.TrimSpace(in.ProductPhotoURL) == "" {
			return invalid("product_photo_url", "Product photo is required for image generation")
		}
		if strings.TrimSpace(in.ImagePrompt) == "" {
			return invalid("image_prompt", "Image prompt is required when image generation is enabled")
		}
	}
	if in.GenerateVideo && strings.TrimSpace(in.VideoSetting) == "" {
		return invalid("video_setting", "Video setting is required when video generation is enabled")
	}
	return nil
}

func parsePrice(raw string) (decimal.Decimal, bool) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

func parseQuantity(raw string) (int, bool) {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty <= 0 {
		return 0, false
	}
	return qty, true
}

// ToCreate validates the input and converts it into a create request.
func ToCreate(in ListingInput) (types.ListingCreate, error) {
	if err := ValidateListing(in); err != nil {
		return types.ListingCreate{}, err
	}
	price, _ := parsePrice(in.Price)
	qty, _ := parseQuantity(in.Quantity)
	return types.ListingCreate{
		Title:             strings.TrimSpace(in.Title),
		Description:       strings.TrimSpace(in.Description),
		CategoryID:        optional(in.CategoryID),
		ConditionID:       optional(in.ConditionID),
		Price:             price.InexactFloat64(),
		Quantity:          qty,
		ProductPhotoURL:   optional(in.ProductPhotoURL),
		UploadedImageURLs: in.UploadedImages,
		ModelAvatarURL:    optional(in.ModelAvatarURL),
		TargetAudience:    optional(in.TargetAudience),
		ProductFeatures:   optional(in.ProductFeatures),
		VideoSetting:      optional(in.VideoSetting),
		ImagePrompt:       optional(in.ImagePrompt),
		VideoPrompt:       optional(in.VideoPrompt),
		GenerateImage:     in.GenerateImage,
		GenerateVideo:     in.GenerateVideo,
	}, nil
}

// ToUpdate validates the input and converts it into a full-field update.
func ToUpdate(in ListingInput) (types.ListingUpdate, error) {
	create, err := ToCreate(in)
	if err != nil {
		return types.ListingUpdate{}, err
	}
	update := types.ListingUpdate{
		Title:           &create.Title,
		Description:     &create.Description,
		CategoryID:      create.CategoryID,
		ConditionID:     create.ConditionID,
		Price:           &create.Price,
		Quantity:        &create.Quantity,
		ProductPhotoURL: create.ProductPhotoURL,
		ModelAvatarURL:  create.ModelAvatarURL,
		TargetAudience:  create.TargetAudience,
		ProductFeatures: create.ProductFeatures,
		VideoSetting:    create.VideoSetting,
		ImagePrompt:     create.ImagePrompt,
		VideoPrompt:     create.VideoPrompt,
		GenerateImage:   &create.GenerateImage,
		GenerateVideo:   &create.GenerateVideo,
	}
	if in.UploadedImages != nil {
		update.UploadedImageURLs = &create.UploadedImageURLs
	}
	return update, nil
}

// FromListing pre-fills the editor from a stored listing.
func FromListing(l *types.Listing) ListingInput {
	if l == nil {
		return ListingInput{}
	}
	return ListingInput{
		Title:           l.Title,
		Description:     l.Description,
		CategoryID:      deref(l.CategoryID),
		ConditionID:     deref(l.ConditionID),
		Price:           decimal.NewFromFloat(l.Price).StringFixed(2),
		Quantity:        strconv.Itoa(l.Quantity),
		ProductPhotoURL: deref(l.ProductPhotoURL),
		UploadedImages:  l.UploadedImageURLs,
		ModelAvatarURL:  deref(l.ModelAvatarURL),
		TargetAudience:  deref(l.TargetAudience),
		ProductFeatures: deref(l.ProductFeatures),
		VideoSetting:    deref(l.VideoSetting),
		ImagePrompt:     deref(l.ImagePrompt),
		VideoPrompt:     deref(l.VideoPrompt),
		GenerateImage:   l.GenerateImage,
		GenerateVideo:   l.GenerateVideo,
	}
}

// ValidateRegistration checks the sign-up form.
func ValidateRegistration(email, password, confirm string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return invalid("password", "Password is required")
	}
	if len(password) < minPasswordLength {
		return invalid("password", "Password must be at least 8 characters long")
	}
	if password != confirm {
		return invalid("confirm_password", "Passwords do not match")
	}
	return nil
}

// ValidateLogin checks the sign-in form.
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email", "Email is required")
	}
	if password == "" {
		return invalid("password", "Password is required")
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email", "Email is required")
	}
	if !emailPattern.MatchString(email) {
		return invalid("email", "Please enter a valid email address")
	}
	return nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
