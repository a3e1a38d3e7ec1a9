package webhooks

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// MediaCompletePayload is posted by the media generation workflow.
type MediaCompletePayload struct {
	ListingID    string        `json:"listing_id"`
	Status       string        `json:"status"`
	Product      *string       `json:"product,omitempty"`
	Model        *string       `json:"model,omitempty"`
	Assets       *MediaAssets  `json:"assets,omitempty"`
	Prompts      *MediaPrompts `json:"prompts,omitempty"`
	ErrorMessage *string       `json:"error_message,omitempty"`
}

type MediaAssets struct {
	ImageURL  *string  `json:"image_url,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`
	VideoURL  *string  `json:"video_url,omitempty"`
}

type MediaPrompts struct {
	ImagePrompt *string `json:"image_prompt,omitempty"`
	VideoPrompt *string `json:"video_prompt,omitempty"`
}

// Success reports whether the workflow finished without error.
func (p MediaCompletePayload) Success() bool {
	return strings.EqualFold(strings.TrimSpace(p.Status), "success")
}

// ImageURLs merges the single image_url with image_urls, keeping order and
// dropping blanks and duplicates.
func (p MediaCompletePayload) ImageURLs() []string {
	out := []string{}
	if p.Assets == nil {
		return out
	}
	seen := map[string]struct{}{}
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	if p.Assets.ImageURL != nil {
		add(*p.Assets.ImageURL)
	}
	for _, u := range p.Assets.ImageURLs {
		add(u)
	}
	return out
}

// VideoURL returns the generated video, if any.
func (p MediaCompletePayload) VideoURL() *string {
	if p.Assets == nil || p.Assets.VideoURL == nil || strings.TrimSpace(*p.Assets.VideoURL) == "" {
		return nil
	}
	return p.Assets.VideoURL
}

// EbayCompletePayload is posted by the eBay publishing workflow.
type EbayCompletePayload struct {
	ListingID    string          `json:"listing_id"`
	EbayItemID   *string         `json:"ebay_item_id,omitempty"`
	EbayURL      *string         `json:"ebay_url,omitempty"`
	Success      *bool           `json:"success,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	Fees         json.RawMessage `json:"fees,omitempty"`
}

// Succeeded defaults to true when the workflow omits the flag.
func (p EbayCompletePayload) Succeeded() bool {
	return p.Success == nil || *p.Success
}

// ParseFees accepts a bare number or an object carrying total, amount or
// value (number, numeric string or a nested {value}). Anything else is null.
func ParseFees(raw json.RawMessage) decimal.NullDecimal {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.NullDecimal{}
	}
	if d, ok := decimalFrom(trimmed); ok {
		return decimal.NewNullDecimal(d)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return decimal.NullDecimal{}
	}
	for _, key := range []string{"total", "amount", "value"} {
		field, ok := obj[key]
		if !ok {
			continue
		}
		if d, ok := decimalFrom(field); ok {
			return decimal.NewNullDecimal(d)
		}
		var nested map[string]json.RawMessage
		if json.Unmarshal(field, &nested) == nil {
			if d, ok := decimalFrom(nested["value"]); ok {
				return decimal.NewNullDecimal(d)
			}
		}
	}
	return decimal.NullDecimal{}
}

func decimalFrom(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 {
		return decimal.Decimal{}, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}
