// Package automation triggers the n8n workflows that generate media and
// publish listings. Results come back through the webhook callbacks.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/brandinbox/internal/listings"
	"github.com/angelmondragon/brandinbox/pkg/config"
	"github.com/angelmondragon/brandinbox/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"

	MediaCallbackPath = "/webhooks/media-complete"
	EbayCallbackPath  = "/webhooks/ebay-complete"

	defaultMediaTimeout         = 60 * time.Second
	defaultEbayTimeout          = 30 * time.Second
	responseBodyReadLimit int64 = 1024
)

var (
	errMediaWebhookMissing = errors.New("media generation webhook is not configured")
	errEbayWebhookMissing  = errors.New("eBay publishing webhook is not configured")
)

// Client posts jobs to the automation webhooks.
type Client struct {
	httpClient   *http.Client
	mediaURL     string
	ebayURL      string
	backendURL   string
	mediaTimeout time.Duration
	ebayTimeout  time.Duration
	logg         *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for trigger diagnostics.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// NewClient builds the automation client. Missing webhook URLs are allowed at
// construction and reported when a trigger is attempted.
func NewClient(cfg config.N8NConfig, backendURL string, opts ...Option) *Client {
	client := &Client{
		httpClient:   &http.Client{},
		mediaURL:     strings.TrimSpace(cfg.MediaWebhookURL),
		ebayURL:      strings.TrimSpace(cfg.EbayWebhookURL),
		backendURL:   strings.TrimRight(strings.TrimSpace(backendURL), "/"),
		mediaTimeout: cfg.MediaTimeout,
		ebayTimeout:  cfg.EbayTimeout,
		logg:         logger.Nop(),
	}
	if client.mediaTimeout <= 0 {
		client.mediaTimeout = defaultMediaTimeout
	}
	if client.ebayTimeout <= 0 {
		client.ebayTimeout = defaultEbayTimeout
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// MediaPayload is the body the media generation workflow expects.
type MediaPayload struct {
	ListingID       string `json:"listing_id"`
	Product         string `json:"Product"`
	ProductPhoto    string `json:"Product Photo"`
	ICP             string `json:"ICP"`
	ProductFeatures string `json:"Product Features"`
	VideoSetting    string `json:"Video Setting"`
	MediaType       string `json:"media_type"`
	CallbackURL     string `json:"callback_url"`
}

// PublishPayload is the body the eBay publishing workflow expects.
type PublishPayload struct {
	ListingID   string   `json:"listing_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CategoryID  string   `json:"category_id"`
	ConditionID string   `json:"condition_id"`
	Price       float64  `json:"price"`
	Quantity    int      `json:"quantity"`
	ImageURLs   []string `json:"image_urls"`
	EbayToken   *string  `json:"ebay_token"`
	CallbackURL string   `json:"callback_url"`
}

// TriggerMediaGeneration starts the media workflow for a listing.
func (c *Client) TriggerMediaGeneration(ctx context.Context, job listings.MediaJob) error {
	if c.mediaURL == "" {
		return errMediaWebhookMissing
	}
	payload := MediaPayload{
		ListingID:       job.ListingID,
		Product:         job.ProductName,
		ProductPhoto:    job.ProductPhotoURL,
		ICP:             job.TargetAudience,
		ProductFeatures: job.ProductFeatures,
		VideoSetting:    job.VideoSetting,
		MediaType:       job.MediaType.String(),
		CallbackURL:     c.backendURL + MediaCallbackPath,
	}
	return c.post(ctx, c.mediaURL, c.mediaTimeout, job.ListingID, payload)
}

// TriggerPublish starts the eBay publishing workflow for a listing.
func (c *Client) TriggerPublish(ctx context.Context, job listings.PublishJob) error {
	if c.ebayURL == "" {
		return errEbayWebhookMissing
	}
	images := job.ImageURLs
	if images == nil {
		images = []string{}
	}
	payload := PublishPayload{
		ListingID:   job.ListingID,
		Title:       job.Title,
		Description: job.Description,
		CategoryID:  job.CategoryID,
		ConditionID: job.ConditionID,
		Price:       job.Price.InexactFloat64(),
		Quantity:    job.Quantity,
		ImageURLs:   images,
		EbayToken:   job.EbayToken,
		CallbackURL: c.backendURL + EbayCallbackPath,
	}
	return c.post(ctx, c.ebayURL, c.ebayTimeout, job.ListingID, payload)
}

func (c *Client) post(ctx context.Context, url string, timeout time.Duration, listingID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID := logger.RequestID(ctx); requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"listing_id":  listingID,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		c.logg.Warn(logCtx, "automation.trigger_rejected")
		if trimmed := strings.TrimSpace(string(msg)); trimmed != "" {
			return fmt.Errorf("automation webhook returned status %d: %s", resp.StatusCode, trimmed)
		}
		return fmt.Errorf("automation webhook returned status %d", resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyReadLimit))
	c.logg.Debug(logCtx, "automation.trigger_accepted")
	return nil
}
