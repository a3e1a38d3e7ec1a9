// Package ebay publishes approved listings straight to the Sell Inventory API.
package ebay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/brandinbox/pkg/config"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	apiScope     = "https://api.ebay.com/oauth/api_scope"
	tokenPath    = "/identity/v1/oauth2/token"
	inventoryAPI = "/sell/inventory/v1"

	maxTitleLength = 80
	maxImages      = 12

	errorBodyReadLimit int64 = 4096
)

var errCredentialsRequired = errors.New("ebay client id and secret are required")

// conditionEnums maps listing condition ids to Inventory API condition values.
var conditionEnums = map[string]string{
	"1000":  "NEW",
	"1500":  "NEW_OTHER",
	"1750":  "NEW_WITH_DEFECTS",
	"2000":  "CERTIFIED_REFURBISHED",
	"2500":  "EXCELLENT_REFURBISHED",
	"3000":  "VERY_GOOD_REFURBISHED",
	"4000":  "GOOD_REFURBISHED",
	"5000":  "SELLER_REFURBISHED",
	"6000":  "USED_EXCELLENT",
	"7000":  "USED_VERY_GOOD",
	"8000":  "USED_GOOD",
	"9000":  "USED_ACCEPTABLE",
	"10000": "FOR_PARTS_OR_NOT_WORKING",
}

// Client talks to the Sell Inventory API using an application token.
type Client struct {
	cfg        config.EbayConfig
	apiBase    string
	itemBase   string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the client (token and inventory calls) at another host.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithHTTPClient sets the transport used for token and API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// NewClient builds a client-credentials eBay client. Tokens are cached and
// refreshed by the oauth2 token source.
func NewClient(cfg config.EbayConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	o := options{
		baseURL:    cfg.APIBaseURL(),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     o.baseURL + tokenPath,
		Scopes:       []string{apiScope},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, o.httpClient)
	httpClient := creds.Client(tokenCtx)
	httpClient.Timeout = timeout

	return &Client{
		cfg:        cfg,
		apiBase:    o.baseURL + inventoryAPI,
		itemBase:   cfg.ItemBaseURL(),
		httpClient: httpClient,
		now:        time.Now,
	}, nil
}

// Item is a listing ready to be pushed to the marketplace.
type Item struct {
	ListingID   string
	Title       string
	Description string
	CategoryID  string
	ConditionID string
	Price       decimal.Decimal
	Quantity    int
	ImageURLs   []string
}

// Result identifies the live marketplace listing.
type Result struct {
	SKU       string
	OfferID   string
	ListingID string
	URL       string
}

// PublishItem runs inventory item, offer and publish in sequence.
func (c *Client) PublishItem(ctx context.Context, item Item) (*Result, error) {
	sku := c.skuFor(item.ListingID)

	if err := c.createInventoryItem(ctx, sku, item); err != nil {
		return nil, fmt.Errorf("create inventory item: %w", err)
	}
	offerID, err := c.createOffer(ctx, sku, item)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	listingID, err := c.publishOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("publish offer: %w", err)
	}

	return &Result{
		SKU:       sku,
		OfferID:   offerID,
		ListingID: listingID,
		URL:       c.itemBase + listingID,
	}, nil
}

func (c *Client) skuFor(listingID string) string {
	sku := "SKU-" + c.now().UTC().Format("20060102150405")
	if listingID == "" {
		return sku
	}
	suffix := strings.ReplaceAll(listingID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return sku + "-" + strings.ToUpper(suffix)
}

type inventoryItem struct {
	Availability struct {
		ShipToLocationAvailability struct {
			Quantity int `json:"quantity"`
		} `json:"shipToLocationAvailability"`
	} `json:"availability"`
	Condition string         `json:"condition"`
	Product   productDetails `json:"product"`
}

type productDetails struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Aspects     map[string][]string `json:"aspects"`
	ImageURLs   []string            `json:"imageUrls"`
}

func (c *Client) createInventoryItem(ctx context.Context, sku string, item Item) error {
	var body inventoryItem
	body.Availability.ShipToLocationAvailability.Quantity = max(item.Quantity, 1)
	body.Condition = conditionEnum(item.ConditionID)
	body.Product = productDetails{
		Title:       truncateTitle(item.Title),
		Description: item.Description,
		Aspects:     map[string][]string{},
		ImageURLs:   limitImages(item.ImageURLs),
	}

	path := "/inventory_item/" + url.PathEscape(sku)
	return c.do(ctx, http.MethodPut, path, body, nil)
}

type offerRequest struct {
	SKU                 string          `json:"sku"`
	MarketplaceID       string          `json:"marketplaceId"`
	Format              string          `json:"format"`
	AvailableQuantity   int             `json:"availableQuantity"`
	CategoryID          string          `json:"categoryId"`
	ListingDescription  string          `json:"listingDescription"`
	ListingPolicies     listingPolicies `json:"listingPolicies"`
	PricingSummary      pricingSummary  `json:"pricingSummary"`
	MerchantLocationKey string          `json:"merchantLocationKey,omitempty"`
}

type listingPolicies struct {
	FulfillmentPolicyID string `json:"fulfillmentPolicyId,omitempty"`
	PaymentPolicyID     string `json:"paymentPolicyId,omitempty"`
	ReturnPolicyID      string `json:"returnPolicyId,omitempty"`
}

type pricingSummary struct {
	Price amount `json:"price"`
}

type amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

func (c *Client) createOffer(ctx context.Context, sku string, item Item) (string, error) {
	body := offerRequest{
		SKU:                sku,
		MarketplaceID:      valueOr(c.cfg.MarketplaceID, "EBAY_US"),
		Format:             "FIXED_PRICE",
		AvailableQuantity:  max(item.Quantity, 1),
		CategoryID:         item.CategoryID,
		ListingDescription: item.Description,
		ListingPolicies: listingPolicies{
			FulfillmentPolicyID: c.cfg.FulfillmentPolicyID,
			PaymentPolicyID:     c.cfg.PaymentPolicyID,
			ReturnPolicyID:      c.cfg.ReturnPolicyID,
		},
		PricingSummary: pricingSummary{Price: amount{
			Currency: valueOr(c.cfg.Currency, "USD"),
			Value:    item.Price.StringFixed(2),
		}},
		MerchantLocationKey: c.cfg.MerchantLocationKey,
	}

	var resp struct {
		OfferID string `json:"offerId"`
	}
	if err := c.do(ctx, http.MethodPost, "/offer", body, &resp); err != nil {
		return "", err
	}
	if resp.OfferID == "" {
		return "", errors.New("response did not include an offer id")
	}
	return resp.OfferID, nil
}

func (c *Client) publishOffer(ctx context.Context, offerID string) (string, error) {
	var resp struct {
		ListingID string `json:"listingId"`
	}
	path := "/offer/" + url.PathEscape(offerID) + "/publish"
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.ListingID == "" {
		return "", errors.New("response did not include a listing id")
	}
	return resp.ListingID, nil
}

// apiError is the Inventory API error envelope.
type apiError struct {
	Errors []struct {
		ErrorID     int    `json:"errorId"`
		Message     string `json:"message"`
		LongMessage string `json:"longMessage"`
	} `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Language", "en-US")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		var parsed apiError
		if json.Unmarshal(raw, &parsed) == nil && len(parsed.Errors) > 0 {
			return fmt.Errorf("ebay returned status %d: %s", resp.StatusCode, parsed.Errors[0].Message)
		}
		return fmt.Errorf("ebay returned status %d", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func conditionEnum(conditionID string) string {
	if value, ok := conditionEnums[conditionID]; ok {
		return value
	}
	return "NEW"
}

func truncateTitle(title string) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxTitleLength])
}

func limitImages(urls []string) []string {
	if len(urls) > maxImages {
		urls = urls[:maxImages]
	}
	out := make([]string, len(urls))
	copy(out, urls)
	return out
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
