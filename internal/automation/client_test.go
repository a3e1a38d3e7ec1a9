package automation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/brandinbox/internal/listings"
	"github.com/angelmondragon/brandinbox/pkg/config"
	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/shopspring/decimal"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"message":"Workflow was started"}`)),
		Header:     http.Header{},
	}
}

func testConfig() config.N8NConfig {
	return config.N8NConfig{
		MediaWebhookURL: "http://n8n.test/webhook/media",
		EbayWebhookURL:  "http://n8n.test/webhook/ebay",
	}
}

func TestTriggerMediaGenerationPayload(t *testing.T) {
	var captured map[string]any
	var capturedURL string
	var deadlineSet bool

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		_, deadlineSet = req.Context().Deadline()
		if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(), nil
	})

	client := NewClient(testConfig(), "https://api.example.com/", WithHTTPClient(&http.Client{Transport: rt}))
	err := client.TriggerMediaGeneration(context.Background(), listings.MediaJob{
		ListingID:       "listing-1",
		ProductName:     "Test Mug",
		ProductPhotoURL: "https://cdn.example.com/mug.png",
		TargetAudience:  "General audience",
		ProductFeatures: "A sturdy ceramic mug",
		VideoSetting:    "Casual indoor setting",
		MediaType:       enums.MediaTypeImages,
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	if capturedURL != "http://n8n.test/webhook/media" {
		t.Fatalf("unexpected url %q", capturedURL)
	}
	if !deadlineSet {
		t.Fatal("expected the trigger to carry a deadline")
	}
	want := map[string]string{
		"listing_id":       "listing-1",
		"Product":          "Test Mug",
		"Product Photo":    "https://cdn.example.com/mug.png",
		"ICP":              "General audience",
		"Product Features": "A sturdy ceramic mug",
		"Video Setting":    "Casual indoor setting",
		"media_type":       "images",
		"callback_url":     "https://api.example.com/webhooks/media-complete",
	}
	for key, value := range want {
		if captured[key] != value {
			t.Fatalf("payload[%q] = %v, want %q", key, captured[key], value)
		}
	}
}

func TestTriggerPublishPayload(t *testing.T) {
	var captured map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(), nil
	})

	client := NewClient(testConfig(), "https://api.example.com", WithHTTPClient(&http.Client{Transport: rt}))
	err := client.TriggerPublish(context.Background(), listings.PublishJob{
		ListingID:   "listing-1",
		Title:       "Test Mug",
		Description: "A sturdy ceramic mug",
		CategoryID:  "default",
		ConditionID: "1000",
		Price:       decimal.RequireFromString("9.99"),
		Quantity:    3,
		ImageURLs:   []string{"https://cdn.example.com/1.png"},
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	if captured["price"] != 9.99 {
		t.Fatalf("unexpected price %v", captured["price"])
	}
	if captured["quantity"] != float64(3) {
		t.Fatalf("unexpected quantity %v", captured["quantity"])
	}
	if captured["callback_url"] != "https://api.example.com/webhooks/ebay-complete" {
		t.Fatalf("unexpected callback %v", captured["callback_url"])
	}
	if token, ok := captured["ebay_token"]; !ok || token != nil {
		t.Fatalf("expected explicit null ebay_token, got %v (present=%v)", token, ok)
	}
	images, ok := captured["image_urls"].([]any)
	if !ok || len(images) != 1 {
		t.Fatalf("unexpected image urls %v", captured["image_urls"])
	}
}

func TestTriggerSurfacesNon2xx(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("workflow crashed")),
			Header:     http.Header{},
		}, nil
	})

	client := NewClient(testConfig(), "https://api.example.com", WithHTTPClient(&http.Client{Transport: rt}))
	err := client.TriggerMediaGeneration(context.Background(), listings.MediaJob{ListingID: "listing-1"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "workflow crashed") {
		t.Fatalf("unexpected error %q", err.Error())
	}
}

func TestTriggerForwardsRequestID(t *testing.T) {
	var headers []string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		headers = append(headers, req.Header.Get("X-Request-Id"))
		return okResponse(), nil
	})
	client := NewClient(testConfig(), "https://api.example.com", WithHTTPClient(&http.Client{Transport: rt}))

	ctx := logger.ContextWithRequestID(context.Background(), "req-77")
	if err := client.TriggerMediaGeneration(ctx, listings.MediaJob{ListingID: "listing-1"}); err != nil {
		t.Fatalf("trigger media: %v", err)
	}
	if err := client.TriggerPublish(context.Background(), listings.PublishJob{ListingID: "listing-1"}); err != nil {
		t.Fatalf("trigger publish: %v", err)
	}
	if headers[0] != "req-77" || headers[1] != "" {
		t.Fatalf("unexpected forwarded ids %q", headers)
	}
}

func TestTriggerRequiresWebhookURL(t *testing.T) {
	client := NewClient(config.N8NConfig{}, "https://api.example.com")
	if err := client.TriggerMediaGeneration(context.Background(), listings.MediaJob{}); err == nil {
		t.Fatal("expected missing media webhook to fail")
	}
	if err := client.TriggerPublish(context.Background(), listings.PublishJob{}); err == nil {
		t.Fatal("expected missing ebay webhook to fail")
	}
}

func TestNewClientDefaultsTimeouts(t *testing.T) {
	client := NewClient(config.N8NConfig{}, "")
	if client.mediaTimeout != 60*time.Second || client.ebayTimeout != 30*time.Second {
		t.Fatalf("unexpected timeouts %v/%v", client.mediaTimeout, client.ebayTimeout)
	}
}
