package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/brandinbox/internal/listings"
	"github.com/angelmondragon/brandinbox/internal/webhooks"
	pkgAuth "github.com/angelmondragon/brandinbox/pkg/auth"
	"github.com/angelmondragon/brandinbox/pkg/config"
	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

type fakeListings struct {
	listings.Service

	mu          sync.Mutex
	createCalls int
	lastUserID  uint
	lastStatus  *enums.ListingStatus
	lastMedia   enums.MediaType
	mediaResult listings.MediaResult
}

func (f *fakeListings) Create(_ context.Context, userID uint, in types.ListingCreate) (*types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastUserID = userID
	return &types.Listing{ID: "lst-1", UserID: userID, Title: in.Title, Status: enums.ListingStatusDraft}, nil
}

func (f *fakeListings) List(_ context.Context, userID uint, status *enums.ListingStatus) ([]types.Listing, error) {
	f.lastUserID = userID
	f.lastStatus = status
	return nil, nil
}

func (f *fakeListings) GenerateMedia(_ context.Context, userID uint, id string, mediaType enums.MediaType) (*types.Listing, error) {
	f.lastMedia = mediaType
	return &types.Listing{ID: id, UserID: userID, Status: enums.ListingStatusGeneratingMedia}, nil
}

func (f *fakeListings) CompleteMedia(_ context.Context, result listings.MediaResult) (*listings.Completion, error) {
	f.mediaResult = result
	return &listings.Completion{ListingID: result.ListingID, Status: enums.ListingStatusMediaReady}, nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) IncrWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func (m *memoryStore) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	return tokenID == "revoked", nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "router-test-secret", Issuer: "bnb-api", ExpirationMinutes: 60}
	cfg.Webhook.Secret = "hook-secret"
	return cfg
}

func newTestRouter(t *testing.T, svc *fakeListings, store Store) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	hooks, err := webhooks.NewService(svc, logger.Nop())
	require.NoError(t, err)
	return NewRouter(Params{
		Config:   cfg,
		Logger:   logger.Nop(),
		Store:    store,
		Listings: svc,
		Webhooks: hooks,
	}), cfg
}

func bearer(t *testing.T, cfg *config.Config, userID uint, jti string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, Email: "seller@example.com", JTI: jti})
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorBody {
	t.Helper()
	var body types.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRootAndLiveness(t *testing.T) {
	router, _ := newTestRouter(t, &fakeListings{}, nil)

	rec := do(t, router, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"BnB API","version":"1.0.0","status":"running"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get("X-BnB-Env"))

	rec = do(t, router, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListingsRequireBearerToken(t *testing.T) {
	router, cfg := newTestRouter(t, &fakeListings{}, &memoryStore{})

	rec := do(t, router, http.MethodGet, "/listings", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Not authenticated", decodeError(t, rec).Detail)

	rec = do(t, router, http.MethodGet, "/listings", "", map[string]string{"Authorization": "Bearer garbage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Could not validate credentials", decodeError(t, rec).Detail)

	rec = do(t, router, http.MethodGet, "/listings", "", map[string]string{"Authorization": bearer(t, cfg, 3, "revoked")})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateListingScopesToCaller(t *testing.T) {
	svc := &fakeListings{}
	router, cfg := newTestRouter(t, svc, nil)

	rec := do(t, router, http.MethodPost, "/listings", `{"title":"Lamp","description":"Brass"}`,
		map[string]string{"Authorization": bearer(t, cfg, 42, "jti-a")})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, uint(42), svc.lastUserID)

	var listing types.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Equal(t, enums.ListingStatusDraft, listing.Status)
}

func TestCreateListingReplaysIdempotentRequest(t *testing.T) {
	svc := &fakeListings{}
	router, cfg := newTestRouter(t, svc, &memoryStore{})
	headers := map[string]string{
		"Authorization":   bearer(t, cfg, 42, "jti-b"),
		"Idempotency-Key": "create-1",
	}

	first := do(t, router, http.MethodPost, "/listings", `{"title":"Lamp"}`, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	second := do(t, router, http.MethodPost, "/listings", `{"title":"Lamp"}`, headers)
	require.Equal(t, http.StatusCreated, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, svc.createCalls)

	reused := do(t, router, http.MethodPost, "/listings", `{"title":"Chair"}`, headers)
	require.Equal(t, http.StatusConflict, reused.Code)
	require.Equal(t, "IDEMPOTENCY_KEY_REUSED", decodeError(t, reused).Code)
}

func TestListListingsStatusFilter(t *testing.T) {
	svc := &fakeListings{}
	router, cfg := newTestRouter(t, svc, nil)
	auth := map[string]string{"Authorization": bearer(t, cfg, 5, "jti-c")}

	rec := do(t, router, http.MethodGet, "/listings?status=media_ready", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
	require.NotNil(t, svc.lastStatus)
	require.Equal(t, enums.ListingStatusMediaReady, *svc.lastStatus)

	rec = do(t, router, http.MethodGet, "/listings?status=sold", "", auth)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateMediaBodyIsOptional(t *testing.T) {
	svc := &fakeListings{}
	router, cfg := newTestRouter(t, svc, nil)
	auth := map[string]string{"Authorization": bearer(t, cfg, 5, "jti-d")}

	rec := do(t, router, http.MethodPost, "/listings/lst-9/generate-media", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, enums.MediaTypeAll, svc.lastMedia)

	rec = do(t, router, http.MethodPost, "/listings/lst-9/generate-media", `{"media_type":"video"}`, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, enums.MediaTypeVideo, svc.lastMedia)

	rec = do(t, router, http.MethodPost, "/listings/lst-9/generate-media", `{"media_type":"hologram"}`, auth)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "media_type must be one of all, images, video", decodeError(t, rec).Detail)
}

func TestUpdateRejectsStatusField(t *testing.T) {
	router, cfg := newTestRouter(t, &fakeListings{}, nil)

	rec := do(t, router, http.MethodPatch, "/listings/lst-1", `{"status":"published"}`,
		map[string]string{"Authorization": bearer(t, cfg, 5, "jti-e")})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaCompleteWebhookRequiresSecret(t *testing.T) {
	svc := &fakeListings{}
	router, _ := newTestRouter(t, svc, nil)
	payload := `{"listing_id":"lst-3","status":"success","assets":{"image_urls":["https://cdn/a.png"]}}`

	rec := do(t, router, http.MethodPost, "/webhooks/media-complete", payload, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/webhooks/media-complete", payload, map[string]string{"X-Webhook-Secret": "hook-secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.mediaResult.Success)
	require.Equal(t, []string{"https://cdn/a.png"}, svc.mediaResult.ImageURLs)

	var ack webhooks.Ack
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	require.Equal(t, "media_ready", ack.ListingStatus)
}
