// Package client is the typed SDK for the BnB HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/env"
	"github.com/angelmondragon/brandinbox/pkg/forms"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

const (
	EnvAPIURL            = "BNB_API_URL"
	DefaultBaseURL       = "http://localhost:8000"
	HeaderIdempotencyKey = "Idempotency-Key"

	defaultTimeout       = 30 * time.Second
	errorBodyLimit int64 = 64 << 10
)

// ErrNotAuthenticated is returned before any request is sent when a protected
// call is made without a token.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string { return e.Message }

// IsUnauthorized reports whether err is a 401 or a missing session.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Client calls the API on behalf of a Session.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	session        *Session
	onUnauthorized func()
	logg           *logger.Logger
	newKey         func() string
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(base), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithOnUnauthorized registers the callback run after a 401 clears the session.
func WithOnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// WithIdempotencyKeys makes create and workflow actions send an
// Idempotency-Key. Each call gets a fresh key from newKey (a UUID when nil)
// unless its context carries one from ContextWithIdempotencyKey.
func WithIdempotencyKeys(newKey func() string) Option {
	return func(c *Client) {
		if newKey == nil {
			newKey = uuid.NewString
		}
		c.newKey = newKey
	}
}

type idempotencyKeyCtx struct{}

// ContextWithIdempotencyKey pins the key for actions issued with ctx, so a
// retry of the same action is replayed by the server instead of run twice.
func ContextWithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

func (c *Client) idempotencyKey(ctx context.Context) string {
	if key, ok := ctx.Value(idempotencyKeyCtx{}).(string); ok && key != "" {
		return key
	}
	if c.newKey == nil {
		return ""
	}
	return c.newKey()
}

// BaseURLFromEnv returns BNB_API_URL or the local default.
func BaseURLFromEnv() string {
	return env.Get(EnvAPIURL, DefaultBaseURL)
}

func New(session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(BaseURLFromEnv(), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    session,
		logg:       logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.session == nil {
		c.session, _ = NewSession(nil)
	}
	return c
}

func (c *Client) Session() *Session { return c.session }

func (c *Client) IsAuthenticated() bool { return c.session.IsAuthenticated() }

// Register creates the account and signs in with the same credentials.
func (c *Client) Register(ctx context.Context, creds types.Credentials) (*types.User, error) {
	var user types.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", false, creds, &user); err != nil {
		return nil, err
	}
	if _, err := c.Login(ctx, creds); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login stores the issued token in the session.
func (c *Client) Login(ctx context.Context, creds types.Credentials) (*types.Token, error) {
	var token types.Token
	if err := c.do(ctx, http.MethodPost, "/auth/login", false, creds, &token); err != nil {
		return nil, err
	}
	if err := c.session.SetToken(token.AccessToken); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &token, nil
}

// Logout revokes the token server-side when possible and always clears the session.
func (c *Client) Logout(ctx context.Context) error {
	var remote error
	if c.session.IsAuthenticated() {
		remote = c.do(ctx, http.MethodPost, "/auth/logout", true, nil, nil)
		if IsUnauthorized(remote) {
			remote = nil
		}
	}
	return multierr.Append(remote, c.session.Clear())
}

func (c *Client) Me(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", true, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListListings returns the caller's listings, newest first. A nil status lists all.
func (c *Client) ListListings(ctx context.Context, status *enums.ListingStatus) ([]types.Listing, error) {
	path := "/listings"
	if status != nil {
		path += "?" + url.Values{"status": {status.String()}}.Encode()
	}
	var out []types.Listing
	if err := c.do(ctx, http.MethodGet, path, true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetListing(ctx context.Context, id string) (*types.Listing, error) {
	return c.listing(ctx, http.MethodGet, listingPath(id, ""), nil)
}

func (c *Client) CreateListing(ctx context.Context, in types.ListingCreate) (*types.Listing, error) {
	return c.action(ctx, "/listings", in)
}

func (c *Client) UpdateListing(ctx context.Context, id string, in types.ListingUpdate) (*types.Listing, error) {
	return c.listing(ctx, http.MethodPatch, listingPath(id, ""), in)
}

func (c *Client) DeleteListing(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, listingPath(id, ""), true, nil, nil)
}

// GenerateMedia starts generation; MediaTypeAll sends no body.
func (c *Client) GenerateMedia(ctx context.Context, id string, mediaType enums.MediaType) (*types.Listing, error) {
	var body any
	if mediaType != "" && mediaType != enums.MediaTypeAll {
		body = types.GenerateMediaRequest{MediaType: mediaType}
	}
	return c.action(ctx, listingPath(id, "generate-media"), body)
}

// ApproveMedia approves the selected image indices; nil approves every image.
func (c *Client) ApproveMedia(ctx context.Context, id string, selected []int) (*types.Listing, error) {
	var body any
	if len(selected) > 0 {
		body = types.ApproveMediaRequest{SelectedImageIndices: selected}
	}
	return c.action(ctx, listingPath(id, "approve-media"), body)
}

func (c *Client) Publish(ctx context.Context, id string) (*types.Listing, error) {
	return c.action(ctx, listingPath(id, "publish"), nil)
}

// UploadImages sends a staged batch as multipart "files".
func (c *Client) UploadImages(ctx context.Context, files []forms.StagedFile) (*types.UploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		h.Set("Content-Type", f.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload/images", true, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	var out types.UploadResult
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func listingPath(id, action string) string {
	path := "/listings/" + url.PathEscape(id)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) listing(ctx context.Context, method, path string, body any) (*types.Listing, error) {
	var out types.Listing
	if err := c.do(ctx, method, path, true, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// action POSTs to an endpoint the server guards with Idempotency-Key.
func (c *Client) action(ctx context.Context, path string, body any) (*types.Listing, error) {
	req, err := c.jsonRequest(ctx, http.MethodPost, path, true, body)
	if err != nil {
		return nil, err
	}
	if key := c.idempotencyKey(ctx); key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	var out types.Listing
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, authenticated bool, body, dest any) error {
	req, err := c.jsonRequest(ctx, method, path, authenticated, body)
	if err != nil {
		return err
	}
	return c.send(req, dest)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, authenticated bool, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, authenticated, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, authenticated bool, body io.Reader) (*http.Request, error) {
	token := c.session.Token()
	if authenticated && token == "" {
		c.unauthorized()
		return nil, ErrNotAuthenticated
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		if resp.StatusCode == http.StatusUnauthorized && req.Header.Get("Authorization") != "" {
			if clearErr := c.session.Clear(); clearErr != nil {
				c.logg.Error(req.Context(), "client.session_clear_failed", clearErr)
			}
			c.unauthorized()
		}
		return apiErr
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) unauthorized() {
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

// decodeAPIError surfaces detail, then message, then a generic status line.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Code    string          `json:"code"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Code
		var detail string
		if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
			apiErr.Message = detail
		} else if body.Message != "" {
			apiErr.Message = body.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
	}
	return apiErr
}
