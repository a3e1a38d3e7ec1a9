package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/forms"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := &MemoryStore{}
	session, err := NewSession(store)
	require.NoError(t, err)
	opts = append([]Option{WithBaseURL(srv.URL), WithHTTPClient(srv.Client())}, opts...)
	return New(session, opts...), store
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestLoginStoresTokenAndAuthenticatesLaterCalls(t *testing.T) {
	var seenAuth string
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			require.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, types.Token{AccessToken: "tok-1", TokenType: "bearer"})
		case "/listings/abc":
			seenAuth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, types.Listing{ID: "abc", Status: enums.ListingStatusDraft})
		default:
			http.NotFound(w, r)
		}
	})

	_, err := client.Login(context.Background(), types.Credentials{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	require.True(t, client.IsAuthenticated())
	stored, _ := store.Load()
	require.Equal(t, "tok-1", stored)

	listing, err := client.GetListing(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "abc", listing.ID)
	require.Equal(t, "Bearer tok-1", seenAuth)
}

func TestErrorMessageFallbacks(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
		code   string
	}{
		{"detail", http.StatusUnprocessableEntity, `{"detail":"Media is not ready for approval","code":"STATE_CONFLICT"}`, "Media is not ready for approval", "STATE_CONFLICT"},
		{"message", http.StatusBadRequest, `{"message":"bad input"}`, "bad input", ""},
		{"structured detail falls through", http.StatusBadRequest, `{"detail":[{"loc":["body"]}],"message":"validation failed"}`, "validation failed", ""},
		{"empty", http.StatusBadGateway, ``, "HTTP error! status: 502", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			require.NoError(t, client.Session().SetToken("tok"))

			_, err := client.Publish(context.Background(), "abc")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tc.status, apiErr.Status)
			require.Equal(t, tc.want, apiErr.Error())
			require.Equal(t, tc.code, apiErr.Code)
		})
	}
}

func TestUnauthorizedResponseClearsSession(t *testing.T) {
	var called atomic.Int32
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, types.ErrorBody{Detail: "Could not validate credentials"})
	}, WithOnUnauthorized(func() { called.Add(1) }))
	require.NoError(t, client.Session().SetToken("expired"))

	_, err := client.ListListings(context.Background(), nil)
	require.True(t, IsUnauthorized(err))
	require.False(t, client.IsAuthenticated())
	require.EqualValues(t, 1, called.Load())
	stored, _ := store.Load()
	require.Empty(t, stored)
}

func TestProtectedCallWithoutTokenSkipsNetwork(t *testing.T) {
	var hits, called atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, WithOnUnauthorized(func() { called.Add(1) }))

	_, err := client.GetListing(context.Background(), "abc")
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.Zero(t, hits.Load())
	require.EqualValues(t, 1, called.Load())
}

func TestLogoutClearsPersistedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/logout", r.URL.Path)
		writeJSON(w, http.StatusOK, types.StatusBody{Status: "logged_out"})
	}))
	defer srv.Close()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "bnb", "token.json"))
	require.NoError(t, err)
	require.NoError(t, fileStore.Save("tok-9"))

	session, err := NewSession(fileStore)
	require.NoError(t, err)
	require.True(t, session.IsAuthenticated())

	client := New(session, WithBaseURL(srv.URL))
	require.NoError(t, client.Logout(context.Background()))
	require.False(t, client.IsAuthenticated())

	stored, err := fileStore.Load()
	require.NoError(t, err)
	require.Empty(t, stored)

	_, err = client.Me(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestGenerateMediaBody(t *testing.T) {
	var bodies []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(raw))
		writeJSON(w, http.StatusOK, types.Listing{ID: "abc", Status: enums.ListingStatusGeneratingMedia})
	})
	require.NoError(t, client.Session().SetToken("tok"))

	_, err := client.GenerateMedia(context.Background(), "abc", enums.MediaTypeAll)
	require.NoError(t, err)
	_, err = client.GenerateMedia(context.Background(), "abc", enums.MediaTypeImages)
	require.NoError(t, err)

	require.Equal(t, "", bodies[0])
	require.JSONEq(t, `{"media_type":"images"}`, bodies[1])
}

func TestActionsSendIdempotencyKeys(t *testing.T) {
	var keys []string
	handler := func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get(HeaderIdempotencyKey))
		writeJSON(w, http.StatusOK, types.Listing{ID: "abc", Status: enums.ListingStatusMediaReady})
	}

	n := 0
	client, _ := newTestClient(t, handler, WithIdempotencyKeys(func() string {
		n++
		return "key-" + strconv.Itoa(n)
	}))
	require.NoError(t, client.Session().SetToken("tok"))

	ctx := context.Background()
	_, err := client.GenerateMedia(ctx, "abc", enums.MediaTypeAll)
	require.NoError(t, err)
	_, err = client.ApproveMedia(ctx, "abc", []int{0})
	require.NoError(t, err)
	_, err = client.Publish(ctx, "abc")
	require.NoError(t, err)
	_, err = client.GetListing(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, []string{"key-1", "key-2", "key-3", ""}, keys)

	keys = nil
	pinned := ContextWithIdempotencyKey(ctx, "retry-me")
	for range 2 {
		_, err = client.Publish(pinned, "abc")
		require.NoError(t, err)
	}
	require.Equal(t, []string{"retry-me", "retry-me"}, keys)

	keys = nil
	plain, _ := newTestClient(t, handler)
	require.NoError(t, plain.Session().SetToken("tok"))
	_, err = plain.Publish(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, []string{""}, keys)
}

func TestUploadImagesSendsMultipart(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		require.Equal(t, "image/png", files[0].Header.Get("Content-Type"))
		writeJSON(w, http.StatusOK, types.UploadResult{URLs: []string{"u1", "u2"}, Count: 2})
	})
	require.NoError(t, client.Session().SetToken("tok"))

	result, err := client.UploadImages(context.Background(), []forms.StagedFile{
		{Name: "a.png", ContentType: "image/png", Data: []byte("a")},
		{Name: "b.png", ContentType: "image/png", Data: []byte("b")},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Count)
}

func TestDefaultBaseURL(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	require.Equal(t, DefaultBaseURL, BaseURLFromEnv())

	t.Setenv(EnvAPIURL, "https://api.example.com")
	require.Equal(t, "https://api.example.com", BaseURLFromEnv())
}
