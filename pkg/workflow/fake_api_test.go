package workflow

import (
	"context"
	"sync"

	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

// fakeAPI plays the server: it owns the listing and applies transitions.
type fakeAPI struct {
	mu      sync.Mutex
	listing types.Listing
	gets    int

	// onGet runs before the nth (1-based) fetch returns; a non-nil error fails it.
	onGet func(n int, l *types.Listing) error

	generateGate  chan struct{}
	generateErr   error
	generateCalls []enums.MediaType
	approveCalls  [][]int
	deleted       bool
}

func (f *fakeAPI) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func (f *fakeAPI) snapshot() *types.Listing {
	l := f.listing
	return &l
}

func (f *fakeAPI) GetListing(_ context.Context, _ string) (*types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.onGet != nil {
		if err := f.onGet(f.gets, &f.listing); err != nil {
			return nil, err
		}
	}
	return f.snapshot(), nil
}

func (f *fakeAPI) UpdateListing(_ context.Context, _ string, in types.ListingUpdate) (*types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.Title != nil {
		f.listing.Title = *in.Title
	}
	return f.snapshot(), nil
}

func (f *fakeAPI) DeleteListing(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = true
	return nil
}

func (f *fakeAPI) GenerateMedia(ctx context.Context, _ string, mediaType enums.MediaType) (*types.Listing, error) {
	if f.generateGate != nil {
		select {
		case <-f.generateGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls = append(f.generateCalls, mediaType)
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	f.listing.Status = enums.ListingStatusGeneratingMedia
	return f.snapshot(), nil
}

func (f *fakeAPI) ApproveMedia(_ context.Context, _ string, selected []int) (*types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approveCalls = append(f.approveCalls, selected)
	f.listing.Status = enums.ListingStatusApproved
	return f.snapshot(), nil
}

func (f *fakeAPI) Publish(context.Context, string) (*types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listing.Status = enums.ListingStatusPublishing
	return f.snapshot(), nil
}

func mediaReady(images ...string) func(*types.Listing) {
	return func(l *types.Listing) {
		l.Status = enums.ListingStatusMediaReady
		l.Media = &types.Media{ListingID: l.ID, ImageURLs: images}
	}
}
