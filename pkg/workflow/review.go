package workflow

import (
	"errors"
	"sort"
	"sync"

	"github.com/angelmondragon/brandinbox/pkg/types"
)

// ErrIndexOutOfRange is returned by Toggle for an index with no image.
var ErrIndexOutOfRange = errors.New("image index out of range")

// ReviewSession carries the image selection from media review into preview.
// Indices refer to the image_urls of the snapshot current when they were
// chosen; regenerating images invalidates them.
type ReviewSession struct {
	mu       sync.Mutex
	selected map[int]struct{}
	snapshot *types.Listing
	onEnd    func(*ReviewSession)
}

func newReviewSession(snapshot *types.Listing, onEnd func(*ReviewSession)) *ReviewSession {
	return &ReviewSession{selected: map[int]struct{}{}, snapshot: snapshot, onEnd: onEnd}
}

// SetSelection replaces the selection. Nil or empty means no filter.
func (s *ReviewSession) SetSelection(indices []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[int]struct{}, len(indices))
	for _, i := range indices {
		s.selected[i] = struct{}{}
	}
}

// Toggle flips one index of the current snapshot's images.
func (s *ReviewSession) Toggle(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.snapshot.ImageURLs()) {
		return ErrIndexOutOfRange
	}
	if _, ok := s.selected[i]; ok {
		delete(s.selected, i)
	} else {
		s.selected[i] = struct{}{}
	}
	return nil
}

// SelectAll selects every image, or clears the selection when all are already selected.
func (s *ReviewSession) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	images := s.snapshot.ImageURLs()
	all := len(images) > 0
	for i := range images {
		if _, ok := s.selected[i]; !ok {
			all = false
			break
		}
	}
	s.selected = map[int]struct{}{}
	if all {
		return
	}
	for i := range images {
		s.selected[i] = struct{}{}
	}
}

// SelectedIndices returns the selection in ascending order.
func (s *ReviewSession) SelectedIndices() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *ReviewSession) sortedLocked() []int {
	if len(s.selected) == 0 {
		return nil
	}
	out := make([]int, 0, len(s.selected))
	for i := range s.selected {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (s *ReviewSession) HasSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected) > 0
}

// SetListingSnapshot caches the listing being reviewed. Nil invalidates the cache.
func (s *ReviewSession) SetListingSnapshot(listing *types.Listing) {
	s.mu.Lock()
	s.snapshot = listing
	s.mu.Unlock()
}

func (s *ReviewSession) Snapshot() *types.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// VisibleImages returns the selected images in index order, or every image
// when nothing is selected. Indices with no image are skipped.
func (s *ReviewSession) VisibleImages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	images := s.snapshot.ImageURLs()
	indices := s.sortedLocked()
	if len(indices) == 0 {
		return append([]string(nil), images...)
	}
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(images) {
			out = append(out, images[i])
		}
	}
	return out
}

// Invalidate drops the selection after the images it referred to were replaced.
func (s *ReviewSession) Invalidate() {
	s.mu.Lock()
	s.selected = map[int]struct{}{}
	s.mu.Unlock()
}

// End discards the session.
func (s *ReviewSession) End() {
	s.mu.Lock()
	s.selected = map[int]struct{}{}
	s.snapshot = nil
	onEnd := s.onEnd
	s.onEnd = nil
	s.mu.Unlock()
	if onEnd != nil {
		onEnd(s)
	}
}
