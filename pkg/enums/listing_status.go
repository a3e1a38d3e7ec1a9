package enums

import "fmt"

// ListingStatus describes where a listing sits in the generate/approve/publish workflow.
type ListingStatus string

const (
	ListingStatusDraft           ListingStatus = "draft"
	ListingStatusGeneratingMedia ListingStatus = "generating_media"
	ListingStatusMediaReady      ListingStatus = "media_ready"
	ListingStatusApproved        ListingStatus = "approved"
	ListingStatusPublishing      ListingStatus = "publishing"
	ListingStatusPublished       ListingStatus = "published"
	ListingStatusError           ListingStatus = "error"
)

var validListingStatuses = []ListingStatus{
	ListingStatusDraft,
	ListingStatusGeneratingMedia,
	ListingStatusMediaReady,
	ListingStatusApproved,
	ListingStatusPublishing,
	ListingStatusPublished,
	ListingStatusError,
}

// listingTransitions is the complete set of allowed status edges.
var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingStatusDraft:           {ListingStatusGeneratingMedia},
	ListingStatusGeneratingMedia: {ListingStatusMediaReady, ListingStatusError},
	ListingStatusMediaReady:      {ListingStatusApproved, ListingStatusGeneratingMedia},
	ListingStatusApproved:        {ListingStatusPublishing},
	ListingStatusPublishing:      {ListingStatusPublished, ListingStatusError},
	ListingStatusPublished:       nil,
	ListingStatusError:           {ListingStatusGeneratingMedia},
}

// ListingStatuses returns every valid status in workflow order.
func ListingStatuses() []ListingStatus {
	out := make([]ListingStatus, len(validListingStatuses))
	copy(out, validListingStatuses)
	return out
}

// String returns the literal string for the status.
func (s ListingStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether the workflow allows moving from s to next.
func (s ListingStatus) CanTransition(next ListingStatus) bool {
	for _, candidate := range listingTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsAwaitingCompletion reports whether an asynchronous job owns the listing.
func (s ListingStatus) IsAwaitingCompletion() bool {
	return s == ListingStatusGeneratingMedia || s == ListingStatusPublishing
}

// CanGenerateMedia reports whether generate-media (first run, retry or regenerate) is allowed.
func (s ListingStatus) CanGenerateMedia() bool {
	return s.CanTransition(ListingStatusGeneratingMedia)
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
