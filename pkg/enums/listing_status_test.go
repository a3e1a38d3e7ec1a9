package enums

import "testing"

func TestListingStatusTransitions(t *testing.T) {
	allowed := map[[2]ListingStatus]bool{
		{ListingStatusDraft, ListingStatusGeneratingMedia}:      true,
		{ListingStatusGeneratingMedia, ListingStatusMediaReady}: true,
		{ListingStatusGeneratingMedia, ListingStatusError}:      true,
		{ListingStatusMediaReady, ListingStatusApproved}:        true,
		{ListingStatusMediaReady, ListingStatusGeneratingMedia}: true,
		{ListingStatusApproved, ListingStatusPublishing}:        true,
		{ListingStatusPublishing, ListingStatusPublished}:       true,
		{ListingStatusPublishing, ListingStatusError}:           true,
		{ListingStatusError, ListingStatusGeneratingMedia}:      true,
	}

	for _, from := range ListingStatuses() {
		for _, to := range ListingStatuses() {
			want := allowed[[2]ListingStatus{from, to}]
			if got := from.CanTransition(to); got != want {
				t.Fatalf("%s -> %s: expected %v got %v", from, to, want, got)
			}
		}
	}
}

func TestListingStatusHelpers(t *testing.T) {
	if !ListingStatusGeneratingMedia.IsAwaitingCompletion() || !ListingStatusPublishing.IsAwaitingCompletion() {
		t.Fatal("generating_media and publishing await completion")
	}
	if ListingStatusMediaReady.IsAwaitingCompletion() {
		t.Fatal("media_ready does not await completion")
	}
	for _, s := range []ListingStatus{ListingStatusDraft, ListingStatusMediaReady, ListingStatusError} {
		if !s.CanGenerateMedia() {
			t.Fatalf("expected %s to allow generate-media", s)
		}
	}
	for _, s := range []ListingStatus{ListingStatusGeneratingMedia, ListingStatusApproved, ListingStatusPublishing, ListingStatusPublished} {
		if s.CanGenerateMedia() {
			t.Fatalf("expected %s to reject generate-media", s)
		}
	}
}

func TestParseListingStatus(t *testing.T) {
	for _, s := range ListingStatuses() {
		parsed, err := ParseListingStatus(s.String())
		if err != nil || parsed != s {
			t.Fatalf("round trip failed for %s: %v", s, err)
		}
	}
	if _, err := ParseListingStatus("archived"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if ListingStatus("archived").IsValid() {
		t.Fatal("unknown status must be invalid")
	}
	if len(ListingStatuses()) != 7 {
		t.Fatalf("expected seven statuses, got %d", len(ListingStatuses()))
	}
}

func TestParseMediaType(t *testing.T) {
	mt, err := ParseMediaType("")
	if err != nil || mt != MediaTypeAll {
		t.Fatalf("expected empty media type to mean all, got %q %v", mt, err)
	}
	if _, err := ParseMediaType("audio"); err == nil {
		t.Fatal("expected unknown media type to fail")
	}
	if !MediaTypeImages.IncludesImages() || MediaTypeImages.IncludesVideo() {
		t.Fatal("images scope should only include images")
	}
	if MediaTypeVideo.IncludesImages() || !MediaTypeVideo.IncludesVideo() {
		t.Fatal("video scope should only include video")
	}
	if !MediaTypeAll.IncludesImages() || !MediaTypeAll.IncludesVideo() {
		t.Fatal("all scope should include both")
	}
}
