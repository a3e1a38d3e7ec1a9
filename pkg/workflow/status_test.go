package workflow

import (
	"testing"

	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

func TestBadgeFor(t *testing.T) {
	cases := map[enums.ListingStatus]Badge{
		enums.ListingStatusDraft:           {Label: "Draft", Variant: VariantSecondary},
		enums.ListingStatusGeneratingMedia: {Label: "Generating Media", Variant: VariantDefault, Spinner: true},
		enums.ListingStatusPublishing:      {Label: "Publishing", Variant: VariantDefault, Spinner: true},
		enums.ListingStatusError:           {Label: "Error", Variant: VariantDestructive},
	}
	for status, want := range cases {
		if got := BadgeFor(status); got != want {
			t.Fatalf("BadgeFor(%s) = %+v, want %+v", status, got, want)
		}
	}
	if got := BadgeFor("archived"); got.Variant != VariantSecondary {
		t.Fatalf("unknown status should fall back to secondary, got %+v", got)
	}
}

func TestAwaiting(t *testing.T) {
	for _, status := range []enums.ListingStatus{enums.ListingStatusGeneratingMedia, enums.ListingStatusPublishing} {
		if !Awaiting(status) {
			t.Fatalf("%s should be awaited", status)
		}
	}
	if Awaiting(enums.ListingStatusMediaReady) {
		t.Fatal("media_ready is not awaited")
	}
}

func TestGuard(t *testing.T) {
	var g Guard
	release, err := g.TryAcquire(ActionPublish)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if _, err := g.TryAcquire(ActionSave); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if g.InFlight() != ActionPublish {
		t.Fatalf("expected publish in flight, got %q", g.InFlight())
	}
	release()
	release()
	if g.Busy() {
		t.Fatal("guard should be free")
	}
}

func TestBuildPreview(t *testing.T) {
	category, condition, enriched := "8", "3000", "Polished copy"
	listing := &types.Listing{
		Title:               "Jacket",
		Description:         "plain",
		EnrichedDescription: &enriched,
		Price:               25,
		Quantity:            2,
		CategoryID:          &category,
		ConditionID:         &condition,
	}
	mediaReady("a", "b", "c")(listing)
	review := newReviewSession(listing, nil)
	review.SetSelection([]int{2})

	p := BuildPreview(listing, review)
	if p.Price != "$25.00" || p.Description != "Polished copy" {
		t.Fatalf("unexpected preview %+v", p)
	}
	if p.Category != "Clothing, Shoes & Accessories" || p.Condition != "Very Good - Refurbished" {
		t.Fatalf("unexpected labels %+v", p)
	}
	if len(p.Images) != 1 || p.Images[0] != "c" {
		t.Fatalf("expected selected image only, got %v", p.Images)
	}

	listing.CategoryID = nil
	if got := BuildPreview(listing, nil); got.Category != "Not specified" || len(got.Images) != 3 {
		t.Fatalf("unexpected fallback preview %+v", got)
	}
}
