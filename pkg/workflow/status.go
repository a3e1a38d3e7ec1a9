// Package workflow drives one listing through its lifecycle from the
// seller's side. The server owns every transition; this package only issues
// actions, replaces its copy with each response, and polls while a job runs.
package workflow

import "github.com/angelmondragon/brandinbox/pkg/enums"

// Variant is the visual style of a status badge.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSecondary   Variant = "secondary"
	VariantDestructive Variant = "destructive"
)

// Badge describes how a status is rendered in lists and headers.
type Badge struct {
	Label   string
	Variant Variant
	Spinner bool
}

var badges = map[enums.ListingStatus]Badge{
	enums.ListingStatusDraft:           {Label: "Draft", Variant: VariantSecondary},
	enums.ListingStatusGeneratingMedia: {Label: "Generating Media", Variant: VariantDefault, Spinner: true},
	enums.ListingStatusMediaReady:      {Label: "Media Ready", Variant: VariantDefault},
	enums.ListingStatusApproved:        {Label: "Approved", Variant: VariantDefault},
	enums.ListingStatusPublishing:      {Label: "Publishing", Variant: VariantDefault, Spinner: true},
	enums.ListingStatusPublished:       {Label: "Published", Variant: VariantDefault},
	enums.ListingStatusError:           {Label: "Error", Variant: VariantDestructive},
}

// BadgeFor returns the badge for status. Unknown values render as secondary.
func BadgeFor(status enums.ListingStatus) Badge {
	if badge, ok := badges[status]; ok {
		return badge
	}
	return Badge{Label: string(status), Variant: VariantSecondary}
}

// Awaiting reports whether status is waiting on an asynchronous job.
func Awaiting(status enums.ListingStatus) bool {
	return status == enums.ListingStatusGeneratingMedia || status == enums.ListingStatusPublishing
}
