package enums

import "fmt"

// MediaType scopes a generation job to images, video or both.
type MediaType string

const (
	MediaTypeAll    MediaType = "all"
	MediaTypeImages MediaType = "images"
	MediaTypeVideo  MediaType = "video"
)

var validMediaTypes = []MediaType{
	MediaTypeAll,
	MediaTypeImages,
	MediaTypeVideo,
}

// String implements fmt.Stringer.
func (m MediaType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MediaType.
func (m MediaType) IsValid() bool {
	for _, candidate := range validMediaTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// IncludesImages reports whether a job of this type regenerates images.
func (m MediaType) IncludesImages() bool {
	return m == MediaTypeAll || m == MediaTypeImages || m == ""
}

// IncludesVideo reports whether a job of this type regenerates the video.
func (m MediaType) IncludesVideo() bool {
	return m == MediaTypeAll || m == MediaTypeVideo || m == ""
}

// ParseMediaType converts raw input into a MediaType; empty input means all.
func ParseMediaType(value string) (MediaType, error) {
	if value == "" {
		return MediaTypeAll, nil
	}
	for _, candidate := range validMediaTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media type %q", value)
}
