package domain

import (
	"context"
	"image"
	"net/url"
	"time"
)

// ArtworkType tells which kind of image a reference points at.
type ArtworkType int

const (
	UnknownArtworkType ArtworkType = iota
	Cover
	ScreenShot
)

func (artType ArtworkType) String() string {
	switch artType {
	case Cover:
		return "covers"
	case ScreenShot:
		return "screenshots"
	case UnknownArtworkType:
		return "UnknownArtworkType"
	}
	return "UnknownArtworkType"
}

// ImageSource retrieves and decodes remote images. Placeholder is substituted for
// any image that could not be fetched. kind tells a cover from a screenshot.
type ImageSource interface {
	Fetch(ctx context.Context, kind ArtworkType, ref *url.URL) (image.Image, error)
	Placeholder() image.Image
}

// GameFields holds the parsed metadata of one catalog entry. Every field is optional.
// Screenshot references are kept by GameRecord itself, see NewGameRecord.
type GameFields struct {
	ID          *int64
	Name        *string
	ReleaseDate *int64
	Summary     *string
	Rating      *float64
	Popularity  *float64
	CoverRef    *url.URL
}

// ReleaseTime converts the release date to a time in UTC.
func (f GameFields) ReleaseTime() (time.Time, bool) {
	if f.ReleaseDate == nil {
		return time.Time{}, false
	}
	return time.Unix(*f.ReleaseDate, 0).UTC(), true
}

// DisplayName returns the name or an empty string.
func (f GameFields) DisplayName() string {
	if f.Name == nil {
		return ""
	}
	return *f.Name
}
