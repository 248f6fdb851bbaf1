package igdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mitchellh/mapstructure"

	"vg-game-logger-go/internal/app/domain"
	"vg-game-logger-go/internal/app/logging"
)

type imageRef struct {
	URL string `mapstructure:"url"`
}

// Parser turns catalog responses into game records.
type Parser struct {
	// ImageSize, when set, replaces the size segment of image URLs (t_thumb -> t_cover_big).
	ImageSize string
	Log       *logging.Loggers
}

// ParseRecords parses body with a default Parser.
func ParseRecords(body []byte) ([]*domain.GameRecord, error) {
	return (&Parser{}).Parse(body)
}

// Parse expects a JSON array of objects and returns one record per object, in order.
// Elements that are not objects are skipped. Anything other than an array fails with
// *MalformedResponseError and no records.
func (p *Parser) Parse(body []byte) ([]*domain.GameRecord, error) {
	log := logging.OrDiscard(p.Log)

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var top interface{}
	if err := decoder.Decode(&top); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	entries, ok := top.([]interface{})
	if !ok {
		return nil, &MalformedResponseError{Err: fmt.Errorf("expected a JSON array, got %T", top)}
	}

	records := make([]*domain.GameRecord, 0, len(entries))
	for i, entry := range entries {
		object, isObject := entry.(map[string]interface{})
		if !isObject {
			log.Warn.Printf("Skipping catalog entry %d: expected an object, got %T\n", i, entry)
			continue
		}
		fields, screenshotRefs := p.parseFields(object)
		records = append(records, domain.NewGameRecord(fields, screenshotRefs))
	}
	return records, nil
}

func (p *Parser) parseFields(object map[string]interface{}) (domain.GameFields, []*url.URL) {
	fields := domain.GameFields{
		ID:          decodeField[int64](object, "id"),
		Name:        stringField(object, "name"),
		ReleaseDate: decodeField[int64](object, "first_release_date"),
		Summary:     stringField(object, "summary"),
		Rating:      decodeField[float64](object, "rating"),
		Popularity:  decodeField[float64](object, "popularity"),
	}

	if cover, ok := object["cover"]; ok {
		fields.CoverRef = p.imageURL(cover)
	}
	var screenshotRefs []*url.URL
	if shots, ok := object["screenshots"].([]interface{}); ok {
		for _, shot := range shots {
			if ref := p.imageURL(shot); ref != nil {
				screenshotRefs = append(screenshotRefs, ref)
			}
		}
	}
	return fields, screenshotRefs
}

// decodeField decodes object[key] into T. Missing or mistyped values give nil.
func decodeField[T any](object map[string]interface{}, key string) *T {
	raw, ok := object[key]
	if !ok || raw == nil {
		return nil
	}
	var value T
	if err := mapstructure.Decode(raw, &value); err != nil {
		return nil
	}
	return &value
}

// stringField only accepts JSON strings; mapstructure would also take a json.Number.
func stringField(object map[string]interface{}, key string) *string {
	s, ok := object[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func (p *Parser) imageURL(raw interface{}) *url.URL {
	var ref imageRef
	if err := mapstructure.Decode(raw, &ref); err != nil || ref.URL == "" {
		return nil
	}
	u, err := NormalizeImageURL(ref.URL)
	if err != nil {
		return nil
	}
	if p.ImageSize != "" {
		u = withImageSize(u, p.ImageSize)
	}
	return u
}

var errRelativeImageURL = errors.New("image url has no host")

// NormalizeImageURL makes a catalog image URL absolute. Scheme-relative URLs
// (//host/path) get https. Normalizing twice gives the same result.
func NormalizeImageURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, errRelativeImageURL
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u, nil
}

// withImageSize swaps the t_* size segment that precedes the file name.
func withImageSize(u *url.URL, size string) *url.URL {
	segments := strings.Split(u.Path, "/")
	if len(segments) < 2 || !strings.HasPrefix(segments[len(segments)-2], "t_") {
		return u
	}
	resized := *u
	segments[len(segments)-2] = size
	resized.Path = strings.Join(segments, "/")
	resized.RawPath = ""
	return &resized
}
