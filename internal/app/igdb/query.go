package igdb

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// QueryKind names the catalog queries the client knows how to build.
type QueryKind int

const (
	UnknownQueryKind QueryKind = iota
	SearchQuery
	PopularQuery
	ByIDQuery
)

func (kind QueryKind) String() string {
	switch kind {
	case SearchQuery:
		return "search"
	case PopularQuery:
		return "popular"
	case ByIDQuery:
		return "by_id"
	case UnknownQueryKind:
		return "unknown"
	}
	return "unknown"
}

const (
	searchFields  = "name,summary,cover,screenshots,rating,first_release_date"
	popularFields = "name,cover,screenshots,id,summary,rating,popularity,first_release_date"
	byIDFields    = "id,name,summary,cover,screenshots,rating,popularity,first_release_date"

	popularMinRating = "85"
	dateLayout       = "2006-01-02"
)

// Builder turns query intents into percent-encoded catalog URLs.
type Builder struct {
	BaseURL      string
	PopularSince string // YYYY-MM-DD lower bound on release date for the popular listing
}

// Search builds a text search sorted by rating. An empty term is allowed, and control
// characters are percent-encoded like any other byte. Only invalid UTF-8 is rejected.
func (b Builder) Search(term string) (string, error) {
	if !utf8.ValidString(term) {
		return "", &InvalidQueryError{Kind: SearchQuery, Reason: "search term is not valid UTF-8"}
	}
	params := url.Values{}
	params.Set("search", term)
	params.Set("fields", searchFields)
	params.Set("filter[summary][exists]", "true")
	params.Set("order", "rating:desc")
	return b.build(SearchQuery, "games/", params)
}

// Popular builds the listing of highly rated games released since PopularSince.
func (b Builder) Popular() (string, error) {
	since := b.PopularSince
	if since == "" {
		since = "2018-01-01"
	}
	if _, err := time.Parse(dateLayout, since); err != nil {
		return "", &InvalidQueryError{Kind: PopularQuery, Reason: "release date filter " + strconv.Quote(since) + " is not YYYY-MM-DD"}
	}
	params := url.Values{}
	params.Set("fields", popularFields)
	params.Set("filter[release_dates.date][gte]", since)
	params.Set("filter[rating][gt]", popularMinRating)
	params.Set("filter[summary][exists]", "true")
	params.Set("order", "popularity:desc")
	return b.build(PopularQuery, "games/", params)
}

// ByID builds the URL for a single game. Batches build one URL per id.
func (b Builder) ByID(id int64) (string, error) {
	if id <= 0 {
		return "", &InvalidQueryError{Kind: ByIDQuery, Reason: "id must be positive, got " + strconv.FormatInt(id, 10)}
	}
	params := url.Values{}
	params.Set("fields", byIDFields)
	return b.build(ByIDQuery, "games/"+strconv.FormatInt(id, 10)+"/", params)
}

func (b Builder) build(kind QueryKind, path string, params url.Values) (string, error) {
	base, err := url.Parse(b.BaseURL)
	if err != nil {
		return "", &InvalidQueryError{Kind: kind, Reason: "base url: " + err.Error()}
	}
	if base.Scheme == "" || base.Host == "" {
		return "", &InvalidQueryError{Kind: kind, Reason: "base url " + strconv.Quote(b.BaseURL) + " is not absolute"}
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/" + path
	base.RawPath = ""
	base.RawQuery = params.Encode()
	base.Fragment = ""
	return base.String(), nil
}
