package igdb

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"vg-game-logger-go/internal/app/domain"
)

// BestMatch searches for term and returns the single closest title.
func (c *Client) BestMatch(ctx context.Context, term string) (*domain.GameRecord, error) {
	records, err := c.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	match := closestMatch(term, records)
	if match == nil {
		return nil, ErrNotFound
	}
	return match, nil
}

// The catalog search returns every title close to the search string, which includes sequels and
// similarly named games. A fuzzy name match picks the one title we really want.
func closestMatch(term string, records []*domain.GameRecord) *domain.GameRecord {
	if len(records) == 0 {
		return nil
	}

	// No need to search if only one result
	if len(records) == 1 {
		return records[0]
	}

	var names []string
	firstByName := make(map[string]*domain.GameRecord)
	for _, record := range records {
		if record.Name == nil {
			continue
		}
		name := strings.ToUpper(*record.Name)
		if _, seen := firstByName[name]; !seen {
			firstByName[name] = record
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return records[0]
	}

	// fuzzy search is case-sensitive so comparison values are normalized to upper case
	ranks := fuzzy.RankFind(strings.ToUpper(term), names)
	if ranks.Len() == 0 {
		return firstByName[names[0]]
	}
	sort.Stable(ranks)
	return firstByName[ranks[0].Target]
}
