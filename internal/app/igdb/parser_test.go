package igdb

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecords_SkipsMalformedEntries(t *testing.T) {
	body := `[
		{"name": "Celeste"},
		42,
		{"name": "Hades"},
		"not a game",
		null,
		{"name": "Inside"},
		[1, 2]
	]`

	records, err := ParseRecords([]byte(body))
	require.NoError(t, err)
	require.Len(t, records, 3)

	var names []string
	for _, r := range records {
		names = append(names, r.DisplayName())
	}
	assert.Equal(t, []string{"Celeste", "Hades", "Inside"}, names)
}

func TestParseRecords_CountProperty(t *testing.T) {
	for n := 1; n <= 6; n++ {
		for m := 0; m <= n; m++ {
			entries := make([]string, 0, n)
			for i := 0; i < n; i++ {
				// (7i+3) mod n visits every position once, so exactly m entries are malformed
				if (7*i+3)%n < m {
					entries = append(entries, "true")
					continue
				}
				entries = append(entries, fmt.Sprintf(`{"name": "game-%d"}`, i))
			}
			body := "[" + strings.Join(entries, ",") + "]"

			records, err := ParseRecords([]byte(body))
			require.NoError(t, err)
			assert.Len(t, records, n-m, body)

			last := -1
			for _, r := range records {
				var idx int
				_, scanErr := fmt.Sscanf(r.DisplayName(), "game-%d", &idx)
				require.NoError(t, scanErr)
				assert.Greater(t, idx, last)
				last = idx
			}
		}
	}
}

func TestParseRecords_Malformed(t *testing.T) {
	for name, body := range map[string]string{
		"object":   `{"name": "Celeste"}`,
		"null":     `null`,
		"string":   `"games"`,
		"not json": `<html>rate limited</html>`,
		"empty":    ``,
	} {
		t.Run(name, func(t *testing.T) {
			records, err := ParseRecords([]byte(body))
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Empty(t, records)
		})
	}
}

func TestParseRecords_Fields(t *testing.T) {
	body := `[{
		"id": 1025,
		"name": "Zelda",
		"first_release_date": 1488499200,
		"summary": "Link wakes up.",
		"rating": 97.5,
		"popularity": 12,
		"cover": {"id": 1, "url": "//images.igdb.com/igdb/image/upload/t_thumb/co3p2d.jpg"},
		"screenshots": [
			{"url": "//images.igdb.com/igdb/image/upload/t_thumb/sc1.jpg"},
			{"url": 5},
			17,
			{"url": "https://images.igdb.com/igdb/image/upload/t_thumb/sc2.jpg"}
		]
	}]`

	records, err := ParseRecords([]byte(body))
	require.NoError(t, err)
	require.Len(t, records, 1)
	r := records[0]

	require.NotNil(t, r.ID)
	assert.Equal(t, int64(1025), *r.ID)
	assert.Equal(t, "Zelda", r.DisplayName())
	require.NotNil(t, r.ReleaseDate)
	assert.Equal(t, int64(1488499200), *r.ReleaseDate)
	released, ok := r.ReleaseTime()
	require.True(t, ok)
	assert.Equal(t, 2017, released.Year())
	require.NotNil(t, r.Summary)
	require.NotNil(t, r.Rating)
	assert.InDelta(t, 97.5, *r.Rating, 0.001)
	require.NotNil(t, r.Popularity)
	assert.InDelta(t, 12.0, *r.Popularity, 0.001)

	require.NotNil(t, r.CoverRef)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_thumb/co3p2d.jpg", r.CoverRef.String())

	shots := r.ScreenshotRefs()
	require.Len(t, shots, 2)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_thumb/sc1.jpg", shots[0].String())
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_thumb/sc2.jpg", shots[1].String())
}

func TestParseRecords_MistypedFieldsLeftAbsent(t *testing.T) {
	body := `[
		{"name": 42, "first_release_date": "yesterday", "rating": "great", "cover": 1234},
		{"first_release_date": 1.5, "screenshots": "none"},
		{}
	]`

	records, err := ParseRecords([]byte(body))
	require.NoError(t, err)
	require.Len(t, records, 3)

	for _, r := range records {
		assert.Nil(t, r.Name)
		assert.Nil(t, r.ReleaseDate)
		assert.Nil(t, r.Rating)
		assert.Nil(t, r.CoverRef)
		assert.Empty(t, r.ScreenshotRefs())
	}
}

func TestParser_ImageSize(t *testing.T) {
	body := `[{"cover": {"url": "//images.igdb.com/igdb/image/upload/t_thumb/co3p2d.jpg"}}]`

	records, err := (&Parser{ImageSize: "t_cover_big"}).Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_cover_big/co3p2d.jpg", records[0].CoverRef.String())
}

func TestNormalizeImageURL(t *testing.T) {
	cases := map[string]string{
		"//images.igdb.com/igdb/image/upload/t_thumb/a.jpg":       "https://images.igdb.com/igdb/image/upload/t_thumb/a.jpg",
		"https://images.igdb.com/igdb/image/upload/t_thumb/a.jpg": "https://images.igdb.com/igdb/image/upload/t_thumb/a.jpg",
		"http://example.com/a.png":                                "http://example.com/a.png",
		"  //host/path.jpg ":                                      "https://host/path.jpg",
	}
	for in, want := range cases {
		once, err := NormalizeImageURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, once.String())

		twice, err := NormalizeImageURL(once.String())
		require.NoError(t, err, in)
		assert.Equal(t, once.String(), twice.String())
	}
}

func TestNormalizeImageURL_Rejects(t *testing.T) {
	for _, in := range []string{"", "a.jpg", "/igdb/image/a.jpg", "%zz"} {
		_, err := NormalizeImageURL(in)
		assert.Error(t, err, in)
	}
}
