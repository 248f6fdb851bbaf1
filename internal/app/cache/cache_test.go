package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponses_PutGet(t *testing.T) {
	c, err := Open()
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("https://example.com/games/?search=zelda")
	assert.False(t, ok)

	require.NoError(t, c.Put("https://example.com/games/?search=zelda", []byte(`[{"name":"Zelda"}]`), time.Minute))
	body, ok := c.Get("https://example.com/games/?search=zelda")
	require.True(t, ok)
	assert.JSONEq(t, `[{"name":"Zelda"}]`, string(body))
}

func TestResponses_ZeroTTLNotStored(t *testing.T) {
	c, err := Open()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put("u", []byte("x"), 0))
	_, ok := c.Get("u")
	assert.False(t, ok)
}

func TestResponses_Expires(t *testing.T) {
	c, err := Open()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put("u", []byte("x"), 10*time.Millisecond))
	time.Sleep(50 * time.Millisecond)
	_, ok := c.Get("u")
	assert.False(t, ok)
}

func TestResponses_URLs(t *testing.T) {
	c, err := Open()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put("b", []byte("2"), time.Minute))
	require.NoError(t, c.Put("a", []byte("1"), time.Minute))

	urls, err := c.URLs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, urls)
}

func TestResponses_CloseTwice(t *testing.T) {
	c, err := Open()
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
