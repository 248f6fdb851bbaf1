// Package cache keeps recent catalog responses in memory, keyed by request URL.
package cache

import (
	"errors"
	"time"

	"github.com/tidwall/buntdb"
)

const keyPrefix = "resp:"

// Responses is an in-memory response cache backed by buntdb. Entries expire after
// the TTL given to Put. Nothing is written to disk.
type Responses struct {
	db *buntdb.DB
}

// Open creates an empty in-memory cache.
func Open() (*Responses, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}
	return &Responses{db: db}, nil
}

// Get returns the cached body for url if it is present and not expired.
func (c *Responses) Get(url string) ([]byte, bool) {
	var body string
	err := c.db.View(func(tx *buntdb.Tx) error {
		var getErr error
		body, getErr = tx.Get(keyPrefix + url)
		return getErr
	})
	if err != nil {
		return nil, false
	}
	return []byte(body), true
}

// Put stores body for url. A non-positive ttl is ignored.
func (c *Responses) Put(url string, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.db.Update(func(tx *buntdb.Tx) error {
		_, _, setErr := tx.Set(keyPrefix+url, string(body), &buntdb.SetOptions{Expires: true, TTL: ttl})
		return setErr
	})
}

// URLs lists the cached request URLs in ascending order.
func (c *Responses) URLs() ([]string, error) {
	urls := make([]string, 0)
	err := c.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(keyPrefix+"*", func(key, _ string) bool {
			urls = append(urls, key[len(keyPrefix):])
			return true
		})
	})
	return urls, err
}

// Close releases the underlying store.
func (c *Responses) Close() error {
	err := c.db.Close()
	if errors.Is(err, buntdb.ErrDatabaseClosed) {
		return nil
	}
	return err
}
