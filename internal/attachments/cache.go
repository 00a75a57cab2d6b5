package attachments

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheEntries = 128

// Cache memoizes extraction results keyed by content hash, so re-uploading
// the same file never re-parses it.
type Cache struct {
	entries *lru.Cache[string, string]
}

// NewCache builds a cache holding up to size extracted texts. Sizes below 1
// fall back to the default.
func NewCache(size int) (*Cache, error) {
	if size < 1 {
		size = defaultCacheEntries
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (c *Cache) Get(data []byte) (string, bool) {
	return c.entries.Get(contentKey(data))
}

func (c *Cache) Put(data []byte, text string) {
	c.entries.Add(contentKey(data), text)
}
