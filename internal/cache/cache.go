package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from an operation name, the document bytes and any
// request parameters. Identical files under different names share an entry.
func Key(op string, content []byte, params ...string) string {
	h := sha256.New()
	h.Write([]byte(op))
	h.Write([]byte{0})
	h.Write(content)
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return "textaudit-v1-" + op + "-" + hex.EncodeToString(h.Sum(nil))
}
