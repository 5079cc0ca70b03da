package extract

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/textaudit/internal/cache"
	"github.com/ppiankov/textaudit/internal/model"
)

// Cached wraps a Backend and memoizes results by document content.
// Failures are never cached.
type Cached struct {
	next  Backend
	cache cache.Cache
	ttl   time.Duration
}

// NewCached creates a caching decorator. ttl 0 uses the cache's default.
func NewCached(next Backend, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

// ExtractFields implements FieldExtractor
func (c *Cached) ExtractFields(ctx context.Context, doc Document, fields []model.Field) (Fields, error) {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f.Name)
	}
	key := cache.Key(OpExtract, doc.Content, names...)

	if data, ok := c.cache.Get(key); ok {
		var cached Fields
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	out, err := c.next.ExtractFields(ctx, doc, fields)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(out); err == nil {
		_ = c.cache.Set(key, data, c.ttl)
	}
	return out, nil
}

// RenderText implements TextRenderer
func (c *Cached) RenderText(ctx context.Context, doc Document) (string, error) {
	key := cache.Key(OpRender, doc.Content)

	if data, ok := c.cache.Get(key); ok {
		return string(data), nil
	}

	text, err := c.next.RenderText(ctx, doc)
	if err != nil {
		return "", err
	}

	_ = c.cache.Set(key, []byte(text), c.ttl)
	return text, nil
}
