package editor

import (
	"context"

	"github.com/phambaophuc/product-studio/internal/models"
	"go.uber.org/zap"
)

// Cache stores edit results by request key. Get returns nil, nil on a miss.
type Cache interface {
	GetEdit(ctx context.Context, key string) (*models.EditedImage, error)
	SetEdit(ctx context.Context, key string, img *models.EditedImage) error
	EditKey(req models.EditRequest) string
}

type cachedEditor struct {
	next   Editor
	cache  Cache
	logger *zap.Logger
}

// WithCache serves repeated requests from cache. Cache failures never fail
// an edit.
func WithCache(next Editor, cache Cache, logger *zap.Logger) Editor {
	return &cachedEditor{next: next, cache: cache, logger: logger}
}

func (c *cachedEditor) Edit(ctx context.Context, req models.EditRequest) (*models.EditedImage, error) {
	key := c.cache.EditKey(req)

	cached, err := c.cache.GetEdit(ctx, key)
	if err != nil {
		c.logger.Warn("Failed to read edit cache", zap.String("cache_key", key), zap.Error(err))
	} else if cached != nil {
		c.logger.Debug("Cache hit", zap.String("cache_key", key))
		return cached, nil
	}

	img, err := c.next.Edit(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetEdit(ctx, key, img); err != nil {
		c.logger.Warn("Failed to cache edit", zap.String("cache_key", key), zap.Error(err))
	}
	return img, nil
}
