package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/blake3"
)

// cachedEdit is the CBOR form of a cached edit result.
type cachedEdit struct {
	Data     []byte `cbor:"1,keyasint"`
	MIMEType string `cbor:"2,keyasint"`
}

func (s *StorageService) GetFromCache(ctx context.Context, cacheKey string) ([]byte, error) {
	data, err := s.redisClient.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return data, nil
}

func (s *StorageService) SetCache(ctx context.Context, cacheKey string, data []byte) error {
	return s.redisClient.Set(ctx, cacheKey, data, s.cacheDuration).Err()
}

// GetEdit returns a cached edit result, or nil on a miss.
func (s *StorageService) GetEdit(ctx context.Context, key string) (*models.EditedImage, error) {
	data, err := s.GetFromCache(ctx, key)
	if err != nil || data == nil {
		return nil, err
	}
	return decodeEdit(data)
}

func (s *StorageService) SetEdit(ctx context.Context, key string, img *models.EditedImage) error {
	data, err := encodeEdit(img)
	if err != nil {
		return err
	}
	return s.SetCache(ctx, key, data)
}

// EditKey derives the cache key of an edit request from its image bytes,
// media type and instruction.
func (s *StorageService) EditKey(req models.EditRequest) string {
	return GenerateCacheKey(req)
}

func GenerateCacheKey(req models.EditRequest) string {
	hash := blake3.New()

	// Length-prefix each field so boundaries cannot shift between them.
	for _, field := range [][]byte{req.Data, []byte(req.MIMEType), []byte(req.Instruction)} {
		fmt.Fprintf(hash, "%d:", len(field))
		hash.Write(field)
	}

	return CacheKeyPrefix + hex.EncodeToString(hash.Sum(nil))
}

func encodeEdit(img *models.EditedImage) ([]byte, error) {
	data, err := cbor.Marshal(cachedEdit{Data: img.Data, MIMEType: img.MIMEType})
	if err != nil {
		return nil, fmt.Errorf("failed to encode cached edit: %w", err)
	}
	return data, nil
}

func decodeEdit(data []byte) (*models.EditedImage, error) {
	var cached cachedEdit
	if err := cbor.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached edit: %w", err)
	}
	if len(cached.Data) == 0 {
		return nil, fmt.Errorf("cached edit is empty")
	}
	return &models.EditedImage{Data: cached.Data, MIMEType: cached.MIMEType}, nil
}

func (s *StorageService) GetCacheStats(ctx context.Context) (map[string]interface{}, error) {
	dbSize, err := s.redisClient.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}

	var cached int64
	iter := s.redisClient.Scan(ctx, 0, CacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		cached++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	stats := map[string]interface{}{
		"db_keys":        dbSize,
		"cached_edits":   cached,
		"cache_duration": s.cacheDuration.String(),
	}

	return stats, nil
}
