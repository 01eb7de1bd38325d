// Package bundler packs edited images into a zip archive.
package bundler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/phambaophuc/product-studio/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ArchiveName   = "ProductStudio_AI_Batch.zip"
	OutputFormat  = "png"
	DefaultWorker = 4
)

var (
	ErrNothingToBundle = errors.New("nothing to bundle")
	ErrBundleFailed    = errors.New("could not create ZIP file")
)

type Bundler struct {
	workers int
	logger  *zap.Logger
	now     func() time.Time
}

func NewBundler(workers int, logger *zap.Logger) *Bundler {
	if workers <= 0 {
		workers = DefaultWorker
	}
	return &Bundler{workers: workers, logger: logger, now: time.Now}
}

// entry is one compressed archive member ready to be written raw.
type entry struct {
	header *zip.FileHeader
	body   []byte
}

// Bundle builds an archive with one uniquely named "<stem>_edited.png"
// member per result.
// Members are compressed concurrently and written in result order. Nothing
// is returned unless every member was written.
func (b *Bundler) Bundle(ctx context.Context, results []models.ResultEntry) (*bytes.Buffer, error) {
	if len(results) == 0 {
		return nil, ErrNothingToBundle
	}

	modified := b.now()
	names := memberNames(results)
	entries := make([]entry, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, result := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := compressEntry(names[i], result, modified)
			if err != nil {
				return fmt.Errorf("%s: %w", result.Filename, err)
			}
			entries[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.logger.Error("Error creating ZIP file", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrBundleFailed, err)
	}

	buffer := &bytes.Buffer{}
	zw := zip.NewWriter(buffer)
	for _, e := range entries {
		w, err := zw.CreateRaw(e.header)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBundleFailed, err)
		}
		if _, err := w.Write(e.body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBundleFailed, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBundleFailed, err)
	}

	b.logger.Info("Archive created", zap.Int("entries", len(entries)), zap.Int("bytes", buffer.Len()))
	return buffer, nil
}

// memberNames maps each result to "<stem>_edited.png". Results sharing a
// stem get "_2", "_3", ... suffixes in result order so no member shadows
// another.
func memberNames(results []models.ResultEntry) []string {
	names := make([]string, len(results))
	used := make(map[string]bool, len(results))
	for i, result := range results {
		name := utils.EditedFilename(result.Filename, OutputFormat)
		stem := strings.TrimSuffix(name, "."+OutputFormat)
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d.%s", stem, n, OutputFormat)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func compressEntry(name string, result models.ResultEntry, modified time.Time) (entry, error) {
	data := result.Image.Data
	if len(data) == 0 {
		return entry{}, errors.New("edited image is empty")
	}

	compressed := &bytes.Buffer{}
	fw, err := flate.NewWriter(compressed, flate.DefaultCompression)
	if err != nil {
		return entry{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return entry{}, err
	}
	if err := fw.Close(); err != nil {
		return entry{}, err
	}

	header := &zip.FileHeader{
		Name:               name,
		Method:             zip.Deflate,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(compressed.Len()),
		UncompressedSize64: uint64(len(data)),
		Modified:           modified,
	}
	return entry{header: header, body: compressed.Bytes()}, nil
}
