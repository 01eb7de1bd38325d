// Package intake validates uploaded files and decodes them into the
// in-memory form the orchestrator works on.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/phambaophuc/product-studio/internal/services/processor"
	"github.com/phambaophuc/product-studio/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrTooManyFiles = errors.New("too many files")
	ErrUnreadable   = errors.New("could not read one or more files")
)

// TooManyFilesError rejects an intake whose candidate count exceeds the
// configured maximum.
type TooManyFilesError struct {
	Count int
	Max   int
}

func (e *TooManyFilesError) Error() string {
	return fmt.Sprintf("You can upload a maximum of %d images at a time.", e.Max)
}

func (e *TooManyFilesError) Is(target error) bool {
	return target == ErrTooManyFiles
}

// File is one candidate upload. ContentType is the declared media type.
type File interface {
	Name() string
	ContentType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

type Options struct {
	MaxFileSize  int64
	AllowedTypes []string
}

type Service struct {
	processor    *processor.ImageProcessor
	maxFileSize  int64
	allowedTypes []string
	logger       *zap.Logger
}

// Result holds the accepted images in input order and the files skipped
// along the way.
type Result struct {
	Images   []models.UploadedImage
	Rejected []models.Rejection
}

// Message returns the most recent rejection message, if any.
func (r *Result) Message() string {
	if len(r.Rejected) == 0 {
		return ""
	}
	return r.Rejected[len(r.Rejected)-1].Message
}

func NewService(p *processor.ImageProcessor, opts Options, logger *zap.Logger) *Service {
	return &Service{
		processor:    p,
		maxFileSize:  opts.MaxFileSize,
		allowedTypes: opts.AllowedTypes,
		logger:       logger,
	}
}

// Process validates files and decodes the accepted ones concurrently. More
// than maxFiles candidates rejects the whole intake. A single decode
// failure fails the intake and no images are returned.
func (s *Service) Process(ctx context.Context, files []File, maxFiles int) (*Result, error) {
	if len(files) > maxFiles {
		return nil, &TooManyFilesError{Count: len(files), Max: maxFiles}
	}

	result := &Result{}
	var accepted []File
	for _, f := range files {
		if msg := s.validate(f); msg != "" {
			result.Rejected = append(result.Rejected, models.Rejection{Name: f.Name(), Message: msg})
			s.logger.Info("Upload rejected", zap.String("file", f.Name()), zap.String("reason", msg))
			continue
		}
		accepted = append(accepted, f)
	}

	images := make([]models.UploadedImage, len(accepted))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range accepted {
		g.Go(func() error {
			img, err := s.decode(gctx, f)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name(), err)
			}
			images[i] = *img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("Intake decode failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	result.Images = images
	return result, nil
}

func (s *Service) validate(f File) string {
	if !utils.IsValidImageType(f.ContentType(), s.allowedTypes) {
		return fmt.Sprintf("File type not supported: %s. Please upload %s.", f.Name(), utils.FormatLabels(s.allowedTypes))
	}
	if f.Size() > s.maxFileSize {
		return fmt.Sprintf("File too large: %s. Maximum size is %dMB.", f.Name(), s.maxFileSize/(1024*1024))
	}
	return ""
}

func (s *Service) decode(ctx context.Context, f File) (*models.UploadedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("file exceeds %d bytes", s.maxFileSize)
	}

	preview, err := s.processor.Preview(data)
	if err != nil {
		return nil, err
	}

	mimeType := utils.NormalizeContentType(f.ContentType())
	return &models.UploadedImage{
		Name:      f.Name(),
		MIMEType:  mimeType,
		Size:      int64(len(data)),
		Width:     preview.Width,
		Height:    preview.Height,
		DataURL:   utils.EncodeDataURL(mimeType, data),
		Thumbnail: preview.Thumbnail,
	}, nil
}
