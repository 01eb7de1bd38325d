// Package editor is the boundary to the remote image-editing model.
//
// Failures are classified so callers can tell a content-policy block from
// an empty response or a transport problem:
//
//	errors.Is(err, editor.ErrBlocked)
//	errors.Is(err, editor.ErrNoOutput)
//	errors.Is(err, editor.ErrTransport)
package editor

import (
	"context"
	"errors"

	"github.com/phambaophuc/product-studio/internal/models"
)

// Editor turns an image plus a natural-language instruction into an
// edited PNG.
type Editor interface {
	Edit(ctx context.Context, req models.EditRequest) (*models.EditedImage, error)
}

type EditorFunc func(ctx context.Context, req models.EditRequest) (*models.EditedImage, error)

func (f EditorFunc) Edit(ctx context.Context, req models.EditRequest) (*models.EditedImage, error) {
	return f(ctx, req)
}

var (
	ErrBlocked   = errors.New("blocked by content policy")
	ErrNoOutput  = errors.New("no output produced")
	ErrTransport = errors.New("transport failure")
)

const (
	blockedMessage   = "Image generation was blocked due to safety policies. Please try a different prompt."
	noOutputMessage  = "No image data was returned from the API. The prompt may have been too complex or unclear."
	transportMessage = "Failed to communicate with the AI model. Please check your connection and API key."
)

// EditError is a classified edit failure. Kind is one of ErrBlocked,
// ErrNoOutput or ErrTransport.
type EditError struct {
	Kind    error
	Message string
	Err     error
}

func (e *EditError) Error() string {
	return e.Message
}

func (e *EditError) Is(target error) bool {
	return target == e.Kind
}

func (e *EditError) Unwrap() error {
	return e.Err
}

func Blocked(err error) error {
	return &EditError{Kind: ErrBlocked, Message: blockedMessage, Err: err}
}

func NoOutput(err error) error {
	return &EditError{Kind: ErrNoOutput, Message: noOutputMessage, Err: err}
}

func Transport(err error) error {
	return &EditError{Kind: ErrTransport, Message: transportMessage, Err: err}
}

// Retryable reports whether another attempt could succeed. Only transport
// failures qualify.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransport)
}
