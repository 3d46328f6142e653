// Package renderer turns a content tree into PDF bytes.
package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"invoice-service/internal/content"
)

// ErrInvalidDocument is returned when a renderer produces bytes that are not
// a valid PDF.
var ErrInvalidDocument = errors.New("renderer: invalid document")

// Renderer writes the rendered form of a tree to w. Implementations may write
// in several chunks and must return exactly one terminal error or nil.
type Renderer interface {
	Render(ctx context.Context, tree content.Tree, w io.Writer) error
}

// Collect drives r through a pipe and concatenates the chunks it emits. On any
// error no bytes are returned.
func Collect(ctx context.Context, r Renderer, tree content.Tree) ([]byte, error) {
	pr, pw := io.Pipe()

	go func() {
		err := r.Render(ctx, tree, pw)
		// CloseWithError(nil) closes normally.
		_ = pw.CloseWithError(err)
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, pr); err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrInvalidDocument)
	}
	return buf.Bytes(), nil
}
