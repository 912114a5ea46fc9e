// Package fitz rasterizes PDF pages with MuPDF.
package fitz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"sync"

	gofitz "github.com/gen2brain/go-fitz"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

const DefaultDPI = 144.0

type Renderer struct {
	dpi float64
	// MuPDF contexts are not safe to share across documents rendered concurrently.
	mu sync.Mutex
}

func New(dpi float64) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Renderer{dpi: dpi}
}

func (r *Renderer) RenderFirstPage(ctx context.Context, content []byte) (domain.PageImage, error) {
	if err := ctx.Err(); err != nil {
		return domain.PageImage{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := gofitz.NewFromMemory(content)
	if err != nil {
		return domain.PageImage{}, domain.WrapError(domain.ErrUnparseablePDF, "render first page", err)
	}
	defer doc.Close()

	if doc.NumPage() < 1 {
		return domain.PageImage{}, domain.WrapError(domain.ErrUnparseablePDF, "render first page", errors.New("document has no pages"))
	}

	img, err := doc.ImageDPI(0, r.dpi)
	if err != nil {
		return domain.PageImage{}, fmt.Errorf("render first page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return domain.PageImage{}, fmt.Errorf("encode page image: %w", err)
	}

	bounds := img.Bounds()
	return domain.PageImage{
		Data:     buf.Bytes(),
		MimeType: "image/png",
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}
