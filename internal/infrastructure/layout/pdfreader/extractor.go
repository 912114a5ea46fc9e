// Package pdfreader extracts positioned text runs from PDF bytes.
package pdfreader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

const (
	defaultPageHeight = 792.0
	ascentRatio       = 0.8
)

// Extractor groups glyphs into word-level runs that share font, size and baseline.
type Extractor struct {
	maxPages int
}

// New returns an extractor reading at most maxPages pages; zero reads all of them.
func New(maxPages int) *Extractor {
	return &Extractor{maxPages: maxPages}
}

func (e *Extractor) Extract(ctx context.Context, content []byte) (runs []domain.TextRun, err error) {
	defer func() {
		// the pdf package panics on malformed objects
		if r := recover(); r != nil {
			runs = nil
			err = domain.WrapError(domain.ErrUnparseablePDF, "read pdf", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnparseablePDF, "open pdf", err)
	}

	pages := reader.NumPage()
	if pages <= 0 {
		return nil, domain.WrapError(domain.ErrUnparseablePDF, "open pdf", errors.New("document has no pages"))
	}
	if e.maxPages > 0 && pages > e.maxPages {
		pages = e.maxPages
	}

	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageRuns, err := readPage(reader, i)
		if err != nil {
			slog.Warn("pdf_page_skipped", "page", i, "error", err.Error())
			continue
		}
		runs = append(runs, pageRuns...)
	}
	return runs, nil
}

// readPage isolates content stream panics so one bad page does not sink the document.
func readPage(reader *pdf.Reader, num int) (runs []domain.TextRun, err error) {
	defer func() {
		if r := recover(); r != nil {
			runs = nil
			err = fmt.Errorf("read page %d: %v", num, r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return nil, nil
	}
	return groupRuns(page.Content().Text, num-1, pageHeight(page.V)), nil
}

// pageHeight reads the MediaBox, which may be inherited from the page tree.
func pageHeight(v pdf.Value) float64 {
	for node := v; !node.IsNull(); node = node.Key("Parent") {
		box := node.Key("MediaBox")
		if box.Len() == 4 {
			if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
				return h
			}
		}
	}
	return defaultPageHeight
}

type runBuilder struct {
	text     strings.Builder
	font     string
	size     float64
	x        float64
	baseline float64
	right    float64
}

func (b *runBuilder) empty() bool {
	return b.text.Len() == 0
}

func (b *runBuilder) accepts(g pdf.Text) bool {
	if b.empty() {
		return true
	}
	if g.Font != b.font || math.Abs(g.FontSize-b.size) > 0.01 {
		return false
	}
	if math.Abs(g.Y-b.baseline) > 0.5 {
		return false
	}
	gap := g.X - b.right
	return gap >= -0.5 && gap <= 0.25*b.size
}

func (b *runBuilder) add(g pdf.Text) {
	if b.empty() {
		b.font = g.Font
		b.size = g.FontSize
		b.x = g.X
		b.baseline = g.Y
	}
	b.text.WriteString(g.S)
	b.right = g.X + g.W
}

func (b *runBuilder) flush(page int, height float64) (domain.TextRun, bool) {
	if b.empty() {
		return domain.TextRun{}, false
	}
	run := domain.TextRun{
		Text:     b.text.String(),
		FontName: b.font,
		FontSize: b.size,
		Page:     page,
		Box: domain.BBox{
			X:      b.x,
			Y:      height - b.baseline - ascentRatio*b.size,
			Width:  math.Max(b.right-b.x, 0),
			Height: b.size,
		},
	}
	*b = runBuilder{}
	return run, true
}

func groupRuns(glyphs []pdf.Text, page int, height float64) []domain.TextRun {
	var (
		out []domain.TextRun
		cur runBuilder
	)
	emit := func() {
		if run, ok := cur.flush(page, height); ok {
			out = append(out, run)
		}
	}

	for _, g := range glyphs {
		if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
			emit()
			continue
		}
		if !cur.accepts(g) {
			emit()
		}
		cur.add(g)
	}
	emit()
	return out
}
