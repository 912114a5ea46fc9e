// Package pdftest writes small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

// Text is one string drawn at a baseline position in PDF user space (bottom-left origin).
type Text struct {
	Font string
	Size float64
	X    float64
	Y    float64
	S    string
	// Raw, when set, is written to the content stream verbatim instead of S.
	Raw string
}

// Page is the content of a single US Letter page.
type Page []Text

const glyphWidth = 500

// Build renders the pages into a PDF document. Every glyph is 500/1000 em wide.
func Build(pages ...Page) []byte {
	fonts := fontNames(pages)

	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}

	catalog := add("") // patched once the page tree id is known
	pagesID := add("")

	fontIDs := make(map[string]int, len(fonts))
	var fontRes strings.Builder
	for i, name := range fonts {
		id := add(fontObject(name))
		fontIDs[name] = id
		fmt.Fprintf(&fontRes, "/F%d %d 0 R ", i+1, id)
	}

	var kids []string
	for _, page := range pages {
		stream := contentStream(page, fonts)
		contentID := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
		pageID := add(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << %s>> >> /Contents %d 0 R >>",
			pagesID, fontRes.String(), contentID,
		))
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))
	}

	objects[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID)
	objects[pagesID-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, catalog, xref)
	return buf.Bytes()
}

func fontNames(pages []Page) []string {
	var names []string
	for _, page := range pages {
		for _, t := range page {
			if t.Raw == "" && !slices.Contains(names, t.Font) {
				names = append(names, t.Font)
			}
		}
	}
	if len(names) == 0 {
		names = append(names, "Helvetica")
	}
	return names
}

func fontObject(name string) string {
	widths := strings.TrimSpace(strings.Repeat(fmt.Sprintf("%d ", glyphWidth), 126-32+1))
	return fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /%s /FirstChar 32 /LastChar 126 /Widths [%s] /Encoding /WinAnsiEncoding >>",
		name, widths,
	)
}

func contentStream(page Page, fonts []string) string {
	var sb strings.Builder
	for _, t := range page {
		if t.Raw != "" {
			sb.WriteString(t.Raw + "\n")
			continue
		}
		idx := slices.Index(fonts, t.Font) + 1
		fmt.Fprintf(&sb, "BT /F%d %g Tf 1 0 0 1 %g %g Tm (%s) Tj ET\n", idx, t.Size, t.X, t.Y, escape(t.S))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
