package forms

import (
	"math"
	"slices"
	"strings"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

const defaultFontTolerance = 2.0

// FontSpec matches a run font by name and approximate size.
type FontSpec struct {
	Name       string
	Size       float64
	Tolerance  float64
	NamePrefix bool
}

func (f FontSpec) Matches(fontName string, fontSize float64) bool {
	name := NormalizeFontName(fontName)
	if f.NamePrefix {
		if !strings.HasPrefix(name, f.Name) {
			return false
		}
	} else if name != f.Name {
		return false
	}
	tolerance := f.Tolerance
	if tolerance <= 0 {
		tolerance = defaultFontTolerance
	}
	return math.Abs(fontSize-f.Size) <= tolerance
}

// NormalizeFontName strips the six-letter subset tag embedded fonts carry ("ABCDEF+Helvetica").
func NormalizeFontName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if len(name) > 7 && name[6] == '+' {
		for i := 0; i < 6; i++ {
			if name[i] < 'A' || name[i] > 'Z' {
				return name
			}
		}
		return name[7:]
	}
	return name
}

// RunSpec matches a run whose trimmed text equals one of Texts.
type RunSpec struct {
	Texts []string
	Font  FontSpec
}

func (s RunSpec) Matches(run domain.TextRun) bool {
	return slices.Contains(s.Texts, strings.TrimSpace(run.Text)) && s.Font.Matches(run.FontName, run.FontSize)
}

// TitleSpec describes the "Form <number>" title pair printed on every IRS form.
type TitleSpec struct {
	Label  RunSpec
	Number RunSpec
}

// TitleMatch is a located title pair.
type TitleMatch struct {
	Label  domain.TextRun
	Number domain.TextRun
}

func (m TitleMatch) Page() int {
	return m.Label.Page
}

// Box is the union of label and number boxes.
func (m TitleMatch) Box() domain.BBox {
	x := math.Min(m.Label.Box.X, m.Number.Box.X)
	y := math.Min(m.Label.Box.Y, m.Number.Box.Y)
	right := math.Max(m.Label.Box.Right(), m.Number.Box.Right())
	bottom := math.Max(m.Label.Box.Bottom(), m.Number.Box.Bottom())
	return domain.BBox{X: x, Y: y, Width: right - x, Height: bottom - y}
}

func (t TitleSpec) locate(runs []domain.TextRun) (TitleMatch, bool) {
	for i := range runs {
		label := runs[i]
		if !t.Label.Matches(label) {
			continue
		}
		for j := range runs {
			if i == j {
				continue
			}
			number := runs[j]
			if number.Page != label.Page || !t.Number.Matches(number) {
				continue
			}
			if onSameLine(label, number) && followsWithin(label, number, 3*label.FontSize) {
				return TitleMatch{Label: label, Number: number}, true
			}
		}
	}
	return TitleMatch{}, false
}

func onSameLine(a, b domain.TextRun) bool {
	top := math.Max(a.Box.Y, b.Box.Y)
	bottom := math.Min(a.Box.Bottom(), b.Box.Bottom())
	return bottom > top
}

func followsWithin(label, next domain.TextRun, maxGap float64) bool {
	if next.Box.X < label.Box.X {
		return false
	}
	return next.Box.X-label.Box.Right() <= maxGap
}

// Predicate is one conjunct of a signature; all must hold for a match.
type Predicate struct {
	Name  string
	Holds func(runs []domain.TextRun, title TitleMatch) bool
}

// OnFirstPage requires the title to be printed on page 1.
func OnFirstPage() Predicate {
	return Predicate{
		Name: "title_on_first_page",
		Holds: func(_ []domain.TextRun, title TitleMatch) bool {
			return title.Page() == 0
		},
	}
}

// MentionsText requires some run on any page to contain the fragment.
func MentionsText(fragment string) Predicate {
	return Predicate{
		Name: "mentions_" + strings.ToLower(strings.ReplaceAll(fragment, " ", "_")),
		Holds: func(runs []domain.TextRun, _ TitleMatch) bool {
			for _, run := range runs {
				if strings.Contains(run.Text, fragment) {
					return true
				}
			}
			return false
		},
	}
}

// YearHints tunes year extraction for one form.
type YearHints struct {
	// PreferMinFontSize restricts candidates to large print when any exist.
	PreferMinFontSize float64
	// TwoDigit enables a "24" -> 2024 fallback for runs in this font.
	TwoDigit *FontSpec
}

// Signature is a static structural fingerprint of one tax form.
type Signature struct {
	Type       domain.DocumentType
	Priority   int
	Title      TitleSpec
	Predicates []Predicate
	Year       YearHints
}

const (
	fontRoman     = "HelveticaNeueLTStd-Roman"
	fontBold      = "HelveticaNeueLTStd-Bd"
	fontBlackCond = "HelveticaNeueLTStd-BlkCn"
)

// DefaultSignatures returns the built-in form table in evaluation order.
//
// Order is 1098, 1099, W2, 1040. The 1040 title is matched on any line starting
// with "Form 1040" and is the least specific, so it is evaluated last.
func DefaultSignatures() []Signature {
	return []Signature{
		{
			Type:     domain.TypeForm1098,
			Priority: 10,
			Title: TitleSpec{
				Label:  RunSpec{Texts: []string{"Form"}, Font: FontSpec{Name: fontRoman, Size: 7}},
				Number: RunSpec{Texts: []string{"1098"}, Font: FontSpec{Name: fontBold, Size: 14}},
			},
			Predicates: []Predicate{OnFirstPage()},
			Year: YearHints{
				TwoDigit: &FontSpec{Name: "Helvetica", Size: 6, NamePrefix: true},
			},
		},
		{
			Type:     domain.TypeForm1099,
			Priority: 20,
			Title: TitleSpec{
				Label: RunSpec{Texts: []string{"Form"}, Font: FontSpec{Name: fontRoman, Size: 7}},
				Number: RunSpec{
					Texts: []string{"1099-INT", "1099-DIV", "1099-MISC", "1099-NEC", "1099-B", "1099-R", "1099-G", "1099-K"},
					Font:  FontSpec{Name: fontBold, Size: 12},
				},
			},
			Predicates: []Predicate{OnFirstPage()},
		},
		{
			Type:     domain.TypeFormW2,
			Priority: 30,
			Title: TitleSpec{
				Label:  RunSpec{Texts: []string{"Form"}, Font: FontSpec{Name: fontBold, Size: 7}},
				Number: RunSpec{Texts: []string{"W-2"}, Font: FontSpec{Name: fontBlackCond, Size: 24}},
			},
			Predicates: []Predicate{OnFirstPage()},
			Year:       YearHints{PreferMinFontSize: 15},
		},
		{
			Type:     domain.TypeForm1040,
			Priority: 40,
			Title: TitleSpec{
				Label:  RunSpec{Texts: []string{"Form"}, Font: FontSpec{Name: fontRoman, Size: 6}},
				Number: RunSpec{Texts: []string{"1040"}, Font: FontSpec{Name: fontBold, Size: 9}},
			},
			Predicates: []Predicate{OnFirstPage()},
		},
	}
}
