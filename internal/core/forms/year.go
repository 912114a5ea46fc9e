package forms

import (
	"cmp"
	"math"
	"slices"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

const (
	DefaultMinYear = 1990
	DefaultMaxYear = 2099
)

// YearRange is the closed interval of plausible issuance years.
type YearRange struct {
	Min int
	Max int
}

func (r YearRange) normalize() YearRange {
	if r.Min <= 0 {
		r.Min = DefaultMinYear
	}
	if r.Max <= 0 {
		r.Max = DefaultMaxYear
	}
	if r.Max < r.Min {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

func (r YearRange) Contains(year int) bool {
	return year >= r.Min && year <= r.Max
}

type yearCandidate struct {
	year     int
	run      domain.TextRun
	distance float64
	samePage bool
}

func (m *Matcher) extractYear(runs []domain.TextRun, sig Signature, title *TitleMatch) *int {
	candidates := m.fourDigitCandidates(runs)
	if sig.Year.PreferMinFontSize > 0 {
		large := slices.DeleteFunc(slices.Clone(candidates), func(c yearCandidate) bool {
			return c.run.FontSize < sig.Year.PreferMinFontSize
		})
		if len(large) > 0 {
			candidates = large
		}
	}
	if len(candidates) == 0 && sig.Year.TwoDigit != nil {
		candidates = m.twoDigitCandidates(runs, *sig.Year.TwoDigit)
	}
	if len(candidates) == 0 {
		return nil
	}

	for i := range candidates {
		c := &candidates[i]
		if title == nil {
			c.samePage = true
			continue
		}
		c.samePage = c.run.Page == title.Page()
		if c.samePage {
			c.distance = c.run.Box.Distance(title.Box())
		} else {
			c.distance = math.Inf(1)
		}
	}

	best := slices.MinFunc(candidates, compareCandidates)
	year := best.year
	return &year
}

func compareCandidates(a, b yearCandidate) int {
	if a.samePage != b.samePage {
		if a.samePage {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.distance, b.distance); c != 0 {
		return c
	}
	if c := cmp.Compare(a.run.Page, b.run.Page); c != 0 {
		return c
	}
	if c := cmp.Compare(a.run.Box.Y, b.run.Box.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.run.Box.X, b.run.Box.X)
}

func (m *Matcher) fourDigitCandidates(runs []domain.TextRun) []yearCandidate {
	var out []yearCandidate
	for _, run := range runs {
		for _, token := range digitTokens(run.Text) {
			if len(token) != 4 {
				continue
			}
			year := atoi(token)
			if m.years.Contains(year) {
				out = append(out, yearCandidate{year: year, run: run})
			}
		}
	}
	return out
}

func (m *Matcher) twoDigitCandidates(runs []domain.TextRun, font FontSpec) []yearCandidate {
	var out []yearCandidate
	for _, run := range runs {
		if !font.Matches(run.FontName, run.FontSize) {
			continue
		}
		for _, token := range digitTokens(run.Text) {
			if len(token) != 2 {
				continue
			}
			year := 2000 + atoi(token)
			if m.years.Contains(year) {
				out = append(out, yearCandidate{year: year, run: run})
			}
		}
	}
	return out
}

// digitTokens returns maximal runs of ASCII digits.
func digitTokens(text string) []string {
	var tokens []string
	start := -1
	for i := 0; i <= len(text); i++ {
		isDigit := i < len(text) && text[i] >= '0' && text[i] <= '9'
		switch {
		case isDigit && start < 0:
			start = i
		case !isDigit && start >= 0:
			tokens = append(tokens, text[start:i])
			start = -1
		}
	}
	return tokens
}

func atoi(digits string) int {
	n := 0
	for i := 0; i < len(digits); i++ {
		n = n*10 + int(digits[i]-'0')
	}
	return n
}
