package forms

import (
	"cmp"
	"slices"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

// Match is the outcome of a successful rule-based classification.
type Match struct {
	Type  domain.DocumentType
	Year  *int
	Title TitleMatch
}

// Matcher evaluates form signatures in a fixed priority order. It is immutable
// after construction and safe for concurrent use.
type Matcher struct {
	signatures []Signature
	years      YearRange
}

func NewMatcher(years YearRange, signatures ...Signature) *Matcher {
	if len(signatures) == 0 {
		signatures = DefaultSignatures()
	}
	ordered := slices.Clone(signatures)
	slices.SortStableFunc(ordered, func(a, b Signature) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	return &Matcher{
		signatures: ordered,
		years:      years.normalize(),
	}
}

// Order returns signature types in evaluation order.
func (m *Matcher) Order() []domain.DocumentType {
	out := make([]domain.DocumentType, 0, len(m.signatures))
	for _, sig := range m.signatures {
		out = append(out, sig.Type)
	}
	return out
}

// Match returns the first signature whose predicates all hold. An empty run
// set never matches.
func (m *Matcher) Match(runs []domain.TextRun) (Match, bool) {
	if len(runs) == 0 {
		return Match{}, false
	}
	for _, sig := range m.signatures {
		title, ok := sig.Title.locate(runs)
		if !ok || !allHold(sig.Predicates, runs, title) {
			continue
		}
		return Match{
			Type:  sig.Type,
			Year:  m.extractYear(runs, sig, &title),
			Title: title,
		}, true
	}
	return Match{}, false
}

// ExtractYear finds the issuance year for a form type already identified.
// The title is relocated to anchor the search; without it candidates rank by position only.
func (m *Matcher) ExtractYear(runs []domain.TextRun, formType domain.DocumentType) *int {
	sig, ok := m.signature(formType)
	if !ok {
		return m.extractYear(runs, Signature{Type: formType}, nil)
	}
	if title, found := sig.Title.locate(runs); found {
		return m.extractYear(runs, sig, &title)
	}
	return m.extractYear(runs, sig, nil)
}

func (m *Matcher) signature(formType domain.DocumentType) (Signature, bool) {
	for _, sig := range m.signatures {
		if sig.Type == formType {
			return sig, true
		}
	}
	return Signature{}, false
}

func allHold(predicates []Predicate, runs []domain.TextRun, title TitleMatch) bool {
	for _, p := range predicates {
		if p.Holds != nil && !p.Holds(runs, title) {
			return false
		}
	}
	return true
}
