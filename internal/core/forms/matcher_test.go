package forms

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/forms/formstest"
)

func newDefaultMatcher() *Matcher {
	return NewMatcher(YearRange{Min: 1990, Max: 2099})
}

func TestMatcherClassifiesKnownForms(t *testing.T) {
	cases := []struct {
		name     string
		runs     []domain.TextRun
		wantType domain.DocumentType
		wantYear int
	}{
		{name: "1040", runs: formstest.Form1040(2022), wantType: domain.TypeForm1040, wantYear: 2022},
		{name: "w2", runs: formstest.FormW2(2024), wantType: domain.TypeFormW2, wantYear: 2024},
		{name: "1099 int", runs: formstest.Form1099("INT", 2031), wantType: domain.TypeForm1099, wantYear: 2031},
		{name: "1099 div", runs: formstest.Form1099("DIV", 2023), wantType: domain.TypeForm1099, wantYear: 2023},
		{name: "1098", runs: formstest.Form1098("24"), wantType: domain.TypeForm1098, wantYear: 2024},
	}

	matcher := newDefaultMatcher()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			match, ok := matcher.Match(tc.runs)
			require.True(t, ok)
			require.Equal(t, tc.wantType, match.Type)
			require.NotNil(t, match.Year)
			require.Equal(t, tc.wantYear, *match.Year)
		})
	}
}

func TestMatcherEmptyRunsNeverMatch(t *testing.T) {
	_, ok := newDefaultMatcher().Match(nil)
	require.False(t, ok)

	_, ok = newDefaultMatcher().Match([]domain.TextRun{})
	require.False(t, ok)
}

func TestMatcherRejectsTypedLookalikes(t *testing.T) {
	_, ok := newDefaultMatcher().Match(formstest.Resume())
	require.False(t, ok)
}

func TestMatcherFirstSignatureInOrderWins(t *testing.T) {
	runs := append(formstest.Form1040(2022), formstest.Form1098("23")...)

	match, ok := newDefaultMatcher().Match(runs)
	require.True(t, ok)
	require.Equal(t, domain.TypeForm1098, match.Type)
}

func TestMatcherRequiresTitleOnFirstPage(t *testing.T) {
	runs := formstest.Form1040(2022)
	for i := range runs {
		runs[i].Page = 1
	}

	_, ok := newDefaultMatcher().Match(runs)
	require.False(t, ok)
}

func TestMatcherRequiresTitleOnOneLine(t *testing.T) {
	runs := formstest.Form1040(2022)
	runs[1].Box.Y += 40

	_, ok := newDefaultMatcher().Match(runs)
	require.False(t, ok)
}

func TestMatcherOrderIsTotal(t *testing.T) {
	require.Equal(t, []domain.DocumentType{
		domain.TypeForm1098,
		domain.TypeForm1099,
		domain.TypeFormW2,
		domain.TypeForm1040,
	}, newDefaultMatcher().Order())
}

func TestMatcherCustomPredicatesAreConjunctive(t *testing.T) {
	sig := DefaultSignatures()[3]
	sig.Predicates = append(sig.Predicates, MentionsText("Schedule Z"))
	matcher := NewMatcher(YearRange{}, sig)

	_, ok := matcher.Match(formstest.Form1040(2022))
	require.False(t, ok)

	runs := append(formstest.Form1040(2022), domain.TextRun{Text: "Attach Schedule Z", Page: 0})
	match, ok := matcher.Match(runs)
	require.True(t, ok)
	require.Equal(t, domain.TypeForm1040, match.Type)
}

func TestMatcherDoesNotMutateSignatureTable(t *testing.T) {
	sigs := DefaultSignatures()
	sigs[0], sigs[3] = sigs[3], sigs[0]
	matcher := NewMatcher(YearRange{}, sigs...)

	require.Equal(t, domain.TypeForm1040, sigs[0].Type)
	require.Equal(t, domain.TypeForm1098, matcher.Order()[0])
}

func TestNormalizeFontName(t *testing.T) {
	require.Equal(t, "HelveticaNeueLTStd-Bd", NormalizeFontName("QWERTY+HelveticaNeueLTStd-Bd"))
	require.Equal(t, "HelveticaNeueLTStd-Bd", NormalizeFontName("/HelveticaNeueLTStd-Bd"))
	require.Equal(t, "abcdef+Helvetica", NormalizeFontName("abcdef+Helvetica"))
	require.Equal(t, "Helvetica", NormalizeFontName("Helvetica"))
}
