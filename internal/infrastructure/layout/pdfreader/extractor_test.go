package pdfreader

import (
	"context"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/forms"
	"github.com/kirillkom/document-classifier/internal/infrastructure/layout/pdftest"
)

func TestExtractBuildsWordRunsWithTopLeftBoxes(t *testing.T) {
	content := pdftest.Build(pdftest.Page{
		{Font: "HelveticaNeueLTStd-Roman", Size: 6, X: 36, Y: 748, S: "Form"},
		{Font: "HelveticaNeueLTStd-Bd", Size: 9, X: 52, Y: 748, S: "1040"},
		{Font: "HelveticaNeueLTStd-Bd", Size: 11, X: 90, Y: 748, S: "U.S. Individual"},
	})

	runs, err := New(0).Extract(context.Background(), content)
	require.NoError(t, err)

	texts := make([]string, 0, len(runs))
	for _, r := range runs {
		texts = append(texts, r.Text)
	}
	require.Equal(t, []string{"Form", "1040", "U.S.", "Individual"}, texts)

	form := runs[0]
	require.Equal(t, "HelveticaNeueLTStd-Roman", form.FontName)
	require.InDelta(t, 6, form.FontSize, 0.001)
	require.Equal(t, 0, form.Page)
	require.InDelta(t, 36, form.Box.X, 0.001)
	require.InDelta(t, 792-748-0.8*6, form.Box.Y, 0.001)
	require.InDelta(t, 4*0.5*6, form.Box.Width, 0.001)
}

func TestExtractFeedsFormMatcher(t *testing.T) {
	content := pdftest.Build(
		pdftest.Page{
			{Font: "HelveticaNeueLTStd-Roman", Size: 6, X: 36, Y: 748, S: "Form"},
			{Font: "HelveticaNeueLTStd-Bd", Size: 9, X: 52, Y: 748, S: "1040"},
			{Font: "OCRAStd", Size: 14, X: 300, Y: 750, S: "2022"},
		},
		pdftest.Page{
			{Font: "Helvetica", Size: 8, X: 36, Y: 700, S: "Schedule 1 2023"},
		},
	)

	runs, err := New(0).Extract(context.Background(), content)
	require.NoError(t, err)
	require.Equal(t, 1, runs[len(runs)-1].Page)

	match, ok := forms.NewMatcher(forms.YearRange{}).Match(runs)
	require.True(t, ok)
	require.Equal(t, domain.TypeForm1040, match.Type)
	require.Equal(t, 2022, *match.Year)
}

func TestExtractHonorsPageLimit(t *testing.T) {
	content := pdftest.Build(
		pdftest.Page{{Font: "Helvetica", Size: 10, X: 10, Y: 10, S: "one"}},
		pdftest.Page{{Font: "Helvetica", Size: 10, X: 10, Y: 10, S: "two"}},
	)

	runs, err := New(1).Extract(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "one", runs[0].Text)
}

func TestExtractScannedPageHasNoRuns(t *testing.T) {
	runs, err := New(0).Extract(context.Background(), pdftest.Build(pdftest.Page{}))
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestExtractSkipsPageWithBrokenContentStream(t *testing.T) {
	content := pdftest.Build(
		pdftest.Page{{Font: "Helvetica", Size: 10, X: 10, Y: 10, S: "kept"}},
		pdftest.Page{{Raw: "1 2 3 4 5 re f"}},
	)

	runs, err := New(0).Extract(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "kept", runs[0].Text)
	require.Equal(t, 0, runs[0].Page)
}

func TestExtractSingleBrokenPageYieldsNoRuns(t *testing.T) {
	content := pdftest.Build(pdftest.Page{{Raw: "1 2 3 4 5 re f"}})

	runs, err := New(0).Extract(context.Background(), content)
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestExtractRejectsMalformedInput(t *testing.T) {
	cases := map[string][]byte{
		"not a pdf": []byte("hello, this is a plain text file pretending to be a pdf"),
		"truncated": pdftest.Build(pdftest.Page{{Font: "Helvetica", Size: 10, X: 1, Y: 1, S: "x"}})[:120],
		"empty":     {},
		"no pages":  pdftest.Build(),
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(0).Extract(context.Background(), content)
			require.Error(t, err)
			require.True(t, domain.IsKind(err, domain.ErrUnparseablePDF), "got %v", err)
		})
	}
}

func TestGroupRunsSplitsOnFontAndGap(t *testing.T) {
	glyphs := []pdf.Text{
		{Font: "A", FontSize: 10, X: 0, Y: 100, W: 5, S: "a"},
		{Font: "A", FontSize: 10, X: 5, Y: 100, W: 5, S: "b"},
		{Font: "B", FontSize: 10, X: 10, Y: 100, W: 5, S: "c"},
		{Font: "B", FontSize: 10, X: 40, Y: 100, W: 5, S: "d"},
		{Font: "B", FontSize: 10, X: 45, Y: 80, W: 5, S: "e"},
	}

	runs := groupRuns(glyphs, 0, 200)
	texts := make([]string, 0, len(runs))
	for _, r := range runs {
		texts = append(texts, r.Text)
	}
	require.Equal(t, []string{"ab", "c", "d", "e"}, texts)
}
