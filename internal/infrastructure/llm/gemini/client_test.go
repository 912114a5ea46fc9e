package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

type generatorFake struct {
	reply string
	err   error
	image genai.Blob
	calls int
}

func (f *generatorFake) generate(_ context.Context, _ string, image genai.Blob) (string, error) {
	f.calls++
	f.image = image
	return f.reply, f.err
}

func TestDetectHandwritingParsesVerdict(t *testing.T) {
	gen := &generatorFake{reply: `{"verdict":"YES","rationale":"ink strokes"}`}
	detector := newDetector(gen, nil)

	signal, err := detector.DetectHandwriting(context.Background(), domain.PageImage{Data: []byte("png"), MimeType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, domain.VerdictPositive, signal.Verdict)
	require.Equal(t, "image/png", gen.image.MIMEType)
	require.Equal(t, 1, gen.calls)
}

func TestDetectHandwritingWrapsProviderErrors(t *testing.T) {
	gen := &generatorFake{err: errors.New("quota exhausted")}
	detector := newDetector(gen, nil)

	_, err := detector.DetectHandwriting(context.Background(), domain.PageImage{Data: []byte("png")})
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.ErrServiceUnavailable))
	require.Equal(t, 1, gen.calls)
}

func TestExtractTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"verdict":`), genai.Text(`"NO"}`)}},
	}}}
	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	require.Equal(t, `{"verdict":"NO"}`, text)

	_, err = extractTextFromResponse(&genai.GenerateContentResponse{})
	require.Error(t, err)
}

func TestNewHandwritingDetectorRequiresKey(t *testing.T) {
	_, err := NewHandwritingDetector(context.Background(), "", "", nil)
	require.Error(t, err)
}
