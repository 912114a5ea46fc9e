package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/llm/verdict"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
)

const DefaultModel = "gemini-1.5-flash"

// generator is the slice of the Gemini SDK the detector needs.
type generator interface {
	generate(ctx context.Context, prompt string, image genai.Blob) (string, error)
}

// HandwritingDetector asks Gemini whether a rendered page is handwritten.
type HandwritingDetector struct {
	gen      generator
	closer   func() error
	executor *resilience.Executor
}

func NewHandwritingDetector(ctx context.Context, apiKey, model string, executor *resilience.Executor) (*HandwritingDetector, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	gm := client.GenerativeModel(model)
	gm.SetTemperature(0)
	gm.ResponseMIMEType = "application/json"

	d := newDetector(&sdkGenerator{model: gm}, executor)
	d.closer = client.Close
	return d, nil
}

func newDetector(gen generator, executor *resilience.Executor) *HandwritingDetector {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig().SingleAttempt())
	}
	return &HandwritingDetector{gen: gen, executor: executor}
}

func (d *HandwritingDetector) DetectHandwriting(ctx context.Context, page domain.PageImage) (domain.HandwritingSignal, error) {
	if len(page.Data) == 0 {
		return domain.HandwritingSignal{}, domain.WrapError(domain.ErrInvalidInput, "gemini handwriting", errors.New("empty page image"))
	}

	image := genai.ImageData(imageFormat(page.MimeType), page.Data)
	text, err := resilience.Call(ctx, d.executor, "gemini.generate_content", func(callCtx context.Context) (string, error) {
		return d.gen.generate(callCtx, verdict.Prompt, image)
	}, resilience.ClassifyTransportError)
	if err != nil {
		return domain.HandwritingSignal{}, resilience.WrapServiceError("gemini handwriting", err)
	}

	signal, err := verdict.Parse(text)
	if err != nil {
		return domain.HandwritingSignal{}, fmt.Errorf("gemini handwriting: %w", err)
	}
	return signal, nil
}

func (d *HandwritingDetector) Close() error {
	if d.closer != nil {
		return d.closer()
	}
	return nil
}

func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
	if format == "" {
		return "png"
	}
	return format
}

type sdkGenerator struct {
	model *genai.GenerativeModel
}

func (g *sdkGenerator) generate(ctx context.Context, prompt string, image genai.Blob) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt), image)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return extractTextFromResponse(resp)
}

func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in gemini response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", errors.New("empty gemini candidate")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no text in gemini response")
	}
	return sb.String(), nil
}
