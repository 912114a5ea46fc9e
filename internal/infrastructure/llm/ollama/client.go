package ollama

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/llm/verdict"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
)

type Client struct {
	baseURL     string
	visionModel string
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL, visionModel string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig().SingleAttempt())
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		visionModel: visionModel,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		executor:    executor,
	}
}

// HandwritingDetector asks a local vision model (llava, llama3.2-vision) whether a page is handwritten.
type HandwritingDetector struct {
	client *Client
}

func NewHandwritingDetector(client *Client) *HandwritingDetector {
	return &HandwritingDetector{client: client}
}

func (d *HandwritingDetector) DetectHandwriting(ctx context.Context, page domain.PageImage) (domain.HandwritingSignal, error) {
	if len(page.Data) == 0 {
		return domain.HandwritingSignal{}, domain.WrapError(domain.ErrInvalidInput, "ollama handwriting", errors.New("empty page image"))
	}

	reqBody := map[string]any{
		"model":  d.client.visionModel,
		"prompt": verdict.Prompt,
		"images": []string{base64.StdEncoding.EncodeToString(page.Data)},
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0,
		},
	}

	raw, err := resilience.Call(ctx, d.client.executor, "ollama.generate", func(callCtx context.Context) (string, error) {
		return d.client.generate(callCtx, reqBody)
	}, resilience.ClassifyTransportError)
	if err != nil {
		return domain.HandwritingSignal{}, resilience.WrapServiceError("ollama handwriting", err)
	}
	return verdict.Parse(raw)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
