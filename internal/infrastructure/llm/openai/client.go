package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/llm/verdict"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// HandwritingDetector sends the rendered page to a chat/completions vision model.
type HandwritingDetector struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewHandwritingDetector(cfg Config, executor *resilience.Executor) *HandwritingDetector {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 60
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig().SingleAttempt())
	}
	return &HandwritingDetector{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
	}
}

func (d *HandwritingDetector) DetectHandwriting(ctx context.Context, page domain.PageImage) (domain.HandwritingSignal, error) {
	if len(page.Data) == 0 {
		return domain.HandwritingSignal{}, domain.WrapError(domain.ErrInvalidInput, "openai handwriting", errors.New("empty page image"))
	}
	mimeType := page.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(page.Data)

	body := map[string]any{
		"model":           d.cfg.Model,
		"temperature":     0,
		"max_tokens":      d.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": verdict.Prompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
	}

	start := time.Now()
	content, err := resilience.Call(ctx, d.executor, "openai.chat_completions", func(callCtx context.Context) (string, error) {
		return d.complete(callCtx, body)
	}, resilience.ClassifyTransportError)
	if err != nil {
		return domain.HandwritingSignal{}, resilience.WrapServiceError("openai handwriting", err)
	}

	signal, err := verdict.Parse(content)
	if err != nil {
		return domain.HandwritingSignal{}, fmt.Errorf("openai handwriting: %w", err)
	}
	slog.Debug("openai_handwriting_verdict",
		"model", d.cfg.Model,
		"verdict", signal.Verdict,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return signal, nil
}

func (d *HandwritingDetector) complete(ctx context.Context, body map[string]any) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	endpoint := strings.TrimRight(d.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", resilience.NewStatusError("openai", "chat completions", resp)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices in openai response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}
