// Package discord posts classification outcomes to a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
)

const (
	colorSuccess = 0x00ff00
	colorFailure = 0xff0000

	defaultTimeout = 10 * time.Second
)

type Notifier struct {
	webhookURL string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(webhookURL string, executor *resilience.Executor) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		executor:   executor,
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

func (n *Notifier) NotifyClassified(ctx context.Context, event domain.ClassificationEvent) error {
	body, err := json.Marshal(webhookPayload{Embeds: []embed{buildEmbed(event)}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	call := func(ctx context.Context) error {
		return n.post(ctx, body)
	}
	if n.executor != nil {
		err = n.executor.Execute(ctx, "discord.webhook", call, resilience.ClassifyTransportError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return resilience.WrapServiceError("discord webhook", err)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send discord request: %w", err)
	}
	defer resp.Body.Close()

	// Discord answers 204 unless ?wait=true is set.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return resilience.NewStatusError("discord", "webhook", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func buildEmbed(event domain.ClassificationEvent) embed {
	size := strconv.FormatFloat(float64(event.FileSizeBytes)/(1024*1024), 'f', 2, 64) + " MB"
	e := embed{
		Fields: []embedField{
			{Name: "File", Value: valueOrDash(event.Filename), Inline: true},
			{Name: "Size", Value: size, Inline: true},
		},
	}
	if !event.OccurredAt.IsZero() {
		e.Timestamp = event.OccurredAt.UTC().Format(time.RFC3339)
	}

	if event.Status == domain.StatusFailed {
		e.Title = "Classification failed"
		e.Color = colorFailure
		e.Description = valueOrDash(event.Detail)
		return e
	}

	year := "-"
	if event.Year != nil {
		year = strconv.Itoa(*event.Year)
	}
	e.Title = "Document classified"
	e.Color = colorSuccess
	e.Fields = append(e.Fields,
		embedField{Name: "Type", Value: valueOrDash(string(event.DocumentType)), Inline: true},
		embedField{Name: "Year", Value: year, Inline: true},
		embedField{Name: "Strategy", Value: valueOrDash(string(event.SourceStrategy)), Inline: true},
	)
	return e
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
