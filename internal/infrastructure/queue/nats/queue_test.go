package nats

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

func TestClassifyPublishErrorRetriesConnectionFailures(t *testing.T) {
	for _, err := range []error{nats.ErrNoServers, nats.ErrTimeout, nats.ErrDisconnected, nats.ErrConnectionReconnecting} {
		class := classifyPublishError(fmt.Errorf("nats publish: %w", err))
		if !class.Retryable || !class.RecordFailure {
			t.Fatalf("classifyPublishError(%v) = %+v, want retryable failure", err, class)
		}
	}

	if class := classifyPublishError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("canceled context must not be retried: %+v", class)
	}
	if class := classifyPublishError(nats.ErrMaxPayload); class.Retryable || !class.RecordFailure {
		t.Fatalf("oversized event must fail without retry: %+v", class)
	}
}

func TestPublishFailureNamesEvent(t *testing.T) {
	event := domain.ClassificationEvent{ID: "evt-7"}

	err := publishFailure(event, nats.ErrNoServers)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if !strings.Contains(err.Error(), "evt-7") {
		t.Fatalf("expected event id in error, got %v", err)
	}

	plain := nats.ErrBadSubject
	got := publishFailure(event, plain)
	if domain.IsKind(got, domain.ErrTemporary) || !errors.Is(got, plain) {
		t.Fatalf("non retryable error must stay permanent and wrapped, got %v", got)
	}
}

func TestDispatchDecodesEvent(t *testing.T) {
	q := &Queue{logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}
	payload := []byte(`{"id":"evt-1","filename":"a.pdf","status":"classified","document_type":"1040","year":2021,"occurred_at":"2026-01-02T03:04:05Z"}`)

	var got domain.ClassificationEvent
	q.dispatch(context.Background(), payload, func(_ context.Context, event domain.ClassificationEvent) error {
		got = event
		return nil
	})

	if got.ID != "evt-1" || got.DocumentType != domain.TypeForm1040 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Year == nil || *got.Year != 2021 {
		t.Fatalf("year = %v, want 2021", got.Year)
	}
	if !got.OccurredAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("occurred_at = %v", got.OccurredAt)
	}
}

func TestDispatchLogsMalformedPayload(t *testing.T) {
	var logs bytes.Buffer
	q := &Queue{logger: slog.New(slog.NewTextHandler(&logs, nil))}

	called := false
	q.dispatch(context.Background(), []byte("doc-123"), func(context.Context, domain.ClassificationEvent) error {
		called = true
		return nil
	})

	if called {
		t.Fatalf("handler must not run for malformed payload")
	}
	if !strings.Contains(logs.String(), "classification_event_decode_failed") {
		t.Fatalf("expected decode failure log, got %q", logs.String())
	}
}
