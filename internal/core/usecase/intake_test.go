package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

type classifierFake struct {
	result *domain.ClassificationResult
	err    error
	docs   []domain.Document
}

func (f *classifierFake) Classify(_ context.Context, doc domain.Document) (*domain.ClassificationResult, error) {
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return nil, f.err
	}
	copyResult := *f.result
	copyResult.Filename = doc.Filename
	return &copyResult, nil
}

type limiterFake struct {
	allow bool
	keys  []string
}

func (f *limiterFake) Allow(key string) (bool, time.Duration) {
	f.keys = append(f.keys, key)
	if f.allow {
		return true, 0
	}
	return false, 2 * time.Hour
}

type publisherFake struct {
	events []domain.ClassificationEvent
	err    error
}

func (f *publisherFake) PublishClassified(_ context.Context, event domain.ClassificationEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type notifierFake struct {
	events []domain.ClassificationEvent
	err    error
}

func (f *notifierFake) NotifyClassified(_ context.Context, event domain.ClassificationEvent) error {
	f.events = append(f.events, event)
	return f.err
}

func yearPtr(year int) *int { return &year }

func TestClassifyUploadPublishesAndNotifies(t *testing.T) {
	classifier := &classifierFake{result: &domain.ClassificationResult{
		DocumentType:   domain.TypeForm1040,
		Year:           yearPtr(2022),
		SourceStrategy: domain.StrategyRules,
	}}
	limiter := &limiterFake{allow: true}
	publisher := &publisherFake{}
	notifier := &notifierFake{}
	uc := NewIntakeUseCase(classifier, limiter, publisher, notifier)

	result, err := uc.ClassifyUpload(context.Background(), "../tax docs/f1040 2022.pdf", bytes.NewBufferString("%PDF-1.7"))
	if err != nil {
		t.Fatalf("ClassifyUpload() error = %v", err)
	}
	if result.DocumentType != domain.TypeForm1040 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if classifier.docs[0].Filename != "f1040_2022.pdf" {
		t.Fatalf("expected sanitized filename, got %q", classifier.docs[0].Filename)
	}
	if len(limiter.keys) != 1 || len(limiter.keys[0]) != 64 {
		t.Fatalf("expected sha256 limiter key, got %v", limiter.keys)
	}
	if len(publisher.events) != 1 || len(notifier.events) != 1 {
		t.Fatalf("expected one event per sink, got publish=%d notify=%d", len(publisher.events), len(notifier.events))
	}
	event := publisher.events[0]
	if event.ID == "" || event.Status != domain.StatusClassified || event.DocumentType != domain.TypeForm1040 {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Year == nil || *event.Year != 2022 {
		t.Fatalf("expected event year 2022, got %v", event.Year)
	}
	if result.EventID != event.ID {
		t.Fatalf("result should reference event %q, got %q", event.ID, result.EventID)
	}
}

func TestClassifyUploadRateLimitedSkipsClassification(t *testing.T) {
	classifier := &classifierFake{result: &domain.ClassificationResult{}}
	uc := NewIntakeUseCase(classifier, &limiterFake{allow: false}, nil, nil)

	_, err := uc.ClassifyUpload(context.Background(), "a.pdf", strings.NewReader("%PDF"))
	if !domain.IsKind(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	var rlErr *domain.RateLimitError
	if !errors.As(err, &rlErr) || rlErr.RetryAfter != 2*time.Hour {
		t.Fatalf("expected retry-after in error, got %v", err)
	}
	if len(classifier.docs) != 0 {
		t.Fatalf("classifier must not run when rate limited")
	}
}

func TestClassifyUploadFailureStillEmitsEvent(t *testing.T) {
	classifier := &classifierFake{err: &domain.ClassificationError{Filename: "bad.pdf", Detail: "could not read PDF"}}
	publisher := &publisherFake{err: errors.New("nats down")}
	notifier := &notifierFake{}
	uc := NewIntakeUseCase(classifier, nil, publisher, notifier)

	_, err := uc.ClassifyUpload(context.Background(), "bad.pdf", strings.NewReader("garbage"))
	var clsErr *domain.ClassificationError
	if !errors.As(err, &clsErr) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("notifier must run even if publishing fails")
	}
	if notifier.events[0].Status != domain.StatusFailed || notifier.events[0].Detail != "could not read PDF" {
		t.Fatalf("unexpected failure event: %+v", notifier.events[0])
	}
}

func TestClassifyUploadCanceledEmitsNothing(t *testing.T) {
	classifier := &classifierFake{err: fmt.Errorf("classify a.pdf: %w", context.Canceled)}
	publisher := &publisherFake{}
	notifier := &notifierFake{}
	uc := NewIntakeUseCase(classifier, nil, publisher, notifier)

	_, err := uc.ClassifyUpload(context.Background(), "a.pdf", strings.NewReader("%PDF"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(publisher.events) != 0 || len(notifier.events) != 0 {
		t.Fatalf("canceled classification must not emit, got publish=%d notify=%d", len(publisher.events), len(notifier.events))
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report 1.pdf":          "report_1.pdf",
		`C:\scans\note#1.pdf`:   "note_1.pdf",
		"../../etc/passwd":      "passwd",
		"":                      "document.pdf",
		"W2_XL_input_clean.pdf": "W2_XL_input_clean.pdf",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
