package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
)

// IntakeUseCase accepts uploads, classifies them and emits classification
// events. Publishing and notification are best effort.
type IntakeUseCase struct {
	classifier ports.DocumentClassifier
	limiter    ports.UploadLimiter
	publisher  ports.EventPublisher
	notifier   ports.Notifier
	now        func() time.Time
}

// NewIntakeUseCase accepts nil limiter, publisher and notifier.
func NewIntakeUseCase(
	classifier ports.DocumentClassifier,
	limiter ports.UploadLimiter,
	publisher ports.EventPublisher,
	notifier ports.Notifier,
) *IntakeUseCase {
	return &IntakeUseCase{
		classifier: classifier,
		limiter:    limiter,
		publisher:  publisher,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (uc *IntakeUseCase) ClassifyUpload(ctx context.Context, filename string, body io.Reader) (*domain.ClassificationResult, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return nil, &domain.ClassificationError{
			Filename: sanitizeFilename(filename),
			Detail:   "could not read upload",
			Err:      domain.WrapError(domain.ErrInvalidInput, "read upload", err),
		}
	}
	return uc.Classify(ctx, domain.Document{Filename: filename, Content: content})
}

// Classify applies the per-content upload limit, classifies and emits the event.
func (uc *IntakeUseCase) Classify(ctx context.Context, doc domain.Document) (*domain.ClassificationResult, error) {
	doc.Filename = sanitizeFilename(doc.Filename)
	digest := contentDigest(doc.Content)

	if uc.limiter != nil {
		if ok, retryAfter := uc.limiter.Allow(digest); !ok {
			return nil, &domain.RateLimitError{Scope: "file", RetryAfter: retryAfter}
		}
	}

	result, err := uc.classifier.Classify(ctx, doc)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	event := uc.buildEvent(doc, digest, result, err)
	uc.emit(ctx, event)

	if err != nil {
		return nil, err
	}
	out := *result
	out.EventID = event.ID
	return &out, nil
}

func (uc *IntakeUseCase) buildEvent(
	doc domain.Document,
	digest string,
	result *domain.ClassificationResult,
	classifyErr error,
) domain.ClassificationEvent {
	event := domain.ClassificationEvent{
		ID:            uuid.NewString(),
		Filename:      doc.Filename,
		ContentSHA256: digest,
		FileSizeBytes: doc.Size(),
		OccurredAt:    uc.now().UTC(),
	}
	if classifyErr != nil {
		event.Status = domain.StatusFailed
		event.Detail = describeError(classifyErr)
		return event
	}
	event.Status = domain.StatusClassified
	event.DocumentType = result.DocumentType
	event.Year = result.Year
	event.SourceStrategy = result.SourceStrategy
	return event
}

func (uc *IntakeUseCase) emit(ctx context.Context, event domain.ClassificationEvent) {
	if uc.publisher != nil {
		if err := uc.publisher.PublishClassified(ctx, event); err != nil {
			slog.Warn("classification_event_publish_failed", "event_id", event.ID, "error", err.Error())
		}
	}
	if uc.notifier != nil {
		if err := uc.notifier.NotifyClassified(ctx, event); err != nil {
			slog.Warn("classification_notify_failed", "event_id", event.ID, "error", err.Error())
		}
	}
}

func contentDigest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "/" {
		return "document.pdf"
	}
	return base
}

var _ ports.DocumentClassifier = (*IntakeUseCase)(nil)

func describeError(err error) string {
	var clsErr *domain.ClassificationError
	if errors.As(err, &clsErr) {
		return clsErr.Detail
	}
	return fmt.Sprint(err)
}
