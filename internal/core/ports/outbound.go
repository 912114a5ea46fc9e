package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

// LayoutExtractor turns PDF bytes into positioned text runs.
// Unreadable input is reported as domain.ErrUnparseablePDF.
type LayoutExtractor interface {
	Extract(ctx context.Context, content []byte) ([]domain.TextRun, error)
}

// PageRenderer rasterizes the first page of a PDF.
type PageRenderer interface {
	RenderFirstPage(ctx context.Context, content []byte) (domain.PageImage, error)
}

type IDDetector interface {
	DetectID(ctx context.Context, doc domain.Document) (domain.IDSignal, error)
}

type HandwritingDetector interface {
	DetectHandwriting(ctx context.Context, page domain.PageImage) (domain.HandwritingSignal, error)
}

// ClassificationRepository persists classification history.
type ClassificationRepository interface {
	Save(ctx context.Context, record *domain.ClassificationRecord) error
	GetByID(ctx context.Context, id string) (*domain.ClassificationRecord, error)
}

// EventPublisher publishes classification events.
type EventPublisher interface {
	PublishClassified(ctx context.Context, event domain.ClassificationEvent) error
}

// EventSubscriber consumes classification events.
type EventSubscriber interface {
	SubscribeClassified(ctx context.Context, handler func(context.Context, domain.ClassificationEvent) error) error
}

// Notifier pushes human-readable notifications about classifications.
type Notifier interface {
	NotifyClassified(ctx context.Context, event domain.ClassificationEvent) error
}

// UploadLimiter throttles repeated uploads of the same content.
type UploadLimiter interface {
	Allow(key string) (bool, time.Duration)
}

// ObjectStorage stores classified files under a key.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
}
