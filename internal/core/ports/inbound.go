package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

// DocumentClassifier is the inbound contract of the tiered classification pipeline.
type DocumentClassifier interface {
	Classify(ctx context.Context, doc domain.Document) (*domain.ClassificationResult, error)
}

// UploadClassifier classifies a single upload and emits its side effects.
type UploadClassifier interface {
	ClassifyUpload(ctx context.Context, filename string, body io.Reader) (*domain.ClassificationResult, error)
}

// BatchClassifier aggregates per-document outcomes for a set of uploads.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, docs []domain.Document) domain.BatchReport
}

// ClassificationReader is the read model for classification history.
type ClassificationReader interface {
	GetByID(ctx context.Context, id string) (*domain.ClassificationRecord, error)
}

// ClassificationRecorder is the inbound contract for asynchronous event persistence.
type ClassificationRecorder interface {
	Record(ctx context.Context, event domain.ClassificationEvent) error
}
