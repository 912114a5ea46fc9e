package usecase

import (
	"context"
	"errors"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
)

// BatchUseCase classifies documents one after another and aggregates outcomes.
type BatchUseCase struct {
	classifier ports.DocumentClassifier
}

func NewBatchUseCase(classifier ports.DocumentClassifier) *BatchUseCase {
	return &BatchUseCase{classifier: classifier}
}

// ClassifyBatch yields exactly one item per input document, in input order.
func (uc *BatchUseCase) ClassifyBatch(ctx context.Context, docs []domain.Document) domain.BatchReport {
	report := domain.BatchReport{
		Items:   make([]domain.BatchItem, 0, len(docs)),
		Results: []domain.ClassificationResult{},
		Errors:  []domain.ClassificationError{},
	}
	for i, doc := range docs {
		item := domain.BatchItem{Index: i}
		if err := ctx.Err(); err != nil {
			item.Error = &domain.ClassificationError{Filename: doc.Filename, Detail: "batch canceled", Err: err}
		} else {
			result, err := uc.classifier.Classify(ctx, doc)
			if err != nil {
				item.Error = asClassificationError(doc.Filename, err)
			} else {
				item.Result = result
			}
		}

		if item.Error != nil {
			report.Errors = append(report.Errors, *item.Error)
		} else {
			report.Results = append(report.Results, *item.Result)
		}
		report.Items = append(report.Items, item)
	}
	return report
}

func asClassificationError(filename string, err error) *domain.ClassificationError {
	var clsErr *domain.ClassificationError
	if errors.As(err, &clsErr) {
		return clsErr
	}
	return &domain.ClassificationError{Filename: filename, Detail: describeError(err), Err: err}
}
