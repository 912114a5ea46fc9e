package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
)

// RecordClassificationUseCase persists classification events consumed from the queue.
type RecordClassificationUseCase struct {
	repo ports.ClassificationRepository
	now  func() time.Time
}

func NewRecordClassificationUseCase(repo ports.ClassificationRepository) *RecordClassificationUseCase {
	return &RecordClassificationUseCase{
		repo: repo,
		now:  time.Now,
	}
}

func (uc *RecordClassificationUseCase) Record(ctx context.Context, event domain.ClassificationEvent) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	record := &domain.ClassificationRecord{
		ClassificationEvent: event,
		RecordedAt:          uc.now().UTC(),
	}
	if err := uc.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("save classification record: %w", err)
	}
	return nil
}

func validateEvent(event domain.ClassificationEvent) error {
	switch {
	case strings.TrimSpace(event.ID) == "":
		return domain.WrapError(domain.ErrInvalidInput, "record classification", errors.New("event id is required"))
	case event.Status != domain.StatusClassified && event.Status != domain.StatusFailed:
		return domain.WrapError(domain.ErrInvalidInput, "record classification", fmt.Errorf("unknown status %q", event.Status))
	case event.Status == domain.StatusClassified && event.DocumentType == "":
		return domain.WrapError(domain.ErrInvalidInput, "record classification", errors.New("document type is required"))
	}
	return nil
}
