package domain

import (
	"fmt"
	"time"
)

// Strategy names the tier that produced a classification.
type Strategy string

const (
	StrategyRules       Strategy = "rules"
	StrategyIDDetection Strategy = "id_detection"
	StrategyHandwriting Strategy = "handwriting_detection"
	StrategyFallback    Strategy = "fallback"
)

type Tier string

const (
	TierRules       Tier = "rules"
	TierIDDetection Tier = "id_detection"
	TierHandwriting Tier = "handwriting_detection"
)

type TierOutcome string

const (
	OutcomeMatched      TierOutcome = "matched"
	OutcomeDeclined     TierOutcome = "declined"
	OutcomeInconclusive TierOutcome = "inconclusive"
	OutcomeError        TierOutcome = "error"
	OutcomeUnavailable  TierOutcome = "unavailable"
)

type TierAttempt struct {
	Tier       Tier        `json:"tier"`
	Outcome    TierOutcome `json:"outcome"`
	DurationMS int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
}

type ClassificationResult struct {
	Filename       string        `json:"filename"`
	DocumentType   DocumentType  `json:"document_type"`
	Year           *int          `json:"year"`
	FileSizeBytes  int64         `json:"file_size_bytes"`
	FileSizeMB     float64       `json:"file_size_mb"`
	SourceStrategy Strategy      `json:"source_strategy"`
	Attempts       []TierAttempt `json:"attempts,omitempty"`
	EventID        string        `json:"event_id,omitempty"`
}

// ClassificationError reports a document that could not be classified at all.
type ClassificationError struct {
	Filename string `json:"filename"`
	Detail   string `json:"detail"`
	Err      error  `json:"-"`
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %s: %s", e.Filename, e.Detail)
}

func (e *ClassificationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

type Verdict string

const (
	VerdictPositive     Verdict = "positive"
	VerdictNegative     Verdict = "negative"
	VerdictInconclusive Verdict = "inconclusive"
)

type IDSignal struct {
	Verdict    Verdict
	Confidence float64
	Label      string
}

type HandwritingSignal struct {
	Verdict   Verdict
	Rationale string
}

// BatchItem holds exactly one of Result or Error.
type BatchItem struct {
	Index  int                   `json:"index"`
	Result *ClassificationResult `json:"result,omitempty"`
	Error  *ClassificationError  `json:"error,omitempty"`
}

type BatchReport struct {
	Items   []BatchItem            `json:"items"`
	Results []ClassificationResult `json:"results"`
	Errors  []ClassificationError  `json:"errors"`
}

type ClassificationStatus string

const (
	StatusClassified ClassificationStatus = "classified"
	StatusFailed     ClassificationStatus = "failed"
)

// ClassificationEvent is published after every classification attempt.
type ClassificationEvent struct {
	ID             string               `json:"id"`
	Filename       string               `json:"filename"`
	ContentSHA256  string               `json:"content_sha256"`
	FileSizeBytes  int64                `json:"file_size_bytes"`
	Status         ClassificationStatus `json:"status"`
	DocumentType   DocumentType         `json:"document_type,omitempty"`
	Year           *int                 `json:"year,omitempty"`
	SourceStrategy Strategy             `json:"source_strategy,omitempty"`
	Detail         string               `json:"detail,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// ClassificationRecord is a persisted classification event.
type ClassificationRecord struct {
	ClassificationEvent
	RecordedAt time.Time `json:"recorded_at"`
}
