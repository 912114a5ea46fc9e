package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/document-classifier/internal/config"
	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/layout/pdftest"
)

func TestNewClassifierWithoutCredentialsFallsBackToOther(t *testing.T) {
	cfg := config.Default()
	cfg.HandwritingProvider = "none"

	uc, closeFn, err := NewClassifier(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	defer closeFn()

	content := pdftest.Build(pdftest.Page{{Font: "Helvetica", Size: 11, X: 72, Y: 700, S: "Curriculum vitae"}})
	result, err := uc.Classify(context.Background(), domain.Document{Filename: "cv.pdf", Content: content})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.DocumentType != domain.TypeOther || result.SourceStrategy != domain.StrategyFallback {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, attempt := range result.Attempts {
		if attempt.Tier != domain.TierRules && attempt.Outcome != domain.OutcomeUnavailable {
			t.Fatalf("expected unconfigured tiers to be unavailable, got %+v", attempt)
		}
	}
}

func TestResilienceConfigMapsBreakerSettings(t *testing.T) {
	cfg := config.Default()
	cfg.BreakerEnabled = false
	cfg.BreakerMinRequests = 3
	cfg.BreakerOpenTimeoutSeconds = 5

	out := resilienceConfig(cfg, nil)
	if out.BreakerEnabled || out.BreakerMinRequests != 3 || out.BreakerOpenTimeout != 5*time.Second {
		t.Fatalf("unexpected resilience config: %+v", out)
	}
	if single := out.SingleAttempt(); single.RetryMaxAttempts != 1 {
		t.Fatalf("tier policy must not retry, got %d attempts", single.RetryMaxAttempts)
	}
}
