package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

var pageImage = domain.PageImage{Data: []byte("png-bytes"), MimeType: "image/png"}

func TestHandwritingDetectorSendsImage(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"{\"verdict\":\"YES\",\"rationale\":\"pen strokes\"}"}`))
	}))
	defer server.Close()

	detector := NewHandwritingDetector(New(server.URL, "llava", nil))
	signal, err := detector.DetectHandwriting(context.Background(), pageImage)
	if err != nil {
		t.Fatalf("DetectHandwriting() error = %v", err)
	}
	if signal.Verdict != domain.VerdictPositive || signal.Rationale != "pen strokes" {
		t.Fatalf("unexpected signal: %+v", signal)
	}
	images, _ := payload["images"].([]any)
	if payload["model"] != "llava" || len(images) != 1 || images[0] != "cG5nLWJ5dGVz" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestHandwritingDetectorIncludesHTTPBodyInError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	detector := NewHandwritingDetector(New(server.URL, "llava", nil))
	_, err := detector.DetectHandwriting(context.Background(), pageImage)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestHandwritingDetectorRejectsEmptyImage(t *testing.T) {
	detector := NewHandwritingDetector(New("http://127.0.0.1:0", "llava", nil))
	_, err := detector.DetectHandwriting(context.Background(), domain.PageImage{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
