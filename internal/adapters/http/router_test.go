package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/document-classifier/internal/config"
	"github.com/kirillkom/document-classifier/internal/core/domain"
)

type uploadClassifierFake struct {
	result *domain.ClassificationResult
	err    error
	got    []byte
}

func (f *uploadClassifierFake) ClassifyUpload(_ context.Context, filename string, body io.Reader) (*domain.ClassificationResult, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.got = raw
	if f.err != nil {
		return nil, f.err
	}
	out := *f.result
	out.Filename = filename
	return &out, nil
}

type batchFake struct {
	docs []domain.Document
}

func (f *batchFake) ClassifyBatch(_ context.Context, docs []domain.Document) domain.BatchReport {
	f.docs = docs
	report := domain.BatchReport{}
	for i, doc := range docs {
		if i == 1 {
			clsErr := domain.ClassificationError{Filename: doc.Filename, Detail: "unparseable pdf"}
			report.Errors = append(report.Errors, clsErr)
			continue
		}
		report.Results = append(report.Results, domain.ClassificationResult{Filename: doc.Filename, DocumentType: domain.TypeOther})
	}
	return report
}

type historyFake struct {
	err error
}

func (f historyFake) GetByID(_ context.Context, id string) (*domain.ClassificationRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ClassificationRecord{ClassificationEvent: domain.ClassificationEvent{ID: id, Status: domain.StatusClassified, DocumentType: domain.TypeFormW2}}, nil
}

func newTestHandler(cfg config.Config) http.Handler {
	year := 2022
	classifier := &uploadClassifierFake{result: &domain.ClassificationResult{
		DocumentType:   domain.TypeForm1040,
		Year:           &year,
		SourceStrategy: domain.StrategyRules,
	}}
	return NewRouter(cfg, classifier, &batchFake{}, historyFake{}).Handler()
}

func multipartBody(t *testing.T, field string, files map[string]string, order ...string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, name := range order {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write([]byte(files[name])); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestInfoListsSupportedTypes(t *testing.T) {
	handler := newTestHandler(config.Config{YearMin: 1990, YearMax: 2099})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var info struct {
		SupportedTypes []string `json:"supported_types"`
	}
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(info.SupportedTypes) != 7 {
		t.Fatalf("expected 7 supported types, got %v", info.SupportedTypes)
	}
}

func TestClassifySuccess(t *testing.T) {
	handler := newTestHandler(config.Config{})
	body, contentType := multipartBody(t, "file", map[string]string{"f1040.pdf": "%PDF-1.7"}, "f1040.pdf")

	req := httptest.NewRequest(http.MethodPost, "/classify", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var result map[string]any
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["document_type"] != "1040" || result["filename"] != "f1040.pdf" || result["year"] != float64(2022) {
		t.Fatalf("unexpected response: %+v", result)
	}
}

func TestClassifyMissingMultipartField(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if detail := decodeDetail(t, res); detail == "" {
		t.Fatalf("expected detail in 400 body, got %q", res.Body.String())
	}
}

func TestClassifyUnparseablePDFReturns422(t *testing.T) {
	classifier := &uploadClassifierFake{err: &domain.ClassificationError{
		Filename: "broken.pdf",
		Detail:   "unparseable pdf: missing %%EOF",
		Err:      domain.ErrUnparseablePDF,
	}}
	handler := NewRouter(config.Config{}, classifier, nil, nil).Handler()
	body, contentType := multipartBody(t, "file", map[string]string{"broken.pdf": "garbage"}, "broken.pdf")

	req := httptest.NewRequest(http.MethodPost, "/classify", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["filename"] != "broken.pdf" || payload["detail"] == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestClassifyFileRateLimitReturns429(t *testing.T) {
	classifier := &uploadClassifierFake{err: &domain.RateLimitError{Scope: "file", RetryAfter: 90 * time.Minute}}
	handler := NewRouter(config.Config{}, classifier, nil, nil).Handler()
	body, contentType := multipartBody(t, "file", map[string]string{"a.pdf": "%PDF"}, "a.pdf")

	req := httptest.NewRequest(http.MethodPost, "/classify", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", res.Code)
	}
	if got := res.Header().Get("Retry-After"); got != "5400" {
		t.Fatalf("expected Retry-After 5400, got %q", got)
	}
	if detail := decodeDetail(t, res); detail == "" {
		t.Fatalf("expected detail in 429 body, got %q", res.Body.String())
	}
}

func TestClassifyCanceledRequestIsNotUnprocessable(t *testing.T) {
	classifier := &uploadClassifierFake{err: fmt.Errorf("classify a.pdf: %w", context.Canceled)}
	handler := NewRouter(config.Config{}, classifier, nil, nil).Handler()
	body, contentType := multipartBody(t, "file", map[string]string{"a.pdf": "%PDF"}, "a.pdf")

	req := httptest.NewRequest(http.MethodPost, "/classify", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := payload["filename"]; ok {
		t.Fatalf("canceled request must not look like a classification error: %+v", payload)
	}
	if _, ok := payload["error"]; ok {
		t.Fatalf("unexpected error key: %+v", payload)
	}
}

func decodeDetail(t *testing.T, res *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload["detail"]
}

func TestClassifyBatchAggregatesOutcomes(t *testing.T) {
	batch := &batchFake{}
	handler := NewRouter(config.Config{}, nil, batch, nil).Handler()
	files := map[string]string{"a.pdf": "%PDF-a", "b.pdf": "junk", "c.pdf": "%PDF-c"}
	body, contentType := multipartBody(t, "files", files, "a.pdf", "b.pdf", "c.pdf")

	req := httptest.NewRequest(http.MethodPost, "/v1/classify/batch", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(batch.docs) != 3 || batch.docs[1].Filename != "b.pdf" || string(batch.docs[2].Content) != "%PDF-c" {
		t.Fatalf("documents not forwarded in order: %+v", batch.docs)
	}

	var payload struct {
		Results []map[string]any `json:"results"`
		Errors  []map[string]any `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Results) != 2 || len(payload.Errors) != 1 {
		t.Fatalf("unexpected aggregation: %+v", payload)
	}
}

func TestClassifyBatchWithoutFilesReturns400(t *testing.T) {
	handler := newTestHandler(config.Config{})
	body, contentType := multipartBody(t, "file", map[string]string{"a.pdf": "x"}, "a.pdf")

	req := httptest.NewRequest(http.MethodPost, "/v1/classify/batch", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetClassificationReturns404ForNotFound(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		nil,
		nil,
		historyFake{err: domain.WrapError(domain.ErrNotFound, "get classification", errors.New("id missing"))},
	).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/classifications/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetClassificationReturnsRecord(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/classifications/evt-9", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var record map[string]any
	if err := json.NewDecoder(res.Body).Decode(&record); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if record["id"] != "evt-9" || record["document_type"] != "W2" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&domain.ClassificationError{Filename: "a", Detail: "b"}, http.StatusUnprocessableEntity},
		{domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrTemporary, "op", errors.New("x")), http.StatusServiceUnavailable},
		{&domain.RateLimitError{Scope: "client"}, http.StatusTooManyRequests},
		{fmt.Errorf("classify: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("classify: %w", context.Canceled), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
