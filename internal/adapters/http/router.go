package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kirillkom/document-classifier/internal/config"
	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
	"github.com/kirillkom/document-classifier/internal/infrastructure/ratelimit"
	"github.com/kirillkom/document-classifier/internal/observability/metrics"
)

const (
	serviceName = "api"
	apiVersion  = "1.0.0"

	maxMultipartMemory = 32 << 20
)

type Router struct {
	cfg        config.Config
	classifier ports.UploadClassifier
	batch      ports.BatchClassifier
	history    ports.ClassificationReader
	metrics    *metrics.HTTPServerMetrics
}

// NewRouter accepts a nil batch classifier or history reader; their endpoints then answer 501.
func NewRouter(
	cfg config.Config,
	classifier ports.UploadClassifier,
	batch ports.BatchClassifier,
	history ports.ClassificationReader,
) *Router {
	return &Router{
		cfg:        cfg,
		classifier: classifier,
		batch:      batch,
		history:    history,
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", rt.info)
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /classify", rt.classify)
	mux.HandleFunc("POST /v1/classify/batch", rt.classifyBatch)
	mux.HandleFunc("GET /v1/classifications/{id}", rt.getClassification)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.APIMaxInflight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInflight, rt.cfg.BackpressureWait())
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		limiter := ratelimit.New(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		handler = rateLimitMiddleware(handler, limiter, func() {
			if rt.metrics != nil {
				rt.metrics.RecordRateLimited(serviceName, "client")
			}
		})
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":            "document-classifier",
		"version":         apiVersion,
		"supported_types": domain.SupportedTypes(),
		"year_range":      map[string]int{"min": rt.cfg.YearMin, "max": rt.cfg.YearMax},
		"limits": map[string]any{
			"requests_per_second":   rt.cfg.APIRateLimitRPS,
			"request_burst":         rt.cfg.APIRateLimitBurst,
			"uploads_per_file":      rt.cfg.FileRateLimitCount,
			"upload_window_hours":   rt.cfg.FileRateLimitWindowHours,
			"max_inflight_requests": rt.cfg.APIMaxInflight,
		},
		"endpoints": []string{
			"POST /classify",
			"POST /v1/classify/batch",
			"GET /v1/classifications/{id}",
			"GET /healthz",
			"GET /metrics",
		},
	})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) classify(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, fileHeader.Size)
	}

	result, err := rt.classifier.ClassifyUpload(r.Context(), fileHeader.Filename, file)
	if err != nil {
		rt.recordRateLimit(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) classifyBatch(w http.ResponseWriter, r *http.Request) {
	if rt.batch == nil {
		writeDetail(w, http.StatusNotImplemented, "batch classification is not enabled")
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeDetail(w, http.StatusBadRequest, "multipart form with field 'files' is required")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeDetail(w, http.StatusBadRequest, "multipart field 'files' is required")
		return
	}

	docs := make([]domain.Document, 0, len(headers))
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		if rt.metrics != nil {
			rt.metrics.RecordUpload(serviceName, fh.Size)
		}
		docs = append(docs, domain.Document{Filename: fh.Filename, Content: content})
	}

	report := rt.batch.ClassifyBatch(r.Context(), docs)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": report.Results,
		"errors":  report.Errors,
	})
}

func (rt *Router) getClassification(w http.ResponseWriter, r *http.Request) {
	if rt.history == nil {
		writeDetail(w, http.StatusNotImplemented, "classification history is not enabled")
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeDetail(w, http.StatusBadRequest, "classification id is required")
		return
	}

	record, err := rt.history.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) recordRateLimit(err error) {
	if rt.metrics != nil && domain.IsKind(err, domain.ErrRateLimited) {
		rt.metrics.RecordRateLimited(serviceName, "file")
	}
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", fh.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", fh.Filename, err)
	}
	return content, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
