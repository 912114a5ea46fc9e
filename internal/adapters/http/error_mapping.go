package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	var clsErr *domain.ClassificationError
	switch {
	case errors.As(err, &clsErr):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status its kind maps to.
func writeError(w http.ResponseWriter, err error) {
	var clsErr *domain.ClassificationError
	if errors.As(err, &clsErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"filename": clsErr.Filename,
			"detail":   clsErr.Detail,
		})
		return
	}

	var rlErr *domain.RateLimitError
	if errors.As(err, &rlErr) {
		setRetryAfter(w, rlErr.RetryAfter)
	}
	writeDetail(w, mapErrorToHTTPStatus(err), err.Error())
}

// writeDetail renders a plain error body; every error response carries "detail".
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func setRetryAfter(w http.ResponseWriter, wait time.Duration) {
	seconds := int((wait + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
}
