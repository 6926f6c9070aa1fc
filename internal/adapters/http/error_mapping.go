package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrPermission):
		return http.StatusForbidden
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrInvalidState), domain.IsKind(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError renders err with its mapped status. Internal failures are
// logged and never echoed to the client.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := mapErrorToHTTPStatus(err)
	kind := domain.KindOf(err)
	requestID := requestIDFromContext(ctx)
	if rt.metrics != nil {
		rt.metrics.RecordDomainError(kind)
	}

	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		slog.ErrorContext(ctx, "request_failed", "request_id", requestID, "kind", kind, "error", err)
		message = "internal error"
	case http.StatusServiceUnavailable:
		slog.WarnContext(ctx, "request_failed", "request_id", requestID, "kind", kind, "error", err)
		message = "service temporarily unavailable"
		w.Header().Set("Retry-After", "1")
	}

	writeJSON(w, status, errorResponse{Error: message, Kind: kind, RequestID: requestID})
}
