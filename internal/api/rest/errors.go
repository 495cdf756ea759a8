package rest

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/chatadmin/admin-console/internal/pkg/apperr"
	"github.com/chatadmin/admin-console/internal/pkg/logger"
	"github.com/chatadmin/admin-console/internal/repository"
)

var errEmptyBody = errors.New("request body is required")

// statusFor maps a service or control-plane error to an HTTP status.
// Conflicts are client errors and share 400 with validation failures.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound), apierrors.IsNotFound(err):
		return http.StatusNotFound
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondServiceError writes err as {error}. Server errors are logged with
// their cause and reported with a generic message.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.WithRequest(r.Context(), h.log).Error("Request failed",
			zap.String("operation", op),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, status, "Internal server error")
		return
	}
	if status == http.StatusNotFound && apperr.KindOf(err) != apperr.KindNotFound {
		respondError(w, status, "Not found")
		return
	}
	respondError(w, status, apperr.Message(err))
}

// respondBodyError reports an unreadable request body.
func respondBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	if errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondError(w, http.StatusBadRequest, "Invalid JSON body")
}
