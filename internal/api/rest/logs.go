package rest

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chatadmin/admin-console/internal/k8s"
	"github.com/chatadmin/admin-console/internal/pkg/logger"
	"github.com/chatadmin/admin-console/internal/pkg/validate"
)

const defaultLogTailLines = 100

// GetPodLogs handles GET /api/pods/{namespace}/{podName}/logs?tailLines=&timestamps=&container=&follow=
// Log bytes are forwarded as they arrive; a client disconnect cancels the upstream stream.
func (h *Handler) GetPodLogs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	namespace, pod := vars["namespace"], vars["podName"]
	if !validate.Namespace(namespace) || !validate.Name(pod) {
		respondError(w, http.StatusBadRequest, "Invalid namespace or pod name")
		return
	}

	q := r.URL.Query()
	opts := k8s.LogOptions{
		Container:  q.Get("container"),
		TailLines:  defaultLogTailLines,
		Timestamps: validate.Bool(q.Get("timestamps")),
		Follow:     validate.Bool(q.Get("follow")),
	}
	if t := q.Get("tailLines"); t != "" {
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "tailLines must be a positive integer")
			return
		}
		opts.TailLines = n
	}

	stream, err := h.workloads.StreamPodLogs(r.Context(), namespace, pod, opts)
	if err != nil {
		h.respondServiceError(w, r, "stream pod logs", err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	_ = rc.Flush()

	buf := make([]byte, 32*1024)
	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return
			}
			_ = rc.Flush()
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && r.Context().Err() == nil {
				logger.WithRequest(r.Context(), h.log).Warn("Pod log stream ended with error",
					zap.String("namespace", namespace),
					zap.String("pod", pod),
					zap.Error(readErr),
				)
			}
			return
		}
	}
}
