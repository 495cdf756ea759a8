package rest

import (
	"net/http"
	"strings"

	"github.com/chatadmin/admin-console/internal/k8s"
	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/apperr"
)

// ExecuteRequest is the body of POST /api/kubectl/execute.
type ExecuteRequest struct {
	Command   string `json:"command"`
	Namespace string `json:"namespace"`
}

// ExecuteCommand handles POST /api/kubectl/execute. A verb outside the allow
// list is answered with 400 and never reaches the cluster. Accepted commands
// return 200 with the result, whose exitCode reports command failure.
func (h *Handler) ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := decodeBody(r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	req.Command = strings.TrimSpace(req.Command)
	namespace := req.Namespace
	if namespace == "" {
		namespace = h.opts.PrimaryNamespace
	}

	res, err := h.workloads.ExecuteCommand(r.Context(), req.Command, k8s.ExecOptions{
		Namespace:  namespace,
		AllowList:  h.opts.AllowedCommands,
		Namespaces: h.opts.Namespaces,
	})
	if req.Command != "" {
		h.commit(r, h.auditEffect(r, models.AuditExecute, auditResourceKubectl, req.Command, map[string]any{
			"command":   req.Command,
			"namespace": namespace,
			"exitCode":  res.ExitCode,
			"denied":    err != nil,
		}))
	}
	if err != nil {
		respondJSON(w, statusFor(err), map[string]any{
			"error":    apperr.Message(err),
			"output":   res.Output,
			"exitCode": res.ExitCode,
		})
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// ListCommands handles GET /api/kubectl/commands
func (h *Handler) ListCommands(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"commands":   k8s.CommandHelp(h.opts.AllowedCommands),
		"allowList":  h.opts.AllowedCommands,
		"namespaces": h.opts.Namespaces,
	})
}
