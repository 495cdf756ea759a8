package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/validate"
	"github.com/chatadmin/admin-console/internal/resource"
)

// Audit resource names for orchestration actions.
const (
	auditResourceDeployments = "deployments"
	auditResourceKubectl     = "kubectl"
)

// requestNamespaces parses ?namespaces=a,b,c, falling back to the configured set.
func (h *Handler) requestNamespaces(r *http.Request) ([]string, bool) {
	raw := r.URL.Query().Get("namespaces")
	if raw == "" {
		return h.opts.Namespaces, true
	}
	var out []string
	for _, ns := range strings.Split(raw, ",") {
		ns = strings.TrimSpace(ns)
		if ns == "" {
			continue
		}
		if !validate.Namespace(ns) {
			return nil, false
		}
		out = append(out, ns)
	}
	if len(out) == 0 {
		return h.opts.Namespaces, true
	}
	return out, true
}

// ListPods handles GET /api/pods[?namespaces=a,b,c]
func (h *Handler) ListPods(w http.ResponseWriter, r *http.Request) {
	namespaces, ok := h.requestNamespaces(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid namespaces")
		return
	}
	pods := h.workloads.ListPods(r.Context(), namespaces)
	if pods == nil {
		pods = []models.Pod{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": pods, "total": len(pods)})
}

// GetPod handles GET /api/pods/{id} where id is "<namespace>::<name>".
func (h *Handler) GetPod(w http.ResponseWriter, r *http.Request) {
	ns, name, err := resource.ParseCompositeID(mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, r, "get pod", err)
		return
	}
	pod, err := h.workloads.GetPod(r.Context(), ns, name)
	if err != nil {
		h.respondServiceError(w, r, "get pod", err)
		return
	}
	respondJSON(w, http.StatusOK, pod)
}

// ListDeployments handles GET /api/deployments[?namespaces=a,b,c]
func (h *Handler) ListDeployments(w http.ResponseWriter, r *http.Request) {
	namespaces, ok := h.requestNamespaces(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid namespaces")
		return
	}
	deps := h.workloads.ListDeployments(r.Context(), namespaces)
	if deps == nil {
		deps = []models.Deployment{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": deps, "total": len(deps)})
}

// GetDeployment handles GET /api/deployments/{id}
func (h *Handler) GetDeployment(w http.ResponseWriter, r *http.Request) {
	ns, name, err := resource.ParseCompositeID(mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, r, "get deployment", err)
		return
	}
	dep, err := h.workloads.GetDeployment(r.Context(), ns, name)
	if err != nil {
		h.respondServiceError(w, r, "get deployment", err)
		return
	}
	respondJSON(w, http.StatusOK, dep)
}

// RestartDeployment handles POST /api/deployments/{id}/restart
func (h *Handler) RestartDeployment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ns, name, err := resource.ParseCompositeID(id)
	if err != nil {
		h.respondServiceError(w, r, "restart deployment", err)
		return
	}
	at, err := h.workloads.RestartDeployment(r.Context(), ns, name)
	if err != nil {
		h.respondServiceError(w, r, "restart deployment", err)
		return
	}
	restartedAt := at.UTC().Format(time.RFC3339)
	h.commit(r, h.auditEffect(r, models.AuditRestart, auditResourceDeployments, id, map[string]any{
		"namespace":   ns,
		"name":        name,
		"restartedAt": restartedAt,
	}))
	respondJSON(w, http.StatusOK, map[string]any{
		"message":     "Deployment " + name + " restarted",
		"id":          id,
		"restartedAt": restartedAt,
	})
}
