package rest

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatadmin/admin-console/internal/resource"
)

// SetupRoutes registers every endpoint on router. API routes live under /api;
// probes and metrics stay at the root.
func SetupRoutes(router *mux.Router, h *Handler) {
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/healthz/live", h.Live).Methods("GET")
	router.HandleFunc("/healthz/ready", h.Ready).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	// Dashboard
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/cost-stats", h.GetCostStats).Methods("GET")
	api.HandleFunc("/system-status", h.GetSystemStatus).Methods("GET")
	api.HandleFunc("/user", h.GetCurrentUser).Methods("GET")

	// Workloads
	api.HandleFunc("/pods", h.ListPods).Methods("GET")
	api.HandleFunc("/pods/{namespace}/{podName}/logs", h.GetPodLogs).Methods("GET")
	api.HandleFunc("/pods/{id}", h.GetPod).Methods("GET")
	api.HandleFunc("/deployments", h.ListDeployments).Methods("GET")
	api.HandleFunc("/deployments/{id}", h.GetDeployment).Methods("GET")
	api.HandleFunc("/deployments/{id}/restart", h.RestartDeployment).Methods("POST")
	api.HandleFunc("/kubectl/execute", h.ExecuteCommand).Methods("POST")
	api.HandleFunc("/kubectl/commands", h.ListCommands).Methods("GET")

	// Document resources
	for _, d := range h.resources.All() {
		collection := "/" + d.Name
		item := collection + "/{id}"
		api.HandleFunc(collection, h.ListResource(d)).Methods("GET")
		api.HandleFunc(item, h.GetResource(d)).Methods("GET")
		api.HandleFunc(item, h.DeleteResource(d)).Methods("DELETE")
		if d.ReadOnly {
			continue
		}
		api.HandleFunc(collection, h.CreateResource(d)).Methods("POST")
		api.HandleFunc(item, h.UpdateResource(d)).Methods("PUT", "PATCH")
	}
	if d, ok := h.resources.Lookup(resource.AuditLogs); ok {
		api.HandleFunc("/"+d.Name, h.CleanupAuditLogs(d)).Methods("DELETE")
	}
}
