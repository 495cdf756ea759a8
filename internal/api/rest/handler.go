// Package rest serves the admin console JSON API.
package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/chatadmin/admin-console/internal/audit"
	"github.com/chatadmin/admin-console/internal/health"
	"github.com/chatadmin/admin-console/internal/k8s"
	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/repository"
	"github.com/chatadmin/admin-console/internal/resource"
	"github.com/chatadmin/admin-console/internal/service"
)

// Workloads is the orchestration surface used by the pod, deployment and command endpoints.
type Workloads interface {
	ListPods(ctx context.Context, namespaces []string) []models.Pod
	GetPod(ctx context.Context, namespace, name string) (*models.Pod, error)
	StreamPodLogs(ctx context.Context, namespace, name string, opts k8s.LogOptions) (io.ReadCloser, error)
	ListDeployments(ctx context.Context, namespaces []string) []models.Deployment
	GetDeployment(ctx context.Context, namespace, name string) (*models.Deployment, error)
	RestartDeployment(ctx context.Context, namespace, name string) (time.Time, error)
	ExecuteCommand(ctx context.Context, line string, opts k8s.ExecOptions) (models.CommandResult, error)
}

// Options scope the orchestration endpoints.
type Options struct {
	// Namespaces are listed when a request names none.
	Namespaces []string
	// PrimaryNamespace holds the chat platform workloads and is the default command namespace.
	PrimaryNamespace string
	// StoreNamespace and SearchNamespace place the mongodb and meilisearch
	// health buckets; empty means the primary namespace.
	StoreNamespace  string
	SearchNamespace string
	AllowedCommands []string
}

// Handler handles HTTP requests for the admin console API.
type Handler struct {
	store     repository.Store
	workloads Workloads
	resources *resource.Registry
	crud      service.ResourceService
	stats     service.StatsService
	costs     service.CostService
	health    *health.Aggregator
	recorder  *audit.Recorder
	log       *zap.Logger
	opts      Options
}

// NewHandler wires the services over store and workloads.
func NewHandler(store repository.Store, workloads Workloads, log *zap.Logger, opts Options) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if len(opts.Namespaces) == 0 && opts.PrimaryNamespace != "" {
		opts.Namespaces = []string{opts.PrimaryNamespace}
	}
	if opts.PrimaryNamespace == "" && len(opts.Namespaces) > 0 {
		opts.PrimaryNamespace = opts.Namespaces[0]
	}
	if len(opts.AllowedCommands) == 0 {
		opts.AllowedCommands = k8s.DefaultAllowList()
	}
	return &Handler{
		store:     store,
		workloads: workloads,
		resources: resource.Catalog(),
		crud:      service.NewResourceService(store),
		stats:     service.NewStatsService(store),
		costs:     service.NewCostService(store),
		health: health.NewAggregator(workloads, store, health.Namespaces{
			Primary: opts.PrimaryNamespace,
			Store:   opts.StoreNamespace,
			Search:  opts.SearchNamespace,
		}),
		recorder:  audit.NewRecorder(store, log),
		log:       log,
		opts:      opts,
	}
}

// commit runs post-commit effects. They outlive a client disconnect so a
// completed mutation is still recorded.
func (h *Handler) commit(r *http.Request, effects ...audit.Effect) {
	audit.Effects(effects).Apply(context.WithoutCancel(r.Context()), h.log)
}

// auditEffect builds the audit effect for a mutation made by r.
func (h *Handler) auditEffect(r *http.Request, action models.AuditAction, resourceName, id string, details any) audit.Effect {
	return h.recorder.Effect(audit.FromRequest(r, action, resourceName, id, details))
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a JSON object body into dst.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err == io.EOF {
			return errEmptyBody
		}
		return err
	}
	return nil
}
