package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/validate"
	"github.com/chatadmin/admin-console/internal/resource"
	"github.com/chatadmin/admin-console/internal/service"
)

// ListResource handles GET /api/{resource}?page=&limit=&sort=&order=&<filter>=
func (h *Handler) ListResource(d resource.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := service.ListParams{
			Page:    validate.PositiveInt(q.Get("page"), 1),
			Limit:   validate.PositiveInt(q.Get("limit"), 0),
			Sort:    q.Get("sort"),
			Order:   q.Get("order"),
			Filters: make(map[string]string, len(d.FilterParams)),
		}
		for _, f := range d.FilterParams {
			if v := q.Get(f); v != "" {
				params.Filters[f] = v
			}
		}
		res, err := h.crud.List(r.Context(), d, params)
		if err != nil {
			h.respondServiceError(w, r, "list "+d.Name, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

// GetResource handles GET /api/{resource}/{id}
func (h *Handler) GetResource(d resource.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.crud.Get(r.Context(), d, mux.Vars(r)["id"])
		if err != nil {
			h.respondServiceError(w, r, "get "+d.Kind, err)
			return
		}
		respondJSON(w, http.StatusOK, doc)
	}
}

// CreateResource handles POST /api/{resource}
func (h *Handler) CreateResource(d resource.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := decodeBody(r, &body); err != nil {
			respondBodyError(w, err)
			return
		}
		doc, err := h.crud.Create(r.Context(), d, body)
		if err != nil {
			h.respondServiceError(w, r, "create "+d.Kind, err)
			return
		}
		if !d.Unaudited {
			h.commit(r, h.auditEffect(r, models.AuditCreate, d.Name, idOf(doc), doc))
		}
		respondJSON(w, http.StatusCreated, doc)
	}
}

// UpdateResource handles PUT /api/{resource}/{id}
func (h *Handler) UpdateResource(d resource.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]any
		if err := decodeBody(r, &patch); err != nil {
			respondBodyError(w, err)
			return
		}
		doc, changes, err := h.crud.Update(r.Context(), d, mux.Vars(r)["id"], patch)
		if err != nil {
			h.respondServiceError(w, r, "update "+d.Kind, err)
			return
		}
		if !d.Unaudited {
			h.commit(r, h.auditEffect(r, models.AuditUpdate, d.Name, idOf(doc), changes))
		}
		respondJSON(w, http.StatusOK, doc)
	}
}

// DeleteResource handles DELETE /api/{resource}/{id}
func (h *Handler) DeleteResource(d resource.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := h.crud.Delete(r.Context(), d, mux.Vars(r)["id"])
		if err != nil {
			h.respondServiceError(w, r, "delete "+d.Kind, err)
			return
		}
		if !d.Unaudited {
			h.commit(r, h.auditEffect(r, models.AuditDelete, d.Name, idOf(snapshot), snapshot))
		}
		respondJSON(w, http.StatusOK, snapshot)
	}
}

// CleanupAuditLogs handles DELETE /api/audit-logs?olderThanDays=N. It is not audited.
func (h *Handler) CleanupAuditLogs(d resource.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := validate.PositiveInt(r.URL.Query().Get("olderThanDays"), 0)
		n, err := h.crud.DeleteOlderThan(r.Context(), d, "timestamp", days)
		if err != nil {
			h.respondServiceError(w, r, "clean up audit logs", err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"deleted": n, "olderThanDays": days})
	}
}

func idOf(doc map[string]any) string {
	id, _ := doc["id"].(string)
	return id
}
