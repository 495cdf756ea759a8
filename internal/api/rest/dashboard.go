package rest

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/chatadmin/admin-console/internal/audit"
	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/logger"
	"github.com/chatadmin/admin-console/internal/repository"
)

// GetStats handles GET /api/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.respondServiceError(w, r, "stats", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetCostStats handles GET /api/cost-stats
func (h *Handler) GetCostStats(w http.ResponseWriter, r *http.Request) {
	costs, err := h.costs.MonthlyCosts(r.Context())
	if err != nil {
		h.respondServiceError(w, r, "cost stats", err)
		return
	}
	respondJSON(w, http.StatusOK, costs)
}

// GetSystemStatus handles GET /api/system-status
func (h *Handler) GetSystemStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.health.Status(r.Context()))
}

// GetCurrentUser handles GET /api/user. The role comes from the user record
// with the actor's email and defaults to USER when none is found.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor := audit.ActorFromRequest(r)
	if !actor.Authenticated {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	user := models.CurrentUser{Email: actor.Email, Name: actor.Name, Role: models.RoleUser}
	if actor.Email != audit.UnknownActor {
		doc, err := h.store.FindOne(r.Context(), repository.CollectionUsers, bson.M{"email": actor.Email})
		switch {
		case err == nil:
			if role, ok := doc["role"].(string); ok && role != "" {
				user.Role = role
			}
		case !errors.Is(err, repository.ErrNotFound):
			logger.WithRequest(r.Context(), h.log).Warn("Role lookup failed", zap.String("email", actor.Email), zap.Error(err))
		}
	}
	respondJSON(w, http.StatusOK, user)
}
