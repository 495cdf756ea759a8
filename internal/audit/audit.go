// Package audit records administrative actions in the append-only audit collection.
package audit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/logger"
	"github.com/chatadmin/admin-console/internal/pkg/metrics"
	"github.com/chatadmin/admin-console/internal/pkg/redact"
	"github.com/chatadmin/admin-console/internal/repository"
)

// Identity headers set by the authenticating proxy, primary pair first.
const (
	HeaderEmail         = "X-Forwarded-Email"
	HeaderUser          = "X-Forwarded-User"
	HeaderFallbackEmail = "X-Auth-Request-Email"
	HeaderFallbackUser  = "X-Auth-Request-User"
)

// UnknownActor is recorded when no identity headers are present.
const UnknownActor = "unknown"

// Entry is one action to record.
type Entry struct {
	Action     models.AuditAction
	Resource   string
	ResourceID string
	Actor      models.Actor
	Details    any
	IPAddress  string
}

// ActorFromRequest reads the primary header pair, then the fallback pair.
// Authenticated is false when neither pair yields an email or a user.
func ActorFromRequest(r *http.Request) models.Actor {
	email := r.Header.Get(HeaderEmail)
	name := r.Header.Get(HeaderUser)
	if email == "" && name == "" {
		email = r.Header.Get(HeaderFallbackEmail)
		name = r.Header.Get(HeaderFallbackUser)
	}
	a := models.Actor{Email: email, Name: name, Authenticated: email != "" || name != ""}
	if a.Email == "" {
		a.Email = UnknownActor
	}
	if a.Name == "" {
		a.Name = UnknownActor
	}
	return a
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// FromRequest builds an Entry attributed to the request's actor and client address.
func FromRequest(r *http.Request, action models.AuditAction, resource, resourceID string, details any) Entry {
	return Entry{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Actor:      ActorFromRequest(r),
		Details:    details,
		IPAddress:  ClientIP(r),
	}
}

// Recorder appends entries to the audit collection.
type Recorder struct {
	store repository.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewRecorder(store repository.Store, log *zap.Logger) *Recorder {
	return &Recorder{store: store, log: log, now: time.Now}
}

// Record writes one audit document stamped with the server time.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	doc := models.AuditLogEntry{
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceID: e.ResourceID,
		UserEmail:  e.Actor.Email,
		UserName:   e.Actor.Name,
		Details:    redact.Details(e.Details, models.UserSecretFields),
		IPAddress:  e.IPAddress,
		Timestamp:  r.now().UTC(),
	}
	if _, err := r.store.InsertOne(ctx, repository.CollectionAuditLogs, toDocument(doc)); err != nil {
		return fmt.Errorf("write audit log %s %s/%s: %w", e.Action, e.Resource, e.ResourceID, err)
	}
	logger.WithRequest(ctx, r.log).Info("audit",
		zap.String("action", string(e.Action)),
		zap.String("resource", e.Resource),
		zap.String("resource_id", e.ResourceID),
		zap.String("actor", e.Actor.Email),
	)
	return nil
}

// Effect returns a post-commit effect that records e.
func (r *Recorder) Effect(e Entry) Effect {
	return Effect{
		Name:     "audit " + string(e.Action),
		Resource: e.Resource,
		Run:      func(ctx context.Context) error { return r.Record(ctx, e) },
	}
}

// Effect is a side effect attempted after a primary write has succeeded.
type Effect struct {
	Name     string
	Resource string
	Run      func(ctx context.Context) error
}

// Effects run in order after the primary operation.
type Effects []Effect

// Apply runs every effect. Failures are logged and counted, never returned:
// they must not change the outcome of the operation that produced them.
func (es Effects) Apply(ctx context.Context, log *zap.Logger) {
	for _, e := range es {
		if err := e.Run(ctx); err != nil {
			metrics.AuditWriteFailuresTotal.WithLabelValues(e.Resource).Inc()
			logger.WithRequest(ctx, log).Error("Post-commit effect failed",
				zap.String("effect", e.Name),
				zap.String("resource", e.Resource),
				zap.Error(err),
			)
		}
	}
}

func toDocument(e models.AuditLogEntry) bson.M {
	doc := bson.M{
		"action":     string(e.Action),
		"resource":   e.Resource,
		"resourceId": e.ResourceID,
		"userEmail":  e.UserEmail,
		"userName":   e.UserName,
		"ipAddress":  e.IPAddress,
		"timestamp":  e.Timestamp,
	}
	if e.Details != nil {
		doc["details"] = e.Details
	}
	return doc
}
