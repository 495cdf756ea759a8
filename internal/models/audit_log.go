package models

import "time"

// AuditAction is the kind of administrative action recorded.
type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditUpdate  AuditAction = "update"
	AuditDelete  AuditAction = "delete"
	AuditRestart AuditAction = "restart"
	AuditExecute AuditAction = "execute"
)

// AuditLogEntry is one append-only record in the auditlogs collection.
type AuditLogEntry struct {
	Action     AuditAction `json:"action" bson:"action"`
	Resource   string      `json:"resource" bson:"resource"`
	ResourceID string      `json:"resourceId" bson:"resourceId"`
	UserEmail  string      `json:"userEmail" bson:"userEmail"`
	UserName   string      `json:"userName" bson:"userName"`
	Details    any         `json:"details,omitempty" bson:"details,omitempty"`
	IPAddress  string      `json:"ipAddress" bson:"ipAddress"`
	Timestamp  time.Time   `json:"timestamp" bson:"timestamp"`
}
