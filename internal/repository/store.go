// Package repository is the document store adapter shared by every resource handler.
package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned by FindOne and FindOneAndUpdate when no document matches.
var ErrNotFound = errors.New("document not found")

// Collection names.
const (
	CollectionUsers         = "users"
	CollectionRoles         = "roles"
	CollectionConversations = "conversations"
	CollectionMessages      = "messages"
	CollectionAgents        = "agents"
	CollectionFiles         = "files"
	CollectionSessions      = "sessions"
	CollectionTokens        = "tokens"
	CollectionTransactions  = "transactions"
	CollectionProjects      = "projects"
	CollectionAuditLogs     = "auditlogs"
)

// FindOptions selects one page of a sorted result. Limit 0 means no limit.
type FindOptions struct {
	SortField string
	SortDesc  bool
	Skip      int64
	Limit     int64
}

// Store is a generic collection store. Documents are plain bson.M values.
// Implementations must be safe for concurrent use.
type Store interface {
	// Find returns one page and the total number of documents matching filter.
	Find(ctx context.Context, collection string, filter bson.M, opts FindOptions) ([]bson.M, int64, error)
	FindOne(ctx context.Context, collection string, filter bson.M) (bson.M, error)
	// InsertOne returns the stored _id, generating an ObjectID when doc has none.
	InsertOne(ctx context.Context, collection string, doc bson.M) (any, error)
	// FindOneAndUpdate applies $set to the first match and returns the updated document.
	FindOneAndUpdate(ctx context.Context, collection string, filter bson.M, set bson.M) (bson.M, error)
	DeleteOne(ctx context.Context, collection string, filter bson.M) (int64, error)
	DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error)
	Count(ctx context.Context, collection string, filter bson.M) (int64, error)
	Aggregate(ctx context.Context, collection string, pipeline []bson.M) ([]bson.M, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Page converts a 1-based page and a limit into FindOptions skip/limit.
// page < 1 is treated as 1; limit < 1 becomes def; limit is capped at max.
func Page(page, limit, def, max int) (skip, lim int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return int64(page-1) * int64(limit), int64(limit)
}
