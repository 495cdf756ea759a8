package resource

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/repository"
)

// Route names.
const (
	Users        = "users"
	Roles        = "roles"
	Convos       = "convos"
	Messages     = "messages"
	Agents       = "agents"
	Files        = "files"
	Sessions     = "sessions"
	Tokens       = "tokens"
	Transactions = "transactions"
	Projects     = "projects"
	AuditLogs    = "audit-logs"
)

// Catalog returns the descriptors for every document-backed resource.
func Catalog() *Registry {
	return NewRegistry(
		Descriptor{
			Name: Users, Kind: "user", Collection: repository.CollectionUsers,
			KeyField: KeyNative, DefaultSort: "createdAt", DefaultOrder: "desc",
			Defaults: func() bson.M {
				return bson.M{"role": models.RoleUser, "emailVerified": false, "provider": "local"}
			},
			UniqueField:  "email",
			Required:     []string{"email"},
			Timestamps:   true,
			Redact:       models.UserSecretFields,
			FilterParams: []string{"role", "provider", "email"},
			Hooks:        Hooks{BeforeCreate: hashPasswordOnCreate, BeforeUpdate: hashPasswordOnUpdate},
		},
		Descriptor{
			Name: Roles, Kind: "role", Collection: repository.CollectionRoles,
			KeyField: KeyNative, DefaultSort: "name", DefaultOrder: "asc",
			Defaults: func() bson.M {
				return bson.M{"permissions": models.DefaultPermissions().ToDocument()}
			},
			UniqueField: "name",
			Required:    []string{"name"},
			Hooks: Hooks{
				BeforeCreate: mergePermissionsOnCreate,
				BeforeUpdate: updateRole,
				BeforeDelete: guardRoleInUse,
			},
		},
		Descriptor{
			Name: Convos, Kind: "conversation", Collection: repository.CollectionConversations,
			KeyField: KeyConversation, DefaultSort: "updatedAt", DefaultOrder: "desc",
			Timestamps:   true,
			FilterParams: []string{"user", "endpoint", "model"},
			Hooks:        Hooks{BeforeCreate: assignUUID(KeyConversation)},
		},
		Descriptor{
			Name: Messages, Kind: "message", Collection: repository.CollectionMessages,
			KeyField: KeyNative, DefaultSort: "createdAt", DefaultOrder: "desc",
			Timestamps:   true,
			FilterParams: []string{"conversationId", "sender", "user"},
			Hooks:        Hooks{BeforeCreate: assignUUID("messageId")},
		},
		Descriptor{
			Name: Agents, Kind: "agent", Collection: repository.CollectionAgents,
			KeyField: KeyAgent, DefaultSort: "updatedAt", DefaultOrder: "desc",
			Defaults:       agentDefaults,
			Required:       []string{"name"},
			Timestamps:     true,
			ObjectIDFields: []string{"author"},
			FilterParams:   []string{"provider", "model", "category", "author"},
			Hooks:          Hooks{BeforeCreate: assignAgentID},
		},
		Descriptor{
			Name: Files, Kind: "file", Collection: repository.CollectionFiles,
			KeyField: KeyNative, DefaultSort: "createdAt", DefaultOrder: "desc",
			Timestamps:     true,
			ObjectIDFields: []string{"user"},
			FilterParams:   []string{"user", "type"},
		},
		Descriptor{
			Name: Sessions, Kind: "session", Collection: repository.CollectionSessions,
			KeyField: KeyNative, DefaultSort: "expiration", DefaultOrder: "desc",
			ObjectIDFields: []string{"user"},
			FilterParams:   []string{"user"},
			Redact:         []string{"refreshTokenHash"},
		},
		Descriptor{
			Name: Tokens, Kind: "token", Collection: repository.CollectionTokens,
			KeyField: KeyNative, DefaultSort: "createdAt", DefaultOrder: "desc",
			ObjectIDFields: []string{"userId"},
			FilterParams:   []string{"userId", "type"},
			Redact:         []string{"token"},
		},
		Descriptor{
			Name: Transactions, Kind: "transaction", Collection: repository.CollectionTransactions,
			KeyField: KeyNative, DefaultSort: "createdAt", DefaultOrder: "desc",
			Timestamps:     true,
			ObjectIDFields: []string{"user"},
			FilterParams:   []string{"user", "tokenType", "model"},
		},
		Descriptor{
			Name: Projects, Kind: "project", Collection: repository.CollectionProjects,
			KeyField: KeyNative, DefaultSort: "createdAt", DefaultOrder: "desc",
			Defaults: func() bson.M {
				return bson.M{"agentIds": bson.A{}, "promptGroupIds": bson.A{}}
			},
			Required:   []string{"name"},
			Timestamps: true,
		},
		Descriptor{
			Name: AuditLogs, Kind: "audit log", Collection: repository.CollectionAuditLogs,
			KeyField: KeyNative, DefaultSort: "timestamp", DefaultOrder: "desc",
			FilterParams: []string{"action", "resource", "userEmail"},
			ReadOnly:     true,
			Unaudited:    true,
		},
	)
}

func agentDefaults() bson.M {
	d := bson.M{
		"is_promoted":             false,
		"end_after_tools":         false,
		"hide_sequential_outputs": false,
	}
	for _, f := range models.AgentListFields {
		d[f] = bson.A{}
	}
	return d
}
