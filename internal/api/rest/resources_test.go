package rest

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chatadmin/admin-console/internal/audit"
	"github.com/chatadmin/admin-console/internal/repository"
	"github.com/chatadmin/admin-console/internal/repository/repotest"
)

func TestUsers_PaginationByDefaultSort(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		env.store.Seed(repository.CollectionUsers, bson.M{
			"email":     fmt.Sprintf("u%02d@example.com", i),
			"createdAt": base.Add(time.Duration(i) * time.Minute),
		})
	}

	rec := env.do(t, http.MethodGet, "/api/users?page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data, total := decodeList(t, rec)
	assert.Equal(t, 25, total)
	require.Len(t, data, 10)
	// newest first: page 1 holds u24..u15, page 2 holds u14..u05
	assert.Equal(t, "u14@example.com", data[0]["email"])
	assert.Equal(t, "u05@example.com", data[9]["email"])

	rec = env.do(t, http.MethodGet, "/api/users?page=1&limit=5&order=asc", nil)
	data, total = decodeList(t, rec)
	assert.Equal(t, 25, total)
	assert.Equal(t, "u00@example.com", data[0]["email"])
}

func TestRoles_DefaultOrderIsNameAscending(t *testing.T) {
	env := newTestEnv(t)
	env.store.Seed(repository.CollectionRoles, bson.M{"name": "USER"}, bson.M{"name": "ADMIN"}, bson.M{"name": "EDITOR"})

	data, _ := decodeList(t, env.do(t, http.MethodGet, "/api/roles", nil))
	require.Len(t, data, 3)
	assert.Equal(t, "ADMIN", data[0]["name"])
	assert.Equal(t, "USER", data[2]["name"])
}

func TestIdentityRoundTrip_EveryResource(t *testing.T) {
	env := newTestEnv(t)
	bodies := map[string]map[string]any{
		"users":        {"email": "ada@example.com", "name": "Ada"},
		"roles":        {"name": "EDITOR"},
		"convos":       {"title": "hello"},
		"messages":     {"text": "hi", "conversationId": "c1"},
		"agents":       {"name": "helper"},
		"files":        {"filename": "a.png", "bytes": 10},
		"sessions":     {"expiration": "2030-01-01T00:00:00Z"},
		"tokens":       {"type": "verify"},
		"transactions": {"rawAmount": -10, "tokenType": "prompt"},
		"projects":     {"name": "instance"},
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/"+name, body)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			data, _ := decodeList(t, env.do(t, http.MethodGet, "/api/"+name, nil))
			require.NotEmpty(t, data)
			id, _ := data[0]["id"].(string)
			require.NotEmpty(t, id)

			got := env.do(t, http.MethodGet, "/api/"+name+"/"+id, nil)
			require.Equal(t, http.StatusOK, got.Code)
			doc := decodeObject(t, got)
			assert.Equal(t, id, doc["id"])
			assert.Equal(t, data[0]["_id"], doc["_id"])
		})
	}

	t.Run("legacy conversation without application id", func(t *testing.T) {
		ids := env.store.Seed(repository.CollectionConversations, bson.M{"title": "legacy", "updatedAt": time.Now().Add(time.Hour)})
		hex := ids[0].(primitive.ObjectID).Hex()
		doc := decodeObject(t, env.do(t, http.MethodGet, "/api/convos/"+hex, nil))
		assert.Equal(t, hex, doc["id"])
		assert.Equal(t, "legacy", doc["title"])
	})

	t.Run("audit logs", func(t *testing.T) {
		data, _ := decodeList(t, env.do(t, http.MethodGet, "/api/audit-logs", nil))
		require.NotEmpty(t, data)
		id := data[0]["id"].(string)
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/audit-logs/"+id, nil).Code)
	})
}

func TestAgents_KeyedByApplicationID(t *testing.T) {
	env := newTestEnv(t)
	created := decodeObject(t, env.do(t, http.MethodPost, "/api/agents", map[string]any{"name": "helper"}))
	id := created["id"].(string)
	assert.Regexp(t, `^agent_[A-Za-z0-9]{21}$`, id)
	assert.NotEqual(t, created["_id"], id)
	assert.Equal(t, []any{}, created["tools"])

	rec := env.do(t, http.MethodDelete, "/api/agents/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.store.All(repository.CollectionAgents))
}

func TestGetMissing(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/users/"+primitive.NewObjectID().Hex(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeObject(t, rec)["error"], "not found")
}

func TestCreate_StripsClientIDsAndAppliesDefaults(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/users", map[string]any{
		"_id": "mine", "id": "mine", "email": "ada@example.com", "password": "hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	doc := decodeObject(t, rec)
	assert.NotEqual(t, "mine", doc["_id"])
	assert.Equal(t, "USER", doc["role"])
	assert.Equal(t, false, doc["emailVerified"])
	assert.NotContains(t, doc, "password")
}

func TestCreate_RequiredField(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/projects", map[string]any{"agentIds": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", decodeObject(t, rec)["error"])
}

func TestRoles_UniqueName(t *testing.T) {
	env := newTestEnv(t)
	first := env.do(t, http.MethodPost, "/api/roles", map[string]any{"name": "EDITOR"})
	require.Equal(t, http.StatusCreated, first.Code)

	second := env.do(t, http.MethodPost, "/api/roles", map[string]any{"name": "EDITOR"})
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Contains(t, decodeObject(t, second)["error"], "already exists")

	n, err := env.store.Count(t.Context(), repository.CollectionRoles, bson.M{"name": "EDITOR"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// renaming another role onto the taken name is refused too
	other := decodeObject(t, env.do(t, http.MethodPost, "/api/roles", map[string]any{"name": "VIEWER"}))
	rec := env.do(t, http.MethodPut, "/api/roles/"+other["id"].(string), map[string]any{"name": "EDITOR"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoles_NewRoleHasAllFalsePermissions(t *testing.T) {
	env := newTestEnv(t)
	doc := decodeObject(t, env.do(t, http.MethodPost, "/api/roles", map[string]any{
		"name": "EDITOR", "permissions": map[string]any{"AGENTS": map[string]any{"USE": true}},
	}))
	perms := doc["permissions"].(map[string]any)
	assert.Len(t, perms, 12)
	assert.Equal(t, true, perms["AGENTS"].(map[string]any)["USE"])
	assert.Equal(t, false, perms["AGENTS"].(map[string]any)["CREATE"])
	assert.Equal(t, false, perms["BOOKMARKS"].(map[string]any)["USE"])
}

func TestRoles_DeleteGuard(t *testing.T) {
	env := newTestEnv(t)
	ids := env.store.Seed(repository.CollectionRoles, bson.M{"name": "ADMIN"})
	env.store.Seed(repository.CollectionUsers,
		bson.M{"email": "a@example.com", "role": "ADMIN"},
		bson.M{"email": "b@example.com", "role": "ADMIN"},
		bson.M{"email": "c@example.com", "role": "USER"},
	)
	id := ids[0].(primitive.ObjectID).Hex()

	rec := env.do(t, http.MethodDelete, "/api/roles/"+id, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot delete role: 2 user(s) still assigned to role ADMIN", decodeObject(t, rec)["error"])
	assert.Len(t, env.store.All(repository.CollectionRoles), 1)
	assert.Empty(t, env.store.All(repository.CollectionAuditLogs))
}

func TestCreate_ReplacesClientApplicationIDs(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/convos", map[string]any{"conversationId": "c-1", "title": "t"})
	require.Equal(t, http.StatusCreated, rec.Code)
	convo := decodeObject(t, rec)
	assert.NotEqual(t, "c-1", convo["conversationId"])
	assert.Equal(t, convo["conversationId"], convo["id"])

	rec = env.do(t, http.MethodPost, "/api/messages", map[string]any{"messageId": "m-1", "text": "hi"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEqual(t, "m-1", decodeObject(t, rec)["messageId"])
}

func TestRoles_RenameGuard(t *testing.T) {
	env := newTestEnv(t)
	ids := env.store.Seed(repository.CollectionRoles, bson.M{"name": "ADMIN"}, bson.M{"name": "EDITOR"})
	env.store.Seed(repository.CollectionUsers, bson.M{"email": "a@example.com", "role": "ADMIN"})
	admin := ids[0].(primitive.ObjectID).Hex()

	rec := env.do(t, http.MethodPut, "/api/roles/"+admin, map[string]any{"name": "RENAMED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot rename role: 1 user(s) still assigned to role ADMIN", decodeObject(t, rec)["error"])

	rec = env.do(t, http.MethodDelete, "/api/roles/"+admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "the delete guard still sees the assigned user")

	rec = env.do(t, http.MethodPut, "/api/roles/"+ids[1].(primitive.ObjectID).Hex(), map[string]any{"name": "WRITER"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "WRITER", decodeObject(t, rec)["name"])
}

func TestUpdate_MergesPatchAndRefreshesTimestamp(t *testing.T) {
	env := newTestEnv(t)
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.store.Seed(repository.CollectionConversations, bson.M{
		"conversationId": "conv-1", "title": "old", "model": "gpt", "createdAt": old, "updatedAt": old,
	})

	rec := env.do(t, http.MethodPut, "/api/convos/conv-1", map[string]any{"title": "new", "conversationId": "other"})
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decodeObject(t, rec)
	assert.Equal(t, "new", doc["title"])
	assert.Equal(t, "gpt", doc["model"])
	assert.Equal(t, "conv-1", doc["id"])
	updated, err := time.Parse(time.RFC3339Nano, doc["updatedAt"].(string))
	require.NoError(t, err)
	assert.True(t, updated.After(old))
}

func TestMutations_AreAudited(t *testing.T) {
	env := newTestEnv(t)
	actor := []string{audit.HeaderEmail, "ops@example.com", audit.HeaderUser, "Ops", "X-Forwarded-For", "203.0.113.7, 10.0.0.1"}

	created := decodeObject(t, env.do(t, http.MethodPost, "/api/projects", map[string]any{"name": "p1"}, actor...))
	id := created["id"].(string)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/projects/"+id, map[string]any{"name": "p2"}, actor...).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/projects/"+id, nil).Code)

	logs := env.store.All(repository.CollectionAuditLogs)
	require.Len(t, logs, 3)
	for i, action := range []string{"create", "update", "delete"} {
		assert.Equal(t, action, logs[i]["action"])
		assert.Equal(t, "projects", logs[i]["resource"])
		assert.Equal(t, id, logs[i]["resourceId"])
	}
	assert.Equal(t, "ops@example.com", logs[0]["userEmail"])
	assert.Equal(t, "203.0.113.7", logs[0]["ipAddress"])
	assert.Equal(t, audit.UnknownActor, logs[2]["userEmail"])
	assert.Equal(t, "p2", logs[2]["details"].(bson.M)["name"], "delete records the snapshot")
}

func TestUpdate_AuditOmitsRedactedFields(t *testing.T) {
	env := newTestEnv(t)
	tokens := env.store.Seed(repository.CollectionTokens, bson.M{"type": "reset", "token": "old"})
	sessions := env.store.Seed(repository.CollectionSessions, bson.M{"refreshTokenHash": "h1"})

	res := env.do(t, http.MethodPut, "/api/tokens/"+tokens[0].(primitive.ObjectID).Hex(),
		map[string]any{"token": "s3cret-value", "type": "verify"})
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, decodeObject(t, res), "token")
	res = env.do(t, http.MethodPut, "/api/sessions/"+sessions[0].(primitive.ObjectID).Hex(),
		map[string]any{"refreshTokenHash": "h2"})
	require.Equal(t, http.StatusOK, res.Code)

	logs := env.store.All(repository.CollectionAuditLogs)
	require.Len(t, logs, 2)
	tokenDetails := logs[0]["details"].(bson.M)
	assert.NotContains(t, tokenDetails, "token")
	assert.Equal(t, "verify", tokenDetails["type"])
	assert.NotContains(t, logs[1]["details"].(bson.M), "refreshTokenHash")

	stored := env.store.All(repository.CollectionTokens)
	assert.Equal(t, "s3cret-value", stored[0]["token"], "the store still receives the value")
}

func TestMutations_AuditFailureDoesNotChangeResponse(t *testing.T) {
	run := func(t *testing.T, failAudit bool) (codes []int, bodies []map[string]any) {
		env := newTestEnv(t)
		if failAudit {
			env.store.Fail(repotest.OpInsertOne, repository.CollectionAuditLogs, errors.New("audit store down"))
		}
		ids := env.store.Seed(repository.CollectionProjects, bson.M{"name": "p1"})
		id := ids[0].(primitive.ObjectID).Hex()

		steps := []struct {
			method, path string
			body         any
		}{
			{http.MethodPut, "/api/projects/" + id, map[string]any{"name": "p2", "agentIds": []string{"a"}}},
			{http.MethodDelete, "/api/projects/" + id, nil},
		}
		for _, step := range steps {
			res := env.do(t, step.method, step.path, step.body)
			codes = append(codes, res.Code)
			body := decodeObject(t, res)
			delete(body, "updatedAt")
			bodies = append(bodies, body)
		}
		res := env.do(t, http.MethodPost, "/api/roles", map[string]any{"name": "EDITOR"})
		codes = append(codes, res.Code)
		if failAudit {
			assert.Empty(t, env.store.All(repository.CollectionAuditLogs))
		}
		return codes, bodies
	}

	okCodes, okBodies := run(t, false)
	failCodes, failBodies := run(t, true)
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusCreated}, okCodes)
	assert.Equal(t, okCodes, failCodes)
	for i := range okBodies {
		delete(okBodies[i], "_id")
		delete(okBodies[i], "id")
		delete(failBodies[i], "_id")
		delete(failBodies[i], "id")
	}
	assert.Equal(t, okBodies, failBodies)
}

func TestAuditLogs_ReadOnlyAndCleanupNotAudited(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	ids := env.store.Seed(repository.CollectionAuditLogs,
		bson.M{"action": "create", "resource": "users", "timestamp": now.AddDate(0, 0, -100)},
		bson.M{"action": "update", "resource": "users", "timestamp": now.AddDate(0, 0, -40)},
		bson.M{"action": "delete", "resource": "roles", "timestamp": now.AddDate(0, 0, -1)},
	)

	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodPost, "/api/audit-logs", map[string]any{"action": "x"}).Code)

	data, total := decodeList(t, env.do(t, http.MethodGet, "/api/audit-logs?resource=users", nil))
	assert.Equal(t, 2, total)
	assert.Equal(t, "update", data[0]["action"])

	rec := env.do(t, http.MethodDelete, "/api/audit-logs?olderThanDays=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeObject(t, rec)["deleted"])

	rec = env.do(t, http.MethodDelete, "/api/audit-logs/"+ids[2].(primitive.ObjectID).Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.store.All(repository.CollectionAuditLogs), "audit deletions never write audit entries")

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodDelete, "/api/audit-logs?olderThanDays=zero", nil).Code)
}
