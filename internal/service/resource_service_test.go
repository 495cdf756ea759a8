package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chatadmin/admin-console/internal/pkg/apperr"
	"github.com/chatadmin/admin-console/internal/repository"
	"github.com/chatadmin/admin-console/internal/repository/repotest"
	"github.com/chatadmin/admin-console/internal/resource"
)

func newTestService(t *testing.T) (*resourceService, *repotest.MemoryStore) {
	t.Helper()
	store := repotest.NewMemoryStore()
	svc := NewResourceService(store).(*resourceService)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func descriptor(t *testing.T, name string) resource.Descriptor {
	t.Helper()
	d, ok := resource.Catalog().Lookup(name)
	require.True(t, ok, name)
	return d
}

// object accepts either map form a stored document may use.
func object(t *testing.T, v any) map[string]any {
	t.Helper()
	switch m := v.(type) {
	case bson.M:
		return m
	case map[string]any:
		return m
	}
	t.Fatalf("expected an object, got %T", v)
	return nil
}

func TestList_PagingAndOrder(t *testing.T) {
	svc, store := newTestService(t)
	d := descriptor(t, resource.Projects)
	for _, n := range []string{"c", "a", "e", "b", "d"} {
		store.Seed(repository.CollectionProjects, bson.M{"name": n})
	}

	res, err := svc.List(context.Background(), d, ListParams{Page: 2, Limit: 2, Sort: "name", Order: "ASC"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, res.Total)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "c", res.Data[0]["name"])
	assert.Equal(t, "d", res.Data[1]["name"])

	res, err = svc.List(context.Background(), d, ListParams{Page: 3, Limit: 2, Sort: "name", Order: "desc"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "a", res.Data[0]["name"])
}

func TestList_UnsafeSortFallsBack(t *testing.T) {
	svc, store := newTestService(t)
	d := descriptor(t, resource.Projects)
	store.Seed(repository.CollectionProjects, bson.M{"name": "x"})

	res, err := svc.List(context.Background(), d, ListParams{Sort: "$where"})
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
}

func TestList_Filters(t *testing.T) {
	svc, store := newTestService(t)
	d := descriptor(t, resource.Messages)
	store.Seed(repository.CollectionMessages,
		bson.M{"conversationId": "c1", "text": "hi"},
		bson.M{"conversationId": "c2", "text": "yo"},
		bson.M{"conversationId": "c1", "text": "there"},
	)

	res, err := svc.List(context.Background(), d, ListParams{Filters: map[string]string{"conversationId": "c1", "ignored": "x"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	for _, m := range res.Data {
		assert.Equal(t, "c1", m["conversationId"])
	}
}

func TestList_ObjectIDFilterMatchesBothForms(t *testing.T) {
	svc, store := newTestService(t)
	d := descriptor(t, resource.Transactions)
	oid := primitive.NewObjectID()
	store.Seed(repository.CollectionTransactions,
		bson.M{"user": oid, "rawAmount": -10},
		bson.M{"user": oid.Hex(), "rawAmount": -20},
		bson.M{"user": primitive.NewObjectID(), "rawAmount": -30},
	)

	res, err := svc.List(context.Background(), d, ListParams{Filters: map[string]string{"user": oid.Hex()}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
}

func TestList_StoreFailure(t *testing.T) {
	svc, store := newTestService(t)
	store.Fail(repotest.OpFind, "", errors.New("connection reset"))

	_, err := svc.List(context.Background(), descriptor(t, resource.Users), ListParams{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}

func TestGet_KeyForms(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	ids := store.Seed(repository.CollectionConversations,
		bson.M{"conversationId": "conv-1", "title": "with key"},
		bson.M{"title": "legacy"},
	)

	convos := descriptor(t, resource.Convos)
	got, err := svc.Get(ctx, convos, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", got["id"])

	legacyID := ids[1].(primitive.ObjectID).Hex()
	got, err = svc.Get(ctx, convos, legacyID)
	require.NoError(t, err)
	assert.Equal(t, legacyID, got["id"])
	assert.Equal(t, "legacy", got["title"])

	_, err = svc.Get(ctx, convos, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreate_UserDefaultsHashAndRedact(t *testing.T) {
	svc, store := newTestService(t)
	d := descriptor(t, resource.Users)

	got, err := svc.Create(context.Background(), d, map[string]any{
		"email": "ada@example.com", "password": "s3cret", "_id": "forged", "id": "forged",
	})
	require.NoError(t, err)
	assert.Equal(t, "USER", got["role"])
	assert.Equal(t, "local", got["provider"])
	assert.Equal(t, false, got["emailVerified"])
	assert.NotContains(t, got, "password")
	assert.NotEqual(t, "forged", got["_id"])
	assert.Equal(t, got["_id"], got["id"])

	stored := store.All(repository.CollectionUsers)
	require.Len(t, stored, 1)
	assert.NotEqual(t, "s3cret", stored[0]["password"])
	assert.Equal(t, svc.now().UTC(), stored[0]["createdAt"])
}

func TestCreate_RequiredAndUnique(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	roles := descriptor(t, resource.Roles)

	_, err := svc.Create(ctx, roles, map[string]any{"name": "  "})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, apperr.Message(err), "name is required")

	_, err = svc.Create(ctx, roles, map[string]any{"name": "EDITOR"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, roles, map[string]any{"name": "EDITOR"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreate_RolePermissionsMerged(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.Create(context.Background(), descriptor(t, resource.Roles), map[string]any{
		"name":        "EDITOR",
		"permissions": map[string]any{"PROMPTS": map[string]any{"USE": true}},
	})
	require.NoError(t, err)
	perms := object(t, got["permissions"])
	prompts := object(t, perms["PROMPTS"])
	assert.Equal(t, true, prompts["USE"])
	assert.Equal(t, false, prompts["CREATE"])
	assert.Contains(t, perms, "FILE_CITATIONS")
}

func TestCreate_AgentGetsGeneratedID(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.Create(context.Background(), descriptor(t, resource.Agents), map[string]any{"name": "helper", "id": "agent_mine"})
	require.NoError(t, err)
	id, _ := got["id"].(string)
	assert.Regexp(t, `^agent_[A-Za-z0-9]{21}$`, id)
	assert.Contains(t, got, "tools")
	assert.Empty(t, got["tools"])
}

func TestCreate_ReadOnlyResource(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), descriptor(t, resource.AuditLogs), map[string]any{"action": "create"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdate_SetsFieldsAndTimestamp(t *testing.T) {
	svc, store := newTestService(t)
	d := descriptor(t, resource.Convos)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.Seed(repository.CollectionConversations, bson.M{
		"conversationId": "conv-1", "title": "old", "createdAt": created, "updatedAt": created,
	})

	got, set, err := svc.Update(context.Background(), d, "conv-1", map[string]any{
		"title": "new", "conversationId": "hijack", "createdAt": "never", "_id": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", got["title"])
	assert.Equal(t, "conv-1", got["id"])
	assert.Equal(t, created, got["createdAt"])
	assert.Equal(t, svc.now().UTC(), got["updatedAt"])
	assert.NotContains(t, set, "conversationId")
	assert.Equal(t, "new", set["title"])
}

func TestUpdate_UniqueExcludesSelf(t *testing.T) {
	svc, store := newTestService(t)
	d := descriptor(t, resource.Roles)
	ids := store.Seed(repository.CollectionRoles, bson.M{"name": "A"}, bson.M{"name": "B"})
	a := ids[0].(primitive.ObjectID).Hex()

	_, _, err := svc.Update(context.Background(), d, a, map[string]any{"name": "A"})
	require.NoError(t, err)

	_, _, err = svc.Update(context.Background(), d, a, map[string]any{"name": "B"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUpdate_PermissionsOverlayCurrent(t *testing.T) {
	svc, store := newTestService(t)
	d := descriptor(t, resource.Roles)
	ids := store.Seed(repository.CollectionRoles, bson.M{
		"name": "A",
		"permissions": bson.M{"AGENTS": bson.M{"USE": true, "CREATE": false, "SHARED_GLOBAL": false}},
	})

	got, _, err := svc.Update(context.Background(), d, ids[0].(primitive.ObjectID).Hex(), map[string]any{
		"permissions": map[string]any{"AGENTS": map[string]any{"CREATE": true}},
	})
	require.NoError(t, err)
	agents := object(t, object(t, got["permissions"])["AGENTS"])
	assert.Equal(t, true, agents["USE"])
	assert.Equal(t, true, agents["CREATE"])
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Update(context.Background(), descriptor(t, resource.Projects), primitive.NewObjectID().Hex(), map[string]any{"name": "x"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDelete_ReturnsSnapshot(t *testing.T) {
	svc, store := newTestService(t)
	d := descriptor(t, resource.Projects)
	ids := store.Seed(repository.CollectionProjects, bson.M{"name": "gone"})
	id := ids[0].(primitive.ObjectID).Hex()

	snap, err := svc.Delete(context.Background(), d, id)
	require.NoError(t, err)
	assert.Equal(t, "gone", snap["name"])
	assert.Empty(t, store.All(repository.CollectionProjects))

	_, err = svc.Delete(context.Background(), d, id)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDelete_RoleInUse(t *testing.T) {
	svc, store := newTestService(t)
	ids := store.Seed(repository.CollectionRoles, bson.M{"name": "EDITOR"})
	store.Seed(repository.CollectionUsers, bson.M{"email": "a@x", "role": "EDITOR"}, bson.M{"email": "b@x", "role": "EDITOR"})

	_, err := svc.Delete(context.Background(), descriptor(t, resource.Roles), ids[0].(primitive.ObjectID).Hex())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Cannot delete role: 2 user(s) still assigned to role EDITOR", apperr.Message(err))
	assert.Len(t, store.All(repository.CollectionRoles), 1)
}

func TestDeleteOlderThan(t *testing.T) {
	svc, store := newTestService(t)
	d := descriptor(t, resource.AuditLogs)
	now := svc.now()
	store.Seed(repository.CollectionAuditLogs,
		bson.M{"action": "create", "timestamp": now.AddDate(0, 0, -40)},
		bson.M{"action": "update", "timestamp": now.AddDate(0, 0, -10)},
	)

	n, err := svc.DeleteOlderThan(context.Background(), d, "timestamp", 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	left := store.All(repository.CollectionAuditLogs)
	require.Len(t, left, 1)
	assert.Equal(t, "update", left[0]["action"])

	_, err = svc.DeleteOlderThan(context.Background(), d, "timestamp", 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
