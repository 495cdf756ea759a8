package rest

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chatadmin/admin-console/internal/audit"
	"github.com/chatadmin/admin-console/internal/repository"
)

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.store.Seed(repository.CollectionUsers, bson.M{"email": "a@example.com"})
	env.store.Seed(repository.CollectionAgents, bson.M{"id": "agent_1"}, bson.M{"id": "agent_2"})

	rec := env.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.EqualValues(t, 1, body["users"])
	assert.EqualValues(t, 2, body["agents"])
	assert.EqualValues(t, 0, body["messages"])
}

func TestCostStats_SumsAbsoluteAmounts(t *testing.T) {
	env := newTestEnv(t)
	ids := env.store.Seed(repository.CollectionUsers, bson.M{"name": "Ada", "email": "ada@example.com"})
	user := ids[0].(primitive.ObjectID)
	now := time.Now().UTC()
	for _, amount := range []int{-100, -250, 50} {
		env.store.Seed(repository.CollectionTransactions, bson.M{
			"user": user, "rawAmount": amount, "tokenValue": float64(amount) * 0.5, "createdAt": now,
		})
	}

	rec := env.do(t, http.MethodGet, "/api/cost-stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	top := body["topUsers"].([]any)
	require.Len(t, top, 1)
	row := top[0].(map[string]any)
	assert.EqualValues(t, 400, row["totalTokens"])
	assert.EqualValues(t, 200, row["totalValue"])
	assert.EqualValues(t, 3, row["transactionCount"])
	assert.Equal(t, "ada@example.com", row["email"])
	assert.InDelta(t, 0.0008, row["estimatedCost"], 1e-12)
	assert.EqualValues(t, 400, body["totals"].(map[string]any)["totalTokens"])
	assert.Equal(t, now.Format("2006-01"), body["month"])
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	env.store.Seed(repository.CollectionUsers, bson.M{"email": "root@example.com", "role": "ADMIN"})

	rec := env.do(t, http.MethodGet, "/api/user", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", decodeObject(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/api/user", nil, audit.HeaderEmail, "root@example.com", audit.HeaderUser, "Root")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.Equal(t, "root@example.com", body["email"])
	assert.Equal(t, "Root", body["name"])
	assert.Equal(t, "ADMIN", body["role"])

	rec = env.do(t, http.MethodGet, "/api/user", nil, audit.HeaderFallbackEmail, "new@example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeObject(t, rec)
	assert.Equal(t, "new@example.com", body["email"])
	assert.Equal(t, "USER", body["role"])
}
