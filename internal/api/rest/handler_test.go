package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/chatadmin/admin-console/internal/k8s"
	"github.com/chatadmin/admin-console/internal/pkg/apperr"
	"github.com/chatadmin/admin-console/internal/repository"
	"github.com/chatadmin/admin-console/internal/repository/repotest"
)

type testEnv struct {
	store  *repotest.MemoryStore
	cs     *fake.Clientset
	router *mux.Router
}

func newTestEnv(t *testing.T, objs ...runtime.Object) *testEnv {
	t.Helper()
	store := repotest.NewMemoryStore()
	cs := fake.NewSimpleClientset(objs...)
	client := k8s.NewClientForTest(cs, nil, nil)
	h := NewHandler(store, client, nil, Options{Namespaces: []string{"librechat"}})
	router := mux.NewRouter()
	SetupRoutes(router, h)
	return &testEnv{store: store, cs: cs, router: router}
}

// do sends a request; headers are given as alternating name, value pairs.
func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) ([]map[string]any, int) {
	t.Helper()
	var out struct {
		Data  []map[string]any `json:"data"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Data, out.Total
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Validation("bad"), http.StatusBadRequest},
		{"conflict", apperr.Conflict("dup"), http.StatusBadRequest},
		{"not found", apperr.NotFound("gone"), http.StatusNotFound},
		{"store miss", fmt.Errorf("get: %w", repository.ErrNotFound), http.StatusNotFound},
		{"k8s miss", fmt.Errorf("get pod: %w", apierrors.NewNotFound(schema.GroupResource{Resource: "pods"}, "x")), http.StatusNotFound},
		{"upstream", apperr.Upstream(errors.New("reset"), "list users"), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestInvalidBody(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/roles", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decodeObject(t, rec)["error"])

	req = httptest.NewRequest(http.MethodPost, "/api/roles", http.NoBody)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreErrorIsGeneric500(t *testing.T) {
	env := newTestEnv(t)
	env.store.Fail(repotest.OpFind, repository.CollectionUsers, errors.New("socket closed by peer 10.0.0.3"))

	rec := env.do(t, http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeObject(t, rec)["error"])
}

func TestHealthProbes(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz/live", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz/ready", nil).Code)

	env.store.FailPing(errors.New("no reachable servers"))
	rec := env.do(t, http.MethodGet, "/healthz/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "database_unavailable", decodeObject(t, rec)["reason"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
