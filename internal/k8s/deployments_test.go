package k8s

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/chatadmin/admin-console/internal/models"
)

func TestDeploymentStatus(t *testing.T) {
	tests := []struct {
		desired, ready int32
		want           string
	}{
		{3, 3, models.DeploymentReady},
		{3, 4, models.DeploymentReady},
		{0, 0, models.DeploymentReady},
		{3, 1, models.DeploymentPartial},
		{3, 0, models.DeploymentNotReady},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeploymentStatus(tt.desired, tt.ready), "desired=%d ready=%d", tt.desired, tt.ready)
	}
}

func TestDeploymentFromObject(t *testing.T) {
	d := DeploymentFromObject(testDeployment("librechat", "api", 2, 1), testNow)
	assert.Equal(t, "librechat::api", d.ID)
	assert.Equal(t, int32(2), d.Replicas)
	assert.Equal(t, models.DeploymentPartial, d.Status)
	assert.Equal(t, []string{"ghcr.io/x/api:v1"}, d.Images)
	assert.Equal(t, map[string]string{"app": "api"}, d.Selector)
	assert.Equal(t, "2d", d.Age)
}

func TestListDeployments_SkipsFailingNamespace(t *testing.T) {
	cs := fake.NewSimpleClientset(testDeployment("librechat", "api", 1, 1))
	cs.PrependReactor("list", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		if action.GetNamespace() == "broken" {
			return true, nil, errors.New("timeout")
		}
		return false, nil, nil
	})
	c := NewClientForTest(cs, nil, nil)
	deps := c.ListDeployments(context.Background(), []string{"broken", "librechat"})
	require.Len(t, deps, 1)
	assert.Equal(t, "api", deps[0].Name)
}

func TestRestartDeployment_PatchesTemplateAnnotation(t *testing.T) {
	cs := fake.NewSimpleClientset(testDeployment("librechat", "api", 1, 1))
	var patchType types.PatchType
	cs.PrependReactor("patch", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		patchType = action.(k8stesting.PatchAction).GetPatchType()
		return false, nil, nil
	})
	c := NewClientForTest(cs, nil, nil)
	c.Now = fixedClock

	at, err := c.RestartDeployment(context.Background(), "librechat", "api")
	require.NoError(t, err)
	assert.Equal(t, testNow, at)
	assert.Equal(t, types.StrategicMergePatchType, patchType)

	dep, err := cs.AppsV1().Deployments("librechat").Get(context.Background(), "api", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, testNow.Format(time.RFC3339), dep.Spec.Template.Annotations[RestartAnnotation])
}

func TestRestartDeployment_NotFound(t *testing.T) {
	c := NewClientForTest(fake.NewSimpleClientset(), nil, nil)
	_, err := c.RestartDeployment(context.Background(), "librechat", "missing")
	assert.Error(t, err)
}
