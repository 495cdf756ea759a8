package k8s

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/metrics"
	"github.com/chatadmin/admin-console/internal/pkg/validate"
)

// RestartAnnotation is the pod-template annotation rewritten to trigger a rollout.
const RestartAnnotation = "kubectl.kubernetes.io/restartedAt"

// ListDeployments lists deployments per namespace with the same partial-failure rule as ListPods.
func (c *Client) ListDeployments(ctx context.Context, namespaces []string) []models.Deployment {
	now := c.now()
	out := make([]models.Deployment, 0)
	for _, ns := range namespaces {
		var list *appsv1.DeploymentList
		err := c.call(ctx, func(ctx context.Context) error {
			var err error
			list, err = c.Clientset.AppsV1().Deployments(ns).List(ctx, metav1.ListOptions{})
			return err
		})
		if err != nil {
			c.log.Warn("Failed to list deployments", zap.String("namespace", ns), zap.Error(err))
			metrics.NamespaceListFailuresTotal.WithLabelValues("deployments", ns).Inc()
			continue
		}
		for i := range list.Items {
			out = append(out, DeploymentFromObject(&list.Items[i], now))
		}
	}
	return out
}

func (c *Client) GetDeployment(ctx context.Context, namespace, name string) (*models.Deployment, error) {
	var dep *appsv1.Deployment
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		dep, err = c.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
	}
	d := DeploymentFromObject(dep, c.now())
	return &d, nil
}

// RestartDeployment stamps the pod template with the current time and returns it.
// The rollout itself is left to the deployment controller.
func (c *Client) RestartDeployment(ctx context.Context, namespace, name string) (time.Time, error) {
	at := c.now().UTC()
	patch := map[string]any{
		"spec": map[string]any{
			"template": map[string]any{
				"metadata": map[string]any{
					"annotations": map[string]string{
						RestartAnnotation: at.Format(time.RFC3339),
					},
				},
			},
		},
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal restart patch: %w", err)
	}
	err = c.call(ctx, func(ctx context.Context) error {
		_, err := c.Clientset.AppsV1().Deployments(namespace).Patch(ctx, name, types.StrategicMergePatchType, body, metav1.PatchOptions{})
		return err
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("restart deployment %s/%s: %w", namespace, name, err)
	}
	return at, nil
}

// DeploymentFromObject projects a deployment and derives Ready, Partial or Not Ready.
func DeploymentFromObject(dep *appsv1.Deployment, now time.Time) models.Deployment {
	desired := int32(1)
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}
	images := make([]string, 0, len(dep.Spec.Template.Spec.Containers))
	for _, ctr := range dep.Spec.Template.Spec.Containers {
		images = append(images, ctr.Image)
	}
	var selector map[string]string
	if dep.Spec.Selector != nil {
		selector = dep.Spec.Selector.MatchLabels
	}
	return models.Deployment{
		ID:                validate.JoinComposite(dep.Namespace, dep.Name),
		Name:              dep.Name,
		Namespace:         dep.Namespace,
		Replicas:          desired,
		ReadyReplicas:     dep.Status.ReadyReplicas,
		AvailableReplicas: dep.Status.AvailableReplicas,
		UpdatedReplicas:   dep.Status.UpdatedReplicas,
		Status:            DeploymentStatus(desired, dep.Status.ReadyReplicas),
		Images:            images,
		Selector:          selector,
		Labels:            dep.Labels,
		CreatedAt:         dep.CreationTimestamp.Time,
		Age:               FormatAge(dep.CreationTimestamp.Time, now),
	}
}

// DeploymentStatus: Ready when ready >= desired, Partial when some but not all are ready.
func DeploymentStatus(desired, ready int32) string {
	switch {
	case ready >= desired:
		return models.DeploymentReady
	case ready > 0:
		return models.DeploymentPartial
	}
	return models.DeploymentNotReady
}
