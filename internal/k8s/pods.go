package k8s

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/metrics"
	"github.com/chatadmin/admin-console/internal/pkg/validate"
)

// ListPods lists pods in each namespace in turn. A namespace that fails is
// logged, counted and skipped; the remaining namespaces are still listed.
func (c *Client) ListPods(ctx context.Context, namespaces []string) []models.Pod {
	now := c.now()
	out := make([]models.Pod, 0)
	for _, ns := range namespaces {
		var list *corev1.PodList
		err := c.call(ctx, func(ctx context.Context) error {
			var err error
			list, err = c.Clientset.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{})
			return err
		})
		if err != nil {
			c.log.Warn("Failed to list pods", zap.String("namespace", ns), zap.Error(err))
			metrics.NamespaceListFailuresTotal.WithLabelValues("pods", ns).Inc()
			continue
		}
		for i := range list.Items {
			out = append(out, PodFromObject(&list.Items[i], now))
		}
	}
	return out
}

// GetPod returns one pod. A missing pod yields an error satisfying apierrors.IsNotFound.
func (c *Client) GetPod(ctx context.Context, namespace, name string) (*models.Pod, error) {
	var pod *corev1.Pod
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		pod, err = c.Clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get pod %s/%s: %w", namespace, name, err)
	}
	p := PodFromObject(pod, c.now())
	return &p, nil
}

// PodFromObject projects a pod and derives its display status.
func PodFromObject(pod *corev1.Pod, now time.Time) models.Pod {
	images := make(map[string]string, len(pod.Spec.Containers))
	for _, ctr := range pod.Spec.Containers {
		images[ctr.Name] = ctr.Image
	}

	containers := make([]models.ContainerStatus, 0, len(pod.Status.ContainerStatuses))
	var ready int
	var restarts int32
	allReady := true
	for _, cs := range pod.Status.ContainerStatuses {
		state, reason := containerState(cs.State)
		image := cs.Image
		if image == "" {
			image = images[cs.Name]
		}
		containers = append(containers, models.ContainerStatus{
			Name:         cs.Name,
			Image:        image,
			Ready:        cs.Ready,
			RestartCount: cs.RestartCount,
			State:        state,
			StateReason:  reason,
		})
		if cs.Ready {
			ready++
		} else {
			allReady = false
		}
		restarts += cs.RestartCount
	}

	p := models.Pod{
		ID:         validate.JoinComposite(pod.Namespace, pod.Name),
		Name:       pod.Name,
		Namespace:  pod.Namespace,
		Phase:      string(pod.Status.Phase),
		Ready:      fmt.Sprintf("%d/%d", ready, len(pod.Spec.Containers)),
		Restarts:   restarts,
		Containers: containers,
		PodIP:      pod.Status.PodIP,
		Node:       pod.Spec.NodeName,
		Labels:     pod.Labels,
		CreatedAt:  pod.CreationTimestamp.Time,
		Age:        FormatAge(pod.CreationTimestamp.Time, now),
	}

	if pod.Status.Phase == corev1.PodRunning {
		if allReady {
			p.Status = models.PodStatusRunning
		} else {
			p.Status = models.PodStatusNotReady
		}
		return p
	}

	p.Status = string(pod.Status.Phase)
	if p.Status == "" {
		p.Status = string(corev1.PodUnknown)
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Status == corev1.ConditionFalse {
			p.StatusReason = conditionReason(cond)
			break
		}
	}
	return p
}

func conditionReason(cond corev1.PodCondition) string {
	switch {
	case cond.Reason != "" && cond.Message != "":
		return cond.Reason + ": " + cond.Message
	case cond.Reason != "":
		return cond.Reason
	case cond.Message != "":
		return cond.Message
	}
	return string(cond.Type) + " is False"
}

func containerState(s corev1.ContainerState) (state, reason string) {
	switch {
	case s.Running != nil:
		return "running", ""
	case s.Waiting != nil:
		return "waiting", s.Waiting.Reason
	case s.Terminated != nil:
		return "terminated", s.Terminated.Reason
	}
	return "unknown", ""
}
