package models

import "time"

// Pod status values derived from the pod phase and container readiness.
const (
	PodStatusRunning  = "Running"
	PodStatusNotReady = "Not Ready"
)

// Deployment status values derived from replica counts.
const (
	DeploymentReady    = "Ready"
	DeploymentPartial  = "Partial"
	DeploymentNotReady = "Not Ready"
)

// ContainerStatus is the per-container projection of a pod.
type ContainerStatus struct {
	Name         string `json:"name"`
	Image        string `json:"image"`
	Ready        bool   `json:"ready"`
	RestartCount int32  `json:"restartCount"`
	State        string `json:"state"` // running | waiting | terminated | unknown
	StateReason  string `json:"stateReason,omitempty"`
}

// Pod is the read-only projection of a Kubernetes pod.
type Pod struct {
	ID           string            `json:"id"` // "<namespace>::<name>"
	Name         string            `json:"name"`
	Namespace    string            `json:"namespace"`
	Phase        string            `json:"phase"`
	Status       string            `json:"status"`
	StatusReason string            `json:"statusReason,omitempty"`
	Ready        string            `json:"ready"` // "<ready>/<total>"
	Restarts     int32             `json:"restarts"`
	Containers   []ContainerStatus `json:"containers"`
	PodIP        string            `json:"podIP,omitempty"`
	Node         string            `json:"node,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	Age          string            `json:"age"`
}

// Deployment is the read-only projection of a Kubernetes deployment.
type Deployment struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Namespace         string            `json:"namespace"`
	Replicas          int32             `json:"replicas"`
	ReadyReplicas     int32             `json:"readyReplicas"`
	AvailableReplicas int32             `json:"availableReplicas"`
	UpdatedReplicas   int32             `json:"updatedReplicas"`
	Status            string            `json:"status"`
	Images            []string          `json:"images"`
	Selector          map[string]string `json:"selector,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	Age               string            `json:"age"`
}

// CommandResult is the structured outcome of a read-only command execution.
type CommandResult struct {
	Output   string `json:"output"`
	Error    string `json:"error,omitempty"`
	ExitCode int    `json:"exitCode"`
}

// CommandHelp documents one allowed command verb.
type CommandHelp struct {
	Verb        string   `json:"verb"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
	Allowed     bool     `json:"allowed"`
}
