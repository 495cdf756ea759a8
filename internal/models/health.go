package models

import "time"

// Health states of a service bucket, ordered best to worst.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthDown     = "down"
)

// ServiceHealth is the rolled-up state of one logical service.
type ServiceHealth struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	Pods    int    `json:"pods"`
	Running int    `json:"running"`
}

// SystemStatus is the response of GET /api/system-status.
type SystemStatus struct {
	Overall   string          `json:"overall"`
	Services  []ServiceHealth `json:"services"`
	Timestamp time.Time       `json:"timestamp"`
}
