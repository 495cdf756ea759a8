// Package health rolls pod state up into the three services shown on the status dashboard.
package health

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/chatadmin/admin-console/internal/models"
)

// Bucket names.
const (
	ServiceLibreChat   = "librechat"
	ServiceMongoDB     = "mongodb"
	ServiceMeilisearch = "meilisearch"
)

// Reasons reported for pod-derived states.
const (
	ReasonNoPods      = "no pods found"
	ReasonNoneRunning = "no running pods"
	ReasonSomeDown    = "some pods not running"
	ReasonAllRunning  = "all pods running"
	ReasonStoreOK     = "database connection successful"
)

const pingTimeout = 3 * time.Second

// PodLister is the subset of the orchestration client the aggregator needs.
type PodLister interface {
	ListPods(ctx context.Context, namespaces []string) []models.Pod
}

// Pinger checks document store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type bucket struct {
	name   string
	needle string
	// excludes keeps pods that also match another bucket out of this one.
	excludes []string
}

// Namespaces places each bucket. Store and Search default to Primary.
type Namespaces struct {
	Primary string
	Store   string
	Search  string
}

func (n Namespaces) of(bucket string) string {
	switch {
	case bucket == ServiceMongoDB && n.Store != "":
		return n.Store
	case bucket == ServiceMeilisearch && n.Search != "":
		return n.Search
	}
	return n.Primary
}

// list returns the distinct namespaces in bucket order.
func (n Namespaces) list() []string {
	var out []string
	for _, b := range buckets {
		ns := n.of(b.name)
		if !slices.Contains(out, ns) {
			out = append(out, ns)
		}
	}
	return out
}

var buckets = []bucket{
	{name: ServiceLibreChat, needle: "librechat", excludes: []string{"mongo", "meili"}},
	{name: ServiceMongoDB, needle: "mongo"},
	{name: ServiceMeilisearch, needle: "meili"},
}

// Aggregator computes SystemStatus over the namespaces of its buckets.
type Aggregator struct {
	pods       PodLister
	store      Pinger
	namespaces Namespaces
	now        func() time.Time
}

// NewAggregator returns an aggregator; store may be nil to skip the ping override.
func NewAggregator(pods PodLister, store Pinger, namespaces Namespaces) *Aggregator {
	return &Aggregator{pods: pods, store: store, namespaces: namespaces, now: time.Now}
}

// Status lists pods once across every bucket namespace, buckets them and
// applies the store ping override.
func (a *Aggregator) Status(ctx context.Context) models.SystemStatus {
	pods := a.pods.ListPods(ctx, a.namespaces.list())

	services := make([]models.ServiceHealth, 0, len(buckets))
	for _, b := range buckets {
		ns := a.namespaces.of(b.name)
		var members []models.Pod
		for _, p := range pods {
			if p.Namespace == ns && b.matches(p) {
				members = append(members, p)
			}
		}
		sh := Reduce(members)
		sh.Name = b.name
		if b.name == ServiceMongoDB && a.store != nil {
			a.applyPing(ctx, &sh)
		}
		services = append(services, sh)
	}

	return models.SystemStatus{
		Overall:   Worst(services),
		Services:  services,
		Timestamp: a.now().UTC(),
	}
}

// applyPing overrides the pod-derived state: a reachable store is healthy, an unreachable one is down.
func (a *Aggregator) applyPing(ctx context.Context, sh *models.ServiceHealth) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := a.store.Ping(ctx); err != nil {
		sh.Status = models.HealthDown
		sh.Reason = err.Error()
		return
	}
	sh.Status = models.HealthHealthy
	sh.Reason = ReasonStoreOK
}

func (b bucket) matches(p models.Pod) bool {
	keys := []string{strings.ToLower(p.Name)}
	for _, l := range []string{"app", "app.kubernetes.io/name"} {
		if v := p.Labels[l]; v != "" {
			keys = append(keys, strings.ToLower(v))
		}
	}
	hit := false
	for _, k := range keys {
		for _, ex := range b.excludes {
			if strings.Contains(k, ex) {
				return false
			}
		}
		if strings.Contains(k, b.needle) {
			hit = true
		}
	}
	return hit
}

// Reduce maps a bucket's pods onto healthy, degraded or down.
func Reduce(pods []models.Pod) models.ServiceHealth {
	sh := models.ServiceHealth{Pods: len(pods)}
	for _, p := range pods {
		if p.Status == models.PodStatusRunning {
			sh.Running++
		}
	}
	switch {
	case sh.Pods == 0:
		sh.Status, sh.Reason = models.HealthDown, ReasonNoPods
	case sh.Running == 0:
		sh.Status, sh.Reason = models.HealthDown, ReasonNoneRunning
	case sh.Running < sh.Pods:
		sh.Status, sh.Reason = models.HealthDegraded, ReasonSomeDown
	default:
		sh.Status, sh.Reason = models.HealthHealthy, ReasonAllRunning
	}
	return sh
}

var severity = map[string]int{
	models.HealthHealthy:  0,
	models.HealthDegraded: 1,
	models.HealthDown:     2,
}

// Worst returns the most severe status among services, healthy when empty.
func Worst(services []models.ServiceHealth) string {
	worst := models.HealthHealthy
	for _, s := range services {
		if severity[s.Status] > severity[worst] {
			worst = s.Status
		}
	}
	return worst
}
