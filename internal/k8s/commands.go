package k8s

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	"sigs.k8s.io/yaml"

	"github.com/chatadmin/admin-console/internal/pkg/validate"
)

const (
	kindPods        = "pods"
	kindDeployments = "deployments"
	kindServices    = "services"
	kindNodes       = "nodes"
)

var resourceAliases = map[string]string{
	"pods": kindPods, "pod": kindPods, "po": kindPods,
	"deployments": kindDeployments, "deployment": kindDeployments, "deploy": kindDeployments,
	"services": kindServices, "service": kindServices, "svc": kindServices,
	"nodes": kindNodes, "node": kindNodes, "no": kindNodes,
}

// resolveKind maps an alias to a canonical kind if it is among supported.
func resolveKind(arg string, supported ...string) (string, error) {
	kind, ok := resourceAliases[strings.ToLower(arg)]
	if !ok || !slices.Contains(supported, kind) {
		return "", fmt.Errorf("unsupported resource type %q (supported: %s)", arg, strings.Join(supported, ", "))
	}
	return kind, nil
}

func newTable(buf *bytes.Buffer) *tabwriter.Writer {
	return tabwriter.NewWriter(buf, 0, 0, 3, ' ', 0)
}

func noResources(inv *invocation) string {
	if inv.allNamespaces {
		return "No resources found\n"
	}
	return fmt.Sprintf("No resources found in %s namespace.\n", inv.namespace)
}

func runGet(ctx context.Context, c *Client, inv *invocation) (string, error) {
	if len(inv.args) == 0 {
		return "", fmt.Errorf("you must specify the type of resource to get (pods, deployments, services)")
	}
	kind, err := resolveKind(inv.args[0], kindPods, kindDeployments, kindServices)
	if err != nil {
		return "", err
	}
	var name string
	if len(inv.args) > 1 {
		name = inv.args[1]
		if !validate.Name(name) {
			return "", fmt.Errorf("invalid resource name %q", name)
		}
		inv.allNamespaces = false
	}

	var buf bytes.Buffer
	w := newTable(&buf)
	nsCol := func(ns string) string {
		if inv.allNamespaces {
			return ns + "\t"
		}
		return ""
	}
	nsHeader := nsCol("NAMESPACE")
	rows := 0

	switch kind {
	case kindPods:
		fmt.Fprintf(w, "%sNAME\tREADY\tSTATUS\tRESTARTS\tAGE\n", nsHeader)
		if name != "" {
			p, err := c.GetPod(ctx, inv.namespace, name)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.Name, p.Ready, p.Status, p.Restarts, p.Age)
			rows++
			break
		}
		for _, p := range c.ListPods(ctx, inv.targets()) {
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%d\t%s\n", nsCol(p.Namespace), p.Name, p.Ready, p.Status, p.Restarts, p.Age)
			rows++
		}
	case kindDeployments:
		fmt.Fprintf(w, "%sNAME\tREADY\tUP-TO-DATE\tAVAILABLE\tAGE\n", nsHeader)
		if name != "" {
			d, err := c.GetDeployment(ctx, inv.namespace, name)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(w, "%s\t%d/%d\t%d\t%d\t%s\n", d.Name, d.ReadyReplicas, d.Replicas, d.UpdatedReplicas, d.AvailableReplicas, d.Age)
			rows++
			break
		}
		for _, d := range c.ListDeployments(ctx, inv.targets()) {
			fmt.Fprintf(w, "%s%s\t%d/%d\t%d\t%d\t%s\n", nsCol(d.Namespace), d.Name, d.ReadyReplicas, d.Replicas, d.UpdatedReplicas, d.AvailableReplicas, d.Age)
			rows++
		}
	case kindServices:
		fmt.Fprintf(w, "%sNAME\tTYPE\tCLUSTER-IP\tEXTERNAL-IP\tPORT(S)\tAGE\n", nsHeader)
		svcs, err := c.services(ctx, inv.targets(), name)
		if err != nil {
			return "", err
		}
		now := c.now()
		for _, s := range svcs {
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\t%s\n", nsCol(s.Namespace), s.Name, s.Spec.Type,
				orNone(s.Spec.ClusterIP), externalIPs(&s), servicePorts(&s), FormatAge(s.CreationTimestamp.Time, now))
			rows++
		}
	}
	if rows == 0 {
		return noResources(inv), nil
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (c *Client) services(ctx context.Context, namespaces []string, name string) ([]corev1.Service, error) {
	if name != "" {
		var svc *corev1.Service
		err := c.call(ctx, func(ctx context.Context) error {
			var err error
			svc, err = c.Clientset.CoreV1().Services(namespaces[0]).Get(ctx, name, metav1.GetOptions{})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("get service %s/%s: %w", namespaces[0], name, err)
		}
		return []corev1.Service{*svc}, nil
	}
	var out []corev1.Service
	for _, ns := range namespaces {
		var list *corev1.ServiceList
		err := c.call(ctx, func(ctx context.Context) error {
			var err error
			list, err = c.Clientset.CoreV1().Services(ns).List(ctx, metav1.ListOptions{})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list services in %s: %w", ns, err)
		}
		out = append(out, list.Items...)
	}
	return out, nil
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}

func externalIPs(s *corev1.Service) string {
	ips := append([]string{}, s.Spec.ExternalIPs...)
	for _, ing := range s.Status.LoadBalancer.Ingress {
		if ing.IP != "" {
			ips = append(ips, ing.IP)
		} else if ing.Hostname != "" {
			ips = append(ips, ing.Hostname)
		}
	}
	if len(ips) == 0 {
		if s.Spec.Type == corev1.ServiceTypeLoadBalancer {
			return "<pending>"
		}
		return "<none>"
	}
	return strings.Join(ips, ",")
}

func servicePorts(s *corev1.Service) string {
	if len(s.Spec.Ports) == 0 {
		return "<none>"
	}
	parts := make([]string, 0, len(s.Spec.Ports))
	for _, p := range s.Spec.Ports {
		if p.NodePort != 0 {
			parts = append(parts, fmt.Sprintf("%d:%d/%s", p.Port, p.NodePort, p.Protocol))
		} else {
			parts = append(parts, fmt.Sprintf("%d/%s", p.Port, p.Protocol))
		}
	}
	return strings.Join(parts, ",")
}

func runDescribe(ctx context.Context, c *Client, inv *invocation) (string, error) {
	if len(inv.args) < 2 {
		return "", fmt.Errorf("usage: describe (pod|deployment) NAME")
	}
	kind, err := resolveKind(inv.args[0], kindPods, kindDeployments)
	if err != nil {
		return "", err
	}
	name := inv.args[1]
	if !validate.Name(name) {
		return "", fmt.Errorf("invalid resource name %q", name)
	}

	var (
		obj        runtime.Object
		objectKind string
	)
	err = c.call(ctx, func(ctx context.Context) error {
		switch kind {
		case kindPods:
			pod, err := c.Clientset.CoreV1().Pods(inv.namespace).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				return err
			}
			pod.ManagedFields = nil
			pod.TypeMeta = metav1.TypeMeta{APIVersion: "v1", Kind: "Pod"}
			obj, objectKind = pod, "Pod"
		default:
			dep, err := c.Clientset.AppsV1().Deployments(inv.namespace).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				return err
			}
			dep.ManagedFields = nil
			dep.TypeMeta = metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"}
			obj, objectKind = dep, "Deployment"
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("describe %s %s/%s: %w", kind, inv.namespace, name, err)
	}

	body, err := yaml.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	var buf bytes.Buffer
	buf.Write(body)
	buf.WriteString("\nEvents:\n")
	buf.WriteString(c.describeEvents(ctx, inv.namespace, objectKind, name))
	return buf.String(), nil
}

// describeEvents renders events for one object; listing failures are shown inline.
func (c *Client) describeEvents(ctx context.Context, namespace, kind, name string) string {
	var list *corev1.EventList
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		list, err = c.Clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{})
		return err
	})
	if err != nil {
		return fmt.Sprintf("  <unable to list events: %v>\n", err)
	}
	var events []corev1.Event
	for _, e := range list.Items {
		if e.InvolvedObject.Kind == kind && e.InvolvedObject.Name == name {
			events = append(events, e)
		}
	}
	if len(events) == 0 {
		return "  <none>\n"
	}
	sort.Slice(events, func(i, j int) bool { return events[i].LastTimestamp.Before(&events[j].LastTimestamp) })

	var buf bytes.Buffer
	w := newTable(&buf)
	now := c.now()
	fmt.Fprintln(w, "  TYPE\tREASON\tAGE\tMESSAGE")
	for _, e := range events {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", e.Type, e.Reason, FormatAge(e.LastTimestamp.Time, now), e.Message)
	}
	_ = w.Flush()
	return buf.String()
}

func runLogs(ctx context.Context, c *Client, inv *invocation) (string, error) {
	if len(inv.args) == 0 {
		return "", fmt.Errorf("usage: logs POD [--tail=N] [-c CONTAINER]")
	}
	name := inv.args[0]
	if !validate.Name(name) {
		return "", fmt.Errorf("invalid pod name %q", name)
	}
	tail := int64(defaultLogTail)
	if inv.tailSet {
		tail = inv.tail
	}
	return c.GetPodLogs(ctx, inv.namespace, name, LogOptions{Container: inv.container, TailLines: tail})
}

func runTop(ctx context.Context, c *Client, inv *invocation) (string, error) {
	if len(inv.args) == 0 {
		return "", fmt.Errorf("usage: top (pods|nodes)")
	}
	kind, err := resolveKind(inv.args[0], kindPods, kindNodes)
	if err != nil {
		return "", err
	}
	if c.Metrics == nil {
		return "", fmt.Errorf("metrics API is not available")
	}

	var buf bytes.Buffer
	w := newTable(&buf)
	rows := 0
	switch kind {
	case kindPods:
		if inv.allNamespaces {
			fmt.Fprint(w, "NAMESPACE\t")
		}
		fmt.Fprintln(w, "NAME\tCPU(cores)\tMEMORY(bytes)")
		for _, ns := range inv.targets() {
			var list *metricsv1beta1.PodMetricsList
			err := c.call(ctx, func(ctx context.Context) error {
				var err error
				list, err = c.Metrics.MetricsV1beta1().PodMetricses(ns).List(ctx, metav1.ListOptions{})
				return err
			})
			if err != nil {
				return "", fmt.Errorf("pod metrics in %s: %w", ns, err)
			}
			for _, pm := range list.Items {
				if len(inv.args) > 1 && pm.Name != inv.args[1] {
					continue
				}
				var cpu, mem int64
				for _, ctr := range pm.Containers {
					cpu += ctr.Usage.Cpu().MilliValue()
					mem += ctr.Usage.Memory().Value()
				}
				if inv.allNamespaces {
					fmt.Fprintf(w, "%s\t", pm.Namespace)
				}
				fmt.Fprintf(w, "%s\t%dm\t%dMi\n", pm.Name, cpu, mem/(1024*1024))
				rows++
			}
		}
	case kindNodes:
		var list *metricsv1beta1.NodeMetricsList
		err := c.call(ctx, func(ctx context.Context) error {
			var err error
			list, err = c.Metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{})
			return err
		})
		if err != nil {
			return "", fmt.Errorf("node metrics: %w", err)
		}
		fmt.Fprintln(w, "NAME\tCPU(cores)\tMEMORY(bytes)")
		for _, nm := range list.Items {
			fmt.Fprintf(w, "%s\t%dm\t%dMi\n", nm.Name, nm.Usage.Cpu().MilliValue(), nm.Usage.Memory().Value()/(1024*1024))
			rows++
		}
	}
	if rows == 0 {
		return noResources(inv), nil
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type fieldDoc struct {
	name, typ, desc string
}

type kindDoc struct {
	kind, version, desc string
	fields              []fieldDoc
}

var explainDocs = map[string]kindDoc{
	kindPods: {
		kind: "Pod", version: "v1",
		desc: "Pod is a collection of containers that can run on a host.",
		fields: []fieldDoc{
			{"apiVersion", "string", "Versioned schema of this representation of an object."},
			{"kind", "string", "REST resource this object represents."},
			{"metadata", "ObjectMeta", "Standard object's metadata: name, namespace, labels, annotations."},
			{"spec", "PodSpec", "Desired behavior of the pod: containers, volumes, node selection."},
			{"status", "PodStatus", "Most recently observed status: phase, conditions, container statuses."},
		},
	},
	kindDeployments: {
		kind: "Deployment", version: "apps/v1",
		desc: "Deployment enables declarative updates for Pods and ReplicaSets.",
		fields: []fieldDoc{
			{"apiVersion", "string", "Versioned schema of this representation of an object."},
			{"kind", "string", "REST resource this object represents."},
			{"metadata", "ObjectMeta", "Standard object's metadata."},
			{"spec", "DeploymentSpec", "Desired behavior: replicas, selector, pod template, strategy."},
			{"status", "DeploymentStatus", "Most recently observed status: replica counts and conditions."},
		},
	},
	kindServices: {
		kind: "Service", version: "v1",
		desc: "Service is a named abstraction of software service consisting of a local port that the proxy listens on and the selector that determines which pods answer requests.",
		fields: []fieldDoc{
			{"apiVersion", "string", "Versioned schema of this representation of an object."},
			{"kind", "string", "REST resource this object represents."},
			{"metadata", "ObjectMeta", "Standard object's metadata."},
			{"spec", "ServiceSpec", "Behavior of the service: type, ports, selector, cluster IP."},
			{"status", "ServiceStatus", "Most recently observed status, such as load balancer ingress."},
		},
	},
}

func runExplain(_ context.Context, _ *Client, inv *invocation) (string, error) {
	if len(inv.args) == 0 {
		return "", fmt.Errorf("usage: explain (pods|deployments|services)[.FIELD]")
	}
	base, field, _ := strings.Cut(inv.args[0], ".")
	kind, err := resolveKind(base, kindPods, kindDeployments, kindServices)
	if err != nil {
		return "", err
	}
	doc := explainDocs[kind]

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "KIND:     %s\nVERSION:  %s\n\n", doc.kind, doc.version)
	if field != "" {
		for _, f := range doc.fields {
			if f.name == field {
				fmt.Fprintf(&buf, "FIELD:    %s <%s>\n\nDESCRIPTION:\n     %s\n", f.name, f.typ, f.desc)
				return buf.String(), nil
			}
		}
		return "", fmt.Errorf("field %q does not exist in %s", field, doc.kind)
	}
	fmt.Fprintf(&buf, "DESCRIPTION:\n     %s\n\nFIELDS:\n", doc.desc)
	w := newTable(&buf)
	for _, f := range doc.fields {
		fmt.Fprintf(w, "   %s\t<%s>\t%s\n", f.name, f.typ, f.desc)
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
