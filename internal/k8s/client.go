package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

// Client wraps client-go for the pod and deployment operations of the console.
type Client struct {
	Clientset kubernetes.Interface
	// Metrics serves "top"; nil when the metrics API client could not be built.
	Metrics metricsclient.Interface
	Config  *rest.Config
	Context string
	// Timeout for outbound K8s API calls; 0 means no timeout (use request context only).
	// Log streams are not subject to it.
	Timeout time.Duration
	// limiter optionally rate-limits outbound API calls. Nil = no limit.
	limiter *rate.Limiter
	log     *zap.Logger
	// Now overrides the clock used for ages and restart stamps.
	Now func() time.Time
}

// NewClient prefers in-cluster config and falls back to kubeconfig.
// An explicit kubeconfigPath skips the in-cluster attempt.
func NewClient(kubeconfigPath, kubeContext string, log *zap.Logger) (*Client, error) {
	var config *rest.Config
	var err error

	if kubeconfigPath == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			homeDir, _ := os.UserHomeDir()
			if homeDir != "" {
				kubeconfigPath = filepath.Join(homeDir, ".kube", "config")
			}
		}
	}

	if config == nil {
		config, err = buildConfigFromFlags(kubeContext, kubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to build config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	c := &Client{
		Clientset: clientset,
		Config:    config,
		Context:   kubeContext,
		log:       log,
	}
	if mc, err := metricsclient.NewForConfig(config); err != nil {
		log.Warn("Metrics API client unavailable; top is disabled", zap.Error(err))
	} else {
		c.Metrics = mc
	}
	return c, nil
}

// NewClientForTest creates a Client around the given clientsets. metrics may be nil.
func NewClientForTest(clientset kubernetes.Interface, metrics metricsclient.Interface, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{Clientset: clientset, Metrics: metrics, log: log}
}

// SetTimeout sets the timeout for outbound K8s API calls.
func (c *Client) SetTimeout(d time.Duration) {
	c.Timeout = d
}

// SetLimiter sets a token-bucket rate limiter for outbound K8s API calls.
func (c *Client) SetLimiter(l *rate.Limiter) {
	c.limiter = l
}

func (c *Client) waitRateLimit(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// withTimeout returns ctx with timeout applied if c.Timeout > 0; otherwise returns ctx and a no-op cancel.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return ctx, func() {}
}

// call applies the rate limit and timeout around fn.
func (c *Client) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.waitRateLimit(ctx); err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return fn(ctx)
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func buildConfigFromFlags(context, kubeconfigPath string) (*rest.Config, error) {
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath},
		&clientcmd.ConfigOverrides{
			CurrentContext: context,
		}).ClientConfig()
}
