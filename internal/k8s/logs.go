package k8s

import (
	"context"
	"fmt"
	"io"

	corev1 "k8s.io/api/core/v1"
)

// LogOptions selects which container log lines to return.
type LogOptions struct {
	Container string
	// TailLines <= 0 returns the whole log.
	TailLines  int64
	Timestamps bool
	Follow     bool
}

// StreamPodLogs opens the container log stream. The stream lives as long as
// ctx; the caller must close it. No timeout is applied.
func (c *Client) StreamPodLogs(ctx context.Context, namespace, name string, opts LogOptions) (io.ReadCloser, error) {
	if err := c.waitRateLimit(ctx); err != nil {
		return nil, err
	}
	podOpts := &corev1.PodLogOptions{
		Container:  opts.Container,
		Timestamps: opts.Timestamps,
		Follow:     opts.Follow,
	}
	if opts.TailLines > 0 {
		tail := opts.TailLines
		podOpts.TailLines = &tail
	}
	stream, err := c.Clientset.CoreV1().Pods(namespace).GetLogs(name, podOpts).Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("stream logs %s/%s: %w", namespace, name, err)
	}
	return stream, nil
}

// GetPodLogs reads a bounded, non-following log into memory.
func (c *Client) GetPodLogs(ctx context.Context, namespace, name string, opts LogOptions) (string, error) {
	opts.Follow = false
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	stream, err := c.StreamPodLogs(ctx, namespace, name, opts)
	if err != nil {
		return "", err
	}
	defer stream.Close()
	b, err := io.ReadAll(stream)
	if err != nil {
		return "", fmt.Errorf("read logs %s/%s: %w", namespace, name, err)
	}
	return string(b), nil
}
