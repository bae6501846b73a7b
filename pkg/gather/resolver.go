package gather

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// PodHandle identifies one running pod. Handles are shared read-only across
// every task that targets the pod; the embedded client is safe for concurrent
// use.
type PodHandle struct {
	Name       string
	Namespace  string
	Containers []string

	Client     kubernetes.Interface
	RestConfig *rest.Config
}

// FirstContainer returns the first declared container of the pod.
// A pod with no containers is a data anomaly, not a valid target.
func (h PodHandle) FirstContainer() (string, error) {
	if len(h.Containers) == 0 {
		return "", errors.Wrapf(ErrNoContainers, "pod %s/%s", h.Namespace, h.Name)
	}
	return h.Containers[0], nil
}

// Resolver lists pods across namespaces and produces handles for them.
type Resolver struct {
	Client     kubernetes.Interface
	RestConfig *rest.Config
}

// Resolve lists pods matching the given selectors in each namespace. Empty
// selectors are unconstrained. A failed listing call fails the whole
// resolution; zero matching pods is a normal empty result.
func (r *Resolver) Resolve(ctx context.Context, namespaces []string, labelSelector string, fieldSelector string) ([]PodHandle, error) {
	g, ctx := errgroup.WithContext(ctx)

	// one slot per namespace keeps the output in namespace order
	resolved := make([][]PodHandle, len(namespaces))

	for i, ns := range namespaces {
		i, ns := i, ns
		g.Go(func() error {
			pods, err := r.Client.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{
				LabelSelector: labelSelector,
				FieldSelector: fieldSelector,
			})
			if err != nil {
				return errors.Wrapf(err, "failed to list pods in namespace %s", ns)
			}

			handles := make([]PodHandle, 0, len(pods.Items))
			for _, pod := range pods.Items {
				containers := make([]string, 0, len(pod.Spec.Containers))
				for _, c := range pod.Spec.Containers {
					containers = append(containers, c.Name)
				}
				handles = append(handles, PodHandle{
					Name:       pod.Name,
					Namespace:  pod.Namespace,
					Containers: containers,
					Client:     r.Client,
					RestConfig: r.RestConfig,
				})
			}
			resolved[i] = handles
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var handles []PodHandle
	for _, h := range resolved {
		handles = append(handles, h...)
	}
	return handles, nil
}
