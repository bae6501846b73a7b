package gather

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/wtuxedo/kubegather/pkg/config"
)

// InfraTasks builds the cluster infrastructure batch: node and version
// listings, cluster events, and a describe per node. Node names are resolved
// through the API; a failed node listing is fatal for this phase.
func InfraTasks(ctx context.Context, client kubernetes.Interface, profile *config.Profile) ([]Task, error) {
	nodes, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list nodes")
	}

	tasks := []Task{
		NewCommandTask(CategoryInfra, "kubernetes_nodes.list",
			"kubectl", "get", "nodes", "--context", profile.ContextName, "-o", "wide"),
		NewCommandTask(CategoryInfra, "kubernetes_nodes_list.json",
			"kubectl", "get", "nodes", "--context", profile.ContextName, "-o", "json"),
		NewCommandTask(CategoryInfra, "kubernetes_version.json",
			"kubectl", "version", "--context", profile.ContextName, "-o", "json"),
		NewCommandTask(CategoryInfra, "kubernetes_cluster.events",
			"kubectl", "events", "-A", "--context", profile.ContextName),
	}

	for _, node := range nodes.Items {
		tasks = append(tasks, NewCommandTask(CategoryInfra, fmt.Sprintf("%s.description", node.Name),
			"kubectl", "describe", "node", node.Name, "--context", profile.ContextName))
	}

	return tasks, nil
}
