package gather

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// ServiceBlock is one service-specific diagnostics phase. Blocks resolve
// their own pods by selector; zero matches skips the block, which is a
// normal outcome for clusters not running that service.
type ServiceBlock struct {
	// Name keys the profile's service hints and the activity log.
	Name string
	// DefaultSelector identifies the service's pods when the profile has no hint.
	DefaultSelector string
	// BuildTasks turns the resolved handles into the block's task batch.
	BuildTasks func(ctx context.Context, client kubernetes.Interface, namespaces []string, handles []PodHandle) ([]Task, error)
}

// ServiceBlocks returns every built-in service diagnostics block, in run order.
func ServiceBlocks() []ServiceBlock {
	return []ServiceBlock{
		{
			Name:            "elasticsearch",
			DefaultSelector: "elasticsearch.k8s.elastic.co/node-master=true",
			BuildTasks:      elasticsearchTasks,
		},
		{
			Name:            "kafka",
			DefaultSelector: "strimzi.io/kind=Kafka",
			BuildTasks:      kafkaTasks,
		},
		{
			Name:            "prometheus",
			DefaultSelector: "app.kubernetes.io/name=prometheus",
			BuildTasks:      prometheusTasks,
		},
	}
}

const eckCredentialsSelector = "eck.k8s.elastic.co/owner-kind=Elasticsearch,eck.k8s.elastic.co/credentials=true"

// elasticsearchTasks execs cluster diagnostics over the local control port of
// the first master pod, authenticating with the elastic user credential read
// from the ECK-managed secret.
func elasticsearchTasks(ctx context.Context, client kubernetes.Interface, namespaces []string, handles []PodHandle) ([]Task, error) {
	pod := handles[0]
	container, err := pod.FirstContainer()
	if err != nil {
		return nil, err
	}

	password, err := elasticPassword(ctx, client, namespaces)
	if err != nil {
		return nil, err
	}

	queries := []struct {
		name string
		url  string
	}{
		{"health", `https://localhost:9200/_cluster/health?pretty`},
		{"indices", `https://localhost:9200/_cat/indices?h=health,status,index,id,p,r,dc,dd,ss,creation.date.string,&v&s=creation.date:desc`},
		{"settings", `https://localhost:9200/_cluster/settings?pretty`},
		{"defaults_settings", `https://localhost:9200/_cluster/settings?include_defaults=true&pretty`},
	}

	tasks := make([]Task, 0, len(queries))
	for _, q := range queries {
		curl := fmt.Sprintf(`curl -s -k -u elastic:%s -X GET "%s"`, password, q.url)
		tasks = append(tasks, NewExecTask(pod, container,
			[]string{"/bin/sh", "-c", curl},
			CategoryApps, fmt.Sprintf("elastic_search_%s.json", q.name)))
	}
	return tasks, nil
}

func elasticPassword(ctx context.Context, client kubernetes.Interface, namespaces []string) (string, error) {
	for _, ns := range namespaces {
		secrets, err := client.CoreV1().Secrets(ns).List(ctx, metav1.ListOptions{
			LabelSelector: eckCredentialsSelector,
		})
		if err != nil {
			return "", errors.Wrapf(err, "failed to list credential secrets in namespace %s", ns)
		}
		for _, secret := range secrets.Items {
			if password, ok := secret.Data["elastic"]; ok {
				return string(password), nil
			}
		}
	}
	return "", errors.New("no elastic credential secret found")
}

// kafkaTasks dumps broker-side state over the local listener of the first
// broker pod.
func kafkaTasks(_ context.Context, _ kubernetes.Interface, _ []string, handles []PodHandle) ([]Task, error) {
	pod := handles[0]
	container, err := pod.FirstContainer()
	if err != nil {
		return nil, err
	}

	commands := []struct {
		name string
		cmd  string
	}{
		{"topics", "/opt/kafka/bin/kafka-topics.sh --bootstrap-server localhost:9092 --describe"},
		{"consumer_groups", "/opt/kafka/bin/kafka-consumer-groups.sh --bootstrap-server localhost:9092 --describe --all-groups"},
		{"broker_configs", "/opt/kafka/bin/kafka-configs.sh --bootstrap-server localhost:9092 --entity-type brokers --describe --all"},
	}

	tasks := make([]Task, 0, len(commands))
	for _, c := range commands {
		tasks = append(tasks, NewExecTask(pod, container,
			[]string{"/bin/sh", "-c", c.cmd},
			CategoryApps, fmt.Sprintf("kafka_%s.log", c.name)))
	}
	return tasks, nil
}

// prometheusTasks reads runtime state over the local API port of the first
// prometheus pod.
func prometheusTasks(_ context.Context, _ kubernetes.Interface, _ []string, handles []PodHandle) ([]Task, error) {
	pod := handles[0]
	container, err := pod.FirstContainer()
	if err != nil {
		return nil, err
	}

	queries := []struct {
		name string
		url  string
	}{
		{"buildinfo", "http://localhost:9090/api/v1/status/buildinfo"},
		{"runtimeinfo", "http://localhost:9090/api/v1/status/runtimeinfo"},
		{"tsdb_status", "http://localhost:9090/api/v1/status/tsdb"},
	}

	tasks := make([]Task, 0, len(queries))
	for _, q := range queries {
		curl := fmt.Sprintf(`curl -s -X GET "%s"`, q.url)
		tasks = append(tasks, NewExecTask(pod, container,
			[]string{"/bin/sh", "-c", curl},
			CategoryApps, fmt.Sprintf("prometheus_%s.json", q.name)))
	}
	return tasks, nil
}
