package gather

import (
	"context"
	"io"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
)

// PodLogs fetches the log text of exactly one container of one pod. With
// previous set, the last terminated incarnation's logs are fetched instead;
// a container that never restarted has none, which surfaces as an error from
// the API and is handled per call by the runner.
func PodLogs(ctx context.Context, h PodHandle, container string, previous bool) ([]byte, error) {
	opts := corev1.PodLogOptions{
		Container: container,
		Previous:  previous,
	}

	req := h.Client.CoreV1().Pods(h.Namespace).GetLogs(h.Name, &opts)
	stream, err := req.Stream(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get log stream for pod %s/%s container %s", h.Namespace, h.Name, container)
	}
	defer stream.Close()

	logs, err := io.ReadAll(stream)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read logs for pod %s/%s container %s", h.Namespace, h.Name, container)
	}

	return logs, nil
}
