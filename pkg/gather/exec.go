package gather

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"
	"k8s.io/klog/v2"
)

// ExecInPod runs a command inside the named container through an attached
// session with stdout and stderr capture, no stdin and no TTY. It returns
// once the remote process has terminated and both streams are drained, so
// callers never see truncated output. A non-zero exit status from the remote
// command is logged and reported through stderr, not returned as an error.
func ExecInPod(ctx context.Context, h PodHandle, container string, command []string) ([]byte, []byte, error) {
	req := h.Client.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(h.Name).
		Namespace(h.Namespace).
		SubResource("exec")

	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, nil, errors.Wrap(err, "failed to add corev1 scheme")
	}
	parameterCodec := runtime.NewParameterCodec(scheme)

	req.VersionedParams(&corev1.PodExecOptions{
		Command:   command,
		Container: container,
		Stdin:     false,
		Stdout:    true,
		Stderr:    true,
		TTY:       false,
	}, parameterCodec)

	exec, err := remotecommand.NewSPDYExecutor(h.RestConfig, "POST", req.URL())
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create SPDY executor")
	}

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	err = exec.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: stdout,
		Stderr: stderr,
		Tty:    false,
	})
	if err != nil {
		if exitErr, ok := err.(utilexec.CodeExitError); ok {
			klog.Warningf("exec in %s/%s container %s exited with code %d", h.Namespace, h.Name, container, exitErr.Code)
			return stdout.Bytes(), stderr.Bytes(), nil
		}
		return stdout.Bytes(), stderr.Bytes(), errors.Wrapf(err, "failed to exec in pod %s/%s", h.Namespace, h.Name)
	}

	return stdout.Bytes(), stderr.Bytes(), nil
}
