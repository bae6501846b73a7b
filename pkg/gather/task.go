package gather

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Category is the staging folder a task's output is routed to.
type Category string

const (
	CategoryPods  Category = "pods"
	CategoryInfra Category = "infra"
	CategoryHelm  Category = "helm"
	CategoryApps  Category = "apps"
)

// Categories returns every category in staging-tree order.
func Categories() []Category {
	return []Category{CategoryPods, CategoryInfra, CategoryHelm, CategoryApps}
}

var (
	// ErrNoStdout is returned when a task's invocation produced no output bytes.
	// A task with no stdout never creates a file.
	ErrNoStdout = errors.New("no output produced")

	// ErrNoContainers is returned when a pod declares no containers but a task
	// needs one to target.
	ErrNoContainers = errors.New("pod has no containers")
)

// InvokeFunc retrieves one task's payload. Implementations block until the
// underlying command, exec session or log stream has fully terminated.
type InvokeFunc func(ctx context.Context) ([]byte, error)

// Task is one independent unit of collection. Tasks carry their own invocation
// closure; the runner treats every kind uniformly.
type Task struct {
	// Name identifies the task in the activity log, e.g. the command line or
	// the pod/container a payload came from.
	Name     string
	Category Category
	Filename string
	Invoke   InvokeFunc
}

// Result is the outcome of one task. Err is nil iff a non-empty payload was
// written to Path.
type Result struct {
	Task Task
	Path string
	Err  error
}

func (r Result) Failed() bool {
	return r.Err != nil
}

// NewCommandTask builds a task that spawns an external process and captures
// its stdout as the payload. Stderr and a non-zero exit status are logged as
// warnings, never treated as failures; only the absence of stdout is.
func NewCommandTask(category Category, filename string, argv ...string) Task {
	name := strings.Join(argv, " ")
	return Task{
		Name:     name,
		Category: category,
		Filename: filename,
		Invoke: func(ctx context.Context) ([]byte, error) {
			cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			err := cmd.Run()
			if len(stderr.Bytes()) > 0 {
				klog.Warningf("%s: %s", name, strings.TrimSpace(stderr.String()))
			}
			if err != nil {
				if _, ok := err.(*exec.ExitError); !ok {
					return nil, errors.Wrapf(err, "failed to run %q", name)
				}
				// Non-zero exit is not a failure on its own. Some diagnostic
				// commands exit non-zero while still printing usable output.
				klog.Warningf("%s: %v", name, err)
			}

			return stdout.Bytes(), nil
		},
	}
}

// NewLogsTask builds a task that fetches the log text of one container of one
// pod, optionally from the previous incarnation.
func NewLogsTask(h PodHandle, container string, previous bool, category Category, filename string) Task {
	name := "logs " + h.Namespace + "/" + h.Name + " container " + container
	if previous {
		name += " (previous)"
	}
	return Task{
		Name:     name,
		Category: category,
		Filename: filename,
		Invoke: func(ctx context.Context) ([]byte, error) {
			return PodLogs(ctx, h, container, previous)
		},
	}
}

// NewExecTask builds a task that runs a command inside a container through an
// attached session. Stderr is logged as a warning; stdout is the payload.
func NewExecTask(h PodHandle, container string, command []string, category Category, filename string) Task {
	name := "exec " + h.Namespace + "/" + h.Name + " container " + container + ": " + strings.Join(command, " ")
	return Task{
		Name:     name,
		Category: category,
		Filename: filename,
		Invoke: func(ctx context.Context) ([]byte, error) {
			stdout, stderr, err := ExecInPod(ctx, h, container, command)
			if len(stderr) > 0 {
				klog.Warningf("%s: %s", name, strings.TrimSpace(string(stderr)))
			}
			if err != nil {
				return nil, err
			}
			return stdout, nil
		},
	}
}
