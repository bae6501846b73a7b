package gather

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// RunPhase executes every task in the batch concurrently and blocks until all
// of them have resolved. Each task's invocation, validation and file write
// happen inside its own goroutine; a failing task is logged and reported in
// its Result without affecting siblings. Fan-out is unbounded: phase batches
// are sized by what the cluster holds, not by an admission limit.
func RunPhase(ctx context.Context, phase string, tasks []Task, staging *Staging, progress chan<- interface{}) []Result {
	klog.V(1).Infof("phase %s: running %d tasks", phase, len(tasks))

	wg := &sync.WaitGroup{}
	results := make(chan Result, len(tasks))

	for _, task := range tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			results <- runTask(ctx, t, staging, progress)
		}(task)
	}

	// join barrier: the next phase must not start until every task resolved
	wg.Wait()
	close(results)

	out := make([]Result, 0, len(tasks))
	for r := range results {
		out = append(out, r)
	}
	return out
}

func runTask(ctx context.Context, t Task, staging *Staging, progress chan<- interface{}) (result Result) {
	result.Task = t

	defer func() {
		if r := recover(); r != nil {
			result.Err = errors.Errorf("recovered from panic in %s: %v", t.Name, r)
			report(progress, result)
		}
	}()

	if progress != nil {
		progress <- fmt.Sprintf("%s/%s", t.Category, t.Filename)
	}

	data, err := t.Invoke(ctx)
	if err != nil {
		result.Err = errors.Wrapf(err, "%s", t.Name)
		report(progress, result)
		return result
	}
	if len(data) == 0 {
		result.Err = errors.Wrapf(ErrNoStdout, "%s", t.Name)
		report(progress, result)
		return result
	}

	path, err := WriteFile(staging.Dir(t.Category), t.Filename, data)
	if err != nil {
		result.Err = errors.Wrapf(err, "%s", t.Name)
		report(progress, result)
		return result
	}

	result.Path = path
	report(progress, result)
	return result
}

func report(progress chan<- interface{}, r Result) {
	if r.Err != nil {
		klog.Warningf("task failed: %v", r.Err)
		if progress != nil {
			progress <- r.Err
		}
		return
	}
	klog.Infof("file has been created %s", r.Path)
}
