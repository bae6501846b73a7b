package gather

import (
	"fmt"

	"github.com/wtuxedo/kubegather/pkg/config"
)

// PodTasks builds the workload diagnostics batch: kubectl listings per
// namespace, a describe per resolved pod and, per profile flags, current
// and/or previous log fetches for every container of every pod.
func PodTasks(profile *config.Profile, handles []PodHandle) []Task {
	var tasks []Task

	for _, ns := range profile.Namespaces {
		tasks = append(tasks,
			NewCommandTask(CategoryPods, fmt.Sprintf("kubernetes_pods_%s.list", ns),
				"kubectl", "get", "pod", "-n", ns, "--context", profile.ContextName, "-o", "wide"),
			NewCommandTask(CategoryPods, fmt.Sprintf("kubernetes_pods_%s.json", ns),
				"kubectl", "get", "pod", "-n", ns, "--context", profile.ContextName, "-o", "json"),
		)
	}

	for _, h := range handles {
		tasks = append(tasks,
			NewCommandTask(CategoryPods, fmt.Sprintf("%s_%s.description", h.Namespace, h.Name),
				"kubectl", "describe", "pod", h.Name, "-n", h.Namespace, "--context", profile.ContextName),
		)
	}

	if profile.CurrentLogs {
		tasks = append(tasks, logTasks(handles, false)...)
	}
	if profile.PreviousLogs {
		tasks = append(tasks, logTasks(handles, true)...)
	}

	return tasks
}

// logTasks fans out one log task per container per pod. The container name
// only appears in the filename when a pod has more than one container, which
// keeps single-container filenames stable.
func logTasks(handles []PodHandle, previous bool) []Task {
	incarnation := "current"
	if previous {
		incarnation = "previous"
	}

	var tasks []Task
	for _, h := range handles {
		for _, container := range h.Containers {
			filename := fmt.Sprintf("logs_%s_%s_%s.log", incarnation, h.Namespace, h.Name)
			if len(h.Containers) > 1 {
				filename = fmt.Sprintf("logs_%s_%s_%s_%s.log", incarnation, h.Namespace, h.Name, container)
			}
			tasks = append(tasks, NewLogsTask(h, container, previous, CategoryPods, filename))
		}
	}
	return tasks
}
