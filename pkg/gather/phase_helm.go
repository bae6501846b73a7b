package gather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/release"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/klog/v2"

	"github.com/wtuxedo/kubegather/pkg/config"
)

// ReleaseInfo is the JSON shape of one deployed release in the listing dump.
type ReleaseInfo struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Revision   string `json:"revision"`
	Updated    string `json:"updated"`
	Status     string `json:"status"`
	Chart      string `json:"chart"`
	AppVersion string `json:"app_version"`
}

// HelmTasks builds the package-release batch. Release discovery is a
// synchronous sub-step: every namespace is enumerated through the Helm SDK
// first, and the per-release value dumps it finds become the batch that fans
// out. A failed enumeration is fatal for this phase.
func HelmTasks(ctx context.Context, profile *config.Profile, kubeconfigPath string) ([]Task, error) {
	tasks := []Task{
		NewCommandTask(CategoryHelm, "helm_version.log",
			"helm", "--kubeconfig="+kubeconfigPath, "--kube-context="+profile.ContextName, "version"),
	}

	for _, ns := range profile.Namespaces {
		releases, err := listReleases(kubeconfigPath, profile.ContextName, ns)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list releases in namespace %s", ns)
		}

		tasks = append(tasks, releaseListingTasks(ns, releases)...)

		for _, rel := range releases {
			tasks = append(tasks, valuesTask(kubeconfigPath, profile.ContextName, ns, rel.Name))
		}
	}

	return tasks, nil
}

func listReleases(kubeconfigPath string, contextName string, namespace string) ([]*release.Release, error) {
	cfg, err := helmConfig(kubeconfigPath, contextName, namespace)
	if err != nil {
		return nil, err
	}

	list := action.NewList(cfg)
	list.All = true
	return list.Run()
}

// releaseListingTasks turns an already-discovered release set into write-only
// tasks so the listing lands in the staging tree through the same pipeline as
// everything else.
func releaseListingTasks(namespace string, releases []*release.Release) []Task {
	infos := make([]ReleaseInfo, 0, len(releases))
	for _, rel := range releases {
		infos = append(infos, ReleaseInfo{
			Name:       rel.Name,
			Namespace:  rel.Namespace,
			Revision:   fmt.Sprintf("%d", rel.Version),
			Updated:    rel.Info.LastDeployed.String(),
			Status:     rel.Info.Status.String(),
			Chart:      fmt.Sprintf("%s-%s", rel.Chart.Metadata.Name, rel.Chart.Metadata.Version),
			AppVersion: rel.Chart.Metadata.AppVersion,
		})
	}

	return []Task{
		{
			Name:     "helm list -n " + namespace,
			Category: CategoryHelm,
			Filename: fmt.Sprintf("helm_list_%s.log", namespace),
			Invoke: func(context.Context) ([]byte, error) {
				return formatReleaseTable(infos), nil
			},
		},
		{
			Name:     "helm list -n " + namespace + " -o json",
			Category: CategoryHelm,
			Filename: fmt.Sprintf("helm_list_%s.json", namespace),
			Invoke: func(context.Context) ([]byte, error) {
				return json.MarshalIndent(infos, "", "  ")
			},
		},
	}
}

func valuesTask(kubeconfigPath string, contextName string, namespace string, releaseName string) Task {
	return Task{
		Name:     fmt.Sprintf("helm get values --all %s -n %s", releaseName, namespace),
		Category: CategoryHelm,
		Filename: fmt.Sprintf("helm_values_%s_%s.yaml", releaseName, namespace),
		Invoke: func(context.Context) ([]byte, error) {
			cfg, err := helmConfig(kubeconfigPath, contextName, namespace)
			if err != nil {
				return nil, err
			}

			get := action.NewGetValues(cfg)
			get.AllValues = true
			values, err := get.Run(releaseName)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to get values for release %s", releaseName)
			}

			return yaml.Marshal(values)
		},
	}
}

func formatReleaseTable(infos []ReleaseInfo) []byte {
	buf := &bytes.Buffer{}
	w := tabwriter.NewWriter(buf, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tNAMESPACE\tREVISION\tUPDATED\tSTATUS\tCHART\tAPP VERSION")
	for _, r := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.Name, r.Namespace, r.Revision, r.Updated, r.Status, r.Chart, r.AppVersion)
	}
	w.Flush()
	return buf.Bytes()
}

// helmConfig builds a namespace-scoped Helm action configuration against the
// run's kubeconfig and context.
func helmConfig(kubeconfigPath string, contextName string, namespace string) (*action.Configuration, error) {
	flags := genericclioptions.NewConfigFlags(false)
	flags.Namespace = &namespace
	if contextName != "" {
		flags.Context = &contextName
	}
	if kubeconfigPath != "" {
		flags.KubeConfig = &kubeconfigPath
	}

	cfg := new(action.Configuration)
	if err := cfg.Init(flags, namespace, os.Getenv("HELM_DRIVER"), klog.V(2).Infof); err != nil {
		return nil, errors.Wrap(err, "failed to initialize Helm action config")
	}
	return cfg, nil
}
