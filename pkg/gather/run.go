package gather

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"

	"github.com/wtuxedo/kubegather/pkg/config"
)

// Gatherer drives one collection run end to end: staging tree, ordered
// phases, archive.
type Gatherer struct {
	Profile        *config.Profile
	RestConfig     *rest.Config
	Client         kubernetes.Interface
	KubeconfigPath string

	// RunLogPath is the activity log file embedded into the archive.
	RunLogPath string

	// Progress receives status strings and task errors for CLI rendering.
	// May be nil.
	Progress chan<- interface{}
}

// Run executes the full collection and returns the archive path. Phases run
// strictly in sequence, each behind the previous phase's join barrier; a
// phase whose resolution fails is skipped with a warning while the run
// continues. Only staging creation and archive finalization abort the run.
func (g *Gatherer) Run(ctx context.Context) (string, error) {
	staging := NewStaging(g.Profile.OutputDir, g.Profile.ContextName, time.Now())
	if err := staging.Create(); err != nil {
		return "", err
	}
	klog.Infof("staging directory has been created %s", staging.Root)

	resolver := &Resolver{Client: g.Client, RestConfig: g.RestConfig}

	// workload diagnostics
	handles, err := resolver.Resolve(ctx, g.Profile.Namespaces, "", "")
	if err != nil {
		g.skipPhase("pods", err)
	} else {
		g.runPhase(ctx, "pods", PodTasks(g.Profile, handles), staging)
	}

	// cluster infrastructure
	infraTasks, err := InfraTasks(ctx, g.Client, g.Profile)
	if err != nil {
		g.skipPhase("infra", err)
	} else {
		g.runPhase(ctx, "infra", infraTasks, staging)
	}

	// package releases
	helmTasks, err := HelmTasks(ctx, g.Profile, g.KubeconfigPath)
	if err != nil {
		g.skipPhase("helm", err)
	} else {
		g.runPhase(ctx, "helm", helmTasks, staging)
	}

	// service application diagnostics
	for _, block := range ServiceBlocks() {
		g.runServiceBlock(ctx, resolver, block, staging)
	}

	archivePath := staging.ArchivePath()
	if err := Archive(staging.Root, archivePath, g.RunLogPath); err != nil {
		return "", errors.Wrap(err, "failed to archive collected diagnostics")
	}
	klog.Infof("archive has been created %s", archivePath)

	return archivePath, nil
}

func (g *Gatherer) runServiceBlock(ctx context.Context, resolver *Resolver, block ServiceBlock, staging *Staging) {
	namespaces := g.Profile.NamespacesFor(block.Name)
	selector := g.Profile.SelectorFor(block.Name, block.DefaultSelector)

	handles, err := resolver.Resolve(ctx, namespaces, selector, "")
	if err != nil {
		g.skipPhase(block.Name, err)
		return
	}
	if len(handles) == 0 {
		// not running in this cluster, nothing to collect
		klog.V(1).Infof("no pods match %q, skipping %s diagnostics", selector, block.Name)
		return
	}

	tasks, err := block.BuildTasks(ctx, g.Client, namespaces, handles)
	if err != nil {
		g.skipPhase(block.Name, err)
		return
	}

	g.runPhase(ctx, block.Name, tasks, staging)
}

func (g *Gatherer) runPhase(ctx context.Context, phase string, tasks []Task, staging *Staging) {
	results := RunPhase(ctx, phase, tasks, staging, g.Progress)

	var failures *multierror.Error
	for _, r := range results {
		if r.Failed() {
			failures = multierror.Append(failures, r.Err)
		}
	}
	if err := failures.ErrorOrNil(); err != nil {
		klog.Warningf("phase %s completed with %d of %d tasks failed: %v", phase, failures.Len(), len(tasks), err)
		return
	}
	klog.V(1).Infof("phase %s completed, %d tasks", phase, len(tasks))
}

func (g *Gatherer) skipPhase(phase string, err error) {
	klog.Warningf("skipping %s phase: %v", phase, err)
	if g.Progress != nil {
		g.Progress <- errors.Wrapf(err, "skipping %s phase", phase)
	}
}
