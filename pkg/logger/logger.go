/*
Logging setup for kubegather.

klog carries the run's activity log: task successes at info, task failures at
warning, internals at V(1) and up. The same stream is teed into a file so the
archive can embed a record of the run that produced it. Do not log errors in
functions that return an error; return the error and let the caller log it.
*/
package logger

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

// InitKlogFlags initializes klog flags and exposes the verbosity flag on the
// command's flag set.
func InitKlogFlags(flags *pflag.FlagSet) {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)

	klogFlags.VisitAll(func(f *flag.Flag) {
		// just the flags we want to expose in our CLI
		if f.Name == "v" {
			flags.AddGoFlag(f)
		}
	})
}

// StartRunLog creates the run's activity log file in dir and tees all klog
// output into it. The file keeps receiving log lines until the process exits;
// the archiver snapshots it near the end of the run.
func StartRunLog(dir string) (string, error) {
	name := fmt.Sprintf("kubegather_%s.log", time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create run log %s", path)
	}

	klog.LogToStderr(false)
	klog.SetOutput(io.MultiWriter(os.Stderr, f))

	return path, nil
}
