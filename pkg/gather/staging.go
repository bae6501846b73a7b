package gather

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const stagingTimestampFormat = "20060102150405"

// Staging is the directory tree diagnostics are collected into before
// archiving: <root>/info_<context>_<timestamp>/{pods,infra,helm,apps}.
// It exists for one run and is removed after the archive is written.
type Staging struct {
	Root string
	dirs map[Category]string
}

// NewStaging computes the staging layout for a run. Nothing is created on
// disk until Create is called.
func NewStaging(outputDir string, contextName string, now time.Time) *Staging {
	root := filepath.Join(outputDir, "info_"+contextName+"_"+now.UTC().Format(stagingTimestampFormat))

	dirs := make(map[Category]string, len(Categories()))
	for _, c := range Categories() {
		dirs[c] = filepath.Join(root, string(c))
	}

	return &Staging{Root: root, dirs: dirs}
}

// Create makes every category folder. All folders exist before any task runs.
func (s *Staging) Create() error {
	for _, c := range Categories() {
		if err := os.MkdirAll(s.dirs[c], 0755); err != nil {
			return errors.Wrapf(err, "failed to create staging directory %s", s.dirs[c])
		}
	}
	return nil
}

// Dir returns the folder for a category.
func (s *Staging) Dir(c Category) string {
	return s.dirs[c]
}

// ArchivePath returns the destination of the run's compressed artifact,
// next to the staging root.
func (s *Staging) ArchivePath() string {
	return s.Root + ".tar.gz"
}
