package gather

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteFile appends data to filename inside dir, creating the file if needed.
// Append mode is deliberate: a command re-invoked across phases accumulates
// into the same file rather than truncating what an earlier phase wrote.
// An empty payload is an error and never creates a file.
func WriteFile(dir string, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.Wrapf(ErrNoStdout, "refusing to write %s", filename)
	}

	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}

	return path, nil
}
