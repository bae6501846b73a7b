package gather

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Archive walks stagingRoot into a gzipped tarball at archivePath, preserving
// paths rooted at the staging directory's own basename so that extraction
// reproduces the info_<context>_<timestamp>/ tree. The run's activity log is
// appended as one more entry inside that tree, captured as a best-effort
// snapshot since it is still being written to. The staging tree is removed
// only after the archive stream has been finalized; if finalization fails the
// tree is left in place as the only copy of the collected diagnostics.
func Archive(stagingRoot string, archivePath string, runLogPath string) error {
	fileWriter, err := os.Create(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to create archive file")
	}

	gzipWriter := gzip.NewWriter(fileWriter)
	tarWriter := tar.NewWriter(gzipWriter)

	parentDir := filepath.Dir(stagingRoot)

	err = filepath.Walk(stagingRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return errors.Wrap(err, "failed to build tar header")
		}

		nameInArchive, err := filepath.Rel(parentDir, path)
		if err != nil {
			return errors.Wrap(err, "failed to create relative file name")
		}
		hdr.Name = nameInArchive

		if err := tarWriter.WriteHeader(hdr); err != nil {
			return errors.Wrap(err, "failed to write tar header")
		}

		fileReader, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "failed to open source file")
		}
		defer fileReader.Close()

		if _, err := io.Copy(tarWriter, fileReader); err != nil {
			return errors.Wrap(err, "failed to copy file into archive")
		}
		return nil
	})
	if err != nil {
		tarWriter.Close()
		gzipWriter.Close()
		fileWriter.Close()
		return errors.Wrap(err, "failed to archive staging tree")
	}

	if runLogPath != "" {
		if err := appendRunLog(tarWriter, stagingRoot, runLogPath); err != nil {
			// the bundle is still useful without its activity log
			klog.Warningf("failed to embed run log in archive: %v", err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		fileWriter.Close()
		return errors.Wrap(err, "failed to finalize tar stream")
	}
	if err := gzipWriter.Close(); err != nil {
		fileWriter.Close()
		return errors.Wrap(err, "failed to finalize gzip stream")
	}
	if err := fileWriter.Close(); err != nil {
		return errors.Wrap(err, "failed to finalize archive file")
	}

	if err := os.RemoveAll(stagingRoot); err != nil {
		return errors.Wrap(err, "failed to remove staging tree")
	}

	return nil
}

func appendRunLog(tarWriter *tar.Writer, stagingRoot string, runLogPath string) error {
	info, err := os.Stat(runLogPath)
	if err != nil {
		return errors.Wrap(err, "failed to stat run log")
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return errors.Wrap(err, "failed to build run log header")
	}
	hdr.Name = filepath.Join(filepath.Base(stagingRoot), filepath.Base(runLogPath))

	if err := tarWriter.WriteHeader(hdr); err != nil {
		return errors.Wrap(err, "failed to write run log header")
	}

	f, err := os.Open(runLogPath)
	if err != nil {
		return errors.Wrap(err, "failed to open run log")
	}
	defer f.Close()

	// the log may grow while we copy; the header already fixed its size
	if _, err := io.Copy(tarWriter, io.LimitReader(f, info.Size())); err != nil {
		return errors.Wrap(err, "failed to copy run log into archive")
	}
	return nil
}
