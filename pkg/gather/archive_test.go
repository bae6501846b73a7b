package gather

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readArchive(t *testing.T, archivePath string) map[string]string {
	t.Helper()

	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	entries := map[string]string{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = string(data)
	}
	return entries
}

func Test_Archive(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("round trip preserves staging paths and content", func(t *testing.T) {
		base := t.TempDir()
		staging := NewStaging(base, "minikube", now)
		require.NoError(t, staging.Create())

		_, err := WriteFile(staging.Dir(CategoryPods), "kubernetes_pods_default.list", []byte("NAME READY\nweb-0 1/1\n"))
		require.NoError(t, err)
		_, err = WriteFile(staging.Dir(CategoryInfra), "kubernetes_version.json", []byte(`{"gitVersion":"v1.30.0"}`))
		require.NoError(t, err)
		_, err = WriteFile(staging.Dir(CategoryHelm), "helm_list_default.log", []byte("NAME\tNAMESPACE\n"))
		require.NoError(t, err)

		runLog := filepath.Join(base, "kubegather_20240501_120000.log")
		require.NoError(t, os.WriteFile(runLog, []byte("I0501 gather started\n"), 0644))

		require.NoError(t, Archive(staging.Root, staging.ArchivePath(), runLog))

		entries := readArchive(t, staging.ArchivePath())
		root := filepath.Base(staging.Root)
		assert.Equal(t, "NAME READY\nweb-0 1/1\n", entries[filepath.Join(root, "pods", "kubernetes_pods_default.list")])
		assert.Equal(t, `{"gitVersion":"v1.30.0"}`, entries[filepath.Join(root, "infra", "kubernetes_version.json")])
		assert.Contains(t, entries, filepath.Join(root, "helm", "helm_list_default.log"))
		assert.Equal(t, "I0501 gather started\n", entries[filepath.Join(root, "kubegather_20240501_120000.log")])

		// staging is gone once the archive is finalized
		assert.NoDirExists(t, staging.Root)
		assert.FileExists(t, staging.ArchivePath())
	})

	t.Run("missing run log does not fail the archive", func(t *testing.T) {
		staging := NewStaging(t.TempDir(), "prod", now)
		require.NoError(t, staging.Create())
		_, err := WriteFile(staging.Dir(CategoryPods), "p.log", []byte("x"))
		require.NoError(t, err)

		require.NoError(t, Archive(staging.Root, staging.ArchivePath(), filepath.Join(staging.Root, "no-such.log")))
		entries := readArchive(t, staging.ArchivePath())
		assert.Len(t, entries, 1)
	})

	t.Run("failed finalization leaves the staging tree in place", func(t *testing.T) {
		staging := NewStaging(t.TempDir(), "prod", now)
		require.NoError(t, staging.Create())
		_, err := WriteFile(staging.Dir(CategoryApps), "a.log", []byte("x"))
		require.NoError(t, err)

		badPath := filepath.Join(staging.Root, "nope", "out.tar.gz")
		require.Error(t, Archive(staging.Root, badPath, ""))
		assert.DirExists(t, staging.Root)
		assert.FileExists(t, filepath.Join(staging.Dir(CategoryApps), "a.log"))
	})
}
