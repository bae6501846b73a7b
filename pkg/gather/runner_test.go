package gather

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStaging(t *testing.T) *Staging {
	t.Helper()
	staging := NewStaging(t.TempDir(), "test", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, staging.Create())
	return staging
}

func staticTask(category Category, filename string, data []byte, err error) Task {
	return Task{
		Name:     "static " + filename,
		Category: category,
		Filename: filename,
		Invoke: func(ctx context.Context) ([]byte, error) {
			return data, err
		},
	}
}

func Test_RunPhaseWaitsForEveryTask(t *testing.T) {
	staging := testStaging(t)

	slow := Task{
		Name:     "slow",
		Category: CategoryPods,
		Filename: "slow.log",
		Invoke: func(ctx context.Context) ([]byte, error) {
			time.Sleep(200 * time.Millisecond)
			return []byte("slow output"), nil
		},
	}
	fast := staticTask(CategoryPods, "fast.log", []byte("fast output"), nil)

	started := time.Now()
	results := RunPhase(context.Background(), "pods", []Task{slow, fast}, staging, nil)
	elapsed := time.Since(started)

	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.FileExists(t, r.Path)
	}
}

func Test_RunPhaseIsolatesFailures(t *testing.T) {
	staging := testStaging(t)

	tasks := []Task{
		staticTask(CategoryInfra, "good.json", []byte(`{"ok":true}`), nil),
		staticTask(CategoryInfra, "broken.json", nil, errors.New("connection reset")),
		staticTask(CategoryInfra, "empty.json", nil, nil),
		{
			Name:     "panics",
			Category: CategoryInfra,
			Filename: "panics.json",
			Invoke: func(ctx context.Context) ([]byte, error) {
				panic("boom")
			},
		},
	}

	results := RunPhase(context.Background(), "infra", tasks, staging, nil)
	require.Len(t, results, 4)

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Task.Filename] = r
	}

	assert.NoError(t, byName["good.json"].Err)
	assert.FileExists(t, filepath.Join(staging.Dir(CategoryInfra), "good.json"))

	assert.Error(t, byName["broken.json"].Err)
	assert.NoFileExists(t, filepath.Join(staging.Dir(CategoryInfra), "broken.json"))

	assert.ErrorIs(t, byName["empty.json"].Err, ErrNoStdout)
	assert.NoFileExists(t, filepath.Join(staging.Dir(CategoryInfra), "empty.json"))

	require.Error(t, byName["panics.json"].Err)
	assert.Contains(t, byName["panics.json"].Err.Error(), "recovered from panic")
}

func Test_RunPhaseAppendsOnRepeatedFilename(t *testing.T) {
	staging := testStaging(t)

	task := staticTask(CategoryApps, "combined.log", []byte("chunk\n"), nil)
	RunPhase(context.Background(), "apps", []Task{task}, staging, nil)
	RunPhase(context.Background(), "apps", []Task{task}, staging, nil)

	data, err := os.ReadFile(filepath.Join(staging.Dir(CategoryApps), "combined.log"))
	require.NoError(t, err)
	assert.Equal(t, "chunk\nchunk\n", string(data))
}

func Test_RunPhaseReportsProgress(t *testing.T) {
	staging := testStaging(t)

	progress := make(chan interface{}, 16)
	tasks := []Task{
		staticTask(CategoryPods, "one.log", []byte("data"), nil),
		staticTask(CategoryPods, "two.log", nil, errors.New("no route to host")),
	}
	RunPhase(context.Background(), "pods", tasks, staging, progress)
	close(progress)

	var failures int
	var updates int
	for event := range progress {
		switch event.(type) {
		case error:
			failures++
		default:
			updates++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 2, updates)
}
