package gather

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewCommandTask(t *testing.T) {
	tests := []struct {
		name       string
		argv       []string
		expectOut  string
		expectErr  bool
		expectNone bool
	}{
		{
			name:      "stdout is captured",
			argv:      []string{"/bin/sh", "-c", "echo hello"},
			expectOut: "hello\n",
		},
		{
			name:       "stderr only yields no payload",
			argv:       []string{"/bin/sh", "-c", "echo oops >&2"},
			expectNone: true,
		},
		{
			name:      "non-zero exit keeps stdout",
			argv:      []string{"/bin/sh", "-c", "echo partial; exit 3"},
			expectOut: "partial\n",
		},
		{
			name:      "missing binary is an invocation failure",
			argv:      []string{"/no/such/binary"},
			expectErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			task := NewCommandTask(CategoryInfra, "out.txt", test.argv...)
			assert.Equal(t, CategoryInfra, task.Category)
			assert.Equal(t, "out.txt", task.Filename)

			data, err := task.Invoke(context.Background())
			if test.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if test.expectNone {
				assert.Empty(t, data)
				return
			}
			assert.Equal(t, test.expectOut, string(data))
		})
	}
}

func Test_NewLogsTaskNaming(t *testing.T) {
	h := PodHandle{Name: "es-master-0", Namespace: "search", Containers: []string{"elasticsearch"}}

	task := NewLogsTask(h, "elasticsearch", false, CategoryPods, "logs_current_search_es-master-0.log")
	assert.Equal(t, "logs search/es-master-0 container elasticsearch", task.Name)

	task = NewLogsTask(h, "elasticsearch", true, CategoryPods, "logs_previous_search_es-master-0.log")
	assert.Contains(t, task.Name, "(previous)")
}

func Test_FirstContainer(t *testing.T) {
	h := PodHandle{Name: "db-0", Namespace: "prod", Containers: []string{"server", "sidecar"}}
	container, err := h.FirstContainer()
	require.NoError(t, err)
	assert.Equal(t, "server", container)

	empty := PodHandle{Name: "broken", Namespace: "prod"}
	_, err = empty.FirstContainer()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoContainers)
}
