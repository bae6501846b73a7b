package gather

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes/fake"
)

func Test_PodLogs(t *testing.T) {
	client := fake.NewSimpleClientset(makePod("apps", "web-0", nil, "server"))
	h := PodHandle{Name: "web-0", Namespace: "apps", Containers: []string{"server"}, Client: client}

	logs, err := PodLogs(context.Background(), h, "server", false)
	require.NoError(t, err)
	assert.NotEmpty(t, logs)
}
