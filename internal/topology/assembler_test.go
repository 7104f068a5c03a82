package topology

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// W=3 workers, A=2 autonomous systems => worker0 owns transit, worker1
// owns AS0, worker2 owns AS1.
func TestAssignPartition_WorkerAssignment(t *testing.T) {
	require.Equal(t, transitPartition, 0)
	require.Equal(t, 1, AssignPartition(0, 2, 3))
	require.Equal(t, 2, AssignPartition(1, 2, 3))
}

// TestAssignPartition_WrapsWhenFewerWorkersThanAS verifies the modulo
// fallback when there are more autonomous systems than workers.
func TestAssignPartition_WrapsWhenFewerWorkersThanAS(t *testing.T) {
	// W=2 workers, A=3 AS: A+1=4 > W=2, so assignment wraps via modulo.
	require.Equal(t, 1, AssignPartition(0, 3, 2))
	require.Equal(t, 0, AssignPartition(1, 3, 2))
	require.Equal(t, 1, AssignPartition(2, 3, 2))
}
