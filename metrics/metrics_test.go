package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/lic"
	"github.com/gogpu/lic/internal/softgpu"
)

type fixedStats lic.Stats

func (f fixedStats) Stats() lic.Stats { return lic.Stats(f) }

func TestCollector(t *testing.T) {
	c := NewCollector(fixedStats{
		Executions:       4,
		Failures:         1,
		Dispatches:       66,
		BuffersAllocated: 10,
		BuffersReleased:  5,
		BytesAllocated:   4096,
		ProgramBuilds:    2,
		LastDuration:     1500 * time.Millisecond,
	}, prometheus.Labels{"engine": "main"})

	assert.Equal(t, 10, testutil.CollectAndCount(c))

	expected := `
# HELP lic_engine_buffers_live Device buffers currently allocated.
# TYPE lic_engine_buffers_live gauge
lic_engine_buffers_live{engine="main"} 5
# HELP lic_engine_dispatches_total Completed compute dispatches.
# TYPE lic_engine_dispatches_total counter
lic_engine_dispatches_total{engine="main"} 66
# HELP lic_engine_last_execute_seconds Wall time of the most recent successful Execute.
# TYPE lic_engine_last_execute_seconds gauge
lic_engine_last_execute_seconds{engine="main"} 1.5
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"lic_engine_buffers_live", "lic_engine_dispatches_total", "lic_engine_last_execute_seconds")
	require.NoError(t, err)
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	eng := lic.NewEngine(softgpu.NewDefault())
	require.NoError(t, reg.Register(NewCollector(eng, nil)))

	n, err := testutil.GatherAndCount(reg, "lic_engine_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
