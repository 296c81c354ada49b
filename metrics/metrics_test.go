package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalkan3-sloth/gridcore/collector"
	"github.com/chalkan3-sloth/gridcore/conc"
	"github.com/chalkan3-sloth/gridcore/transport"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if m.GetGauge() != nil {
			return m.GetGauge().GetValue()
		}
		return m.GetCounter().GetValue()
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestQueueCollector(t *testing.T) {
	q := conc.NewActiveQueue[int](2, func(int) {})
	defer q.Stop()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	require.True(t, q.WaitEmpty(2*time.Second))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewQueueCollector("ingest", q)))

	assert.Equal(t, 5.0, gatherValue(t, reg, "gridcore_queue_enqueued_total"))
	assert.Equal(t, 5.0, gatherValue(t, reg, "gridcore_queue_done_total"))
	assert.Equal(t, 0.0, gatherValue(t, reg, "gridcore_queue_pending"))
}

func TestTableCollectorMetrics(t *testing.T) {
	tab := collector.New[int](2)
	v := 1
	require.NoError(t, tab.Insert(3, 0, &v))
	require.NoError(t, tab.Insert(9, 1, &v))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewTableCollector("results", tab)))

	assert.Equal(t, 2.0, gatherValue(t, reg, "gridcore_table_blocks"))
	assert.Equal(t, 9.0, gatherValue(t, reg, "gridcore_table_max_block_id"))
}

func TestSocketCollector(t *testing.T) {
	tr := transport.NewInproc()
	w := transport.NewWrapper(tr.NewSocket(transport.Pub), transport.Pub)
	defer w.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewSocketCollector("publisher", w)))
	assert.Equal(t, 0.0, gatherValue(t, reg, "gridcore_socket_valid"))

	_, err := w.Bind("tcp://127.0.0.1:*")
	require.NoError(t, err)
	assert.Equal(t, 1.0, gatherValue(t, reg, "gridcore_socket_valid"))
	assert.GreaterOrEqual(t, gatherValue(t, reg, "gridcore_socket_endpoints"), 1.0)
}
