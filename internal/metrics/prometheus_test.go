package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Counter != nil:
		return out.GetCounter().GetValue()
	case out.Gauge != nil:
		return out.GetGauge().GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestRecordSync(t *testing.T) {
	before := value(t, SyncOperationsTotal.WithLabelValues("schedule", "success"))
	RecordSync("schedule", "success", 0.5)

	assert.Equal(t, before+1, value(t, SyncOperationsTotal.WithLabelValues("schedule", "success")))
	assert.Greater(t, value(t, LastSuccessfulSync.WithLabelValues("schedule")), float64(0))
}

func TestRecordSkippedRows_IgnoresZero(t *testing.T) {
	before := value(t, RowsSkippedTotal.WithLabelValues("metrics_test"))
	RecordSkippedRows("metrics_test", 0)
	RecordSkippedRows("metrics_test", 3)

	assert.Equal(t, before+3, value(t, RowsSkippedTotal.WithLabelValues("metrics_test")))
}

func TestUpdateDBConnectionStats(t *testing.T) {
	UpdateDBConnectionStats(4, 2)

	assert.Equal(t, float64(4), value(t, DBConnectionsActive))
	assert.Equal(t, float64(2), value(t, DBConnectionsIdle))
}
