package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterSyncMetrics_Idempotent(t *testing.T) {
	RegisterSyncMetrics()
	RegisterSyncMetrics()

	SyncOperationsTotal.WithLabelValues("bonds", "create", "succeeded").Inc()
	if v := testutil.ToFloat64(SyncOperationsTotal.WithLabelValues("bonds", "create", "succeeded")); v < 1 {
		t.Errorf("expected sync_operations_total >= 1, got %f", v)
	}
}
