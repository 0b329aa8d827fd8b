package queue

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveDeliveryCountsOutcomes(t *testing.T) {
	before := testutil.ToFloat64(taskOutcomes.WithLabelValues("order-submitted", "retry"))
	observeDelivery("order-submitted", "retry", 40*time.Millisecond)
	observeDelivery("order-submitted", "retry", 10*time.Millisecond)
	require.Equal(t, before+2, testutil.ToFloat64(taskOutcomes.WithLabelValues("order-submitted", "retry")))
	require.GreaterOrEqual(t, testutil.CollectAndCount(taskDuration), 1)
}
