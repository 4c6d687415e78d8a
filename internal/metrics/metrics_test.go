package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/domain"
)

type fixedSizer map[domain.QueueName]int64

func (f fixedSizer) Size(_ context.Context, queue domain.QueueName) (int64, error) {
	return f[queue], nil
}

type failingSizer struct{}

func (failingSizer) Size(context.Context, domain.QueueName) (int64, error) {
	return 0, errors.New("redis down")
}

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveJob(domain.QueuePayments, ResultOK, 2*time.Second)
	m.ObserveJob(domain.QueuePayments, ResultError, time.Second)
	m.ObserveDelivery("success")
	m.ObserveSettlement(domain.PaymentStatusFailed)
	m.ObserveRequeue(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues("queue:payments", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues("queue:payments", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookDeliveries.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsSettled.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SweeperRequeued))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveJob(domain.QueueRefunds, ResultOK, time.Second)
		m.ObserveDelivery("failure")
		m.ObserveSettlement(domain.PaymentStatusSuccess)
		m.ObserveRequeue(1)
	})
}

func TestQueueDepthCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterQueueDepth(reg, fixedSizer{domain.QueuePayments: 4, domain.QueueWebhooks: 1})

	expected := `
# HELP queue_depth Number of jobs waiting on a queue
# TYPE queue_depth gauge
queue_depth{queue="queue:payments"} 4
queue_depth{queue="queue:refunds"} 0
queue_depth{queue="queue:webhooks"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "queue_depth"))
}

func TestQueueDepthCollector_SizerError(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterQueueDepth(reg, failingSizer{})

	_, err := reg.Gather()
	assert.Error(t, err)
}
