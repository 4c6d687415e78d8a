package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gateway/internal/domain"
)

// Job results.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultPanic = "panic"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	JobsProcessed     *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec
	WebhookDeliveries *prometheus.CounterVec
	PaymentsSettled   *prometheus.CounterVec
	SweeperRequeued   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_processed_total",
				Help: "Total number of jobs taken off a queue, by result",
			},
			[]string{"queue", "result"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "job_duration_seconds",
				Help:    "Duration of job processing in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"queue"},
		),
		WebhookDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_deliveries_total",
				Help: "Total number of webhook delivery attempts, by result",
			},
			[]string{"result"},
		),
		PaymentsSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_settled_total",
				Help: "Total number of payments moved to a terminal status",
			},
			[]string{"status"},
		),
		SweeperRequeued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "retry_sweeper_requeued_total",
				Help: "Total number of webhook logs re-enqueued by the retry sweeper",
			},
		),
	}

	reg.MustRegister(m.JobsProcessed, m.JobDuration, m.WebhookDeliveries, m.PaymentsSettled, m.SweeperRequeued)

	return m
}

// ObserveJob records one processed job.
func (m *Metrics) ObserveJob(queue domain.QueueName, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(string(queue), result).Inc()
	m.JobDuration.WithLabelValues(string(queue)).Observe(elapsed.Seconds())
}

// ObserveDelivery records one webhook delivery attempt.
func (m *Metrics) ObserveDelivery(result string) {
	if m == nil {
		return
	}
	m.WebhookDeliveries.WithLabelValues(result).Inc()
}

// ObserveSettlement records a payment reaching a terminal status.
func (m *Metrics) ObserveSettlement(status domain.PaymentStatus) {
	if m == nil {
		return
	}
	m.PaymentsSettled.WithLabelValues(string(status)).Inc()
}

// ObserveRequeue records logs re-enqueued by the sweeper.
func (m *Metrics) ObserveRequeue(n int) {
	if m == nil {
		return
	}
	m.SweeperRequeued.Add(float64(n))
}

// QueueSizer reports the number of jobs waiting on a queue.
type QueueSizer interface {
	Size(ctx context.Context, queue domain.QueueName) (int64, error)
}

// queueDepthCollector reads queue sizes at scrape time.
type queueDepthCollector struct {
	sizer   QueueSizer
	desc    *prometheus.Desc
	timeout time.Duration
}

// RegisterQueueDepth exposes queue_depth{queue} backed by sizer.
func RegisterQueueDepth(reg prometheus.Registerer, sizer QueueSizer) {
	reg.MustRegister(&queueDepthCollector{
		sizer: sizer,
		desc: prometheus.NewDesc(
			"queue_depth",
			"Number of jobs waiting on a queue",
			[]string{"queue"}, nil,
		),
		timeout: 2 * time.Second,
	})
}

func (c *queueDepthCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *queueDepthCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	for _, queue := range domain.Queues {
		size, err := c.sizer.Size(ctx, queue)
		if err != nil {
			ch <- prometheus.NewInvalidMetric(c.desc, err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(size), string(queue))
	}
}
