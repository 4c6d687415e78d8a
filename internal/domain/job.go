package domain

// QueueName identifies one of the work queues.
type QueueName string

const (
	QueuePayments QueueName = "queue:payments"
	QueueRefunds  QueueName = "queue:refunds"
	QueueWebhooks QueueName = "queue:webhooks"
)

// Queues lists every queue the gateway uses.
var Queues = []QueueName{QueuePayments, QueueRefunds, QueueWebhooks}

// Job references an entity awaiting asynchronous processing on a queue.
// Processing state lives on the entity, never on the job.
type Job struct {
	Queue    QueueName `json:"queue"`
	EntityID string    `json:"entity_id"`
}

// NewPaymentJob returns a job for the payment processor.
func NewPaymentJob(paymentID string) Job {
	return Job{Queue: QueuePayments, EntityID: paymentID}
}

// NewRefundJob returns a job for the refund processor.
func NewRefundJob(refundID string) Job {
	return Job{Queue: QueueRefunds, EntityID: refundID}
}

// NewWebhookJob returns a job for the webhook dispatcher.
func NewWebhookJob(logID string) Job {
	return Job{Queue: QueueWebhooks, EntityID: logID}
}
