package events

const (
	TopicOrderCreated     = "order.created"
	TopicPaymentInitiated = "payment.initiated"
	TopicPaymentCaptured  = "payment.captured"
	TopicPaymentFailed    = "payment.failed"
)

// Partition key = order id so all events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
