package messaging

// Product lifecycle subjects. With NATS they are captured by a JetStream stream
// bound to ProductEventsWildcard; with Kafka each subject is used as the topic name.
const (
	ProductCreatedSubject = "events.products.created"
	ProductUpdatedSubject = "events.products.updated"
	ProductRemovedSubject = "events.products.removed"

	ProductEventsWildcard = "events.products.>"
)
