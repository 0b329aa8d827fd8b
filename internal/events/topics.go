package events

// Topic constants for domain events emitted by the order pipeline.
const (
	TopicOrderCreated = "order.created"
)

// DefaultTopics returns the topics the worker knows how to emit.
func DefaultTopics() []string {
	return []string{TopicOrderCreated}
}
