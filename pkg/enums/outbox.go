package enums

// OutboxEventType names the domain events recorded through the outbox.
type OutboxEventType string

const (
	EventOrderCreated   OutboxEventType = "order.created"
	EventOrderAccepted  OutboxEventType = "order.accepted"
	EventProofSubmitted OutboxEventType = "order.proof_submitted"
	EventVerdictApplied OutboxEventType = "order.verdict_applied"
	EventOrderCompleted OutboxEventType = "order.completed"
	EventOrderCancelled OutboxEventType = "order.cancelled"
	EventOrderExpired   OutboxEventType = "order.expired"
	EventOrderDisputed  OutboxEventType = "order.disputed"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateUnifiedOrder OutboxAggregateType = "unified_order"
)
