package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateAffiliate OutboxAggregateType = "affiliate"
)

func (a OutboxAggregateType) IsValid() bool {
	switch a {
	case AggregateOrder, AggregateAffiliate:
		return true
	}
	return false
}

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute on every published message.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order.created"
	EventCommissionCredited  OutboxEventType = "commission.credited"
	EventAffiliateRankChange OutboxEventType = "affiliate.rank_changed"
)

func (e OutboxEventType) IsValid() bool {
	_, ok := e.Aggregate()
	return ok
}

// Aggregate returns the aggregate an event type is always emitted for.
func (e OutboxEventType) Aggregate() (OutboxAggregateType, bool) {
	switch e {
	case EventOrderCreated:
		return AggregateOrder, true
	case EventCommissionCredited, EventAffiliateRankChange:
		return AggregateAffiliate, true
	}
	return "", false
}

// OutboxDLQErrorReason records why a row was retired to outbox_dlq.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonNoPublisher  OutboxDLQErrorReason = "no_publisher"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonNoPublisher:
		return true
	}
	return false
}
