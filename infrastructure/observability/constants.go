package observability

// Metric name prefixes
const (
	MetricPrefix = "skywager"
)

// Metric names
const (
	// Wager metrics
	WagersPlacedTotal    = MetricPrefix + ".wagers.placed_total"
	WagersSettledTotal   = MetricPrefix + ".wagers.settled_total"
	WagersCashedOutTotal = MetricPrefix + ".wagers.cashed_out_total"

	// Settlement run metrics
	SettlementRunDuration = MetricPrefix + ".settlement.run_duration"
	SettlementSkipsTotal  = MetricPrefix + ".settlement.skipped_total"

	// Weather provider metrics
	WeatherRequestsTotal = MetricPrefix + ".weather.requests_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Balance metrics
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"
)

// Label keys
const (
	LabelKind      = "kind"
	LabelResult    = "result"
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelEndpoint  = "endpoint"
	LabelOutcome   = "outcome"
)

// Weather request outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
