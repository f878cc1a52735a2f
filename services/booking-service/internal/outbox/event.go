package outbox

// Event is the domain event envelope written to the outbox table. The Kafka
// topic name equals EventType (one event type per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventBookingConfirmed = "booking.confirmed.v1"
	EventBookingCancelled = "booking.cancelled.v1"
)
