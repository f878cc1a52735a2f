package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// Header keys every event in this system carries. Producers set both; the
// fallbacks in ExtractEventMeta only cover messages from outside tooling.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// EventMeta identifies one event for inbox deduplication.
type EventMeta struct {
	EventID   string
	EventType string
}

// ExtractEventMeta pulls event identity off a message. Missing headers fall
// back to the message key (id) and topic (type), so foreign messages still
// dedupe, just with coarser identity.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   headerValue(msg.Headers, HeaderEventID),
		EventType: headerValue(msg.Headers, HeaderEventType),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// SplitBrokers parses a comma separated broker list, dropping blanks.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
