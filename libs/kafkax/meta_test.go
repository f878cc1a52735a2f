package kafkax

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestExtractEventMeta(t *testing.T) {
	msg := kafka.Message{
		Topic: "booking.confirmed.v1",
		Key:   []byte("agg-1"),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte("evt-123")},
			{Key: "event_type", Value: []byte("booking.confirmed.v1")},
		},
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "evt-123" || meta.EventType != "booking.confirmed.v1" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestExtractEventMetaFallbacks(t *testing.T) {
	msg := kafka.Message{Topic: "some.topic", Key: []byte("key-1")}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "key-1" {
		t.Fatalf("event id should fall back to the key, got %q", meta.EventID)
	}
	if meta.EventType != "some.topic" {
		t.Fatalf("event type should fall back to the topic, got %q", meta.EventType)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092 , kafka-2:9092,, ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("got %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("empty input yields no brokers")
	}
}
