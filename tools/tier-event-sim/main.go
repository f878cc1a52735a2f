package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"activityhub/libs/kafkax"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

func main() {
	var (
		brokers = flag.String("brokers", getenv("KAFKA_BROKERS", "localhost:9092"), "kafka brokers, comma separated")
		topic   = flag.String("topic", getenv("KAFKA_TIER_TOPIC", "membership.tier.updated.v1"), "topic to publish on")
		userID  = flag.String("user-id", getenv("USER_ID", ""), "member user id")
		tier    = flag.String("tier", getenv("TIER", "once-a-week"), "new membership tier")
	)
	flag.Parse()

	if strings.TrimSpace(*userID) == "" {
		fatal("USER_ID is required")
	}

	payload, err := json.Marshal(map[string]any{
		"user_id":    *userID,
		"tier":       *tier,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		fatal(err.Error())
	}

	eventID := uuid.NewString()
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  kafkax.SplitBrokers(*brokers),
		Topic:    *topic,
		Balancer: &kafka.Hash{},
	})
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(*userID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(eventID)},
			{Key: kafkax.HeaderEventType, Value: []byte(*topic)},
		},
	})
	if err != nil {
		fatal(err.Error())
	}

	fmt.Printf("published event_id=%s topic=%s user_id=%s tier=%s\n", eventID, *topic, *userID, *tier)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
