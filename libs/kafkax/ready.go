package kafkax

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// ReadyCheck probes the first configured broker with a short TCP dial. Good
// enough for /readyz; it proves the broker is reachable, not that every
// partition has a leader.
func ReadyCheck(brokers string) func(context.Context) error {
	return func(ctx context.Context) error {
		list := SplitBrokers(brokers)
		if len(list) == 0 {
			return errors.New("kafka brokers not configured")
		}
		d := kafka.Dialer{Timeout: 2 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", list[0])
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
