package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains RecordsQueue into <LogDir>/ledger.log, one line per record.
type Consumer struct {
	URL    string
	LogDir string
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff when the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("ledger-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("ledger-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("ledger-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(RecordsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(RecordsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				log.Printf("ledger-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	var msg RecordMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.Seq == 0 || msg.Kind == "" {
		return errors.New("message without seq or kind")
	}
	dir := c.LogDir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "ledger.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(msg)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(msg RecordMessage) string {
	r := msg.Record
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | seq=%d", msg.At.UTC().Format(time.RFC3339), msg.Kind, msg.Seq)
	field := func(name string, v uint64) {
		if v != 0 {
			fmt.Fprintf(&b, " | %s=%d", name, v)
		}
	}
	field("event_id", r.EventID)
	field("ticket_id", r.TicketID)
	field("listing_id", r.ListingID)
	if r.Actor != "" {
		fmt.Fprintf(&b, " | actor=%s", r.Actor)
	}
	if r.From != "" {
		fmt.Fprintf(&b, " | from=%s", r.From)
	}
	if r.To != "" {
		fmt.Fprintf(&b, " | to=%s", r.To)
	}
	field("amount", r.Amount)
	if r.State != "" {
		fmt.Fprintf(&b, " | state=%s", r.State)
	}
	if r.Active != nil {
		fmt.Fprintf(&b, " | active=%t", *r.Active)
	}
	fmt.Fprintf(&b, " | hash=%s\n", r.Hash)
	return b.String()
}
