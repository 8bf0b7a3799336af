// Package service holds outbound integrations of the ledger. Publisher
// relays journal records to RabbitMQ.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/ticket-ledger/internal/model"
	"github.com/iliyamo/ticket-ledger/internal/queue"
)

// Publisher sends records to the durable ledger.records queue. Each call
// dials the broker, so a Publisher holds no connection between relay
// passes.
type Publisher struct {
	URL string
	now func() time.Time
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{URL: url, now: time.Now}
}

// Publish sends recs in order as persistent messages. The first failure
// aborts the batch; records already sent stay sent, so consumers must
// tolerate duplicates by seq.
func (p *Publisher) Publish(ctx context.Context, recs []model.Record) error {
	if len(recs) == 0 {
		return nil
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.RecordsQueue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	for _, rec := range recs {
		pub, err := p.message(rec)
		if err != nil {
			return err
		}
		if err := ch.PublishWithContext(ctx, "", queue.RecordsQueue, false, false, pub); err != nil {
			log.Printf("rabbitmq: publish seq=%d failed: %v", rec.Seq, err)
			return fmt.Errorf("rabbitmq publish seq %d: %w", rec.Seq, err)
		}
	}
	return nil
}

func (p *Publisher) message(rec model.Record) (amqp.Publishing, error) {
	now := p.now().UTC()
	body, err := json.Marshal(queue.NewRecordMessage(rec, now))
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal record %d: %w", rec.Seq, err)
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     uuid.NewString(),
		CorrelationId: fmt.Sprintf("seq-%d", rec.Seq),
		Type:          string(rec.Kind),
		Timestamp:     now,
		Body:          body,
	}, nil
}
