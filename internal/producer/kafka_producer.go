package producer

import (
	"context"
	"encoding/json"
	"time"

	"lending-service/internal/service"

	"github.com/segmentio/kafka-go"
)

const (
	EventReservationCreated       = "reservation.created"
	EventReservationStatusChanged = "reservation.status_changed"
)

type ReservationProducer struct {
	writer *kafka.Writer
}

var _ service.EventBus = (*ReservationProducer)(nil)

func NewReservationProducer(brokers []string, topic string) *ReservationProducer {
	return &ReservationProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Envelope: тип события плюс полезная нагрузка. Ключ сообщения равен id брони.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (p *ReservationProducer) PublishReservationCreated(ctx context.Context, e service.ReservationCreatedEvent) error {
	return p.send(ctx, e.ReservationID.String(), Envelope{Type: EventReservationCreated, Payload: e})
}

func (p *ReservationProducer) PublishReservationStatusChanged(ctx context.Context, e service.ReservationStatusChangedEvent) error {
	return p.send(ctx, e.ReservationID.String(), Envelope{Type: EventReservationStatusChanged, Payload: e})
}

func (p *ReservationProducer) send(ctx context.Context, key string, msg Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(msg.Type)},
		},
	})
}

func (p *ReservationProducer) Close() error {
	return p.writer.Close()
}
