package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jdamiba/twitter-clone/config"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

const (
	EventPostCreated   = "post.created"
	EventPostDeleted   = "post.deleted"
	EventLikeToggled   = "like.toggled"
	EventFollowToggled = "follow.toggled"

	publishTimeout = 2 * time.Second
)

// ActivityEvent - интеграционное событие для внешних потребителей.
// Публикуется только после коммита транзакции.
type ActivityEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ActorID    string    `json:"actor_id"`
	PostID     int64     `json:"post_id,omitempty"`
	TargetUser string    `json:"target_user_id,omitempty"`
	Active     *bool     `json:"active,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newActivityEvent(eventType, actorID string) ActivityEvent {
	return ActivityEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// key groups events of one aggregate on the same partition
func (e ActivityEvent) key() string {
	if e.PostID != 0 {
		return fmt.Sprintf("post.%d", e.PostID)
	}
	return "user." + e.TargetUser
}

type Publisher interface {
	Publish(ctx context.Context, event ActivityEvent) error
	Close() error
}

// NopPublisher используется, когда events.driver не задан
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ActivityEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// RabbitPublisher публикует события в topic exchange, routing key = тип события
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	log.Printf("RabbitMQ publisher initialized, exchange: %s", exchange)
	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event ActivityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		event.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

func (p *RabbitPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// KafkaPublisher пишет события в один топик, ключ - агрегат (пост или пользователь)
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &KafkaPublisher{writer: w}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event ActivityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.key()),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// NewPublisher выбирает реализацию по events.driver
func NewPublisher(conf config.EventsConfig) (Publisher, error) {
	switch conf.Driver {
	case "":
		return NopPublisher{}, nil
	case "rabbitmq":
		return NewRabbitPublisher(conf.RabbitMQURL, conf.Exchange)
	case "kafka":
		return NewKafkaPublisher(conf.KafkaBrokers, conf.KafkaTopic)
	default:
		return nil, fmt.Errorf("unknown events driver %q", conf.Driver)
	}
}

// emit публикует событие; ошибка доставки не влияет на результат операции
func emit(ctx context.Context, pub Publisher, event ActivityEvent) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := pub.Publish(ctx, event); err != nil {
		log.Printf("ERROR: failed to publish %s event %s: %v", event.Type, event.ID, err)
	}
}
