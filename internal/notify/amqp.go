package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the subset of *amqp.Channel used by AMQPSender.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSender publishes notifications as persistent JSON messages for a mail worker.
type AMQPSender struct {
	mu         sync.Mutex
	channel    Publisher
	exchange   string
	routingKey string
}

func NewAMQPSender(channel Publisher, exchange, routingKey string) *AMQPSender {
	return &AMQPSender{
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
	}
}

// DialAMQP connects, opens a channel and declares the durable topic exchange.
func DialAMQP(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return conn, ch, nil
}

func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.channel.PublishWithContext(ctx,
		s.exchange,
		s.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		},
	)
}
