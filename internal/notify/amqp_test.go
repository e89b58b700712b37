package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (p *recordingPublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	p.exchange = exchange
	p.key = key
	p.msg = msg
	return p.err
}

func TestAMQPSender_Send(t *testing.T) {
	pub := &recordingPublisher{}
	sender := NewAMQPSender(pub, "notifications", "email.password_reset")

	err := sender.Send(context.Background(), Message{
		Recipient: "user@example.com",
		Subject:   "Reset",
		Body:      "token",
	})
	require.NoError(t, err)

	assert.Equal(t, "notifications", pub.exchange)
	assert.Equal(t, "email.password_reset", pub.key)
	assert.Equal(t, "application/json", pub.msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), pub.msg.DeliveryMode)

	var decoded Message
	require.NoError(t, json.Unmarshal(pub.msg.Body, &decoded))
	assert.Equal(t, "user@example.com", decoded.Recipient)
}

func TestAMQPSender_PropagatesPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("channel closed")}
	sender := NewAMQPSender(pub, "notifications", "email.password_reset")

	err := sender.Send(context.Background(), Message{Recipient: "a@b.c"})
	assert.Error(t, err)
}
