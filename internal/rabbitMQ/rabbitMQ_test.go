package rabbitMQ

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type settled struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (s *settled) Ack(uint64, bool) error {
	s.acked = true
	return nil
}

func (s *settled) Nack(_ uint64, _ bool, requeue bool) error {
	s.nacked = true
	s.requeued = requeue
	return nil
}

func (s *settled) Reject(_ uint64, requeue bool) error {
	s.nacked = true
	s.requeued = requeue
	return nil
}

func TestProcessDelivery(t *testing.T) {
	tests := []struct {
		name       string
		handlerErr error
		want       settled
	}{
		{name: "handled message is acked", want: settled{acked: true}},
		{name: "failed message is dropped", handlerErr: errors.New("channel closed"), want: settled{nacked: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &settled{}
			msg := amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: []byte(`{}`)}

			processDelivery(context.Background(), msg, func(context.Context, []byte) error {
				return tt.handlerErr
			})

			assert.Equal(t, tt.want, *ack)
		})
	}
}
