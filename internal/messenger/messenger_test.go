package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
	deliveries chan amqp.Delivery
	bound      string
	confirmed  bool
	closed     int
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return nil
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Confirm(noWait bool) error {
	f.confirmed = true
	return nil
}

func (f *fakeChannel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	confirm <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
	return confirm
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: "q-" + name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.bound = name + ":" + key + ":" + exchange
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	f.closed++
	return nil
}

func newTestMessenger(ch *fakeChannel) MessageService {
	return NewMessengerWithChannel("blaze.events", func() (Channel, error) { return ch, nil })
}

func TestPublishEvent_RoutesByType(t *testing.T) {
	ch := &fakeChannel{}
	m := newTestMessenger(ch)

	m.PublishEvent(entity.Event{TxID: "abc", Sequence: 3, Type: entity.SaleEvent, Params: map[string]string{"price": "100"}})

	require.Len(t, ch.published, 1)
	assert.Equal(t, "blaze.events", ch.published[0].exchange)
	assert.Equal(t, "Sale", ch.published[0].key)
	assert.Equal(t, []string{"blaze.events:topic"}, ch.declared)
	assert.Equal(t, 1, ch.closed)

	var e entity.Event
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &e))
	assert.Equal(t, "abc", e.TxID)
	assert.Equal(t, "100", e.Params["price"])
}

func TestSendMessage(t *testing.T) {
	t.Run("reliable publishing waits for confirmation", func(t *testing.T) {
		ch := &fakeChannel{}
		m := newTestMessenger(ch)

		require.NoError(t, m.SendMessage("Mint", []byte(`{}`), true))
		assert.True(t, ch.confirmed)
		assert.Len(t, ch.published, 1)
	})

	t.Run("publish errors are returned", func(t *testing.T) {
		ch := &fakeChannel{publishErr: errors.New("channel closed")}
		m := newTestMessenger(ch)

		assert.Error(t, m.SendMessage("Mint", []byte(`{}`), false))
	})

	t.Run("dial errors are returned", func(t *testing.T) {
		m := NewMessengerWithChannel("blaze.events", func() (Channel, error) { return nil, errors.New("refused") })

		assert.EqualError(t, m.SendMessage("Mint", []byte(`{}`), false), "refused")
	})
}

func TestConsumeEvents(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 3)}
	m := newTestMessenger(ch)

	body, _ := json.Marshal(entity.Event{TxID: "one", Type: entity.MintEvent})
	ch.deliveries <- amqp.Delivery{Body: body}
	ch.deliveries <- amqp.Delivery{Body: []byte("not json")}
	body, _ = json.Marshal(entity.Event{TxID: "two", Type: entity.SaleEvent})
	ch.deliveries <- amqp.Delivery{Body: body}
	close(ch.deliveries)

	received := make([]string, 0)
	err := m.ConsumeEvents(context.Background(), "watch", "#", func(e entity.Event) {
		received = append(received, e.TxID)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, received)
	assert.Equal(t, "q-watch:#:blaze.events", ch.bound)
}
