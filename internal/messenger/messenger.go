package messenger

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

type MessageService interface {
	PublishEvent(e entity.Event)
	SendMessage(routingKey string, body []byte, reliable bool) error
	ConsumeEvents(ctx context.Context, queue, bindingKey string, callback func(e entity.Event)) error
	Close() error
}

// Channel is the subset of *amqp.Channel used by the messenger.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type Messenger struct {
	mu       sync.Mutex
	exchange exchange
	dial     func() (Channel, error)
	conn     *amqp.Connection
}

func NewMessenger(amqpUri, exchangeName string) MessageService {
	m := &Messenger{exchange: eventExchange(exchangeName)}
	m.dial = func() (Channel, error) { return m.openChannel(amqpUri) }

	return m
}

func NewMessengerWithChannel(exchangeName string, dial func() (Channel, error)) MessageService {
	return &Messenger{exchange: eventExchange(exchangeName), dial: dial}
}

// PublishEvent is an event listener: the event is published with its type as
// routing key. Failures are logged, the ledger never waits on the broker.
func (m *Messenger) PublishEvent(e entity.Event) {
	body, err := json.Marshal(e)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("txId", e.TxID)).Error("[Queue] Failed to encode event")
		return
	}

	if err := m.SendMessage(string(e.Type), body, false); err != nil {
		zap.L().With(zap.Error(err), zap.String("txId", e.TxID), zap.String("type", string(e.Type))).
			Error("[Queue] Failed to publish event")
	}
}

func (m *Messenger) SendMessage(routingKey string, body []byte, reliable bool) error {
	ch, err := m.dial()
	if err != nil {
		return err
	}
	defer ch.Close()

	ex := m.exchange
	if err := ex.declare(ch); err != nil {
		return err
	}

	if reliable {
		if err := ch.Confirm(false); err != nil {
			zap.L().With(zap.Error(err)).Error("[Queue] Channel could not be put into confirm mode")
			return err
		}

		confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

		defer m.confirmOne(confirms)
	}

	publishing := amqp.Publishing{
		Headers:      amqp.Table{},
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}

	if err = ch.Publish(ex.Name, routingKey, false, false, publishing); err != nil {
		zap.L().With(zap.Error(err)).Error("[Queue] Exchange Publish")
		return err
	}

	zap.L().With(zap.String("exchange", ex.Name), zap.String("routingKey", routingKey)).Debug("[Queue] Published message")

	return nil
}

// ConsumeEvents binds queue to the exchange and blocks until ctx is done or
// the delivery channel closes. Use "#" as bindingKey for every event.
func (m *Messenger) ConsumeEvents(ctx context.Context, queue, bindingKey string, callback func(e entity.Event)) error {
	ch, err := m.dial()
	if err != nil {
		return err
	}
	defer ch.Close()

	ex := m.exchange
	if err := ex.declare(ch); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(queue, true, queue == "", queue == "", false, nil)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("[Queue] Failed to declare a queue")
		return err
	}

	if err = ch.QueueBind(q.Name, bindingKey, ex.Name, false, nil); err != nil {
		zap.L().With(zap.Error(err)).Error("[Queue] Failed to bind a queue")
		return err
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("[Queue] Failed to consume the queue")
		return err
	}

	zap.S().With(zap.String("exchange", ex.Name)).Debugf("[Queue] Waiting for messages")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}

			var e entity.Event
			if err := json.Unmarshal(d.Body, &e); err != nil {
				zap.L().With(zap.Error(err)).Warn("[Queue] Skipping malformed message")
				continue
			}
			callback(e)
		}
	}
}

func (m *Messenger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil || m.conn.IsClosed() {
		return nil
	}

	return m.conn.Close()
}

func (m *Messenger) openConnection(amqpUri string) (*amqp.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && !m.conn.IsClosed() {
		return m.conn, nil
	}

	conn, err := amqp.Dial(amqpUri)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("[Queue] Failed to connect to RabbitMQ")
		return nil, err
	}

	m.conn = conn

	return m.conn, nil
}

func (m *Messenger) openChannel(amqpUri string) (Channel, error) {
	conn, err := m.openConnection(amqpUri)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		zap.S().With(zap.Error(err)).Error("[Queue] Failed to open channel")
		return nil, err
	}

	return ch, nil
}

func (m *Messenger) confirmOne(confirms <-chan amqp.Confirmation) {
	zap.L().Debug("[Queue] Waiting for publish confirmation")

	if confirmed := <-confirms; confirmed.Ack {
		zap.L().Debug("[Queue] Publish confirmed")
	} else {
		zap.L().Warn("[Queue] Publish failed")
	}
}
