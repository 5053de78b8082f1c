package event

import (
	"sync"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"go.uber.org/zap"
)

const listenerBuffer = 64

type Manager interface {
	AddEventListener(eventType Type, callback func(e entity.Event))
	EmitEvent(e entity.Event)
	Publish(events []entity.Event)
	Close()
}

type manager struct {
	mu        sync.RWMutex
	listeners []*listener
	wg        sync.WaitGroup
	closed    bool
}

type listener struct {
	eventType Type
	channel   chan entity.Event
}

func NewManager() Manager {
	return &manager{listeners: make([]*listener, 0)}
}

// AddEventListener registers callback for eventType. Each listener receives
// its events in emit order on its own goroutine.
func (m *manager) AddEventListener(eventType Type, callback func(e entity.Event)) {
	zap.L().With(zap.String("type", string(eventType))).Debug("EventManager: AddListener")

	l := &listener{
		eventType: eventType,
		channel:   make(chan entity.Event, listenerBuffer),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		zap.L().With(zap.String("type", string(eventType))).Warn("EventManager: listener added after close")
		return
	}
	m.listeners = append(m.listeners, l)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for e := range l.channel {
			callback(e)
		}
	}()
}

func (m *manager) EmitEvent(e entity.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return
	}
	if len(m.listeners) == 0 {
		zap.L().Debug("EventManager: No event listeners available")
	}

	for _, l := range m.listeners {
		if l.eventType == AllEvents || l.eventType == e.Type {
			zap.L().With(zap.String("type", string(e.Type)), zap.String("txId", e.TxID)).Debug("EventManager: Emitting event")
			l.channel <- e
		}
	}
}

// Publish is a ledger sink: it emits each committed event in order.
func (m *manager) Publish(events []entity.Event) {
	for _, e := range events {
		m.EmitEvent(e)
	}
}

// Close stops accepting events and waits for listeners to drain.
func (m *manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, l := range m.listeners {
		close(l.channel)
	}
	m.mu.Unlock()

	m.wg.Wait()
}
