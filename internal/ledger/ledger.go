package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ethereum/go-ethereum/common"
	uuid "github.com/nu7hatch/gouuid"
	"go.uber.org/zap"
)

// Receiver is invoked when an account receives native value through Send.
// Returning an error rejects the transfer.
type Receiver interface {
	Receive(c *Call) error
}

type ReceiverFunc func(c *Call) error

func (f ReceiverFunc) Receive(c *Call) error {
	return f(c)
}

// Sink receives the events of every committed transaction. Sinks are called
// one transaction at a time in sequence order and must not start a transaction.
type Sink func(events []entity.Event)

type Receipt struct {
	TxID     string         `json:"txId"`
	Sequence uint64         `json:"sequence"`
	Events   []entity.Event `json:"events"`
}

// Ledger serializes every state-mutating operation. A transaction either
// commits all of its state changes and events or none of them.
type Ledger struct {
	mu        sync.RWMutex
	publishMu sync.Mutex
	balances  map[common.Address]*big.Int
	receivers map[common.Address]Receiver
	journal   []func()
	pending   []entity.Event
	history   []entity.Event
	sequence  uint64
	sinks     []Sink
}

func New() *Ledger {
	return &Ledger{
		balances:  make(map[common.Address]*big.Int),
		receivers: make(map[common.Address]Receiver),
	}
}

func (l *Ledger) Subscribe(sink Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sinks = append(l.sinks, sink)
}

func (l *Ledger) RegisterReceiver(addr common.Address, r Receiver) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r == nil {
		delete(l.receivers, addr)
		return
	}
	l.receivers[addr] = r
}

// Fund credits an account out of thin air. Used for genesis allocations and
// the development faucet.
func (l *Ledger) Fund(to common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return
	}
	l.balances[to] = new(big.Int).Add(l.balanceOf(to), amount)

	zap.L().With(zap.String("to", to.Hex()), zap.String("amount", amount.String())).Debug("Ledger: fund")
}

func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return new(big.Int).Set(l.balanceOf(addr))
}

// Sequence is the number of committed transactions.
func (l *Ledger) Sequence() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.sequence
}

// Events returns committed events with a sequence greater than or equal to
// fromSequence.
func (l *Ledger) Events(fromSequence uint64) []entity.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := make([]entity.Event, 0)
	for _, e := range l.history {
		if e.Sequence >= fromSequence {
			events = append(events, e)
		}
	}

	return events
}

// Configure runs fn under the write lock outside of any transaction. It is
// meant for wiring contracts together, not for state changes that need to
// be reverted or observed as events.
func (l *Ledger) Configure(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn()
}

// View runs fn against a read-only frame. Any attempt to mutate state from
// within fn panics.
func (l *Ledger) View(fn func(c *Call)) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fn(&Call{ledger: l, readOnly: true, Value: new(big.Int)})
}

// Execute runs fn as a single transaction sent by from to the account to with
// value attached. The value is moved before fn runs. If fn returns an error
// or panics, every change made during the transaction is rolled back. Panics
// are re-raised once the ledger is unlocked.
func (l *Ledger) Execute(from, to common.Address, value *big.Int, fn func(c *Call) error) (*Receipt, error) {
	c := &Call{
		TxID:   newTxID(),
		Caller: from,
		Self:   to,
		Value:  normalize(value),
	}
	txId := c.TxID

	l.mu.Lock()
	c.ledger = l

	if err := l.runOutermost(c, fn); err != nil {
		l.journal = nil
		l.pending = nil
		l.mu.Unlock()

		zap.L().With(
			zap.String("txId", txId),
			zap.String("from", from.Hex()),
			zap.String("to", to.Hex()),
			zap.Error(err),
		).Debug("Ledger: transaction reverted")
		return nil, err
	}

	l.sequence++
	events := make([]entity.Event, len(l.pending))
	for idx, e := range l.pending {
		e.TxID = txId
		e.Sequence = l.sequence
		e.Index = idx
		events[idx] = e
	}
	l.history = append(l.history, events...)
	l.journal = nil
	l.pending = nil

	receipt := &Receipt{TxID: txId, Sequence: l.sequence, Events: events}
	sinks := make([]Sink, len(l.sinks))
	copy(sinks, l.sinks)

	// publishMu is taken before mu is released so sinks see commits in sequence order
	l.publishMu.Lock()
	defer l.publishMu.Unlock()
	l.mu.Unlock()

	zap.L().With(
		zap.String("txId", txId),
		zap.Uint64("sequence", receipt.Sequence),
		zap.Int("events", len(events)),
	).Debug("Ledger: transaction committed")

	for _, sink := range sinks {
		sink(events)
	}

	return receipt, nil
}

// runOutermost runs the top frame of a transaction. A panic anywhere below it
// rolls back every effect and releases mu before propagating.
func (l *Ledger) runOutermost(c *Call, fn func(c *Call) error) error {
	defer func() {
		if r := recover(); r != nil {
			l.revert(0, 0)
			l.journal = nil
			l.pending = nil
			l.mu.Unlock()

			zap.L().With(
				zap.String("txId", c.TxID),
				zap.Any("panic", r),
			).Error("Ledger: transaction panicked")
			panic(r)
		}
	}()

	return l.run(c, fn)
}

func (l *Ledger) run(c *Call, fn func(c *Call) error) error {
	journalMark, eventMark := len(l.journal), len(l.pending)

	err := l.move(c.Caller, c.Self, c.Value)
	if err == nil {
		err = fn(c)
	}
	if err != nil {
		l.revert(journalMark, eventMark)
	}

	return err
}

func (l *Ledger) revert(journalMark, eventMark int) {
	for i := len(l.journal) - 1; i >= journalMark; i-- {
		l.journal[i]()
	}
	l.journal = l.journal[:journalMark]
	l.pending = l.pending[:eventMark]
}

func (l *Ledger) move(from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 || from == to {
		return nil
	}

	balance := l.balanceOf(from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", entity.ErrInsufficientFunds, from.Hex(), balance, amount)
	}

	l.setBalance(from, new(big.Int).Sub(balance, amount))
	l.setBalance(to, new(big.Int).Add(l.balanceOf(to), amount))

	return nil
}

// Stored balances are never mutated in place, so the undo entry can keep the
// previous pointer.
func (l *Ledger) setBalance(addr common.Address, amount *big.Int) {
	prev, existed := l.balances[addr]
	l.balances[addr] = amount
	l.journal = append(l.journal, func() {
		if existed {
			l.balances[addr] = prev
		} else {
			delete(l.balances, addr)
		}
	})
}

func (l *Ledger) balanceOf(addr common.Address) *big.Int {
	if balance, ok := l.balances[addr]; ok {
		return balance
	}

	return new(big.Int)
}

func newTxID() string {
	u, err := uuid.NewV4()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Ledger: Failed to generate transaction id")
	}

	return u.String()
}

func normalize(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	if value.Sign() < 0 {
		panic("ledger: negative value")
	}

	return new(big.Int).Set(value)
}
