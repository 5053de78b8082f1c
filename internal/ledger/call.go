package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ethereum/go-ethereum/common"
)

const maxCallDepth = 64

var (
	ErrCallDepth = errors.New("call depth exceeded")
	ErrReadOnly  = errors.New("state mutation in read-only call")
)

// Call is an execution frame. Caller is the account that invoked the frame,
// Self the account being executed and Value the native value moved from
// Caller to Self when the frame started.
type Call struct {
	ledger   *Ledger
	TxID     string
	Caller   common.Address
	Self     common.Address
	Value    *big.Int
	depth    int
	readOnly bool
}

func (c *Call) Depth() int {
	return c.depth
}

// Call runs fn as a nested frame with c.Self as the caller. An error rolls
// back the nested frame only; the caller decides whether to abort as well.
func (c *Call) Call(to common.Address, value *big.Int, fn func(sub *Call) error) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if c.depth+1 > maxCallDepth {
		return ErrCallDepth
	}

	sub := &Call{
		ledger: c.ledger,
		TxID:   c.TxID,
		Caller: c.Self,
		Self:   to,
		Value:  normalize(value),
		depth:  c.depth + 1,
	}

	return c.ledger.run(sub, fn)
}

// Send moves amount from c.Self to the account to. If a Receiver is
// registered for to it runs as a nested frame and may reject the transfer.
func (c *Call) Send(to common.Address, amount *big.Int) error {
	if c.readOnly {
		return ErrReadOnly
	}

	if balance := c.ledger.balanceOf(c.Self); balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", entity.ErrInsufficientFunds, c.Self.Hex(), balance, amount)
	}

	receiver, ok := c.ledger.receivers[to]
	if !ok {
		return c.Call(to, amount, func(*Call) error { return nil })
	}

	if err := c.Call(to, amount, receiver.Receive); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrTransferRejected, err)
	}

	return nil
}

// OnRevert registers undo to run if the current frame, or any frame
// enclosing it, fails.
func (c *Call) OnRevert(undo func()) {
	if c.readOnly {
		panic("ledger: " + ErrReadOnly.Error())
	}

	c.ledger.journal = append(c.ledger.journal, undo)
}

// Emit records an event for c.Self. It is published only if the whole
// transaction commits.
func (c *Call) Emit(eventType entity.EventType, params map[string]string) {
	if c.readOnly {
		panic("ledger: " + ErrReadOnly.Error())
	}

	c.ledger.pending = append(c.ledger.pending, entity.Event{
		Contract: c.Self,
		Type:     eventType,
		Params:   params,
	})
}

func (c *Call) BalanceOf(addr common.Address) *big.Int {
	return new(big.Int).Set(c.ledger.balanceOf(addr))
}
