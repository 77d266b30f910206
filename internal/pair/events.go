package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/ledger"
	"liquidityPair/internal/model"
)

// Event is a notification emitted by a pair once an operation has succeeded.
type Event interface {
	EventName() string
	Data() interface{}
}

// Listener receives the events of each successful operation in emission order.
type Listener interface {
	HandleEvents(pair common.Address, events []Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(pair common.Address, events []Event)

func (f ListenerFunc) HandleEvents(pair common.Address, events []Event) { f(pair, events) }

type MintEvent struct {
	Sender  common.Address
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

func (MintEvent) EventName() string { return model.EventMint }

func (e MintEvent) Data() interface{} {
	return model.MintEventData{Sender: e.Sender.Hex(), Amount0: amount.String(e.Amount0), Amount1: amount.String(e.Amount1)}
}

type BurnEvent struct {
	Sender  common.Address
	Amount0 *uint256.Int
	Amount1 *uint256.Int
	To      common.Address
}

func (BurnEvent) EventName() string { return model.EventBurn }

func (e BurnEvent) Data() interface{} {
	return model.BurnEventData{
		Sender:  e.Sender.Hex(),
		Amount0: amount.String(e.Amount0),
		Amount1: amount.String(e.Amount1),
		To:      e.To.Hex(),
	}
}

type SwapEvent struct {
	Sender     common.Address
	Amount0In  *uint256.Int
	Amount1In  *uint256.Int
	Amount0Out *uint256.Int
	Amount1Out *uint256.Int
	To         common.Address
}

func (SwapEvent) EventName() string { return model.EventSwap }

func (e SwapEvent) Data() interface{} {
	return model.SwapEventData{
		Sender:     e.Sender.Hex(),
		Amount0In:  amount.String(e.Amount0In),
		Amount1In:  amount.String(e.Amount1In),
		Amount0Out: amount.String(e.Amount0Out),
		Amount1Out: amount.String(e.Amount1Out),
		To:         e.To.Hex(),
	}
}

type SyncEvent struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

func (SyncEvent) EventName() string { return model.EventSync }

func (e SyncEvent) Data() interface{} {
	return model.SyncEventData{Reserve0: amount.String(e.Reserve0), Reserve1: amount.String(e.Reserve1)}
}

// TransferEvent records a share balance change, including mints from and burns to the zero address.
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *uint256.Int
}

func (TransferEvent) EventName() string { return model.EventTransfer }

func (e TransferEvent) Data() interface{} {
	return model.TransferEventData{From: e.From.Hex(), To: e.To.Hex(), Value: amount.String(e.Value)}
}

type ApprovalEvent struct {
	Owner   common.Address
	Spender common.Address
	Value   *uint256.Int
}

func (ApprovalEvent) EventName() string { return model.EventApproval }

func (e ApprovalEvent) Data() interface{} {
	return model.ApprovalEventData{Owner: e.Owner.Hex(), Spender: e.Spender.Hex(), Value: amount.String(e.Value)}
}

func shareEvent(lg ledger.Log) Event {
	if lg.Kind == ledger.LogApproval {
		return ApprovalEvent{Owner: lg.From, Spender: lg.To, Value: lg.Value}
	}
	return TransferEvent{From: lg.From, To: lg.To, Value: lg.Value}
}

// shareEvents drains the share ledger. It is only called with no snapshot open.
func (p *Pair) shareEvents() []Event {
	logs := p.shares.DrainLogs()
	events := make([]Event, 0, len(logs))
	for _, lg := range logs {
		events = append(events, shareEvent(lg))
	}
	return events
}

func (p *Pair) emit(ev Event) {
	p.pending = append(p.pending, ev)
}

func (p *Pair) flush() {
	if len(p.pending) == 0 {
		return
	}
	events := p.pending
	p.pending = nil
	for _, l := range p.listeners {
		l.HandleEvents(p.address, events)
	}
}
