// Package ledger implements an in-memory fungible token with journaled snapshots.
//
// A Ledger plays the part of an external asset contract for a pair: it holds
// balances, moves them on Transfer and records a transfer log for every change.
// Snapshot and RevertToSnapshot undo everything since the snapshot, logs included.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/model"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrSupplyOverflow        = errors.New("total supply overflow")
)

// maxAllowance never decreases on TransferFrom.
var maxAllowance = new(uint256.Int).SetAllOne()

// LogKind distinguishes the two log shapes a ledger records.
type LogKind uint8

const (
	LogTransfer LogKind = iota
	LogApproval
)

// Log is a committed balance or allowance change.
type Log struct {
	Kind  LogKind
	Token common.Address
	From  common.Address
	To    common.Address
	Value *uint256.Int
}

// EventName returns the notification name for the log.
func (lg Log) EventName() string {
	if lg.Kind == LogApproval {
		return model.EventApproval
	}
	return model.EventTransfer
}

// Data returns the JSON payload for the log.
func (lg Log) Data() interface{} {
	if lg.Kind == LogApproval {
		return model.ApprovalEventData{Owner: lg.From.Hex(), Spender: lg.To.Hex(), Value: amount.String(lg.Value)}
	}
	return model.TransferEventData{From: lg.From.Hex(), To: lg.To.Hex(), Value: amount.String(lg.Value)}
}

// Ledger is a fungible token. It is safe for concurrent use.
type Ledger struct {
	mu sync.Mutex

	address     common.Address
	symbol      string
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
	logs        []Log

	journal        []journalEntry
	revisions      []revision
	nextRevisionID int
}

// New creates an empty ledger identified by address.
func New(address common.Address, symbol string) *Ledger {
	return &Ledger{
		address:     address,
		symbol:      symbol,
		totalSupply: new(uint256.Int),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

func (l *Ledger) Address() common.Address { return l.address }

func (l *Ledger) Symbol() string { return l.symbol }

// BalanceOf returns a copy of owner's balance.
func (l *Ledger) BalanceOf(owner common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceOf(owner).Clone()
}

// TotalSupply returns a copy of the outstanding supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalSupply.Clone()
}

// Allowance returns how much spender may move on behalf of owner.
func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.allowances[owner][spender]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

// Mint credits value to to and grows the supply.
func (l *Ledger) Mint(to common.Address, value *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	supply, overflow := new(uint256.Int).AddOverflow(l.totalSupply, value)
	if overflow {
		return fmt.Errorf("mint %s to %s: %w", amount.String(value), to.Hex(), ErrSupplyOverflow)
	}
	l.setSupply(supply)
	l.setBalance(to, new(uint256.Int).Add(l.balanceOf(to), value))
	l.addLog(Log{Kind: LogTransfer, From: common.Address{}, To: to, Value: value.Clone()})
	return nil
}

// Burn debits value from from and shrinks the supply.
func (l *Ledger) Burn(from common.Address, value *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balanceOf(from)
	if balance.Lt(value) {
		return fmt.Errorf("burn %s from %s: %w", amount.String(value), from.Hex(), ErrInsufficientBalance)
	}
	l.setBalance(from, new(uint256.Int).Sub(balance, value))
	l.setSupply(new(uint256.Int).Sub(l.totalSupply, value))
	l.addLog(Log{Kind: LogTransfer, From: from, To: common.Address{}, Value: value.Clone()})
	return nil
}

// Transfer moves value from from to to. It fails rather than moving a partial amount.
func (l *Ledger) Transfer(from, to common.Address, value *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(from, to, value)
}

// Approve sets the allowance of spender over owner's balance.
func (l *Ledger) Approve(owner, spender common.Address, value *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setAllowance(owner, spender, value.Clone())
	l.addLog(Log{Kind: LogApproval, From: owner, To: spender, Value: value.Clone()})
}

// TransferFrom moves value from from to to using spender's allowance.
// An allowance of 2^256-1 is treated as unlimited.
func (l *Ledger) TransferFrom(spender, from, to common.Address, value *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := new(uint256.Int)
	if v, ok := l.allowances[from][spender]; ok {
		allowed = v
	}
	if allowed.Lt(value) {
		return fmt.Errorf("transfer %s from %s by %s: %w", amount.String(value), from.Hex(), spender.Hex(), ErrInsufficientAllowance)
	}
	if err := l.transfer(from, to, value); err != nil {
		return err
	}
	if !allowed.Eq(maxAllowance) {
		l.setAllowance(from, spender, new(uint256.Int).Sub(allowed, value))
	}
	return nil
}

// Snapshot opens a revision that RevertToSnapshot can return to.
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextRevisionID
	l.nextRevisionID++
	l.revisions = append(l.revisions, revision{id: id, journalIndex: len(l.journal)})
	return id
}

// RevertToSnapshot undoes every change made since the snapshot with the given id.
func (l *Ledger) RevertToSnapshot(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.revisionIndex(id)
	snapshot := l.revisions[idx].journalIndex
	for i := len(l.journal) - 1; i >= snapshot; i-- {
		l.journal[i].revert(l)
	}
	l.journal = l.journal[:snapshot]
	l.revisions = l.revisions[:idx]
	l.trimJournal()
}

// DiscardSnapshot keeps the changes made since the snapshot and closes it.
func (l *Ledger) DiscardSnapshot(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.revisionIndex(id)
	l.revisions = l.revisions[:idx]
	l.trimJournal()
}

// Logs returns the logs recorded since the last DrainLogs.
func (l *Ledger) Logs() []Log {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Log, len(l.logs))
	copy(out, l.logs)
	return out
}

// DrainLogs returns and clears the recorded logs. It must not be called while a
// snapshot is open, since the journal still refers to them.
func (l *Ledger) DrainLogs() []Log {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.revisions) > 0 {
		out := make([]Log, len(l.logs))
		copy(out, l.logs)
		return out
	}
	out := l.logs
	l.logs = nil
	return out
}

// State returns a copy of the ledger for checkpoints.
func (l *Ledger) State() model.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()

	balances := make(map[string]string, len(l.balances))
	for owner, v := range l.balances {
		if v.IsZero() {
			continue
		}
		balances[owner.Hex()] = amount.String(v)
	}
	return model.LedgerState{
		Address:     l.address.Hex(),
		Symbol:      l.symbol,
		TotalSupply: amount.String(l.totalSupply),
		Balances:    balances,
	}
}

// Restore rebuilds a ledger from a checkpoint. The sum of balances must equal the supply.
func Restore(state model.LedgerState) (*Ledger, error) {
	if !common.IsHexAddress(state.Address) {
		return nil, fmt.Errorf("invalid ledger address: %s", state.Address)
	}
	l := New(common.HexToAddress(state.Address), state.Symbol)

	owners := make([]string, 0, len(state.Balances))
	for owner := range state.Balances {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	sum := new(uint256.Int)
	for _, owner := range owners {
		if !common.IsHexAddress(owner) {
			return nil, fmt.Errorf("invalid holder address: %s", owner)
		}
		v, err := amount.Parse(state.Balances[owner])
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", owner, err)
		}
		var overflow bool
		if sum, overflow = new(uint256.Int).AddOverflow(sum, v); overflow {
			return nil, fmt.Errorf("restore %s: %w", state.Symbol, ErrSupplyOverflow)
		}
		l.balances[common.HexToAddress(owner)] = v
	}

	supply, err := amount.Parse(state.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}
	if !supply.Eq(sum) {
		return nil, fmt.Errorf("restore %s: balances sum to %s, supply is %s", state.Symbol, amount.String(sum), amount.String(supply))
	}
	l.totalSupply = supply
	return l, nil
}

func (l *Ledger) transfer(from, to common.Address, value *uint256.Int) error {
	balance := l.balanceOf(from)
	if balance.Lt(value) {
		return fmt.Errorf("transfer %s %s from %s: %w", amount.String(value), l.symbol, from.Hex(), ErrInsufficientBalance)
	}
	l.setBalance(from, new(uint256.Int).Sub(balance, value))
	l.setBalance(to, new(uint256.Int).Add(l.balanceOf(to), value))
	l.addLog(Log{Kind: LogTransfer, From: from, To: to, Value: value.Clone()})
	return nil
}

func (l *Ledger) balanceOf(owner common.Address) *uint256.Int {
	if v, ok := l.balances[owner]; ok {
		return v
	}
	return new(uint256.Int)
}

func (l *Ledger) setBalance(owner common.Address, value *uint256.Int) {
	l.appendJournal(balanceChange{account: owner, prev: l.balances[owner]})
	l.balances[owner] = value
}

func (l *Ledger) setSupply(value *uint256.Int) {
	l.appendJournal(supplyChange{prev: l.totalSupply})
	l.totalSupply = value
}

func (l *Ledger) setAllowance(owner, spender common.Address, value *uint256.Int) {
	spenders := l.allowances[owner]
	var prev *uint256.Int
	if spenders != nil {
		prev = spenders[spender]
	}
	l.appendJournal(allowanceChange{owner: owner, spender: spender, prev: prev})
	if spenders == nil {
		spenders = make(map[common.Address]*uint256.Int)
		l.allowances[owner] = spenders
	}
	spenders[spender] = value
}

func (l *Ledger) addLog(lg Log) {
	lg.Token = l.address
	l.appendJournal(logChange{})
	l.logs = append(l.logs, lg)
}

func (l *Ledger) revisionIndex(id int) int {
	idx := sort.Search(len(l.revisions), func(i int) bool {
		return l.revisions[i].id >= id
	})
	if idx == len(l.revisions) || l.revisions[idx].id != id {
		panic(fmt.Errorf("revision id %v cannot be reverted", id))
	}
	return idx
}

func (l *Ledger) trimJournal() {
	if len(l.revisions) == 0 {
		l.journal = l.journal[:0]
	}
}
