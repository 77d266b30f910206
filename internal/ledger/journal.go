package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// journalEntry is a modification that can be undone.
type journalEntry interface {
	revert(*Ledger)
}

type revision struct {
	id           int
	journalIndex int
}

type (
	balanceChange struct {
		account common.Address
		prev    *uint256.Int
	}
	supplyChange struct {
		prev *uint256.Int
	}
	allowanceChange struct {
		owner   common.Address
		spender common.Address
		prev    *uint256.Int
	}
	logChange struct{}
)

func (ch balanceChange) revert(l *Ledger) {
	if ch.prev == nil {
		delete(l.balances, ch.account)
		return
	}
	l.balances[ch.account] = ch.prev
}

func (ch supplyChange) revert(l *Ledger) {
	l.totalSupply = ch.prev
}

func (ch allowanceChange) revert(l *Ledger) {
	spenders := l.allowances[ch.owner]
	if ch.prev == nil {
		delete(spenders, ch.spender)
		if len(spenders) == 0 {
			delete(l.allowances, ch.owner)
		}
		return
	}
	if spenders == nil {
		spenders = make(map[common.Address]*uint256.Int)
		l.allowances[ch.owner] = spenders
	}
	spenders[ch.spender] = ch.prev
}

func (ch logChange) revert(l *Ledger) {
	l.logs = l.logs[:len(l.logs)-1]
}

// append records an entry only while a snapshot is open.
func (l *Ledger) appendJournal(entry journalEntry) {
	if len(l.revisions) == 0 {
		return
	}
	l.journal = append(l.journal, entry)
}
