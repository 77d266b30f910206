package pair

// execute runs op as one operation: it rejects nested entry, reverts every
// ledger that supports it when op fails, and publishes the collected events
// only when op succeeds.
func (p *Pair) execute(op func() error) (err error) {
	if p.locked {
		return ErrLocked
	}
	p.locked = true
	snap := p.snapshot()

	defer func() {
		if r := recover(); r != nil {
			snap.revert()
			p.pending = nil
			p.locked = false
			panic(r)
		}
	}()

	if err = op(); err != nil {
		snap.revert()
		p.pending = nil
		p.locked = false
		return err
	}

	snap.discard()
	p.pending = append(p.shareEvents(), p.pending...)
	p.locked = false
	p.flush()
	return nil
}

type snapshot struct {
	reverters []Reverter
	ids       []int
}

func (p *Pair) snapshot() snapshot {
	var snap snapshot
	for _, candidate := range []interface{}{p.shares, p.token0, p.token1} {
		r, ok := candidate.(Reverter)
		if !ok {
			continue
		}
		snap.reverters = append(snap.reverters, r)
		snap.ids = append(snap.ids, r.Snapshot())
	}
	return snap
}

func (s snapshot) revert() {
	for i := len(s.reverters) - 1; i >= 0; i-- {
		s.reverters[i].RevertToSnapshot(s.ids[i])
	}
}

func (s snapshot) discard() {
	for i := len(s.reverters) - 1; i >= 0; i-- {
		s.reverters[i].DiscardSnapshot(s.ids[i])
	}
}
