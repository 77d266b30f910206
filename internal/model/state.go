package model

// PairState is a point-in-time copy of a pair engine. Amounts are decimal strings.
type PairState struct {
	Address              string            `json:"address"`
	Token0               string            `json:"token0"`
	Token1               string            `json:"token1"`
	Reserve0             string            `json:"reserve0"`
	Reserve1             string            `json:"reserve1"`
	BlockTimestampLast   uint32            `json:"block_timestamp_last"`
	Price0CumulativeLast string            `json:"price0_cumulative_last"`
	Price1CumulativeLast string            `json:"price1_cumulative_last"`
	KLast                string            `json:"k_last"`
	FeeTo                string            `json:"fee_to,omitempty"`
	TotalSupply          string            `json:"total_supply"`
	Balances             map[string]string `json:"balances"`
}

// LedgerState is a point-in-time copy of an asset ledger.
type LedgerState struct {
	Address     string            `json:"address"`
	Symbol      string            `json:"symbol"`
	TotalSupply string            `json:"total_supply"`
	Balances    map[string]string `json:"balances"`
}

// SimulationState is what a scenario checkpoint persists.
type SimulationState struct {
	Scenario  string      `json:"scenario"`
	Step      int         `json:"step"`
	Now       uint64      `json:"now"`
	Seq       uint64      `json:"seq"`
	Pair      PairState   `json:"pair"`
	Token0    LedgerState `json:"token0"`
	Token1    LedgerState `json:"token1"`
	UpdatedAt string      `json:"updated_at"`
}
