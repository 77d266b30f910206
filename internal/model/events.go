package model

// MintEventData is the payload of a liquidity-added notification.
type MintEventData struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

// BurnEventData is the payload of a liquidity-removed notification.
type BurnEventData struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
	To      string `json:"to"`
}

// SwapEventData is the payload of a swap notification.
type SwapEventData struct {
	Sender     string `json:"sender"`
	Amount0In  string `json:"amount0_in"`
	Amount1In  string `json:"amount1_in"`
	Amount0Out string `json:"amount0_out"`
	Amount1Out string `json:"amount1_out"`
	To         string `json:"to"`
}

// SyncEventData is the payload of a reserve-sync notification.
type SyncEventData struct {
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

// TransferEventData is the payload of a balance change on a share or asset ledger.
type TransferEventData struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// ApprovalEventData is the payload of an allowance change.
type ApprovalEventData struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Value   string `json:"value"`
}
