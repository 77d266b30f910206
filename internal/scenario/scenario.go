// Package scenario drives a pair and its two asset ledgers through a scripted
// sequence of operations read from YAML.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Operations a step can perform.
const (
	OpFund           = "fund"
	OpTransfer       = "transfer"
	OpDeposit        = "deposit"
	OpTransferShares = "transfer-shares"
	OpApprove        = "approve"
	OpTransferFrom   = "transfer-shares-from"
	OpMint           = "mint"
	OpBurn           = "burn"
	OpSwap           = "swap"
	OpFlashSwap      = "flash-swap"
	OpSync           = "sync"
	OpSkim           = "skim"
	OpAdvance        = "advance"
	OpSetFeeTo       = "set-fee-to"
	OpExpect         = "expect"
)

var knownOps = map[string]struct{}{
	OpFund: {}, OpTransfer: {}, OpDeposit: {}, OpTransferShares: {}, OpApprove: {}, OpTransferFrom: {},
	OpMint: {}, OpBurn: {}, OpSwap: {}, OpFlashSwap: {}, OpSync: {}, OpSkim: {}, OpAdvance: {},
	OpSetFeeTo: {}, OpExpect: {},
}

// Scenario is a named list of steps run against one pair.
type Scenario struct {
	Name string `yaml:"name"`
	// Start is the clock value, in seconds, before the first step.
	Start uint64 `yaml:"start"`
	// FeeTo switches the protocol fee on from the first step.
	FeeTo   string `yaml:"fee-to"`
	Symbol0 string `yaml:"symbol0"`
	Symbol1 string `yaml:"symbol1"`
	Steps   []Step `yaml:"steps"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op    string `yaml:"op"`
	Actor string `yaml:"actor"`
	To    string `yaml:"to"`
	// Spender acts on Actor's shares in transfer-shares-from, and is approved in approve.
	Spender string `yaml:"spender"`
	Token   string `yaml:"token"`
	Amount  string `yaml:"amount"`
	Amount0 string `yaml:"amount0"`
	Amount1 string `yaml:"amount1"`

	AmountIn   string `yaml:"amount-in"`
	Amount0Out string `yaml:"amount0-out"`
	Amount1Out string `yaml:"amount1-out"`

	// Repay is what the flash-swap recipient pays back in Token; "auto"
	// pays the smallest amount that passes the K check.
	Repay   string `yaml:"repay"`
	Data    string `yaml:"data"`
	Reenter bool   `yaml:"reenter"`

	Seconds uint64 `yaml:"seconds"`

	Expect      *Expectation `yaml:"expect"`
	ExpectError string       `yaml:"expect-error"`
}

// Expectation lists values checked by an expect step. Empty fields are not checked.
type Expectation struct {
	Reserve0             string            `yaml:"reserve0"`
	Reserve1             string            `yaml:"reserve1"`
	TotalSupply          string            `yaml:"total-supply"`
	KLast                string            `yaml:"k-last"`
	Price0CumulativeLast string            `yaml:"price0-cumulative-last"`
	Price1CumulativeLast string            `yaml:"price1-cumulative-last"`
	BlockTimestampLast   *uint32           `yaml:"block-timestamp-last"`
	Shares               map[string]string `yaml:"shares"`
	Token0               map[string]string `yaml:"token0"`
	Token1               map[string]string `yaml:"token1"`
}

// Load reads and validates a scenario file.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Validate checks the shape of every step without touching any state.
func (sc Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %s has no steps", sc.Name)
	}
	for i, step := range sc.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	if _, ok := knownOps[s.Op]; !ok {
		return fmt.Errorf("unknown op %q", s.Op)
	}
	require := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}

	var err error
	switch s.Op {
	case OpFund:
		err = firstError(require("actor", s.Actor), require("token", s.Token), require("amount", s.Amount))
	case OpTransfer:
		err = firstError(require("actor", s.Actor), require("to", s.To), require("token", s.Token), require("amount", s.Amount))
	case OpDeposit:
		err = require("actor", s.Actor)
		if err == nil && s.Amount0 == "" && s.Amount1 == "" {
			err = fmt.Errorf("amount0 or amount1 is required")
		}
	case OpTransferShares:
		err = firstError(require("actor", s.Actor), require("to", s.To), require("amount", s.Amount))
	case OpApprove:
		err = firstError(require("actor", s.Actor), require("spender", s.Spender), require("amount", s.Amount))
	case OpTransferFrom:
		err = firstError(require("actor", s.Actor), require("spender", s.Spender), require("to", s.To), require("amount", s.Amount))
	case OpMint, OpBurn:
		err = require("actor", s.Actor)
	case OpSwap:
		err = require("actor", s.Actor)
		if err == nil && s.AmountIn != "" {
			err = require("token", s.Token)
		}
		if err == nil && s.AmountIn == "" && s.Amount0Out == "" && s.Amount1Out == "" {
			err = fmt.Errorf("amount-in or an output amount is required")
		}
	case OpFlashSwap:
		err = firstError(require("actor", s.Actor), require("token", s.Token), require("repay", s.Repay))
		if err == nil && s.Amount0Out == "" && s.Amount1Out == "" {
			err = fmt.Errorf("an output amount is required")
		}
	case OpSkim:
		err = require("to", s.To)
	case OpAdvance:
		if s.Seconds == 0 {
			err = fmt.Errorf("seconds must be > 0")
		}
	case OpExpect:
		if s.Expect == nil {
			err = fmt.Errorf("expect block is required")
		}
	}
	if err != nil {
		return err
	}
	if s.Token != "" && s.Token != "token0" && s.Token != "token1" {
		return fmt.Errorf("token must be token0 or token1, got %q", s.Token)
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
