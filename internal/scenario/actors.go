package scenario

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Reserved actor names.
const (
	ActorPair   = "pair"
	ActorZero   = "zero"
	ActorToken0 = "token0"
	ActorToken1 = "token1"
)

// ActorAddress derives a stable address for a named actor.
func ActorAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("pairsim:" + strings.ToLower(name))))
}

// Resolve maps an actor name or hex address to an address.
func (e *Env) Resolve(name string) (common.Address, error) {
	name = strings.TrimSpace(name)
	switch strings.ToLower(name) {
	case "":
		return common.Address{}, fmt.Errorf("empty actor")
	case ActorPair:
		return e.Pair.Address(), nil
	case ActorZero:
		return common.Address{}, nil
	case ActorToken0:
		return e.Token0.Address(), nil
	case ActorToken1:
		return e.Token1.Address(), nil
	}
	if strings.HasPrefix(name, "0x") || strings.HasPrefix(name, "0X") {
		if !common.IsHexAddress(name) {
			return common.Address{}, fmt.Errorf("invalid address: %s", name)
		}
		return common.HexToAddress(name), nil
	}
	return ActorAddress(name), nil
}
