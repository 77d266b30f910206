package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"liquidityPair/internal/pair"
)

var pairAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestHandleEvents(t *testing.T) {
	m := New()
	m.HandleEvents(pairAddr, []pair.Event{
		pair.SyncEvent{Reserve0: uint256.NewInt(6000), Reserve1: uint256.NewInt(9000)},
		pair.SwapEvent{
			Amount0In:  uint256.NewInt(1000),
			Amount1In:  new(uint256.Int),
			Amount0Out: new(uint256.Int),
			Amount1Out: uint256.NewInt(1500),
		},
	})

	label := pairAddr.Hex()
	if got := testutil.ToFloat64(m.Reserves.WithLabelValues(label, "token1")); got != 9000 {
		t.Fatalf("reserve1 gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.SwapVolume.WithLabelValues(label, "token1")); got != 1500 {
		t.Fatalf("volume1 = %v", got)
	}
	if got := testutil.ToFloat64(m.SwapFees.WithLabelValues(label, "token0")); got != 3 {
		t.Fatalf("fee0 = %v", got)
	}
	if got := testutil.ToFloat64(m.Events.WithLabelValues(label, "Swap")); got != 1 {
		t.Fatalf("swap events = %v", got)
	}
}

func TestResult(t *testing.T) {
	cases := map[string]error{
		"ok":          nil,
		"k":           fmt.Errorf("swap: %w", pair.ErrK),
		"locked":      pair.ErrLocked,
		"callee":      fmt.Errorf("%w: %w", pair.ErrCallee, errors.New("x")),
		"error":       errors.New("unknown"),
		"no_callee":   pair.ErrNoCallee,
		"overflow":    pair.ErrOverflow,
		"zero_sender": pair.ErrZeroSender,
	}
	for want, err := range cases {
		if got := Result(err); got != want {
			t.Fatalf("Result(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveOperation("swap", nil)
	m.ObserveOperation("swap", pair.ErrK)
	m.ObserveSupply(pairAddr, uint256.NewInt(2000))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`pairsim_pair_operations_total{op="swap",result="ok"} 1`,
		`pairsim_pair_operations_total{op="swap",result="k"} 1`,
		`pairsim_pair_share_supply{pair="` + pairAddr.Hex() + `"} 2000`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}
