// Package metrics exposes pair activity as Prometheus collectors.
package metrics

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"liquidityPair/internal/pair"
)

const namespace = "pairsim"

// PairMetrics holds the collectors for simulated pairs. It implements
// pair.Listener so a pair can feed it directly.
type PairMetrics struct {
	registry *prometheus.Registry

	Operations *prometheus.CounterVec
	Events     *prometheus.CounterVec
	SwapVolume *prometheus.CounterVec
	SwapFees   *prometheus.CounterVec
	Reserves   *prometheus.GaugeVec
	Supply     *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry.
func New() *PairMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PairMetrics{
		registry: reg,
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pair",
				Name:      "operations_total",
				Help:      "Pair operations by kind and outcome",
			},
			[]string{"op", "result"},
		),
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pair",
				Name:      "events_total",
				Help:      "Notifications emitted by pairs",
			},
			[]string{"pair", "event"},
		),
		SwapVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pair",
				Name:      "swap_volume_total",
				Help:      "Swap volume in base units, inputs plus outputs",
			},
			[]string{"pair", "token"},
		),
		SwapFees: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pair",
				Name:      "swap_fees_total",
				Help:      "Swap fees retained by the pool in base units",
			},
			[]string{"pair", "token"},
		),
		Reserves: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pair",
				Name:      "reserve",
				Help:      "Reserves after the last sync in base units",
			},
			[]string{"pair", "token"},
		),
		Supply: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pair",
				Name:      "share_supply",
				Help:      "Outstanding liquidity shares",
			},
			[]string{"pair"},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *PairMetrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the Prometheus text format.
func (m *PairMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOperation counts one operation by its outcome.
func (m *PairMetrics) ObserveOperation(op string, err error) {
	m.Operations.WithLabelValues(op, Result(err)).Inc()
}

// ObserveSupply records the share supply of a pair.
func (m *PairMetrics) ObserveSupply(p common.Address, supply *uint256.Int) {
	m.Supply.WithLabelValues(p.Hex()).Set(toFloat(supply))
}

// HandleEvents implements pair.Listener.
func (m *PairMetrics) HandleEvents(p common.Address, events []pair.Event) {
	label := p.Hex()
	for _, ev := range events {
		m.Events.WithLabelValues(label, ev.EventName()).Inc()
		switch e := ev.(type) {
		case pair.SyncEvent:
			m.Reserves.WithLabelValues(label, "token0").Set(toFloat(e.Reserve0))
			m.Reserves.WithLabelValues(label, "token1").Set(toFloat(e.Reserve1))
		case pair.SwapEvent:
			m.SwapVolume.WithLabelValues(label, "token0").Add(toFloat(e.Amount0In) + toFloat(e.Amount0Out))
			m.SwapVolume.WithLabelValues(label, "token1").Add(toFloat(e.Amount1In) + toFloat(e.Amount1Out))
			m.SwapFees.WithLabelValues(label, "token0").Add(toFloat(SwapFee(e.Amount0In)))
			m.SwapFees.WithLabelValues(label, "token1").Add(toFloat(SwapFee(e.Amount1In)))
		}
	}
}

// SwapFee is the 0.3% of an input amount the pool keeps.
func SwapFee(amountIn *uint256.Int) *uint256.Int {
	if amountIn == nil {
		return new(uint256.Int)
	}
	fee := new(uint256.Int).Mul(amountIn, uint256.NewInt(3))
	return fee.Div(fee, uint256.NewInt(1000))
}

var results = []struct {
	err   error
	label string
}{
	{pair.ErrInsufficientLiquidityMinted, "insufficient_liquidity_minted"},
	{pair.ErrInsufficientLiquidityBurned, "insufficient_liquidity_burned"},
	{pair.ErrInsufficientOutputAmount, "insufficient_output_amount"},
	{pair.ErrInsufficientInputAmount, "insufficient_input_amount"},
	{pair.ErrInsufficientLiquidity, "insufficient_liquidity"},
	{pair.ErrInvalidRecipient, "invalid_recipient"},
	{pair.ErrK, "k"},
	{pair.ErrLocked, "locked"},
	{pair.ErrOverflow, "overflow"},
	{pair.ErrNoCallee, "no_callee"},
	{pair.ErrCallee, "callee"},
	{pair.ErrInsufficientBalance, "insufficient_balance"},
	{pair.ErrInsufficientAllowance, "insufficient_allowance"},
	{pair.ErrTransferFailed, "transfer_failed"},
	{pair.ErrZeroSender, "zero_sender"},
}

// Result maps an operation error to a bounded label value.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	for _, r := range results {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "error"
}

func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
