package indicator

import (
	"fmt"

	"github.com/raykavin/chartshot/pkg/core"
)

// Default MACD periods
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACD creates a Moving Average Convergence Divergence indicator
func MACD(fast, slow, signal int, mode Mode) *MACDIndicator {
	return &MACDIndicator{Fast: fast, Slow: slow, Signal: signal, Mode: mode}
}

type MACDIndicator struct {
	Fast   int
	Slow   int
	Signal int
	Mode   Mode

	ValuesMACD   []core.Point
	ValuesSignal []core.Point
	ValuesHist   []core.HistogramPoint
}

// Warmup returns the number of bars needed before the first value
func (m MACDIndicator) Warmup() int {
	return m.Slow + m.Signal
}

// Name returns the panel title of the indicator
func (m MACDIndicator) Name() string {
	return fmt.Sprintf("MACD (%d, %d, %d)", m.Fast, m.Slow, m.Signal)
}

// Validate checks the period relationship
func (m MACDIndicator) Validate() error {
	if m.Fast <= 0 || m.Slow <= 0 || m.Signal <= 0 {
		return fmt.Errorf("macd periods must be positive, got %d/%d/%d", m.Fast, m.Slow, m.Signal)
	}
	if m.Fast >= m.Slow {
		return fmt.Errorf("macd fast period %d must be lower than slow period %d", m.Fast, m.Slow)
	}
	return nil
}

// Load computes the three MACD series. Short series yield no values.
func (m *MACDIndicator) Load(df *core.Dataframe) {
	m.ValuesMACD, m.ValuesSignal, m.ValuesHist = nil, nil, nil
	if m.Validate() != nil || df.Len() < m.Warmup() {
		return
	}

	if m.Mode == ModeTextbook {
		m.loadTextbook(df)
		return
	}

	m.loadCompatible(df)
}

// loadCompatible seeds every EMA with the first sample and runs the signal
// EMA over the MACD line from index slow-fast, so bar i reads
// signalLine[i-(slow-fast)]. Values start at bar slow-1+signal.
func (m *MACDIndicator) loadCompatible(df *core.Dataframe) {
	closes := df.Close.Values()
	fastEMA := EMA(closes, m.Fast)
	slowEMA := EMA(closes, m.Slow)

	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	offset := m.Slow - m.Fast
	signalLine := EMA(core.Series[float64](macdLine).From(offset), m.Signal)
	first := m.Slow - 1 + m.Signal
	if first >= len(closes) || len(signalLine) == 0 {
		return
	}

	for i := first; i < len(closes); i++ {
		m.append(df.Time[i], macdLine[i], signalLine[i-offset])
	}
}

func (m *MACDIndicator) append(ts int64, macdValue, signalValue float64) {
	m.ValuesMACD = append(m.ValuesMACD, core.Point{Time: ts, Value: macdValue})
	m.ValuesSignal = append(m.ValuesSignal, core.Point{Time: ts, Value: signalValue})
	m.ValuesHist = append(m.ValuesHist, core.NewHistogramPoint(ts, macdValue-signalValue))
}
