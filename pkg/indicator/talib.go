package indicator

import (
	"github.com/markcheno/go-talib"
	"github.com/raykavin/chartshot/pkg/core"
)

// Mode selects the indicator arithmetic
type Mode string

const (
	// ModeCompatible keeps the first-sample EMA seeding and the RSI
	// averaging of the existing chart images. Only those match: the MACD
	// line and its signal are paired on the same bar, so MACD values differ
	// from the older images. It is the default.
	ModeCompatible Mode = "compatible"
	// ModeTextbook uses the TA-Lib definitions (SMA seeded averages).
	ModeTextbook Mode = "textbook"
)

// ParseMode maps a configuration value to a Mode, defaulting to ModeCompatible
func ParseMode(value string) Mode {
	if Mode(value) == ModeTextbook {
		return ModeTextbook
	}
	return ModeCompatible
}

func textbookRSI(df *core.Dataframe, period int) []core.Point {
	values := talib.Rsi(df.Close.Values(), period)

	points := make([]core.Point, 0, len(values)-period)
	for i := period; i < len(values); i++ {
		points = append(points, core.Point{Time: df.Time[i], Value: values[i]})
	}

	return points
}

func (m *MACDIndicator) loadTextbook(df *core.Dataframe) {
	macdLine, signalLine, _ := talib.Macd(df.Close.Values(), m.Fast, m.Slow, m.Signal)

	first := m.Slow + m.Signal - 2
	for i := first; i < len(macdLine); i++ {
		m.append(df.Time[i], macdLine[i], signalLine[i])
	}
}
