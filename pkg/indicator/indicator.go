package indicator

import "github.com/raykavin/chartshot/pkg/core"

// Indicator is a study computed over the canonical series
type Indicator interface {
	Name() string
	Warmup() int
	Load(df *core.Dataframe)
}

var (
	_ Indicator = (*RSIIndicator)(nil)
	_ Indicator = (*MACDIndicator)(nil)
)
