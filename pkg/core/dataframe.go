package core

// Dataframe is the canonical, time-ascending view of a bar sequence. It is
// built once by the normalizer and never mutated afterwards.
type Dataframe struct {
	Bars []Bar

	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Close  Series[float64]
	Volume Series[float64]

	// Time holds unix seconds in ascending order
	Time []int64
}

// NewDataframe builds the columnar view of already sorted bars
func NewDataframe(bars []Bar) *Dataframe {
	df := &Dataframe{
		Bars:   bars,
		Open:   make(Series[float64], len(bars)),
		High:   make(Series[float64], len(bars)),
		Low:    make(Series[float64], len(bars)),
		Close:  make(Series[float64], len(bars)),
		Volume: make(Series[float64], len(bars)),
		Time:   make([]int64, len(bars)),
	}

	for i, bar := range bars {
		df.Open[i] = bar.Open
		df.High[i] = bar.High
		df.Low[i] = bar.Low
		df.Close[i] = bar.Close
		df.Volume[i] = bar.Volume
		df.Time[i] = bar.Time
	}

	return df
}

// Len returns the number of bars
func (df *Dataframe) Len() int {
	return len(df.Bars)
}

// Last returns the most recent bar
func (df *Dataframe) Last() Bar {
	return df.Bars[len(df.Bars)-1]
}

// Sample returns a dataframe holding only the last 'positions' bars
func (df *Dataframe) Sample(positions int) *Dataframe {
	start := len(df.Bars) - positions
	if start <= 0 {
		return df
	}
	return NewDataframe(df.Bars[start:])
}
