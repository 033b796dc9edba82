package core

import "context"

// Feeder supplies raw bars for one chart
type Feeder interface {
	Bars(ctx context.Context) ([]RawBar, error)
}

// Notifier delivers a rendered chart
type Notifier interface {
	NotifyChart(ctx context.Context, caption string, png []byte) error
}

type NotifierWithStart interface {
	Notifier
	Start()
}
