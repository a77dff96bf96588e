package repository

import (
	"context"

	"ScreenerView/internal/domain/models"
)

// Source supplies header-tagged rows as a sequence of chunks. The chunk
// channel closes on terminal success; the error channel delivers at most one
// error and is closed when the stream ends.
type Source interface {
	Name() string
	Stream(ctx context.Context) (<-chan models.Chunk, <-chan error)
}

// Notifier receives screener status events.
type Notifier interface {
	Notify(ctx context.Context, ev models.Event) error
}

type Metrics interface {
	RecordLoad(source, result string)
	RecordRows(parsed, rejected int)
	RecordTickers(n int)
	RecordLatency(op string, seconds float64)
}
