package formats

import "context"

// RouteSource is implemented by every route file format the importer can
// read. A source is initialised once and then read step by step until it
// reports that no more departures are available.
type RouteSource interface {
	DataName() string
	Init(ctx context.Context) error

	// ReadNext handles exactly one departure, departures before begin are
	// skipped. more is false once the source is exhausted.
	ReadNext(ctx context.Context, begin int32) (more bool, err error)

	// ReadUntil handles every departure up to and including the time step
	// until. The first later departure is kept for the next call.
	ReadUntil(ctx context.Context, begin int32, until int32) (more bool, err error)

	CurrentTimeStep() int32
	Close() error
}
