// Package feed turns external market data transports into a stream of
// model.Tick values delivered into the pipeline entrance.
//
// Two sources are provided: a plain-JSON WebSocket client (matching the
// cmd/tickserver wire format) and a Kafka consumer group for broker
// deployments. Both decode ticks and hand them to a Sink. The sink is
// the single lossy boundary: Push never blocks, and a refused tick is
// dropped and counted rather than stalling the transport.
package feed

import (
	"context"

	"alert-systemv1/internal/model"
)

// Sink receives decoded ticks. Push reports whether the tick was
// accepted; a full sink refuses the tick without blocking.
// *ringbuf.Ring satisfies Sink.
type Sink interface {
	Push(t model.Tick) bool
}

// Source streams ticks into a Sink until its context is cancelled.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Run blocks until ctx is cancelled or the source fails beyond
	// its own retry budget. A clean shutdown returns nil.
	Run(ctx context.Context, sink Sink) error
}
