package syncx

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Source yields logged events after a sequence number, oldest first.
type Source interface {
	Since(ctx context.Context, after int64, limit int) ([]Event, error)
}

// Relay forwards events from the SQL event log to a downstream publisher.
// The cursor only moves past an event once the sink accepted it, so delivery
// is at least once.
type Relay struct {
	Source Source
	Sink   Publisher
	Batch  int
	Log    *zap.Logger

	cursor int64
}

func NewRelay(src Source, sink Publisher, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{Source: src, Sink: sink, Batch: 100, Log: log}
}

func (r *Relay) Cursor() int64 { return r.cursor }

// StartAfter skips every event up to and including seq.
func (r *Relay) StartAfter(seq int64) { r.cursor = seq }

// Step forwards one batch and reports how many events went out.
func (r *Relay) Step(ctx context.Context) (int, error) {
	events, err := r.Source.Since(ctx, r.cursor, r.Batch)
	if err != nil {
		return 0, fmt.Errorf("read event log: %w", err)
	}
	for i, e := range events {
		if err := r.Sink.Publish(ctx, e); err != nil {
			return i, fmt.Errorf("forward event %d: %w", e.Seq, err)
		}
		r.cursor = e.Seq
	}
	return len(events), nil
}

// Run calls Step every interval until ctx is done. A full batch is followed
// by another Step straight away.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for ctx.Err() == nil {
		n, err := r.Step(ctx)
		if err != nil {
			r.Log.Warn("event relay", zap.Int64("cursor", r.cursor), zap.Error(err))
		}
		if err == nil && n == r.Batch {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
