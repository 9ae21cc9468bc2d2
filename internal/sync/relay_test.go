package syncx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource []Event

func (m memSource) Since(_ context.Context, after int64, limit int) ([]Event, error) {
	var out []Event
	for _, e := range m {
		if e.Seq > after && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type flakySink struct {
	got    []string
	failOn string
}

func (f *flakySink) Publish(_ context.Context, e Event) error {
	if e.Key == f.failOn {
		return errors.New("sink down")
	}
	f.got = append(f.got, e.Key)
	return nil
}

func TestRelayStepAdvancesOnSuccess(t *testing.T) {
	src := memSource{{Seq: 1, Key: "a1"}, {Seq: 2, Key: "a2"}, {Seq: 3, Key: "a3"}}
	sink := &flakySink{failOn: "a2"}
	r := NewRelay(src, sink, nil)
	ctx := context.Background()

	n, err := r.Step(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), r.Cursor())

	sink.failOn = ""
	n, err = r.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a1", "a2", "a3"}, sink.got)

	n, err = r.Step(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayBatches(t *testing.T) {
	src := memSource{{Seq: 1, Key: "a"}, {Seq: 2, Key: "b"}, {Seq: 3, Key: "c"}}
	sink := &flakySink{}
	r := NewRelay(src, sink, nil)
	r.Batch = 2

	n, err := r.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), r.Cursor())
}
