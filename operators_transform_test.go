package rx_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorx/rx"
	"github.com/gorx/rx/rxtest"
)

func TestMapAppliesTransformToEachValue(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Map(rx.Just(1, 2, 3), func(v int) int { return v * 10 }).Subscribe(rec)

	assert.Equal(t, []int{10, 20, 30}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestMapTransformPanicBecomesOnErrorAndStops(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Map(rx.Just(1, 2, 3), func(v int) int {
		if v == 2 {
			panic("boom")
		}
		return v
	}).Subscribe(rec)

	assert.Equal(t, []int{1}, rec.Values())
	assert.Error(t, rec.Err())
}

func TestScanSeededEmitsRunningAccumulation(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.ScanSeeded(rx.Just(1, 2, 3, 4), 0, func(acc, v int) int { return acc + v }).Subscribe(rec)

	assert.Equal(t, []int{1, 3, 6, 10}, rec.Values())
}

func TestScanUnseededUsesFirstValueAsSeed(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Scan(rx.Just(1, 2, 3, 4), func(acc, v int) int { return acc + v }).Subscribe(rec)

	assert.Equal(t, []int{1, 3, 6, 10}, rec.Values())
}

// reduce(f) must equal the last element of scan(f) over the same source, for
// both the seeded and unseeded variants.
func TestReduceEqualsLastScanValueSeeded(t *testing.T) {
	scanRec := rxtest.NewRecordingObserver[int]()
	reduceRec := rxtest.NewRecordingObserver[int]()

	rx.ScanSeeded(rx.Just(1, 2, 3, 4), 100, func(acc, v int) int { return acc + v }).Subscribe(scanRec)
	rx.ReduceSeeded(rx.Just(1, 2, 3, 4), 100, func(acc, v int) int { return acc + v }).Subscribe(reduceRec)

	scanValues := scanRec.Values()
	require.NotEmpty(t, scanValues)
	require.Len(t, reduceRec.Values(), 1)
	assert.Equal(t, scanValues[len(scanValues)-1], reduceRec.Values()[0])
}

func TestReduceEqualsLastScanValueUnseeded(t *testing.T) {
	scanRec := rxtest.NewRecordingObserver[int]()
	reduceRec := rxtest.NewRecordingObserver[int]()

	rx.Scan(rx.Just(5, 2, 9, 1), func(acc, v int) int {
		if v > acc {
			return v
		}
		return acc
	}).Subscribe(scanRec)
	rx.Reduce(rx.Just(5, 2, 9, 1), func(acc, v int) int {
		if v > acc {
			return v
		}
		return acc
	}).Subscribe(reduceRec)

	scanValues := scanRec.Values()
	require.NotEmpty(t, scanValues)
	require.Len(t, reduceRec.Values(), 1)
	assert.Equal(t, scanValues[len(scanValues)-1], reduceRec.Values()[0])
}

func TestReduceOnEmptyStreamEmitsNothing(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Reduce(rx.Empty[int](), func(a, b int) int { return a + b }).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.True(t, rec.Completed())
}

func TestScanPropagatesUpstreamError(t *testing.T) {
	boom := errors.New("boom")
	rec := rxtest.NewRecordingObserver[int]()
	rx.ScanSeeded(rx.ErrorStream[int](boom), 0, func(a, b int) int { return a + b }).Subscribe(rec)

	assert.ErrorIs(t, rec.Err(), boom)
}

func TestTimestampPairsEachValueWithClockReading(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	now := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	rec := rxtest.NewRecordingObserver[rx.Timestamped[string]]()
	rx.Timestamp(rx.Just("a", "b"), now).Subscribe(rec)

	values := rec.Values()
	require.Len(t, values, 2)
	assert.Equal(t, "a", values[0].Value)
	assert.Equal(t, base.Add(time.Second), values[0].At)
	assert.Equal(t, "b", values[1].Value)
	assert.Equal(t, base.Add(2*time.Second), values[1].At)
}

func TestStartWithPrependsValuesBeforeUpstream(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.StartWith(rx.Just(3, 4), 1, 2).Subscribe(rec)

	assert.Equal(t, []int{1, 2, 3, 4}, rec.Values())
	assert.True(t, rec.Completed())
}
