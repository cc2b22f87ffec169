package rx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorx/rx"
	"github.com/gorx/rx/rxtest"
)

func TestJustEmitsInOrderThenCompletes(t *testing.T) {
	rec := rxtest.NewRecordingObserver[string]()
	rx.Just("a", "b", "c").Subscribe(rec)

	assert.Equal(t, []string{"a", "b", "c"}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestEmptyCompletesWithoutValues(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Empty[int]().Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.True(t, rec.Completed())
}

func TestNeverEmitsNothing(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	sub := rx.Never[int]().Subscribe(rec)

	assert.Equal(t, 0, rec.Count())
	assert.False(t, sub.IsUnsubscribed())
}

func TestErrorStreamEmitsOnlyError(t *testing.T) {
	boom := errors.New("boom")
	rec := rxtest.NewRecordingObserver[int]()
	rx.ErrorStream[int](boom).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.ErrorIs(t, rec.Err(), boom)
	assert.False(t, rec.Completed())
}

func TestRangeIntsEmitsConsecutiveValues(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.RangeInts(5, 4).Subscribe(rec)

	assert.Equal(t, []int{5, 6, 7, 8}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestFromSliceEmitsEachElement(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.FromSlice([]int{9, 8, 7}).Subscribe(rec)

	assert.Equal(t, []int{9, 8, 7}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestFromChannelForwardsUntilClosed(t *testing.T) {
	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	ch <- 3
	close(ch)

	rec := rxtest.NewRecordingObserver[int]()
	done := make(chan struct{})
	go func() {
		rx.FromChannel(ch).Subscribe(rec)
		close(done)
	}()
	<-done
	// Subscribe returns before the forwarding goroutine has drained ch.
	require.Eventually(t, rec.Completed, time.Second, time.Millisecond)

	assert.Equal(t, []int{1, 2, 3}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestFromChannelUnsubscribeStopsForwarding(t *testing.T) {
	ch := make(chan int)
	rec := rxtest.NewRecordingObserver[int]()
	sub := rx.FromChannel(ch).Subscribe(rec)

	ch <- 1
	sub.Unsubscribe()
	// A value sent after unsubscribe may still be read off the channel by
	// the forwarding goroutine's select, but must not reach the observer.
	select {
	case ch <- 2:
	default:
	}

	assert.True(t, sub.IsUnsubscribed())
	assert.NotContains(t, rec.Values(), 2)
}

type fakeFuture struct {
	value int
	err   error
}

func (f fakeFuture) Get(ctx context.Context) (int, error) { return f.value, f.err }

func TestFromFutureEmitsSingleResult(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.FromFuture[int](context.Background(), fakeFuture{value: 42}).Subscribe(rec)

	assert.Equal(t, []int{42}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestFromFutureEmitsErrorFromGet(t *testing.T) {
	boom := errors.New("future failed")
	rec := rxtest.NewRecordingObserver[int]()
	rx.FromFuture[int](context.Background(), fakeFuture{err: boom}).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.ErrorIs(t, rec.Err(), boom)
}

func TestDeferBuildsFreshStreamPerSubscriber(t *testing.T) {
	calls := 0
	s := rx.Defer(func() rx.Stream[int] {
		calls++
		return rx.Just(calls)
	})

	recA := rxtest.NewRecordingObserver[int]()
	recB := rxtest.NewRecordingObserver[int]()
	s.Subscribe(recA)
	s.Subscribe(recB)

	assert.Equal(t, []int{1}, recA.Values())
	assert.Equal(t, []int{2}, recB.Values())
}

func TestConcatRunsSourcesInOrder(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Concat(rx.Just(1, 2), rx.Just(3), rx.Just(4, 5)).Subscribe(rec)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestConcatShortCircuitsOnError(t *testing.T) {
	boom := errors.New("concat boom")
	rec := rxtest.NewRecordingObserver[int]()
	rx.Concat(rx.Just(1, 2), rx.ErrorStream[int](boom), rx.Just(99)).Subscribe(rec)

	assert.Equal(t, []int{1, 2}, rec.Values())
	assert.ErrorIs(t, rec.Err(), boom)
	assert.False(t, rec.Completed())
}

func TestToSliceCollectsAllValues(t *testing.T) {
	rec := rxtest.NewRecordingObserver[[]int]()
	rx.ToSlice(rx.Just(1, 2, 3)).Subscribe(rec)

	require.Len(t, rec.Values(), 1)
	assert.Equal(t, []int{1, 2, 3}, rec.Values()[0])
}

func TestToSortedSliceSortsBeforeEmitting(t *testing.T) {
	rec := rxtest.NewRecordingObserver[[]int]()
	rx.ToSortedSlice(rx.Just(3, 1, 2), func(a, b int) bool { return a < b }).Subscribe(rec)

	require.Len(t, rec.Values(), 1)
	assert.Equal(t, []int{1, 2, 3}, rec.Values()[0])
}
