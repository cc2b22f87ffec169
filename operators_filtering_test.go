package rx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gorx/rx"
	"github.com/gorx/rx/rxtest"
)

func TestFilterKeepsOnlyMatchingValues(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Filter(rx.RangeInts(1, 6), func(v int) bool { return v%2 == 0 }).Subscribe(rec)

	assert.Equal(t, []int{2, 4, 6}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestFilterPredicatePanicBecomesOnError(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Filter(rx.Just(1, 2, 3), func(int) bool { panic("boom") }).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.Error(t, rec.Err())
	assert.False(t, rec.Completed())
}

func TestSkipDropsLeadingValues(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Skip(rx.RangeInts(1, 5), 2).Subscribe(rec)

	assert.Equal(t, []int{3, 4, 5}, rec.Values())
}

func TestSkipMoreThanAvailableYieldsNothing(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Skip(rx.Just(1, 2), 10).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.True(t, rec.Completed())
}

func TestTakeStopsAfterNAndUnsubscribesUpstream(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Take(rx.RangeInts(1, 100), 3).Subscribe(rec)

	assert.Equal(t, []int{1, 2, 3}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestTakeZeroCompletesImmediately(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.Take(rx.Just(1, 2, 3), 0).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.True(t, rec.Completed())
}

func TestTakeWhileStopsAtFirstFailingPredicate(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.TakeWhile(rx.RangeInts(1, 10), func(v int) bool { return v < 4 }).Subscribe(rec)

	assert.Equal(t, []int{1, 2, 3}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestTakeWhileWithIndexSeesZeroBasedIndex(t *testing.T) {
	var sawIndices []int
	rec := rxtest.NewRecordingObserver[string]()
	rx.TakeWhileWithIndex(rx.Just("a", "b", "c"), func(_ string, i int) bool {
		sawIndices = append(sawIndices, i)
		return i < 2
	}).Subscribe(rec)

	assert.Equal(t, []string{"a", "b"}, rec.Values())
	assert.Equal(t, []int{0, 1, 2}, sawIndices)
}

func TestTakeLastBuffersUntilCompletionThenEmitsFinalN(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.TakeLast(rx.RangeInts(1, 10), 3).Subscribe(rec)

	assert.Equal(t, []int{8, 9, 10}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestTakeLastWithFewerValuesThanNEmitsAll(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.TakeLast(rx.Just(1, 2), 5).Subscribe(rec)

	assert.Equal(t, []int{1, 2}, rec.Values())
}

func TestTakeLastPropagatesErrorWithoutBufferedValues(t *testing.T) {
	boom := errors.New("boom")
	rec := rxtest.NewRecordingObserver[int]()
	rx.TakeLast(rx.Concat(rx.Just(1, 2), rx.ErrorStream[int](boom)), 5).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.ErrorIs(t, rec.Err(), boom)
}

// rx.TakeUntil must stop forwarding as soon as other emits, even though main
// itself never terminates on its own.
func TestTakeUntilStopsWhenOtherEmits(t *testing.T) {
	var mainObserver rx.Observer[int]
	var otherObserver rx.Observer[struct{}]

	main := rx.New[int]("main", func(observer rx.Observer[int]) rx.Subscription {
		mainObserver = observer
		return rx.Noop
	})
	other := rx.New[struct{}]("other", func(observer rx.Observer[struct{}]) rx.Subscription {
		otherObserver = observer
		return rx.Noop
	})

	rec := rxtest.NewRecordingObserver[int]()
	rx.TakeUntil(main, other).Subscribe(rec)

	mainObserver.OnNext(1)
	mainObserver.OnNext(2)
	otherObserver.OnNext(struct{}{})
	mainObserver.OnNext(3)

	assert.Equal(t, []int{1, 2}, rec.Values())
	assert.True(t, rec.Completed())
}
