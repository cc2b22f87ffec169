package rx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorx/rx"
	"github.com/gorx/rx/rxtest"
)

func TestDoOnNextRunsActionAndForwardsValueUnchanged(t *testing.T) {
	var seen []int
	rec := rxtest.NewRecordingObserver[int]()
	rx.DoOnNext(rx.Just(1, 2, 3), func(v int) { seen = append(seen, v) }).Subscribe(rec)

	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []int{1, 2, 3}, rec.Values())
}

func TestDoOnNextActionPanicBecomesOnError(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.DoOnNext(rx.Just(1, 2), func(int) { panic("boom") }).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.Error(t, rec.Err())
}

func TestDoOnErrorRunsActionThenStillPropagates(t *testing.T) {
	boom := errors.New("boom")
	var seen error
	rec := rxtest.NewRecordingObserver[int]()
	rx.DoOnError(rx.ErrorStream[int](boom), func(err error) { seen = err }).Subscribe(rec)

	assert.ErrorIs(t, seen, boom)
	assert.ErrorIs(t, rec.Err(), boom)
}

func TestDoOnCompletedRunsActionThenStillCompletes(t *testing.T) {
	ran := false
	rec := rxtest.NewRecordingObserver[int]()
	rx.DoOnCompleted(rx.Just(1), func() { ran = true }).Subscribe(rec)

	assert.True(t, ran)
	assert.True(t, rec.Completed())
}

func TestFinallyDoRunsOnceOnNormalCompletion(t *testing.T) {
	calls := 0
	rec := rxtest.NewRecordingObserver[int]()
	rx.FinallyDo(rx.Just(1, 2), func() { calls++ }).Subscribe(rec)

	assert.Equal(t, 1, calls)
}

func TestFinallyDoRunsOnceOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	rec := rxtest.NewRecordingObserver[int]()
	rx.FinallyDo(rx.ErrorStream[int](boom), func() { calls++ }).Subscribe(rec)

	assert.Equal(t, 1, calls)
}

func TestFinallyDoRunsOnceOnEarlyUnsubscribe(t *testing.T) {
	calls := 0
	sub := rx.FinallyDo(rx.Never[int](), func() { calls++ }).Subscribe(rxtest.NewRecordingObserver[int]())
	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Equal(t, 1, calls)
}

func TestGroupByPartitionsByKeyAndIncludesTriggeringValue(t *testing.T) {
	groups := map[int][]string{}
	var order []int

	rx.GroupBy(rx.Just("a", "bb", "c", "dd", "eee"), func(s string) int { return len(s) }).SubscribeFunc(
		func(g rx.GroupedStream[int, string]) {
			order = append(order, g.Key)
			g.Values.SubscribeFunc(func(v string) {
				groups[g.Key] = append(groups[g.Key], v)
			}, nil, nil)
		},
		nil,
		nil,
	)

	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, []string{"a", "c"}, groups[1])
	assert.Equal(t, []string{"bb", "dd"}, groups[2])
	assert.Equal(t, []string{"eee"}, groups[3])
}

func TestGroupByPropagatesErrorToEveryOpenGroup(t *testing.T) {
	boom := errors.New("boom")
	var groupErrs []error
	var outerErr error

	rx.GroupBy(rx.Concat(rx.Just("a", "bb"), rx.ErrorStream[string](boom)), func(s string) int { return len(s) }).SubscribeFunc(
		func(g rx.GroupedStream[int, string]) {
			g.Values.SubscribeFunc(nil, func(err error) { groupErrs = append(groupErrs, err) }, nil)
		},
		func(err error) { outerErr = err },
		nil,
	)

	require.Len(t, groupErrs, 2)
	assert.ErrorIs(t, groupErrs[0], boom)
	assert.ErrorIs(t, groupErrs[1], boom)
	assert.ErrorIs(t, outerErr, boom)
}

func TestFlatMapMergesInnerStreamsPerValue(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.FlatMap(rx.Just(1, 2), func(v int) rx.Stream[int] { return rx.Just(v*10, v*10+1) }).Subscribe(rec)

	assert.Equal(t, []int{10, 11, 20, 21}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestFlatMapProjectPanicTerminatesWithError(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.FlatMap(rx.Just(1, 2), func(int) rx.Stream[int] {
		panic("boom")
	}).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.Error(t, rec.Err())
}

func TestFlatMapPropagatesInnerStreamError(t *testing.T) {
	boom := errors.New("boom")
	rec := rxtest.NewRecordingObserver[int]()
	rx.FlatMap(rx.Just(1), func(int) rx.Stream[int] { return rx.ErrorStream[int](boom) }).Subscribe(rec)

	assert.ErrorIs(t, rec.Err(), boom)
}

func TestFlatMapCompletesOnlyAfterOuterAndAllInnersComplete(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.FlatMap(rx.Just(1, 2, 3), func(v int) rx.Stream[int] { return rx.Just(v) }).Subscribe(rec)

	assert.Equal(t, []int{1, 2, 3}, rec.Values())
	assert.True(t, rec.Completed())
}
