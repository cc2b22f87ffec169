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

func TestOnErrorReturnSubstitutesFallbackValue(t *testing.T) {
	boom := errors.New("boom")
	rec := rxtest.NewRecordingObserver[int]()
	rx.OnErrorReturn(rx.ErrorStream[int](boom), func(error) int { return -1 }).Subscribe(rec)

	assert.Equal(t, []int{-1}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestOnErrorReturnLeavesSuccessfulStreamUntouched(t *testing.T) {
	rec := rxtest.NewRecordingObserver[int]()
	rx.OnErrorReturn(rx.Just(1, 2), func(error) int { return -1 }).Subscribe(rec)

	assert.Equal(t, []int{1, 2}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestOnErrorResumeNextSplicesFallbackStream(t *testing.T) {
	boom := errors.New("boom")
	rec := rxtest.NewRecordingObserver[int]()
	rx.OnErrorResumeNext(
		rx.Concat(rx.Just(1, 2), rx.ErrorStream[int](boom)),
		func(error) rx.Stream[int] { return rx.Just(8, 9) },
	).Subscribe(rec)

	assert.Equal(t, []int{1, 2, 8, 9}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestOnErrorResumeNextPropagatesFallbacksOwnError(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	rec := rxtest.NewRecordingObserver[int]()
	rx.OnErrorResumeNext(
		rx.ErrorStream[int](first),
		func(error) rx.Stream[int] { return rx.ErrorStream[int](second) },
	).Subscribe(rec)

	assert.ErrorIs(t, rec.Err(), second)
}

func TestCatchUsesFixedFallbackStream(t *testing.T) {
	boom := errors.New("boom")
	fallback := rx.Just(100)
	rec := rxtest.NewRecordingObserver[int]()
	rx.Catch(rx.ErrorStream[int](boom), fallback).Subscribe(rec)

	assert.Equal(t, []int{100}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestOnExceptionResumeNextResumesOnlyMatchingErrors(t *testing.T) {
	type exception struct{ error }
	boom := exception{errors.New("exceptional")}
	isException := func(err error) bool {
		_, ok := err.(exception)
		return ok
	}

	rec := rxtest.NewRecordingObserver[int]()
	rx.OnExceptionResumeNext(rx.ErrorStream[int](boom), isException, rx.Just(7)).Subscribe(rec)
	assert.Equal(t, []int{7}, rec.Values())

	plain := errors.New("ordinary")
	rec2 := rxtest.NewRecordingObserver[int]()
	rx.OnExceptionResumeNext(rx.ErrorStream[int](plain), isException, rx.Just(7)).Subscribe(rec2)
	assert.Empty(t, rec2.Values())
	assert.ErrorIs(t, rec2.Err(), plain)
}

func TestRetryResubscribesUntilSuccessOrExhaustion(t *testing.T) {
	boom := errors.New("transient")
	attempts := 0
	source := rx.Defer(func() rx.Stream[int] {
		attempts++
		if attempts < 3 {
			return rx.ErrorStream[int](boom)
		}
		return rx.Just(42)
	})

	rec := rxtest.NewRecordingObserver[int]()
	rx.Retry(source, 5).Subscribe(rec)

	assert.Equal(t, []int{42}, rec.Values())
	assert.Equal(t, 3, attempts)
}

func TestRetryPropagatesFinalErrorOnceAttemptsExhausted(t *testing.T) {
	boom := errors.New("always fails")
	attempts := 0
	source := rx.Defer(func() rx.Stream[int] {
		attempts++
		return rx.ErrorStream[int](boom)
	})

	rec := rxtest.NewRecordingObserver[int]()
	rx.Retry(source, 3).Subscribe(rec)

	assert.ErrorIs(t, rec.Err(), boom)
	assert.Equal(t, 3, attempts)
}

func TestRetryWhenResubscribesOnNotifierSignal(t *testing.T) {
	boom := errors.New("retry-worthy")
	attempts := 0
	source := rx.Defer(func() rx.Stream[int] {
		attempts++
		if attempts < 2 {
			return rx.ErrorStream[int](boom)
		}
		return rx.Just(5)
	})

	rec := rxtest.NewRecordingObserver[int]()
	rx.RetryWhen(source, func(errs rx.Stream[error]) rx.Stream[struct{}] {
		return rx.Map(errs, func(error) struct{} { return struct{}{} })
	}).Subscribe(rec)

	assert.Equal(t, []int{5}, rec.Values())
	assert.Equal(t, 2, attempts)
}

func TestRetryWhenPropagatesNotifierError(t *testing.T) {
	sourceErr := errors.New("source failure")
	notifierErr := errors.New("give up")
	source := rx.ErrorStream[int](sourceErr)

	rec := rxtest.NewRecordingObserver[int]()
	rx.RetryWhen(source, func(errs rx.Stream[error]) rx.Stream[struct{}] {
		return rx.Map(errs, func(error) struct{} {
			panic(notifierErr)
		})
	}).Subscribe(rec)

	assert.ErrorIs(t, rec.Err(), notifierErr)
}

func TestTimeoutFiresWhenNoValueArrivesInTime(t *testing.T) {
	scheduler := rxtest.NewTestScheduler(time.Unix(0, 0))
	var upstream rx.Observer[int]
	source := rx.New[int]("source", func(observer rx.Observer[int]) rx.Subscription {
		upstream = observer
		return rx.Noop
	})

	rec := rxtest.NewRecordingObserver[int]()
	rx.Timeout(source, 5*time.Second, scheduler).Subscribe(rec)

	upstream.OnNext(1)
	scheduler.AdvanceBy(5 * time.Second)

	assert.Equal(t, []int{1}, rec.Values())
	assert.ErrorIs(t, rec.Err(), rx.ErrTimeout)
}

func TestTimeoutResetsOnEveryValue(t *testing.T) {
	scheduler := rxtest.NewTestScheduler(time.Unix(0, 0))
	var upstream rx.Observer[int]
	source := rx.New[int]("source", func(observer rx.Observer[int]) rx.Subscription {
		upstream = observer
		return rx.Noop
	})

	rec := rxtest.NewRecordingObserver[int]()
	rx.Timeout(source, 5*time.Second, scheduler).Subscribe(rec)

	upstream.OnNext(1)
	scheduler.AdvanceBy(3 * time.Second)
	upstream.OnNext(2)
	scheduler.AdvanceBy(3 * time.Second)
	upstream.OnCompleted()

	assert.Equal(t, []int{1, 2}, rec.Values())
	assert.True(t, rec.Completed())
	require.Nil(t, rec.Err())
}
