package rx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gorx/rx"
	"github.com/gorx/rx/rxtest"
)

func TestNotificationKindString(t *testing.T) {
	assert.Equal(t, "Next", rx.NotificationNext.String())
	assert.Equal(t, "Error", rx.NotificationError.String())
	assert.Equal(t, "Completed", rx.NotificationCompleted.String())
}

func TestMaterializeReifiesValuesAndCompletion(t *testing.T) {
	rec := rxtest.NewRecordingObserver[rx.Notification[int]]()
	rx.Materialize(rx.Just(1, 2, 3)).Subscribe(rec)

	values := rec.Values()
	require := assert.New(t)
	require.Len(values, 4)
	require.Equal(rx.Next(1), values[0])
	require.Equal(rx.Next(2), values[1])
	require.Equal(rx.Next(3), values[2])
	require.Equal(rx.Completed[int](), values[3])
	require.True(rec.Completed())
}

func TestMaterializeReifiesErrorThenCompletes(t *testing.T) {
	boom := errors.New("boom")
	rec := rxtest.NewRecordingObserver[rx.Notification[int]]()
	rx.Materialize(rx.ErrorStream[int](boom)).Subscribe(rec)

	values := rec.Values()
	assert.Len(t, values, 1)
	assert.Equal(t, rx.NotificationError, values[0].Kind)
	assert.ErrorIs(t, values[0].Err, boom)
	assert.True(t, rec.Completed())
	assert.Nil(t, rec.Err())
}

// materialize then dematerialize must reproduce the original emission
// exactly, for both a value-then-complete stream and an error stream.
func TestMaterializeDematerializeRoundTripsValues(t *testing.T) {
	original := rx.Just(10, 20, 30)

	rec := rxtest.NewRecordingObserver[int]()
	rx.Dematerialize(rx.Materialize(original)).Subscribe(rec)

	assert.Equal(t, []int{10, 20, 30}, rec.Values())
	assert.True(t, rec.Completed())
	assert.Nil(t, rec.Err())
}

func TestMaterializeDematerializeRoundTripsError(t *testing.T) {
	boom := errors.New("round trip boom")
	rec := rxtest.NewRecordingObserver[int]()
	rx.Dematerialize(rx.Materialize(rx.ErrorStream[int](boom))).Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.False(t, rec.Completed())
	assert.ErrorIs(t, rec.Err(), boom)
}

func TestDematerializeUnpacksEachNotificationKind(t *testing.T) {
	rec := rxtest.NewRecordingObserver[string]()
	rx.Dematerialize(rx.Just(rx.Next("a"), rx.Next("b"), rx.Completed[string]())).Subscribe(rec)

	assert.Equal(t, []string{"a", "b"}, rec.Values())
	assert.True(t, rec.Completed())
}
