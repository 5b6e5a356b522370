package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedPushBeforeStart(t *testing.T) {
	f := NewFeed()
	assert.ErrorIs(t, f.Push("hello", true), ErrNotListening)
	assert.ErrorIs(t, f.Fail(errors.New("boom")), ErrNotListening)
	assert.False(t, f.Listening())
}

func TestFeedDeliversUntilStopped(t *testing.T) {
	f := NewFeed()

	var got []Result
	var errs []error
	require.NoError(t, f.Start(context.Background(),
		func(r Result) { got = append(got, r) },
		func(err error) { errs = append(errs, err) },
	))
	assert.True(t, f.Listening())
	assert.Equal(t, 1, f.Starts())

	require.NoError(t, f.Push("hey", false))
	require.NoError(t, f.Push("hey trafficaz", true))
	require.NoError(t, f.Fail(errors.New("no match")))

	require.NoError(t, f.Stop())
	assert.ErrorIs(t, f.Push("late", true), ErrNotListening)

	assert.Equal(t, []Result{{Text: "hey"}, {Text: "hey trafficaz", Final: true}}, got)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "no match")
}
