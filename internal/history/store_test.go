package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficaz/internal/assistant"
	"trafficaz/internal/intent"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestRecentNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordResolution(ctx, assistant.Resolution{
		Session:    1,
		Intent:     intent.TrafficQuery,
		Pattern:    "traffic situation",
		Transcript: "what is the traffic situation near melen",
		Outcome:    assistant.OutcomeHandled,
		Duration:   1500 * time.Millisecond,
		At:         base,
	}))
	require.NoError(t, s.RecordResolution(ctx, assistant.Resolution{
		Session:    2,
		Transcript: "xyzzy nonsense",
		Outcome:    assistant.OutcomeNoMatch,
		At:         base.Add(time.Second),
	}))
	require.NoError(t, s.RecordResolution(ctx, assistant.Resolution{
		Session:    3,
		Intent:     intent.WeatherQuery,
		Transcript: "do i need an umbrella",
		Classified: true,
		Outcome:    assistant.OutcomeFailed,
		Err:        errors.New("weather backend: 503"),
		At:         base.Add(1500 * time.Millisecond),
	}))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, uint64(3), got[0].Session)
	assert.Equal(t, intent.WeatherQuery, got[0].Intent)
	assert.True(t, got[0].Classified)
	assert.Equal(t, assistant.OutcomeFailed, got[0].Outcome)
	assert.Equal(t, "weather backend: 503", got[0].Error)

	assert.Equal(t, assistant.OutcomeNoMatch, got[1].Outcome)
	assert.Empty(t, got[1].Intent)
	assert.Empty(t, got[1].Error)

	assert.Equal(t, "traffic situation", got[2].Pattern)
	assert.Equal(t, int64(1500), got[2].DurationMs)
	assert.True(t, base.Equal(got[2].CreatedAt))
	assert.NotEmpty(t, got[2].ID)

	limited, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, uint64(3), limited[0].Session)
}

func TestRecentEmpty(t *testing.T) {
	s := openTemp(t)
	got, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
