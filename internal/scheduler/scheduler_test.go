package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler("America/New_York", discardLogger())
	require.NoError(t, err)
	defer s.Stop()
	assert.Equal(t, "America/New_York", s.location.String())

	_, err = NewScheduler("Invalid/Zone", discardLogger())
	assert.Error(t, err)
}

func TestScheduler_Add(t *testing.T) {
	s, err := NewScheduler("UTC", discardLogger())
	require.NoError(t, err)
	defer s.Stop()

	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add("daily", "0 6 * * *", noop))
	require.NoError(t, s.Add("weekly", "0 9 * * 1", noop))

	for _, spec := range []string{"", "every day", "61 * * * *", "* * * * * *"} {
		assert.Error(t, s.Add("bad", spec, noop), "spec %q", spec)
	}

	s.Start()
	daily, ok := s.Next("daily")
	require.True(t, ok)
	assert.Equal(t, 6, daily.Hour())
	weekly, ok := s.Next("weekly")
	require.True(t, ok)
	assert.Equal(t, time.Monday, weekly.Weekday())
	_, ok = s.Next("bad")
	assert.False(t, ok)

	// Re-adding a name replaces the job.
	require.NoError(t, s.Add("daily", "30 7 * * *", noop))
	daily, _ = s.Next("daily")
	assert.Equal(t, 7, daily.Hour())
	assert.Len(t, s.cron.Entries(), 2)
}

func TestScheduler_RunPassesCancellableContext(t *testing.T) {
	s, err := NewScheduler("UTC", discardLogger())
	require.NoError(t, err)

	var got context.Context
	s.run("probe", func(ctx context.Context) error {
		got = ctx
		return nil
	})
	require.NotNil(t, got)
	assert.NoError(t, got.Err())

	s.Stop()
	assert.ErrorIs(t, got.Err(), context.Canceled)
}
