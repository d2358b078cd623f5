package frame

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsReportsOncePerInterval(t *testing.T) {
	clock := time.Duration(0)
	s := NewStats(time.Second)
	s.now = func() time.Duration { return clock }
	s.last = 0
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.Observe(10 * time.Millisecond)
	s.Observe(30 * time.Millisecond)
	s.Rebuilt()
	assert.Equal(t, 20*time.Millisecond, s.Average())

	clock = 500 * time.Millisecond
	assert.False(t, s.Report(logger))

	clock = 1500 * time.Millisecond
	assert.True(t, s.Report(logger))
	assert.Equal(t, time.Duration(0), s.Average())
	assert.False(t, s.Report(logger))
}

func TestStatsDisabled(t *testing.T) {
	s := NewStats(0)
	s.Observe(time.Millisecond)
	assert.False(t, s.Report(slog.New(slog.NewTextHandler(io.Discard, nil))))
}
