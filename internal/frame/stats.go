package frame

import (
	"log/slog"
	"time"

	"github.com/loov/hrtime"
)

// Stats accumulates CPU frame times and logs a summary once per interval.
type Stats struct {
	Interval time.Duration

	frames   int
	rebuilds int
	total    time.Duration
	worst    time.Duration
	last     time.Duration
	now      func() time.Duration
}

func NewStats(interval time.Duration) *Stats {
	return &Stats{
		Interval: interval,
		now:      hrtime.Now,
		last:     hrtime.Now(),
	}
}

func (s *Stats) Observe(frameTime time.Duration) {
	s.frames++
	s.total += frameTime
	if frameTime > s.worst {
		s.worst = frameTime
	}
}

func (s *Stats) Rebuilt() {
	s.rebuilds++
}

func (s *Stats) Average() time.Duration {
	if s.frames == 0 {
		return 0
	}
	return s.total / time.Duration(s.frames)
}

// Report logs and resets the counters once Interval has passed since the
// last report. It reports whether it logged.
func (s *Stats) Report(logger *slog.Logger) bool {
	if s.Interval <= 0 {
		return false
	}

	now := s.now()
	elapsed := now - s.last
	if elapsed < s.Interval {
		return false
	}

	logger.Info("frame stats",
		slog.Int("frames", s.frames),
		slog.Float64("fps", float64(s.frames)/elapsed.Seconds()),
		slog.Duration("avg_cpu", s.Average()),
		slog.Duration("worst_cpu", s.worst),
		slog.Int("rebuilds", s.rebuilds))

	s.frames = 0
	s.total = 0
	s.worst = 0
	s.last = now
	return true
}
