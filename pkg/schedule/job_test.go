package schedule

import (
	"errors"
	"testing"
	"time"
)

// Wednesday, 2024-06-05 08:00 UTC.
var base = time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)

func noop() (Outcome, error) { return Continue, nil }

func TestNextRunPlainIntervals(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		unit func(*Job) *Job
		want time.Duration
	}{
		{"seconds", (*Job).Seconds, 3 * time.Second},
		{"minutes", (*Job).Minutes, 3 * time.Minute},
		{"hours", (*Job).Hours, 3 * time.Hour},
		{"days", (*Job).Days, 3 * 24 * time.Hour},
		{"weeks", (*Job).Weeks, 3 * 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulated(base)
			j := tt.unit(s.Every(3))
			if err := j.Do(noop); err != nil {
				t.Fatalf("Do: %v", err)
			}
			if got := j.NextRun(); !got.Equal(base.Add(tt.want)) {
				t.Fatalf("NextRun = %v, want %v", got, base.Add(tt.want))
			}
		})
	}
}

func TestNextRunExactCadenceAcrossRecomputations(t *testing.T) {
	t.Parallel()
	s := NewSimulated(base)
	j := s.Every(2).Minutes()
	if err := j.Do(noop); err != nil {
		t.Fatalf("Do: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Advance(j.NextRun()); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if err := s.RunPending(); err != nil {
			t.Fatalf("RunPending: %v", err)
		}
		if got := j.NextRun().Sub(j.LastRun()); got != 2*time.Minute {
			t.Fatalf("recomputation %d: next-last = %v, want 2m", i, got)
		}
	}
}

func TestJitterIntervalBounds(t *testing.T) {
	t.Parallel()
	s := NewSimulated(base)
	j := s.Every(2).To(5).Seconds()
	if err := j.Do(noop); err != nil {
		t.Fatalf("Do: %v", err)
	}
	for i := 0; i < 50; i++ {
		got := j.NextRun().Sub(s.Now())
		if got < 2*time.Second || got > 5*time.Second {
			t.Fatalf("draw %d: interval %v outside [2s, 5s]", i, got)
		}
		if err := s.Advance(j.NextRun()); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if err := s.RunPending(); err != nil {
			t.Fatalf("RunPending: %v", err)
		}
	}
}

func TestJitterBoundBelowIntervalRejected(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		interval int
		latest   int
	}{
		{name: "bound below interval", interval: 5, latest: 2},
		{name: "zero bound", interval: 1, latest: 0},
		{name: "negative bound", interval: 1, latest: -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulated(base)
			err := s.Every(tt.interval).To(tt.latest).Seconds().Do(noop)
			if !errors.Is(err, ErrInvalidInterval) {
				t.Fatalf("Do err = %v, want ErrInvalidInterval", err)
			}
			if got := s.Jobs(); len(got) != 0 {
				t.Fatalf("rejected job was registered: %d jobs", len(got))
			}
		})
	}
}

func TestDailyAtAnchor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before the anchor runs today",
			now:  base, // 08:00
			want: time.Date(2024, 6, 5, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "after the anchor runs tomorrow",
			now:  time.Date(2024, 6, 5, 11, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 6, 10, 30, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulated(tt.now)
			j := s.Every(1).Day().At("10:30")
			if err := j.Do(noop); err != nil {
				t.Fatalf("Do: %v", err)
			}
			if got := j.NextRun(); !got.Equal(tt.want) {
				t.Fatalf("NextRun = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHourlyAndMinuteAnchors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		now   time.Time
		chain func(*Job) *Job
		want  time.Time
	}{
		{
			name:  "hourly anchor still ahead this hour",
			now:   base, // 08:00:00
			chain: func(j *Job) *Job { return j.Hour().At("30:00") },
			want:  time.Date(2024, 6, 5, 8, 30, 0, 0, time.UTC),
		},
		{
			name:  "hourly anchor already passed",
			now:   time.Date(2024, 6, 5, 8, 45, 0, 0, time.UTC),
			chain: func(j *Job) *Job { return j.Hour().At("30:00") },
			want:  time.Date(2024, 6, 5, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "hourly lone field pins the minute",
			now:   base, // 08:00:00
			chain: func(j *Job) *Job { return j.Hour().At(":30") },
			want:  time.Date(2024, 6, 5, 8, 30, 0, 0, time.UTC),
		},
		{
			name:  "hourly lone field already passed",
			now:   time.Date(2024, 6, 5, 8, 45, 0, 0, time.UTC),
			chain: func(j *Job) *Job { return j.Hour().At(":30") },
			want:  time.Date(2024, 6, 5, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "minute anchor still ahead this minute",
			now:   base,
			chain: func(j *Job) *Job { return j.Minute().At(":15") },
			want:  time.Date(2024, 6, 5, 8, 0, 15, 0, time.UTC),
		},
		{
			name:  "minute anchor already passed",
			now:   time.Date(2024, 6, 5, 8, 0, 30, 0, time.UTC),
			chain: func(j *Job) *Job { return j.Minute().At(":15") },
			want:  time.Date(2024, 6, 5, 8, 1, 15, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulated(tt.now)
			j := tt.chain(s.Every(1))
			if err := j.Do(noop); err != nil {
				t.Fatalf("Do: %v", err)
			}
			if got := j.NextRun(); !got.Equal(tt.want) {
				t.Fatalf("NextRun = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeekdayAnchor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "midweek rolls to next monday",
			now:  base, // Wednesday
			want: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "monday before noon runs today",
			now:  time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "monday after noon rolls a week",
			now:  time.Date(2024, 6, 3, 13, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulated(tt.now)
			j := s.Every(1).Monday().At("12:00")
			if err := j.Do(noop); err != nil {
				t.Fatalf("Do: %v", err)
			}
			got := j.NextRun()
			if !got.Equal(tt.want) {
				t.Fatalf("NextRun = %v, want %v", got, tt.want)
			}
			if got.Weekday() != time.Monday {
				t.Fatalf("NextRun weekday = %v, want Monday", got.Weekday())
			}
			if ahead := got.Sub(tt.now); ahead < 0 || ahead > 7*24*time.Hour {
				t.Fatalf("NextRun is %v ahead, want within [0, 7d]", ahead)
			}
		})
	}
}

func TestWeekdayAnchorWithoutClockTime(t *testing.T) {
	t.Parallel()
	s := NewSimulated(base) // Wednesday 08:00
	j := s.Every(1).Sunday()
	if err := j.Do(noop); err != nil {
		t.Fatalf("Do: %v", err)
	}
	want := time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC) // next Sunday, same time
	if got := j.NextRun(); !got.Equal(want) {
		t.Fatalf("NextRun = %v, want %v", got, want)
	}
}

func TestZoneAnchoredDaily(t *testing.T) {
	t.Parallel()
	s := NewSimulated(base) // 08:00 UTC = 10:00 Berlin (CEST)
	j := s.Every(1).Day().At("10:30", "Europe/Berlin")
	if err := j.Do(noop); err != nil {
		t.Fatalf("Do: %v", err)
	}
	want := time.Date(2024, 6, 5, 8, 30, 0, 0, time.UTC) // 10:30 Berlin
	if got := j.NextRun(); !got.Equal(want) {
		t.Fatalf("NextRun = %v, want %v", got, want)
	}
}

func TestZoneAnchorKeepsWallClockAcrossDST(t *testing.T) {
	t.Parallel()
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	tests := []struct {
		name string
		now  time.Time
		want time.Time // expected wall-clock reading in Berlin
	}{
		{
			name: "spring forward",
			// Berlin midnight right before the 2024-03-31 02:00->03:00 jump.
			now:  time.Date(2024, 3, 30, 23, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 31, 12, 0, 0, 0, berlin),
		},
		{
			name: "fall back",
			// Berlin evening before the 2024-10-27 03:00->02:00 repeat.
			now:  time.Date(2024, 10, 26, 18, 0, 0, 0, time.UTC),
			want: time.Date(2024, 10, 27, 12, 0, 0, 0, berlin),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulated(tt.now)
			j := s.Every(1).Day().At("12:00", "Europe/Berlin")
			if err := j.Do(noop); err != nil {
				t.Fatalf("Do: %v", err)
			}
			got := j.NextRun().In(berlin)
			if got.Hour() != 12 || got.Minute() != 0 {
				t.Fatalf("NextRun wall clock = %02d:%02d, want 12:00", got.Hour(), got.Minute())
			}
			if !got.Equal(tt.want) {
				t.Fatalf("NextRun = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUntilDeadline(t *testing.T) {
	t.Parallel()

	t.Run("past deadline rejected", func(t *testing.T) {
		s := NewSimulated(base)
		err := s.Every(1).Second().Until("2020-01-01").Do(noop)
		if !errors.Is(err, ErrDeadlinePast) {
			t.Fatalf("Do err = %v, want ErrDeadlinePast", err)
		}
	})

	t.Run("dateless deadline uses current date", func(t *testing.T) {
		s := NewSimulated(base) // 08:00
		err := s.Every(1).Second().Until("07:00").Do(noop)
		if !errors.Is(err, ErrDeadlinePast) {
			t.Fatalf("Do err = %v, want ErrDeadlinePast", err)
		}
	})

	t.Run("next run past deadline cancels after executing", func(t *testing.T) {
		s := NewSimulated(base)
		ran := 0
		j := s.Every(10).Seconds().Until(15 * time.Second)
		if err := j.Do(func() (Outcome, error) { ran++; return Continue, nil }); err != nil {
			t.Fatalf("Do: %v", err)
		}
		if err := s.Advance(base.Add(10 * time.Second)); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if err := s.RunPending(); err != nil {
			t.Fatalf("RunPending: %v", err)
		}
		if ran != 1 {
			t.Fatalf("ran = %d, want 1", ran)
		}
		if got := len(s.Jobs()); got != 0 {
			t.Fatalf("jobs after deadline cancel = %d, want 0", got)
		}
	})

	t.Run("current time past deadline skips execution", func(t *testing.T) {
		s := NewSimulated(base)
		ran := 0
		j := s.Every(10).Seconds().Until(5 * time.Second)
		if err := j.Do(func() (Outcome, error) { ran++; return Continue, nil }); err != nil {
			t.Fatalf("Do: %v", err)
		}
		if err := s.Advance(base.Add(12 * time.Second)); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if err := s.RunPending(); err != nil {
			t.Fatalf("RunPending: %v", err)
		}
		if ran != 0 {
			t.Fatalf("ran = %d, want 0 (deadline passed before the run)", ran)
		}
		if got := len(s.Jobs()); got != 0 {
			t.Fatalf("jobs after deadline cancel = %d, want 0", got)
		}
	})
}

func TestConfigurationErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		chain func(s *Scheduler) *Job
		want  error
	}{
		{
			name:  "singular unit with interval above 1",
			chain: func(s *Scheduler) *Job { return s.Every(2).Second() },
			want:  ErrInvalidInterval,
		},
		{
			name:  "weekday anchor on multi-week job",
			chain: func(s *Scheduler) *Job { return s.Every(2).Monday() },
			want:  ErrInvalidInterval,
		},
		{
			name:  "interval below 1",
			chain: func(s *Scheduler) *Job { return s.Every(0).Seconds() },
			want:  ErrInvalidInterval,
		},
		{
			name:  "no unit",
			chain: func(s *Scheduler) *Job { return s.Every(1) },
			want:  ErrInvalidUnit,
		},
		{
			name:  "clock anchor on seconds job",
			chain: func(s *Scheduler) *Job { return s.Every(1).Seconds().At(":30") },
			want:  ErrInvalidUnit,
		},
		{
			name:  "daily granularity on minute job",
			chain: func(s *Scheduler) *Job { return s.Every(1).Minute().At("10:30") },
			want:  ErrInvalidTimeFormat,
		},
		{
			name:  "full granularity on hourly job",
			chain: func(s *Scheduler) *Job { return s.Every(1).Hour().At("10:30:00") },
			want:  ErrInvalidTimeFormat,
		},
		{
			name:  "hour out of range",
			chain: func(s *Scheduler) *Job { return s.Every(1).Day().At("25:00") },
			want:  ErrInvalidTimeFormat,
		},
		{
			name:  "unknown time zone",
			chain: func(s *Scheduler) *Job { return s.Every(1).Day().At("10:30", "Mars/Olympus") },
			want:  ErrInvalidTimeFormat,
		},
		{
			name:  "wrongly typed deadline",
			chain: func(s *Scheduler) *Job { return s.Every(1).Second().Until(42) },
			want:  ErrInvalidTimeFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulated(base)
			err := tt.chain(s).Do(noop)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Do err = %v, want %v", err, tt.want)
			}
			if got := len(s.Jobs()); got != 0 {
				t.Fatalf("misconfigured job was registered (%d jobs)", got)
			}
		})
	}
}

func TestFailingJobFreezesSchedule(t *testing.T) {
	t.Parallel()
	s := NewSimulated(base)
	boom := errors.New("boom")
	j := s.Every(5).Seconds()
	if err := j.Do(func() (Outcome, error) { return Continue, boom }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	before := j.NextRun()
	if err := s.Advance(base.Add(5 * time.Second)); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if err := s.RunPending(); !errors.Is(err, boom) {
		t.Fatalf("RunPending err = %v, want boom", err)
	}
	if !j.LastRun().IsZero() {
		t.Fatalf("LastRun = %v, want zero (schedule frozen)", j.LastRun())
	}
	if !j.NextRun().Equal(before) {
		t.Fatalf("NextRun moved from %v to %v on failure", before, j.NextRun())
	}
}

func TestShouldRunBeforeDoPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unscheduled job")
		}
	}()
	s := NewSimulated(base)
	s.Every(1).Seconds().ShouldRun()
}
