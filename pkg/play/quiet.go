package play

import "time"

// InQuietHours reports whether t (already tenant-local) falls inside the
// play's quiet window. The window is inclusive at both edges and may span
// midnight (start > end). Identical start and end disables the window.
func (p *Play) InQuietHours(t time.Time) bool {
	start, err := ParseClock(p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := ParseClock(p.QuietHoursEnd)
	if err != nil {
		return false
	}
	if start == end {
		return false
	}

	m := t.Hour()*60 + t.Minute()
	if start < end {
		return m >= start && m <= end
	}
	// Window spans midnight, e.g. 21:00-08:00.
	return m >= start || m <= end
}

// NextAllowedSend returns the earliest instant at or after t that is outside
// the quiet window. If t is already outside, t is returned unchanged.
func (p *Play) NextAllowedSend(t time.Time) time.Time {
	if !p.InQuietHours(t) {
		return t
	}

	start, _ := ParseClock(p.QuietHoursStart)
	end, _ := ParseClock(p.QuietHoursEnd)
	m := t.Hour()*60 + t.Minute()

	// The window is inclusive, so the first allowed minute is end+1.
	release := end + 1

	day := t
	if start > end && m >= start {
		// Evening side of a midnight-spanning window releases tomorrow
		// morning.
		day = t.AddDate(0, 0, 1)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), release/60, release%60, 0, 0, t.Location())
}
