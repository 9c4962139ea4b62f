package reveal

import (
	"time"

	"github.com/dmitrijs2005/coursecache/internal/content"
)

// CommonDeadlines are the deadlines that apply to everyone: the closing time
// and, when late submissions earn points, the late deadline.
func CommonDeadlines(s content.Schedule) []time.Time {
	out := []time.Time{s.ClosingTime}
	if s.LateAllowed && s.LatePercent > 0 {
		out = append(out, s.LateTime)
	}
	return out
}

// Deadline is the latest deadline that applies to one submitter, given an
// optional personal deadline from a deviation.
func Deadline(s content.Schedule, personal *time.Time) time.Time {
	deadlines := CommonDeadlines(s)
	if personal != nil {
		deadlines = append(deadlines, *personal)
	}
	return Latest(deadlines)
}

// LatestDeadline is the latest deadline of anyone on the exercise, where
// maxExtraMinutes is the largest deadline deviation granted to anybody.
func LatestDeadline(s content.Schedule, maxExtraMinutes int) time.Time {
	deadlines := CommonDeadlines(s)
	if maxExtraMinutes > 0 {
		deadlines = append(deadlines, s.ClosingTime.Add(time.Duration(maxExtraMinutes)*time.Minute))
	}
	return Latest(deadlines)
}

// Latest returns the latest of ts, or the zero time for none.
func Latest(ts []time.Time) time.Time {
	var out time.Time
	for _, t := range ts {
		if t.After(out) {
			out = t
		}
	}
	return out
}
