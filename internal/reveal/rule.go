// Package reveal decides when submission feedback becomes visible to the
// submitter.
package reveal

import (
	"fmt"
	"time"
)

type Trigger int

const (
	TriggerManual Trigger = iota + 1
	TriggerImmediate
	TriggerAtTime
	TriggerAtDeadline
	TriggerAtDeadlineAll
	TriggerOnCompletion
	TriggerAtDeadlineOrFullPoints
)

var triggerNames = map[Trigger]string{
	TriggerManual:                 "manual",
	TriggerImmediate:              "immediate",
	TriggerAtTime:                 "time",
	TriggerAtDeadline:             "deadline",
	TriggerAtDeadlineAll:          "deadline_all",
	TriggerOnCompletion:           "completion",
	TriggerAtDeadlineOrFullPoints: "deadline_or_full_points",
}

func (t Trigger) String() string {
	if s, ok := triggerNames[t]; ok {
		return s
	}
	return fmt.Sprintf("trigger(%d)", int(t))
}

func ParseTrigger(s string) (Trigger, error) {
	for t, name := range triggerNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown reveal trigger %q", s)
}

func (t Trigger) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Trigger) UnmarshalText(b []byte) error {
	parsed, err := ParseTrigger(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Rule is one reveal rule. Time is used by TriggerAtTime; DelayMinutes is
// added to deadlines by the deadline based triggers; CurrentlyRevealed is the
// switch of TriggerManual.
type Rule struct {
	Trigger           Trigger    `json:"trigger"`
	DelayMinutes      int        `json:"delay_minutes,omitempty"`
	Time              *time.Time `json:"time,omitempty"`
	CurrentlyRevealed bool       `json:"currently_revealed,omitempty"`
}

// Default is used for exercises without a configured rule.
func Default() Rule {
	return Rule{Trigger: TriggerImmediate}
}

// State is what a rule is evaluated against. A zero Deadline or
// LatestDeadline means the value is unknown.
type State struct {
	Points         int
	MaxPoints      int
	Submissions    int
	MaxSubmissions int
	Deadline       time.Time
	LatestDeadline time.Time
}

// IsRevealed reports whether feedback is visible at now. Time based triggers
// reveal from the reveal instant onwards.
func (r Rule) IsRevealed(s State, now time.Time) bool {
	switch r.Trigger {
	case TriggerManual:
		return r.CurrentlyRevealed
	case TriggerImmediate:
		return true
	case TriggerAtTime, TriggerAtDeadline, TriggerAtDeadlineAll:
		at := r.RevealTime(s)
		return at != nil && !now.Before(*at)
	case TriggerOnCompletion:
		if s.Points >= s.MaxPoints {
			return true
		}
		if s.MaxSubmissions == 0 {
			return false
		}
		return s.Submissions >= s.MaxSubmissions
	case TriggerAtDeadlineOrFullPoints:
		if s.Points >= s.MaxPoints {
			return true
		}
		at := r.RevealTime(s)
		return at != nil && !now.Before(*at)
	}
	return false
}

// RevealTime returns the instant the rule starts revealing, or nil when that
// depends on what the student does.
func (r Rule) RevealTime(s State) *time.Time {
	delay := time.Duration(r.DelayMinutes) * time.Minute
	switch r.Trigger {
	case TriggerAtTime:
		return r.Time
	case TriggerAtDeadline, TriggerAtDeadlineOrFullPoints:
		if s.Deadline.IsZero() {
			return nil
		}
		at := s.Deadline.Add(delay)
		return &at
	case TriggerAtDeadlineAll:
		if s.LatestDeadline.IsZero() {
			return nil
		}
		at := s.LatestDeadline.Add(delay)
		return &at
	}
	return nil
}
