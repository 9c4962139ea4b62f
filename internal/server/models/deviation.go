package models

import (
	"time"

	"github.com/dmitrijs2005/coursecache/internal/points"
)

// Deviation is a row of either deadline_rule_deviations or
// max_submissions_rule_deviations, told apart by Kind.
type Deviation struct {
	ID                 int64
	Kind               points.DeviationKind
	ExerciseID         int64
	SubmitterID        int64
	ExtraMinutes       int
	WithoutLatePenalty bool
	ExtraSubmissions   int
	GrantedAt          time.Time
}

func (d Deviation) ToPoints() points.Deviation {
	return points.Deviation{
		Kind:               d.Kind,
		ExerciseID:         d.ExerciseID,
		SubmitterID:        d.SubmitterID,
		ExtraMinutes:       d.ExtraMinutes,
		WithoutLatePenalty: d.WithoutLatePenalty,
		ExtraSubmissions:   d.ExtraSubmissions,
	}
}
