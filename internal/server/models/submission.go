// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/dmitrijs2005/coursecache/internal/points"
)

// Submission is one row of submissions together with its submitters.
type Submission struct {
	ID             int64
	ExerciseID     int64
	Status         string
	Grade          int
	SubmissionTime time.Time
	ForcePoints    bool
	Submitters     []int64
}

// ToPoints converts the row into aggregator input.
func (s Submission) ToPoints() points.Submission {
	return points.Submission{
		ID:             s.ID,
		ExerciseID:     s.ExerciseID,
		Status:         points.SubmissionStatus(s.Status),
		Grade:          s.Grade,
		SubmissionTime: s.SubmissionTime,
		ForcePoints:    s.ForcePoints,
		CoSubmitters:   s.Submitters,
	}
}
