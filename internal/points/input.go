package points

import (
	"time"

	"github.com/dmitrijs2005/coursecache/internal/reveal"
)

type SubmissionStatus string

const (
	StatusInitialized SubmissionStatus = "initialized"
	StatusWaiting     SubmissionStatus = "waiting"
	StatusReady       SubmissionStatus = "ready"
	StatusUnofficial  SubmissionStatus = "unofficial"
	StatusRejected    SubmissionStatus = "rejected"
	StatusError       SubmissionStatus = "error"
)

// Countable statuses use up an attempt.
func (s SubmissionStatus) Countable() bool {
	return s == StatusReady || s == StatusWaiting || s == StatusInitialized
}

// Graded statuses carry a meaningful grade.
func (s SubmissionStatus) Graded() bool {
	return s == StatusReady || s == StatusUnofficial
}

type Submission struct {
	ID             int64
	ExerciseID     int64
	Status         SubmissionStatus
	Grade          int
	SubmissionTime time.Time
	ForcePoints    bool
	CoSubmitters   []int64
}

type DeviationKind string

const (
	DeviationDeadline       DeviationKind = "deadline"
	DeviationMaxSubmissions DeviationKind = "max_submissions"
)

// Deviation grants one submitter extra time or extra attempts on one
// exercise.
type Deviation struct {
	Kind               DeviationKind
	ExerciseID         int64
	SubmitterID        int64
	ExtraMinutes       int
	WithoutLatePenalty bool
	ExtraSubmissions   int
}

// Input is the per-user data overlaid on a content tree. Deviations may cover
// the whole course; the ones that apply to the user are picked here.
type Input struct {
	UserID      int64
	Staff       bool
	Submissions []Submission
	Deviations  []Deviation
	RevealRules map[int64]reveal.Rule
	// ModelSolutionRules are keyed by module id.
	ModelSolutionRules map[int64]reveal.Rule
}
