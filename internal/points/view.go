// Package points overlays one user's submissions on a content tree and
// aggregates points, attempt counts and pass status up the hierarchy.
package points

import (
	"time"

	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/content"
)

type SubmissionEntry struct {
	ID                 int64            `json:"id"`
	Points             int              `json:"points"`
	Status             SubmissionStatus `json:"status"`
	Graded             bool             `json:"graded"`
	Passed             bool             `json:"passed"`
	Unofficial         bool             `json:"unofficial"`
	Date               time.Time        `json:"date"`
	FeedbackRevealed   bool             `json:"feedback_revealed"`
	FeedbackRevealTime *time.Time       `json:"feedback_reveal_time,omitempty"`
}

// Entry is the per-user overlay of one content node.
type Entry struct {
	content.Node

	SubmissionCount               int            `json:"submission_count"`
	BestSubmission                *int64         `json:"best_submission,omitempty"`
	Points                        int            `json:"points"`
	PointsByDifficulty            map[string]int `json:"points_by_difficulty,omitempty"`
	UnconfirmedPointsByDifficulty map[string]int `json:"unconfirmed_points_by_difficulty,omitempty"`
	Passed                        bool           `json:"passed"`
	Graded                        bool           `json:"graded"`
	Unofficial                    bool           `json:"unofficial"`
	ForcedPoints                  bool           `json:"forced_points"`
	// Unconfirmed marks nodes next to a confirm-level exercise that is not
	// yet passed.
	Unconfirmed                bool       `json:"unconfirmed"`
	FeedbackRevealed           bool       `json:"feedback_revealed"`
	FeedbackRevealTime         *time.Time `json:"feedback_reveal_time,omitempty"`
	PersonalDeadline           *time.Time `json:"personal_deadline,omitempty"`
	PersonalDeadlineHasPenalty bool       `json:"personal_deadline_has_penalty,omitempty"`
	PersonalMaxSubmissions     *int       `json:"personal_max_submissions,omitempty"`
	// IsRevealed is false inside a model solution chapter a student may not
	// see yet.
	IsRevealed bool `json:"is_revealed"`

	Submissions []SubmissionEntry `json:"submissions,omitempty"`
}

// Withheld reports whether the entry's points stay out of ancestor totals.
func (e *Entry) Withheld() bool {
	return e.ConfirmTheLevel && !e.Passed
}

// MaxSubmissionsFor returns the attempt limit after deviations; 0 is
// unlimited.
func (e *Entry) MaxSubmissionsFor() int {
	if e.PersonalMaxSubmissions != nil {
		return *e.PersonalMaxSubmissions
	}
	return e.MaxSubmissions
}

type CategoryEntry struct {
	content.Category

	Points                        int            `json:"points"`
	SubmissionCount               int            `json:"submission_count"`
	PointsByDifficulty            map[string]int `json:"points_by_difficulty,omitempty"`
	UnconfirmedPointsByDifficulty map[string]int `json:"unconfirmed_points_by_difficulty,omitempty"`
	Passed                        bool           `json:"passed"`
	FeedbackRevealed              bool           `json:"feedback_revealed"`
}

type TotalEntry struct {
	content.Totals

	Points                        int            `json:"points"`
	SubmissionCount               int            `json:"submission_count"`
	PointsByDifficulty            map[string]int `json:"points_by_difficulty,omitempty"`
	UnconfirmedPointsByDifficulty map[string]int `json:"unconfirmed_points_by_difficulty,omitempty"`
	FeedbackRevealed              bool           `json:"feedback_revealed"`
}

// View is the aggregated result for one (course, user, staff) triple.
// Entries are index aligned with the nodes of the tree it was built from.
type View struct {
	CourseID       int64                   `json:"course_id"`
	UserID         int64                   `json:"user_id"`
	Staff          bool                    `json:"staff"`
	Created        time.Time               `json:"created"`
	ContentCreated time.Time               `json:"content_created"`
	Entries        []Entry                 `json:"entries"`
	Modules        []int                   `json:"modules"`
	ModuleIndex    map[int64]int           `json:"module_index"`
	ObjectIndex    map[int64]int           `json:"object_index"`
	Categories     map[int64]CategoryEntry `json:"categories"`
	Total          TotalEntry              `json:"total"`
	SoftExpiry     *time.Time              `json:"soft_expiry,omitempty"`
	Dirty          bool                    `json:"dirty,omitempty"`
}

// ExpiresAt is the nearest future reveal time; the view is stale after it.
func (v *View) ExpiresAt() *time.Time { return v.SoftExpiry }

// IsDirty reports whether some input referenced content missing from the tree.
func (v *View) IsDirty() bool { return v.Dirty }

func (v *View) Exercise(id int64) (*Entry, error) {
	if i, ok := v.ObjectIndex[id]; ok {
		return &v.Entries[i], nil
	}
	return nil, common.ErrorNotFound
}

func (v *View) Module(id int64) (*Entry, error) {
	if i, ok := v.ModuleIndex[id]; ok {
		return &v.Entries[i], nil
	}
	return nil, common.ErrorNotFound
}

func (v *View) Category(id int64) (CategoryEntry, error) {
	if c, ok := v.Categories[id]; ok {
		return c, nil
	}
	return CategoryEntry{}, common.ErrorNotFound
}
