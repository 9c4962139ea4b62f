// Package invalidation maps domain write events to the cache entries they
// make stale.
package invalidation

type Kind string

const (
	KindSubmission   Kind = "submission"
	KindMembership   Kind = "membership"
	KindDeviation    Kind = "deviation"
	KindRevealRule   Kind = "reveal_rule"
	KindModelRule    Kind = "model_solution_rule"
	KindNotification Kind = "notification"
	KindContent      Kind = "content"
)

// Event is a domain write. Route events before the write they describe
// removes the rows the router needs to resolve, e.g. before a delete.
type Event interface {
	Kind() Kind
}

// SubmissionChanged covers creation, grading and deletion of a submission.
type SubmissionChanged struct {
	SubmissionID int64
}

func (SubmissionChanged) Kind() Kind { return KindSubmission }

type MembershipAction string

const (
	MembershipAdded   MembershipAction = "added"
	MembershipRemoved MembershipAction = "removed"
)

// MembershipChanged reports users added to or removed from the submitters of
// a submission without the submission itself being saved.
type MembershipChanged struct {
	Action       MembershipAction
	SubmissionID int64
	UserIDs      []int64
}

func (MembershipChanged) Kind() Kind { return KindMembership }

// DeviationChanged covers both deadline and submission count deviations.
type DeviationChanged struct {
	ExerciseID  int64
	SubmitterID int64
}

func (DeviationChanged) Kind() Kind { return KindDeviation }

type RevealRuleChanged struct {
	ExerciseID int64
}

func (RevealRuleChanged) Kind() Kind { return KindRevealRule }

// ModelSolutionRuleChanged covers the model solution reveal rule of a module.
type ModelSolutionRuleChanged struct {
	ModuleID int64
}

func (ModelSolutionRuleChanged) Kind() Kind { return KindModelRule }

// NotificationChanged names the course directly or through the submission
// the notification is about.
type NotificationChanged struct {
	CourseID     *int64
	SubmissionID *int64
	RecipientID  int64
}

func (NotificationChanged) Kind() Kind { return KindNotification }

// ContentChanged covers any structural edit of a course instance: modules,
// categories or learning objects.
type ContentChanged struct {
	CourseID int64
}

func (ContentChanged) Kind() Kind { return KindContent }
