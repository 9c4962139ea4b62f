package invalidation

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/logging"
)

// Resolver answers the lookups needed to expand an event into affected
// users. Implementations read through the caller's transaction.
type Resolver interface {
	ExerciseCourse(ctx context.Context, exerciseID int64) (int64, error)
	ModuleCourse(ctx context.Context, moduleID int64) (int64, error)
	SubmissionExercise(ctx context.Context, submissionID int64) (int64, error)
	Submitters(ctx context.Context, submissionID int64) ([]int64, error)
	ExerciseSubmitters(ctx context.Context, exerciseID int64) ([]int64, error)
	// CoSubmitters lists everyone who submitted the exercise together with
	// userID, userID excluded.
	CoSubmitters(ctx context.Context, exerciseID, userID int64) ([]int64, error)
}

// Invalidator is the cache facade the router drives.
type Invalidator interface {
	InvalidatePoints(ctx context.Context, courseID, userID int64) error
	InvalidateContent(ctx context.Context, courseID int64) error
}

type PointsTarget struct {
	CourseID int64
	UserID   int64
}

// Targets is what one event invalidates.
type Targets struct {
	Content []int64
	Points  []PointsTarget
}

func (t *Targets) addPoints(courseID int64, users ...int64) {
	for _, u := range users {
		pt := PointsTarget{CourseID: courseID, UserID: u}
		if !slices.Contains(t.Points, pt) {
			t.Points = append(t.Points, pt)
		}
	}
}

func (t *Targets) addContent(courseID int64) {
	if !slices.Contains(t.Content, courseID) {
		t.Content = append(t.Content, courseID)
	}
}

// Deriver expands one event into targets.
type Deriver func(ctx context.Context, r Resolver, ev Event) (Targets, error)

type Router struct {
	resolver    Resolver
	invalidator Invalidator
	log         logging.Logger
	derivers    map[Kind]Deriver
}

// NewRouter returns a router with derivers for every built-in event kind.
func NewRouter(resolver Resolver, invalidator Invalidator, log logging.Logger) *Router {
	if log == nil {
		log = logging.Nop()
	}
	r := &Router{
		resolver:    resolver,
		invalidator: invalidator,
		log:         log,
		derivers:    make(map[Kind]Deriver),
	}
	r.Register(KindSubmission, submissionTargets)
	r.Register(KindMembership, membershipTargets)
	r.Register(KindDeviation, deviationTargets)
	r.Register(KindRevealRule, revealRuleTargets)
	r.Register(KindModelRule, modelSolutionRuleTargets)
	r.Register(KindNotification, notificationTargets)
	r.Register(KindContent, contentTargets)
	return r
}

// Register sets the deriver of kind, replacing any earlier one.
func (r *Router) Register(kind Kind, d Deriver) {
	r.derivers[kind] = d
}

// Targets resolves ev without invalidating anything.
func (r *Router) Targets(ctx context.Context, ev Event) (Targets, error) {
	d, ok := r.derivers[ev.Kind()]
	if !ok {
		return Targets{}, fmt.Errorf("%w: no deriver for event %q", common.ErrInvalidArgument, ev.Kind())
	}
	return d(ctx, r.resolver, ev)
}

// Route invalidates everything ev touches. Inside a transaction the
// invalidations are deferred until commit by the cache scope.
func (r *Router) Route(ctx context.Context, ev Event) error {
	t, err := r.Targets(ctx, ev)
	if err != nil {
		return err
	}
	for _, courseID := range t.Content {
		if err := r.invalidator.InvalidateContent(ctx, courseID); err != nil {
			return err
		}
	}
	for _, p := range t.Points {
		if err := r.invalidator.InvalidatePoints(ctx, p.CourseID, p.UserID); err != nil {
			return err
		}
	}
	r.log.Debug(ctx, "event routed", "kind", string(ev.Kind()), "content", len(t.Content), "points", len(t.Points))
	return nil
}

func as[E Event](ev Event) (E, error) {
	e, ok := ev.(E)
	if !ok {
		return e, fmt.Errorf("%w: unexpected event %T for kind %q", common.ErrInvalidArgument, ev, ev.Kind())
	}
	return e, nil
}

func submissionTargets(ctx context.Context, r Resolver, ev Event) (Targets, error) {
	e, err := as[SubmissionChanged](ev)
	if err != nil {
		return Targets{}, err
	}
	return submitterTargets(ctx, r, e.SubmissionID)
}

func submitterTargets(ctx context.Context, r Resolver, submissionID int64, extra ...int64) (Targets, error) {
	var t Targets
	exerciseID, err := r.SubmissionExercise(ctx, submissionID)
	if err != nil {
		return t, err
	}
	courseID, err := r.ExerciseCourse(ctx, exerciseID)
	if err != nil {
		return t, err
	}
	users, err := r.Submitters(ctx, submissionID)
	if err != nil {
		return t, err
	}
	t.addPoints(courseID, users...)
	t.addPoints(courseID, extra...)
	return t, nil
}

// membershipTargets covers both the current submitters and the users named in
// the event, so removed users are invalidated in either order of routing.
func membershipTargets(ctx context.Context, r Resolver, ev Event) (Targets, error) {
	e, err := as[MembershipChanged](ev)
	if err != nil {
		return Targets{}, err
	}
	return submitterTargets(ctx, r, e.SubmissionID, e.UserIDs...)
}

func deviationTargets(ctx context.Context, r Resolver, ev Event) (Targets, error) {
	e, err := as[DeviationChanged](ev)
	if err != nil {
		return Targets{}, err
	}
	var t Targets
	courseID, err := r.ExerciseCourse(ctx, e.ExerciseID)
	if err != nil {
		return t, err
	}
	co, err := r.CoSubmitters(ctx, e.ExerciseID, e.SubmitterID)
	if err != nil {
		return t, err
	}
	t.addPoints(courseID, e.SubmitterID)
	t.addPoints(courseID, co...)
	return t, nil
}

func revealRuleTargets(ctx context.Context, r Resolver, ev Event) (Targets, error) {
	e, err := as[RevealRuleChanged](ev)
	if err != nil {
		return Targets{}, err
	}
	var t Targets
	courseID, err := r.ExerciseCourse(ctx, e.ExerciseID)
	if err != nil {
		return t, err
	}
	users, err := r.ExerciseSubmitters(ctx, e.ExerciseID)
	if err != nil {
		return t, err
	}
	t.addPoints(courseID, users...)
	return t, nil
}

// modelSolutionRuleTargets drops the course tree, since every student of the
// course may be affected and points views follow the rebuilt tree.
func modelSolutionRuleTargets(ctx context.Context, r Resolver, ev Event) (Targets, error) {
	e, err := as[ModelSolutionRuleChanged](ev)
	if err != nil {
		return Targets{}, err
	}
	var t Targets
	courseID, err := r.ModuleCourse(ctx, e.ModuleID)
	if err != nil {
		return t, err
	}
	t.addContent(courseID)
	return t, nil
}

func notificationTargets(ctx context.Context, r Resolver, ev Event) (Targets, error) {
	e, err := as[NotificationChanged](ev)
	if err != nil {
		return Targets{}, err
	}
	var t Targets
	switch {
	case e.CourseID != nil:
		t.addPoints(*e.CourseID, e.RecipientID)
	case e.SubmissionID != nil:
		exerciseID, err := r.SubmissionExercise(ctx, *e.SubmissionID)
		if err != nil {
			return t, err
		}
		courseID, err := r.ExerciseCourse(ctx, exerciseID)
		if err != nil {
			return t, err
		}
		t.addPoints(courseID, e.RecipientID)
	default:
		return t, fmt.Errorf("%w: notification without course or submission", common.ErrInvalidArgument)
	}
	return t, nil
}

// contentTargets only drops the tree; points views notice the rebuilt tree
// through their content timestamp.
func contentTargets(_ context.Context, _ Resolver, ev Event) (Targets, error) {
	e, err := as[ContentChanged](ev)
	if err != nil {
		return Targets{}, err
	}
	var t Targets
	t.addContent(e.CourseID)
	return t, nil
}
