package services

import (
	"context"

	"github.com/dmitrijs2005/coursecache/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/coursecache/internal/txn"
)

// Resolver answers invalidation lookups from the repositories, reading
// through the transaction carried by ctx when there is one.
type Resolver struct {
	coord       *txn.Coordinator
	repomanager repomanager.RepositoryManager
}

func NewResolver(coord *txn.Coordinator, m repomanager.RepositoryManager) *Resolver {
	return &Resolver{coord: coord, repomanager: m}
}

func (r *Resolver) ExerciseCourse(ctx context.Context, exerciseID int64) (int64, error) {
	return r.repomanager.Courses(r.coord.Executor(ctx)).ExerciseCourse(ctx, exerciseID)
}

func (r *Resolver) ModuleCourse(ctx context.Context, moduleID int64) (int64, error) {
	return r.repomanager.Courses(r.coord.Executor(ctx)).ModuleCourse(ctx, moduleID)
}

func (r *Resolver) SubmissionExercise(ctx context.Context, submissionID int64) (int64, error) {
	return r.repomanager.Submissions(r.coord.Executor(ctx)).Exercise(ctx, submissionID)
}

func (r *Resolver) Submitters(ctx context.Context, submissionID int64) ([]int64, error) {
	return r.repomanager.Submissions(r.coord.Executor(ctx)).Submitters(ctx, submissionID)
}

func (r *Resolver) ExerciseSubmitters(ctx context.Context, exerciseID int64) ([]int64, error) {
	return r.repomanager.Submissions(r.coord.Executor(ctx)).ExerciseSubmitters(ctx, exerciseID)
}

func (r *Resolver) CoSubmitters(ctx context.Context, exerciseID, userID int64) ([]int64, error) {
	return r.repomanager.Submissions(r.coord.Executor(ctx)).CoSubmitters(ctx, exerciseID, userID)
}
