// Package submissions stores submissions and their many-to-many submitters.
package submissions

import (
	"context"

	"github.com/dmitrijs2005/coursecache/internal/server/models"
)

type Repository interface {
	// ListForUser returns the user's non-error submissions in the course,
	// ordered by exercise and newest first, each with all its submitters.
	ListForUser(ctx context.Context, userID, courseID int64) ([]models.Submission, error)
	Create(ctx context.Context, s *models.Submission) (*models.Submission, error)
	UpdateGrade(ctx context.Context, submissionID int64, status string, grade int) error
	Delete(ctx context.Context, submissionID int64) error
	AddSubmitters(ctx context.Context, submissionID int64, userIDs ...int64) error
	RemoveSubmitters(ctx context.Context, submissionID int64, userIDs ...int64) error

	Exercise(ctx context.Context, submissionID int64) (int64, error)
	Submitters(ctx context.Context, submissionID int64) ([]int64, error)
	ExerciseSubmitters(ctx context.Context, exerciseID int64) ([]int64, error)
	CoSubmitters(ctx context.Context, exerciseID, userID int64) ([]int64, error)
}
