// Package courses reads course structure: modules, categories and learning
// objects, and the modification watermark that versions them.
package courses

import (
	"context"
	"time"

	"github.com/dmitrijs2005/coursecache/internal/content"
)

type Repository interface {
	LoadStructure(ctx context.Context, courseID int64) (content.Source, error)
	Watermark(ctx context.Context, courseID int64) (time.Time, error)
	ExerciseCourse(ctx context.Context, exerciseID int64) (int64, error)
	ModuleCourse(ctx context.Context, moduleID int64) (int64, error)
	// Touch bumps the course watermark after a structural write.
	Touch(ctx context.Context, courseID int64) error
}
