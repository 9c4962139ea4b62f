// Package deviations stores per-submitter deadline and max-submissions
// deviations.
package deviations

import (
	"context"

	"github.com/dmitrijs2005/coursecache/internal/points"
	"github.com/dmitrijs2005/coursecache/internal/server/models"
)

type Repository interface {
	// List returns the course's deviations of both kinds. A non-nil userID
	// narrows the result to deviations granted to the user or anyone who
	// co-submitted with them on the same exercise.
	List(ctx context.Context, courseID int64, userID *int64) ([]models.Deviation, error)
	CreateDeadline(ctx context.Context, d *models.Deviation) (int64, error)
	CreateMaxSubmissions(ctx context.Context, d *models.Deviation) (int64, error)
	// Delete removes a deviation and returns the deleted row.
	Delete(ctx context.Context, kind points.DeviationKind, id int64) (models.Deviation, error)
}
