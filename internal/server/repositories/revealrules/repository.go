// Package revealrules stores the per-exercise submission feedback reveal rule
// and the per-module model solution reveal rule.
package revealrules

import (
	"context"

	"github.com/dmitrijs2005/coursecache/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, exerciseID int64) (models.RevealRule, error)
	ListForCourse(ctx context.Context, courseID int64) ([]models.RevealRule, error)
	// Set inserts or replaces the rule of r.ExerciseID.
	Set(ctx context.Context, r models.RevealRule) error

	ListModelSolutionRules(ctx context.Context, courseID int64) ([]models.ModelSolutionRule, error)
	// SetModelSolutionRule inserts or replaces the rule of r.ModuleID.
	SetModelSolutionRule(ctx context.Context, r models.ModelSolutionRule) error
}
