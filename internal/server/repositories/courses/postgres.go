package courses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/content"
	"github.com/dmitrijs2005/coursecache/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Watermark(ctx context.Context, courseID int64) (time.Time, error) {
	query :=
		`SELECT GREATEST(ci.modified_at,
		        COALESCE((SELECT MAX(m.modified_at) FROM course_modules m WHERE m.course_instance_id = ci.id), ci.modified_at),
		        COALESCE((SELECT MAX(c.modified_at) FROM learning_object_categories c WHERE c.course_instance_id = ci.id), ci.modified_at),
		        COALESCE((SELECT MAX(lo.modified_at) FROM learning_objects lo
		                  JOIN course_modules m ON m.id = lo.course_module_id
		                  WHERE m.course_instance_id = ci.id), ci.modified_at))
		 FROM course_instances ci
		 WHERE ci.id = $1`

	var watermark time.Time
	err := r.db.QueryRowContext(ctx, query, courseID).Scan(&watermark)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrorNotFound
		}
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return watermark, nil
}

// LoadStructure reads everything the content builder needs. The watermark is
// read first so a concurrent edit can only make the result look older than
// it is.
func (r *PostgresRepository) LoadStructure(ctx context.Context, courseID int64) (content.Source, error) {
	src := content.Source{CourseID: courseID}

	watermark, err := r.Watermark(ctx, courseID)
	if err != nil {
		return src, err
	}
	src.Watermark = watermark

	if src.Modules, err = r.modules(ctx, courseID); err != nil {
		return src, err
	}
	if src.Categories, err = r.categories(ctx, courseID); err != nil {
		return src, err
	}
	if src.LearningObjects, err = r.learningObjects(ctx, courseID); err != nil {
		return src, err
	}
	return src, nil
}

func (r *PostgresRepository) modules(ctx context.Context, courseID int64) ([]content.ModuleSource, error) {
	query :=
		`SELECT id, "order", status, url, name, points_to_pass,
		        opening_time, closing_time, late_allowed, late_time, late_percent, model_answer_id
		 FROM course_modules
		 WHERE course_instance_id = $1
		 ORDER BY "order", id`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []content.ModuleSource
	for rows.Next() {
		var m content.ModuleSource
		var lateTime sql.NullTime
		var modelAnswer sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Order, &m.Status, &m.URL, &m.Name, &m.PointsToPass,
			&m.Schedule.OpeningTime, &m.Schedule.ClosingTime, &m.Schedule.LateAllowed, &lateTime, &m.Schedule.LatePercent,
			&modelAnswer); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.Schedule.LateTime = lateTime.Time
		if modelAnswer.Valid {
			id := modelAnswer.Int64
			m.ModelAnswerID = &id
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) categories(ctx context.Context, courseID int64) ([]content.CategorySource, error) {
	query :=
		`SELECT id, name, status, points_to_pass, confirm_the_level
		 FROM learning_object_categories
		 WHERE course_instance_id = $1
		 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []content.CategorySource
	for rows.Next() {
		var c content.CategorySource
		if err := rows.Scan(&c.ID, &c.Name, &c.Status, &c.PointsToPass, &c.ConfirmTheLevel); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) learningObjects(ctx context.Context, courseID int64) ([]content.LearningObjectSource, error) {
	query :=
		`SELECT lo.id, lo.course_module_id, lo.category_id, lo.parent_id, lo."order", lo.status, lo.url, lo.name,
		        lo.submittable, lo.max_points, lo.points_to_pass, lo.max_submissions, lo.difficulty,
		        lo.min_group_size, lo.max_group_size, lo.grading_mode
		 FROM learning_objects lo
		 JOIN course_modules m ON m.id = lo.course_module_id
		 WHERE m.course_instance_id = $1
		 ORDER BY lo.id`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []content.LearningObjectSource
	for rows.Next() {
		var lo content.LearningObjectSource
		var parent sql.NullInt64
		var mode string
		if err := rows.Scan(&lo.ID, &lo.ModuleID, &lo.CategoryID, &parent, &lo.Order, &lo.Status, &lo.URL, &lo.Name,
			&lo.Submittable, &lo.MaxPoints, &lo.PointsToPass, &lo.MaxSubmissions, &lo.Difficulty,
			&lo.MinGroupSize, &lo.MaxGroupSize, &mode); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if parent.Valid {
			id := parent.Int64
			lo.ParentID = &id
		}
		lo.GradingMode = content.GradingMode(mode)
		out = append(out, lo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ExerciseCourse(ctx context.Context, exerciseID int64) (int64, error) {
	query :=
		`SELECT m.course_instance_id
		 FROM learning_objects lo
		 JOIN course_modules m ON m.id = lo.course_module_id
		 WHERE lo.id = $1`

	var courseID int64
	err := r.db.QueryRowContext(ctx, query, exerciseID).Scan(&courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return courseID, nil
}

func (r *PostgresRepository) ModuleCourse(ctx context.Context, moduleID int64) (int64, error) {
	query := `SELECT course_instance_id FROM course_modules WHERE id = $1`

	var courseID int64
	err := r.db.QueryRowContext(ctx, query, moduleID).Scan(&courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return courseID, nil
}

func (r *PostgresRepository) Touch(ctx context.Context, courseID int64) error {
	query := `UPDATE course_instances SET modified_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, courseID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
