package deviations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/dbx"
	"github.com/dmitrijs2005/coursecache/internal/points"
	"github.com/dmitrijs2005/coursecache/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const listQuery = `SELECT d.kind, d.id, d.exercise_id, d.submitter_id, d.extra_minutes, d.without_late_penalty, d.extra_submissions, d.granted_at
	FROM (
		SELECT 'deadline' AS kind, id, exercise_id, submitter_id, extra_minutes, without_late_penalty, 0 AS extra_submissions, granted_at
		FROM deadline_rule_deviations
		UNION ALL
		SELECT 'max_submissions' AS kind, id, exercise_id, submitter_id, 0, false, extra_submissions, granted_at
		FROM max_submissions_rule_deviations
	) d
	JOIN learning_objects lo ON lo.id = d.exercise_id
	JOIN course_modules m ON m.id = lo.course_module_id
	WHERE m.course_instance_id = $1`

const userFilter = ` AND (d.submitter_id = $2 OR d.submitter_id IN (
		SELECT other.user_id
		FROM submissions s
		JOIN submission_submitters mine ON mine.submission_id = s.id AND mine.user_id = $2
		JOIN submission_submitters other ON other.submission_id = s.id
		WHERE s.exercise_id = d.exercise_id))`

const listOrder = ` ORDER BY d.exercise_id, d.kind, d.id`

func (r *PostgresRepository) List(ctx context.Context, courseID int64, userID *int64) ([]models.Deviation, error) {
	query := listQuery + listOrder
	args := []any{courseID}
	if userID != nil {
		query = listQuery + userFilter + listOrder
		args = append(args, *userID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Deviation
	for rows.Next() {
		var d models.Deviation
		var kind string
		if err := rows.Scan(&kind, &d.ID, &d.ExerciseID, &d.SubmitterID, &d.ExtraMinutes, &d.WithoutLatePenalty, &d.ExtraSubmissions, &d.GrantedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		d.Kind = points.DeviationKind(kind)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CreateDeadline(ctx context.Context, d *models.Deviation) (int64, error) {
	query :=
		`INSERT INTO deadline_rule_deviations (exercise_id, submitter_id, extra_minutes, without_late_penalty)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, d.ExerciseID, d.SubmitterID, d.ExtraMinutes, d.WithoutLatePenalty).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) CreateMaxSubmissions(ctx context.Context, d *models.Deviation) (int64, error) {
	query :=
		`INSERT INTO max_submissions_rule_deviations (exercise_id, submitter_id, extra_submissions)
		 VALUES ($1, $2, $3)
		 RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, d.ExerciseID, d.SubmitterID, d.ExtraSubmissions).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, kind points.DeviationKind, id int64) (models.Deviation, error) {
	d := models.Deviation{Kind: kind}

	var row *sql.Row
	switch kind {
	case points.DeviationDeadline:
		row = r.db.QueryRowContext(ctx,
			`DELETE FROM deadline_rule_deviations WHERE id = $1
			 RETURNING id, exercise_id, submitter_id, extra_minutes, without_late_penalty, granted_at`, id)
		if err := scanDeleted(row.Scan(&d.ID, &d.ExerciseID, &d.SubmitterID, &d.ExtraMinutes, &d.WithoutLatePenalty, &d.GrantedAt)); err != nil {
			return models.Deviation{}, err
		}
	case points.DeviationMaxSubmissions:
		row = r.db.QueryRowContext(ctx,
			`DELETE FROM max_submissions_rule_deviations WHERE id = $1
			 RETURNING id, exercise_id, submitter_id, extra_submissions, granted_at`, id)
		if err := scanDeleted(row.Scan(&d.ID, &d.ExerciseID, &d.SubmitterID, &d.ExtraSubmissions, &d.GrantedAt)); err != nil {
			return models.Deviation{}, err
		}
	default:
		return models.Deviation{}, fmt.Errorf("%w: deviation kind %q", common.ErrInvalidArgument, kind)
	}
	return d, nil
}

func scanDeleted(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("db error: %w", err)
}
