package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/dbx"
	"github.com/dmitrijs2005/coursecache/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListForUser joins every submitter of each submission, one row per
// (submission, submitter), and folds them back together.
func (r *PostgresRepository) ListForUser(ctx context.Context, userID, courseID int64) ([]models.Submission, error) {
	query :=
		`SELECT s.id, s.exercise_id, s.status, s.grade, s.submission_time, s.force_points, other.user_id
		 FROM submissions s
		 JOIN submission_submitters mine ON mine.submission_id = s.id AND mine.user_id = $1
		 JOIN submission_submitters other ON other.submission_id = s.id
		 JOIN learning_objects lo ON lo.id = s.exercise_id
		 JOIN course_modules m ON m.id = lo.course_module_id
		 WHERE m.course_instance_id = $2 AND s.status <> 'error'
		 ORDER BY s.exercise_id, s.submission_time DESC, s.id, other.user_id`

	rows, err := r.db.QueryContext(ctx, query, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Submission
	for rows.Next() {
		var s models.Submission
		var submitter int64
		if err := rows.Scan(&s.ID, &s.ExerciseID, &s.Status, &s.Grade, &s.SubmissionTime, &s.ForcePoints, &submitter); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if n := len(out); n > 0 && out[n-1].ID == s.ID {
			out[n-1].Submitters = append(out[n-1].Submitters, submitter)
			continue
		}
		s.Submitters = []int64{submitter}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Submission) (*models.Submission, error) {
	query :=
		`INSERT INTO submissions (exercise_id, status, grade, submission_time, force_points)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query, s.ExerciseID, s.Status, s.Grade, s.SubmissionTime, s.ForcePoints).Scan(&s.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := r.AddSubmitters(ctx, s.ID, s.Submitters...); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) UpdateGrade(ctx context.Context, submissionID int64, status string, grade int) error {
	query := `UPDATE submissions SET status = $2, grade = $3 WHERE id = $1`
	return r.execOne(ctx, query, submissionID, status, grade)
}

func (r *PostgresRepository) Delete(ctx context.Context, submissionID int64) error {
	query := `DELETE FROM submissions WHERE id = $1`
	return r.execOne(ctx, query, submissionID)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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

func (r *PostgresRepository) AddSubmitters(ctx context.Context, submissionID int64, userIDs ...int64) error {
	query :=
		`INSERT INTO submission_submitters (submission_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`

	for _, u := range userIDs {
		if _, err := r.db.ExecContext(ctx, query, submissionID, u); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) RemoveSubmitters(ctx context.Context, submissionID int64, userIDs ...int64) error {
	query := `DELETE FROM submission_submitters WHERE submission_id = $1 AND user_id = $2`

	for _, u := range userIDs {
		if _, err := r.db.ExecContext(ctx, query, submissionID, u); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Exercise(ctx context.Context, submissionID int64) (int64, error) {
	query := `SELECT exercise_id FROM submissions WHERE id = $1`

	var exerciseID int64
	err := r.db.QueryRowContext(ctx, query, submissionID).Scan(&exerciseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return exerciseID, nil
}

func (r *PostgresRepository) Submitters(ctx context.Context, submissionID int64) ([]int64, error) {
	query :=
		`SELECT user_id FROM submission_submitters
		 WHERE submission_id = $1
		 ORDER BY user_id`
	return r.ids(ctx, query, submissionID)
}

func (r *PostgresRepository) ExerciseSubmitters(ctx context.Context, exerciseID int64) ([]int64, error) {
	query :=
		`SELECT DISTINCT ss.user_id
		 FROM submission_submitters ss
		 JOIN submissions s ON s.id = ss.submission_id
		 WHERE s.exercise_id = $1
		 ORDER BY ss.user_id`
	return r.ids(ctx, query, exerciseID)
}

func (r *PostgresRepository) CoSubmitters(ctx context.Context, exerciseID, userID int64) ([]int64, error) {
	query :=
		`SELECT DISTINCT other.user_id
		 FROM submissions s
		 JOIN submission_submitters mine ON mine.submission_id = s.id AND mine.user_id = $2
		 JOIN submission_submitters other ON other.submission_id = s.id AND other.user_id <> $2
		 WHERE s.exercise_id = $1
		 ORDER BY other.user_id`
	return r.ids(ctx, query, exerciseID, userID)
}

func (r *PostgresRepository) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
