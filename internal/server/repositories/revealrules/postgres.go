package revealrules

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

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(s scanner) (models.RevealRule, error) {
	var r models.RevealRule
	var at sql.NullTime
	if err := s.Scan(&r.ExerciseID, &r.Trigger, &r.DelayMinutes, &at, &r.CurrentlyRevealed); err != nil {
		return models.RevealRule{}, err
	}
	if at.Valid {
		t := at.Time
		r.Time = &t
	}
	return r, nil
}

func (r *PostgresRepository) Get(ctx context.Context, exerciseID int64) (models.RevealRule, error) {
	query :=
		`SELECT exercise_id, trigger, delay_minutes, time, currently_revealed
		 FROM reveal_rules
		 WHERE exercise_id = $1`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, exerciseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RevealRule{}, common.ErrorNotFound
		}
		return models.RevealRule{}, fmt.Errorf("db error: %w", err)
	}
	return rule, nil
}

func (r *PostgresRepository) ListForCourse(ctx context.Context, courseID int64) ([]models.RevealRule, error) {
	query :=
		`SELECT rr.exercise_id, rr.trigger, rr.delay_minutes, rr.time, rr.currently_revealed
		 FROM reveal_rules rr
		 JOIN learning_objects lo ON lo.id = rr.exercise_id
		 JOIN course_modules m ON m.id = lo.course_module_id
		 WHERE m.course_instance_id = $1
		 ORDER BY rr.exercise_id`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.RevealRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Set(ctx context.Context, rule models.RevealRule) error {
	query :=
		`INSERT INTO reveal_rules (exercise_id, trigger, delay_minutes, time, currently_revealed)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (exercise_id) DO UPDATE SET
		   trigger = EXCLUDED.trigger,
		   delay_minutes = EXCLUDED.delay_minutes,
		   time = EXCLUDED.time,
		   currently_revealed = EXCLUDED.currently_revealed`

	var at sql.NullTime
	if rule.Time != nil {
		at = sql.NullTime{Time: *rule.Time, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query, rule.ExerciseID, rule.Trigger, rule.DelayMinutes, at, rule.CurrentlyRevealed); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListModelSolutionRules(ctx context.Context, courseID int64) ([]models.ModelSolutionRule, error) {
	query :=
		`SELECT mr.module_id, mr.trigger, mr.delay_minutes, mr.time, mr.currently_revealed
		 FROM model_solution_reveal_rules mr
		 JOIN course_modules m ON m.id = mr.module_id
		 WHERE m.course_instance_id = $1
		 ORDER BY mr.module_id`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.ModelSolutionRule
	for rows.Next() {
		var rule models.ModelSolutionRule
		var at sql.NullTime
		if err := rows.Scan(&rule.ModuleID, &rule.Trigger, &rule.DelayMinutes, &at, &rule.CurrentlyRevealed); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if at.Valid {
			t := at.Time
			rule.Time = &t
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SetModelSolutionRule(ctx context.Context, rule models.ModelSolutionRule) error {
	query :=
		`INSERT INTO model_solution_reveal_rules (module_id, trigger, delay_minutes, time, currently_revealed)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (module_id) DO UPDATE SET
		   trigger = EXCLUDED.trigger,
		   delay_minutes = EXCLUDED.delay_minutes,
		   time = EXCLUDED.time,
		   currently_revealed = EXCLUDED.currently_revealed`

	var at sql.NullTime
	if rule.Time != nil {
		at = sql.NullTime{Time: *rule.Time, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query, rule.ModuleID, rule.Trigger, rule.DelayMinutes, at, rule.CurrentlyRevealed); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
