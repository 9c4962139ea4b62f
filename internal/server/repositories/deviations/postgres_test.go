package deviations

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/points"
	"github.com/dmitrijs2005/coursecache/internal/server/models"
)

var listCols = []string{"kind", "id", "exercise_id", "submitter_id", "extra_minutes", "without_late_penalty", "extra_submissions", "granted_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestList_Course(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE m.course_instance_id = \$1 ORDER BY d.exercise_id`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(listCols).
			AddRow("deadline", 1, 10, 7, 60, true, 0, at).
			AddRow("max_submissions", 2, 10, 8, 0, false, 3, at))

	got, err := repo.List(context.Background(), 1, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []models.Deviation{
		{ID: 1, Kind: points.DeviationDeadline, ExerciseID: 10, SubmitterID: 7, ExtraMinutes: 60, WithoutLatePenalty: true, GrantedAt: at},
		{ID: 2, Kind: points.DeviationMaxSubmissions, ExerciseID: 10, SubmitterID: 8, ExtraSubmissions: 3, GrantedAt: at},
	}, got)
}

func TestList_UserFilter(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	user := int64(7)

	mock.ExpectQuery(`AND \(d.submitter_id = \$2 OR d.submitter_id IN`).
		WithArgs(int64(1), int64(7)).
		WillReturnRows(sqlmock.NewRows(listCols))

	got, err := repo.List(context.Background(), 1, &user)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM deadline_rule_deviations`).WillReturnError(errors.New("db down"))

	_, err := repo.List(context.Background(), 1, nil)
	assert.ErrorContains(t, err, "db error: db down")
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO deadline_rule_deviations`).
		WithArgs(int64(10), int64(7), 30, false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery(`INSERT INTO max_submissions_rule_deviations`).
		WithArgs(int64(10), int64(7), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery(`INSERT INTO max_submissions_rule_deviations`).
		WillReturnError(errors.New("fk"))

	id, err := repo.CreateDeadline(context.Background(), &models.Deviation{ExerciseID: 10, SubmitterID: 7, ExtraMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	id, err = repo.CreateMaxSubmissions(context.Background(), &models.Deviation{ExerciseID: 10, SubmitterID: 7, ExtraSubmissions: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	_, err = repo.CreateMaxSubmissions(context.Background(), &models.Deviation{})
	assert.ErrorContains(t, err, "db error: fk")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`DELETE FROM deadline_rule_deviations WHERE id = \$1 RETURNING`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exercise_id", "submitter_id", "extra_minutes", "without_late_penalty", "granted_at"}).
			AddRow(4, 10, 7, 30, false, at))
	mock.ExpectQuery(`DELETE FROM max_submissions_rule_deviations WHERE id = \$1 RETURNING`).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Delete(context.Background(), points.DeviationDeadline, 4)
	require.NoError(t, err)
	assert.Equal(t, models.Deviation{ID: 4, Kind: points.DeviationDeadline, ExerciseID: 10, SubmitterID: 7, ExtraMinutes: 30, GrantedAt: at}, got)

	_, err = repo.Delete(context.Background(), points.DeviationMaxSubmissions, 5)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.Delete(context.Background(), points.DeviationKind("bogus"), 1)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	require.NoError(t, mock.ExpectationsWereMet())
}
