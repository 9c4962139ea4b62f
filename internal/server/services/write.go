package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/coursecache/internal/dbx"
	"github.com/dmitrijs2005/coursecache/internal/invalidation"
	"github.com/dmitrijs2005/coursecache/internal/logging"
	"github.com/dmitrijs2005/coursecache/internal/points"
	"github.com/dmitrijs2005/coursecache/internal/reveal"
	"github.com/dmitrijs2005/coursecache/internal/server/models"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/coursecache/internal/txn"
)

// WriteService performs domain writes. Each write runs inside
// txn.Coordinator.Atomic and routes its event there, so the cache entries it
// invalidates are dropped only if the write commits.
type WriteService struct {
	coord       *txn.Coordinator
	repomanager repomanager.RepositoryManager
	router      *invalidation.Router
	log         logging.Logger
}

func NewWriteService(coord *txn.Coordinator, m repomanager.RepositoryManager, router *invalidation.Router, log logging.Logger) *WriteService {
	if log == nil {
		log = logging.Nop()
	}
	return &WriteService{coord: coord, repomanager: m, router: router, log: log}
}

func (s *WriteService) CreateSubmission(ctx context.Context, sub *models.Submission) (*models.Submission, error) {
	var created *models.Submission
	err := s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		created, err = s.repomanager.Submissions(tx).Create(ctx, sub)
		if err != nil {
			return fmt.Errorf("create submission: %w", err)
		}
		return s.router.Route(ctx, invalidation.SubmissionChanged{SubmissionID: created.ID})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *WriteService) GradeSubmission(ctx context.Context, submissionID int64, status points.SubmissionStatus, grade int) error {
	return s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Submissions(tx).UpdateGrade(ctx, submissionID, string(status), grade); err != nil {
			return fmt.Errorf("grade submission: %w", err)
		}
		return s.router.Route(ctx, invalidation.SubmissionChanged{SubmissionID: submissionID})
	})
}

// DeleteSubmission routes before deleting, while the submitters still exist.
func (s *WriteService) DeleteSubmission(ctx context.Context, submissionID int64) error {
	return s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.router.Route(ctx, invalidation.SubmissionChanged{SubmissionID: submissionID}); err != nil {
			return err
		}
		if err := s.repomanager.Submissions(tx).Delete(ctx, submissionID); err != nil {
			return fmt.Errorf("delete submission: %w", err)
		}
		return nil
	})
}

func (s *WriteService) AddSubmitters(ctx context.Context, submissionID int64, userIDs ...int64) error {
	return s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Submissions(tx).AddSubmitters(ctx, submissionID, userIDs...); err != nil {
			return fmt.Errorf("add submitters: %w", err)
		}
		return s.router.Route(ctx, invalidation.MembershipChanged{
			Action: invalidation.MembershipAdded, SubmissionID: submissionID, UserIDs: userIDs,
		})
	})
}

func (s *WriteService) RemoveSubmitters(ctx context.Context, submissionID int64, userIDs ...int64) error {
	return s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Submissions(tx).RemoveSubmitters(ctx, submissionID, userIDs...); err != nil {
			return fmt.Errorf("remove submitters: %w", err)
		}
		return s.router.Route(ctx, invalidation.MembershipChanged{
			Action: invalidation.MembershipRemoved, SubmissionID: submissionID, UserIDs: userIDs,
		})
	})
}

func (s *WriteService) GrantDeadlineDeviation(ctx context.Context, d *models.Deviation) (int64, error) {
	return s.grant(ctx, d, func(ctx context.Context, tx dbx.DBTX) (int64, error) {
		return s.repomanager.Deviations(tx).CreateDeadline(ctx, d)
	})
}

func (s *WriteService) GrantMaxSubmissionsDeviation(ctx context.Context, d *models.Deviation) (int64, error) {
	return s.grant(ctx, d, func(ctx context.Context, tx dbx.DBTX) (int64, error) {
		return s.repomanager.Deviations(tx).CreateMaxSubmissions(ctx, d)
	})
}

func (s *WriteService) grant(ctx context.Context, d *models.Deviation, create func(context.Context, dbx.DBTX) (int64, error)) (int64, error) {
	var id int64
	err := s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if id, err = create(ctx, tx); err != nil {
			return fmt.Errorf("grant deviation: %w", err)
		}
		return s.router.Route(ctx, invalidation.DeviationChanged{ExerciseID: d.ExerciseID, SubmitterID: d.SubmitterID})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *WriteService) RevokeDeviation(ctx context.Context, kind points.DeviationKind, id int64) error {
	return s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		d, err := s.repomanager.Deviations(tx).Delete(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("revoke deviation: %w", err)
		}
		return s.router.Route(ctx, invalidation.DeviationChanged{ExerciseID: d.ExerciseID, SubmitterID: d.SubmitterID})
	})
}

func (s *WriteService) SetRevealRule(ctx context.Context, exerciseID int64, rule reveal.Rule) error {
	return s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RevealRules(tx).Set(ctx, models.RevealRuleFrom(exerciseID, rule)); err != nil {
			return fmt.Errorf("set reveal rule: %w", err)
		}
		return s.router.Route(ctx, invalidation.RevealRuleChanged{ExerciseID: exerciseID})
	})
}

func (s *WriteService) SetModelSolutionRule(ctx context.Context, moduleID int64, rule reveal.Rule) error {
	return s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RevealRules(tx).SetModelSolutionRule(ctx, models.ModelSolutionRuleFrom(moduleID, rule)); err != nil {
			return fmt.Errorf("set model solution rule: %w", err)
		}
		return s.router.Route(ctx, invalidation.ModelSolutionRuleChanged{ModuleID: moduleID})
	})
}

// TouchContent records a structural edit of a course.
func (s *WriteService) TouchContent(ctx context.Context, courseID int64) error {
	return s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Courses(tx).Touch(ctx, courseID); err != nil {
			return fmt.Errorf("touch course: %w", err)
		}
		return s.router.Route(ctx, invalidation.ContentChanged{CourseID: courseID})
	})
}

// NotificationChanged has no store of its own here; it only routes.
func (s *WriteService) NotificationChanged(ctx context.Context, ev invalidation.NotificationChanged) error {
	return s.coord.Atomic(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.router.Route(ctx, ev)
	})
}
