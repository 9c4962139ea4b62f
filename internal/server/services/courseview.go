// Package services contains server-side business logic: the cached read
// path for course content and per-user points, and the transactional write
// path that keeps those caches coherent.
package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/coursecache/internal/cache"
	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/content"
	"github.com/dmitrijs2005/coursecache/internal/logging"
	"github.com/dmitrijs2005/coursecache/internal/points"
	"github.com/dmitrijs2005/coursecache/internal/reveal"
	"github.com/dmitrijs2005/coursecache/internal/server/models"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/coursecache/internal/txn"
)

func ContentKey(courseID int64) cache.Key {
	return cache.NewKey(common.NamespaceContent, []int64{courseID})
}

func PointsKey(courseID, userID int64, staff bool) cache.Key {
	mod := common.ModifierStudent
	if staff {
		mod = common.ModifierStaff
	}
	return cache.NewKey(common.NamespacePoints, []int64{courseID, userID}, mod)
}

// CourseViewService serves content trees and points views from the cache,
// building them from the database on a miss. It is also the Invalidator the
// invalidation router drives.
type CourseViewService struct {
	coord          *txn.Coordinator
	repomanager    repomanager.RepositoryManager
	content        *cache.Store[*content.Tree]
	points         *cache.Store[*points.View]
	clock          cache.Clock
	log            logging.Logger
	checkWatermark bool
}

type CourseViewOption func(*CourseViewService)

// WithWatermarkCheck makes every content read compare the stored tree with
// the course's current modification watermark.
func WithWatermarkCheck(on bool) CourseViewOption {
	return func(s *CourseViewService) { s.checkWatermark = on }
}

func WithClock(c cache.Clock) CourseViewOption {
	return func(s *CourseViewService) { s.clock = c }
}

func WithLogger(l logging.Logger) CourseViewOption {
	return func(s *CourseViewService) { s.log = l }
}

func NewCourseViewService(
	coord *txn.Coordinator,
	m repomanager.RepositoryManager,
	contentStore *cache.Store[*content.Tree],
	pointsStore *cache.Store[*points.View],
	opts ...CourseViewOption,
) *CourseViewService {
	s := &CourseViewService{
		coord:       coord,
		repomanager: m,
		content:     contentStore,
		points:      pointsStore,
		clock:       cache.SystemClock,
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetContent returns the content tree of a course.
func (s *CourseViewService) GetContent(ctx context.Context, courseID int64) (*content.Tree, error) {
	var stale cache.Validator[*content.Tree]
	if s.checkWatermark {
		stale = func(ctx context.Context, tree *content.Tree) bool {
			wm, err := s.repomanager.Courses(s.coord.Executor(ctx)).Watermark(ctx, courseID)
			if err != nil {
				s.log.Warn(ctx, "watermark check failed, serving cached tree", "course", courseID, "error", err)
				return false
			}
			return !wm.Equal(tree.Watermark)
		}
	}

	return s.content.GetOrGenerate(ctx, ContentKey(courseID), func(ctx context.Context) (*content.Tree, error) {
		src, err := s.repomanager.Courses(s.coord.Executor(ctx)).LoadStructure(ctx, courseID)
		if err != nil {
			return nil, err
		}
		return content.Build(src, s.clock.Now())
	}, stale)
}

// GetPoints returns the points view of one user. Staff and student views
// are cached separately since reveal rules hide points from students only.
func (s *CourseViewService) GetPoints(ctx context.Context, courseID, userID int64, staff bool) (*points.View, error) {
	tree, err := s.GetContent(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return s.points.GetOrGenerate(ctx, PointsKey(courseID, userID, staff), func(ctx context.Context) (*points.View, error) {
		in, err := s.loadInput(ctx, courseID, userID, staff)
		if err != nil {
			return nil, err
		}
		return points.Aggregate(tree, in, s.clock.Now()), nil
	}, func(ctx context.Context, v *points.View) bool {
		return !v.ContentCreated.Equal(tree.Created)
	})
}

func (s *CourseViewService) loadInput(ctx context.Context, courseID, userID int64, staff bool) (points.Input, error) {
	in := points.Input{UserID: userID, Staff: staff}
	exec := s.coord.Executor(ctx)

	var (
		subs       []models.Submission
		devs       []models.Deviation
		rules      []models.RevealRule
		modelRules []models.ModelSolutionRule
	)

	g, gctx := errgroup.WithContext(ctx)
	if txn.Depth(ctx) > 0 {
		// a transaction is a single connection
		g.SetLimit(1)
	}
	g.Go(func() error {
		var err error
		subs, err = s.repomanager.Submissions(exec).ListForUser(gctx, userID, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		devs, err = s.repomanager.Deviations(exec).List(gctx, courseID, nil)
		return err
	})
	g.Go(func() error {
		var err error
		rules, err = s.repomanager.RevealRules(exec).ListForCourse(gctx, courseID)
		return err
	})
	if !staff {
		g.Go(func() error {
			var err error
			modelRules, err = s.repomanager.RevealRules(exec).ListModelSolutionRules(gctx, courseID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return in, err
	}

	in.Submissions = make([]points.Submission, 0, len(subs))
	for _, sub := range subs {
		in.Submissions = append(in.Submissions, sub.ToPoints())
	}
	in.Deviations = make([]points.Deviation, 0, len(devs))
	for _, d := range devs {
		in.Deviations = append(in.Deviations, d.ToPoints())
	}
	in.RevealRules = make(map[int64]reveal.Rule, len(rules))
	for _, r := range rules {
		rule, err := r.ToRule()
		if err != nil {
			return in, fmt.Errorf("reveal rule: %w", err)
		}
		in.RevealRules[r.ExerciseID] = rule
	}
	in.ModelSolutionRules = make(map[int64]reveal.Rule, len(modelRules))
	for _, r := range modelRules {
		rule, err := r.ToRule()
		if err != nil {
			return in, fmt.Errorf("model solution rule: %w", err)
		}
		in.ModelSolutionRules[r.ModuleID] = rule
	}
	return in, nil
}

// InvalidatePoints drops both the staff and the student view of a user.
func (s *CourseViewService) InvalidatePoints(ctx context.Context, courseID, userID int64) error {
	if err := s.points.Invalidate(ctx, PointsKey(courseID, userID, false)); err != nil {
		return err
	}
	return s.points.Invalidate(ctx, PointsKey(courseID, userID, true))
}

func (s *CourseViewService) InvalidateContent(ctx context.Context, courseID int64) error {
	return s.content.Invalidate(ctx, ContentKey(courseID))
}
