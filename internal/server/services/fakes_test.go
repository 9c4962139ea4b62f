package services

import (
	"cmp"
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/content"
	"github.com/dmitrijs2005/coursecache/internal/dbx"
	"github.com/dmitrijs2005/coursecache/internal/points"
	"github.com/dmitrijs2005/coursecache/internal/server/models"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/courses"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/deviations"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/revealrules"
	"github.com/dmitrijs2005/coursecache/internal/server/repositories/submissions"
)

// fakeData backs every fake repository. Writes ignore the transaction; the
// tests only check what the cache does with commits and rollbacks.
type fakeData struct {
	mu sync.Mutex

	source         content.Source
	exerciseCourse map[int64]int64
	subs           map[int64]*models.Submission
	nextSubID      int64
	devs           []models.Deviation
	nextDevID      int64
	rules          map[int64]models.RevealRule
	modelRules     map[int64]models.ModelSolutionRule

	structureLoads int
	listCalls      int
	listErr        error
}

type fakeManager struct{ d *fakeData }

func (m fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m fakeManager) Courses(dbx.DBTX) courses.Repository         { return fakeCourses{m.d} }
func (m fakeManager) Submissions(dbx.DBTX) submissions.Repository { return fakeSubmissions{m.d} }
func (m fakeManager) Deviations(dbx.DBTX) deviations.Repository   { return fakeDeviations{m.d} }
func (m fakeManager) RevealRules(dbx.DBTX) revealrules.Repository { return fakeRules{m.d} }

type fakeCourses struct{ d *fakeData }

func (f fakeCourses) LoadStructure(ctx context.Context, courseID int64) (content.Source, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.structureLoads++
	if courseID != f.d.source.CourseID {
		return content.Source{}, common.ErrorNotFound
	}
	return f.d.source, nil
}

func (f fakeCourses) Watermark(ctx context.Context, courseID int64) (time.Time, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	return f.d.source.Watermark, nil
}

func (f fakeCourses) ExerciseCourse(ctx context.Context, exerciseID int64) (int64, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	c, ok := f.d.exerciseCourse[exerciseID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return c, nil
}

func (f fakeCourses) ModuleCourse(ctx context.Context, moduleID int64) (int64, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	for _, m := range f.d.source.Modules {
		if m.ID == moduleID {
			return f.d.source.CourseID, nil
		}
	}
	return 0, common.ErrorNotFound
}

func (f fakeCourses) Touch(ctx context.Context, courseID int64) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.source.Watermark = f.d.source.Watermark.Add(time.Minute)
	return nil
}

type fakeSubmissions struct{ d *fakeData }

func (f fakeSubmissions) ListForUser(ctx context.Context, userID, courseID int64) ([]models.Submission, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.listCalls++
	if f.d.listErr != nil {
		return nil, f.d.listErr
	}
	var out []models.Submission
	for _, s := range f.d.subs {
		if f.d.exerciseCourse[s.ExerciseID] == courseID && slices.Contains(s.Submitters, userID) && s.Status != string(points.StatusError) {
			c := *s
			c.Submitters = slices.Clone(s.Submitters)
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.Submission) int {
		return cmp.Or(cmp.Compare(a.ExerciseID, b.ExerciseID), b.SubmissionTime.Compare(a.SubmissionTime), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (f fakeSubmissions) Create(ctx context.Context, s *models.Submission) (*models.Submission, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.nextSubID++
	s.ID = f.d.nextSubID
	c := *s
	f.d.subs[s.ID] = &c
	return s, nil
}

func (f fakeSubmissions) UpdateGrade(ctx context.Context, id int64, status string, grade int) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.subs[id]
	if !ok {
		return common.ErrorNotFound
	}
	s.Status, s.Grade = status, grade
	return nil
}

func (f fakeSubmissions) Delete(ctx context.Context, id int64) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	if _, ok := f.d.subs[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.d.subs, id)
	return nil
}

func (f fakeSubmissions) AddSubmitters(ctx context.Context, id int64, users ...int64) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.subs[id]
	if !ok {
		return common.ErrorNotFound
	}
	for _, u := range users {
		if !slices.Contains(s.Submitters, u) {
			s.Submitters = append(s.Submitters, u)
		}
	}
	return nil
}

func (f fakeSubmissions) RemoveSubmitters(ctx context.Context, id int64, users ...int64) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.subs[id]
	if !ok {
		return common.ErrorNotFound
	}
	s.Submitters = slices.DeleteFunc(s.Submitters, func(u int64) bool { return slices.Contains(users, u) })
	return nil
}

func (f fakeSubmissions) Exercise(ctx context.Context, id int64) (int64, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.subs[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return s.ExerciseID, nil
}

func (f fakeSubmissions) Submitters(ctx context.Context, id int64) ([]int64, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.subs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return slices.Clone(s.Submitters), nil
}

func (f fakeSubmissions) ExerciseSubmitters(ctx context.Context, exerciseID int64) ([]int64, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	var out []int64
	for _, s := range f.d.subs {
		if s.ExerciseID != exerciseID {
			continue
		}
		for _, u := range s.Submitters {
			if !slices.Contains(out, u) {
				out = append(out, u)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

func (f fakeSubmissions) CoSubmitters(ctx context.Context, exerciseID, userID int64) ([]int64, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	var out []int64
	for _, s := range f.d.subs {
		if s.ExerciseID != exerciseID || !slices.Contains(s.Submitters, userID) {
			continue
		}
		for _, u := range s.Submitters {
			if u != userID && !slices.Contains(out, u) {
				out = append(out, u)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

type fakeDeviations struct{ d *fakeData }

func (f fakeDeviations) List(ctx context.Context, courseID int64, userID *int64) ([]models.Deviation, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	return slices.Clone(f.d.devs), nil
}

func (f fakeDeviations) create(d *models.Deviation, kind points.DeviationKind) int64 {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.nextDevID++
	c := *d
	c.ID, c.Kind = f.d.nextDevID, kind
	f.d.devs = append(f.d.devs, c)
	return c.ID
}

func (f fakeDeviations) CreateDeadline(ctx context.Context, d *models.Deviation) (int64, error) {
	return f.create(d, points.DeviationDeadline), nil
}

func (f fakeDeviations) CreateMaxSubmissions(ctx context.Context, d *models.Deviation) (int64, error) {
	return f.create(d, points.DeviationMaxSubmissions), nil
}

func (f fakeDeviations) Delete(ctx context.Context, kind points.DeviationKind, id int64) (models.Deviation, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	i := slices.IndexFunc(f.d.devs, func(d models.Deviation) bool { return d.Kind == kind && d.ID == id })
	if i < 0 {
		return models.Deviation{}, common.ErrorNotFound
	}
	d := f.d.devs[i]
	f.d.devs = slices.Delete(f.d.devs, i, i+1)
	return d, nil
}

type fakeRules struct{ d *fakeData }

func (f fakeRules) Get(ctx context.Context, exerciseID int64) (models.RevealRule, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	r, ok := f.d.rules[exerciseID]
	if !ok {
		return models.RevealRule{}, common.ErrorNotFound
	}
	return r, nil
}

func (f fakeRules) ListForCourse(ctx context.Context, courseID int64) ([]models.RevealRule, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	var out []models.RevealRule
	for _, r := range f.d.rules {
		out = append(out, r)
	}
	return out, nil
}

func (f fakeRules) Set(ctx context.Context, r models.RevealRule) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.rules[r.ExerciseID] = r
	return nil
}

func (f fakeRules) ListModelSolutionRules(ctx context.Context, courseID int64) ([]models.ModelSolutionRule, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	var out []models.ModelSolutionRule
	for _, r := range f.d.modelRules {
		out = append(out, r)
	}
	return out, nil
}

func (f fakeRules) SetModelSolutionRule(ctx context.Context, r models.ModelSolutionRule) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	f.d.modelRules[r.ModuleID] = r
	return nil
}

// stepClock moves forward on every reading so stamps never tie.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}
