package points

import (
	"cmp"
	"slices"
	"time"

	"github.com/dmitrijs2005/coursecache/internal/content"
	"github.com/dmitrijs2005/coursecache/internal/reveal"
)

// Aggregate builds the view of in over tree at now. The tree is not modified.
// Submissions and deviations for exercises missing from the tree are skipped
// and the view is marked dirty.
func Aggregate(tree *content.Tree, in Input, now time.Time) *View {
	a := &aggregator{tree: tree, in: in, now: now, view: newView(tree, in, now)}
	a.applyDeviations()
	a.applySubmissions()
	a.applyReveal()
	a.applyModelSolutionReveal()
	a.markUnconfirmed()
	a.collect()
	return a.view
}

type aggregator struct {
	tree *content.Tree
	in   Input
	now  time.Time
	view *View

	// newest official submission per entry index, else the newest one
	last map[int]*Submission
	// largest deadline extension granted to anyone, per entry index
	maxExtraMinutes map[int]int
}

func newView(tree *content.Tree, in Input, now time.Time) *View {
	v := &View{
		CourseID:       tree.CourseID,
		UserID:         in.UserID,
		Staff:          in.Staff,
		Created:        now,
		ContentCreated: tree.Created,
		Entries:        make([]Entry, len(tree.Nodes)),
		Modules:        slices.Clone(tree.Modules),
		ModuleIndex:    make(map[int64]int, len(tree.ModuleIndex)),
		ObjectIndex:    make(map[int64]int, len(tree.ObjectIndex)),
		Categories:     make(map[int64]CategoryEntry, len(tree.Categories)),
		Total:          TotalEntry{Totals: tree.Total.Clone(), FeedbackRevealed: true},
	}
	for i, n := range tree.Nodes {
		v.Entries[i] = Entry{
			Node:             n.Clone(),
			Passed:           n.PointsToPass == 0,
			FeedbackRevealed: true,
			IsRevealed:       true,
		}
	}
	for id, i := range tree.ModuleIndex {
		v.ModuleIndex[id] = i
	}
	for id, i := range tree.ObjectIndex {
		v.ObjectIndex[id] = i
	}
	for id, c := range tree.Categories {
		v.Categories[id] = CategoryEntry{Category: c.Clone(), FeedbackRevealed: true}
	}
	return v
}

// submittable returns the entry index of an exercise, or false when the tree
// has no such exercise.
func (a *aggregator) submittable(exerciseID int64) (int, bool) {
	i, ok := a.tree.ObjectIndex[exerciseID]
	if !ok || !a.tree.Nodes[i].Submittable {
		a.view.Dirty = true
		return 0, false
	}
	return i, true
}

// applyDeviations gives every exercise the largest extension granted to the
// user or to anyone the user has submitted together with on that exercise.
func (a *aggregator) applyDeviations() {
	a.maxExtraMinutes = make(map[int]int)

	submitters := make(map[int64]map[int64]bool)
	for _, s := range a.in.Submissions {
		set := submitters[s.ExerciseID]
		if set == nil {
			set = map[int64]bool{a.in.UserID: true}
			submitters[s.ExerciseID] = set
		}
		for _, id := range s.CoSubmitters {
			set[id] = true
		}
	}
	applies := func(d Deviation) bool {
		if d.SubmitterID == a.in.UserID {
			return true
		}
		return submitters[d.ExerciseID][d.SubmitterID]
	}

	deadline := make(map[int]Deviation)
	extraAttempts := make(map[int]int)
	for _, d := range a.in.Deviations {
		i, ok := a.submittable(d.ExerciseID)
		if !ok {
			continue
		}
		switch d.Kind {
		case DeviationDeadline:
			a.maxExtraMinutes[i] = max(a.maxExtraMinutes[i], d.ExtraMinutes)
			if !applies(d) {
				continue
			}
			if cur, seen := deadline[i]; !seen || d.ExtraMinutes > cur.ExtraMinutes {
				deadline[i] = d
			}
		case DeviationMaxSubmissions:
			if !applies(d) {
				continue
			}
			if cur, seen := extraAttempts[i]; !seen || d.ExtraSubmissions > cur {
				extraAttempts[i] = d.ExtraSubmissions
			}
		}
	}

	for i, d := range deadline {
		e := &a.view.Entries[i]
		at := e.Schedule.ClosingTime.Add(time.Duration(d.ExtraMinutes) * time.Minute)
		e.PersonalDeadline = &at
		e.PersonalDeadlineHasPenalty = !d.WithoutLatePenalty
	}
	for i, extra := range extraAttempts {
		e := &a.view.Entries[i]
		limit := e.MaxSubmissions + extra
		e.PersonalMaxSubmissions = &limit
	}
}

// hasMorePoints prefers the higher grade and, on equal grades, the newer
// submission.
func hasMorePoints(s, best *Submission) bool {
	if best == nil {
		return true
	}
	if s.Grade == best.Grade {
		return isNewer(s, best)
	}
	return s.Grade >= best.Grade
}

func isNewer(s, best *Submission) bool {
	if best == nil {
		return true
	}
	return !s.SubmissionTime.Before(best.SubmissionTime)
}

func (a *aggregator) applySubmissions() {
	a.last = make(map[int]*Submission)

	subs := make([]Submission, 0, len(a.in.Submissions))
	for _, s := range a.in.Submissions {
		if s.Status != StatusError {
			subs = append(subs, s)
		}
	}
	slices.SortStableFunc(subs, func(x, y Submission) int {
		return cmp.Or(cmp.Compare(x.ExerciseID, y.ExerciseID), y.SubmissionTime.Compare(x.SubmissionTime))
	})

	for start := 0; start < len(subs); {
		end := start
		for end < len(subs) && subs[end].ExerciseID == subs[start].ExerciseID {
			end++
		}
		if i, ok := a.submittable(subs[start].ExerciseID); ok {
			a.selectBest(i, subs[start:end])
		}
		start = end
	}
}

// selectBest walks one exercise's submissions, newest first.
func (a *aggregator) selectBest(i int, subs []Submission) {
	e := &a.view.Entries[i]
	better := hasMorePoints
	if e.GradingMode == content.GradingLast {
		better = isNewer
	}

	var final, last *Submission
	for k := range subs {
		s := &subs[k]
		ready := s.Status == StatusReady
		unofficial := s.Status == StatusUnofficial
		if s.Status.Countable() {
			e.SubmissionCount++
		}
		e.Submissions = append(e.Submissions, SubmissionEntry{
			ID:               s.ID,
			Points:           s.Grade,
			Status:           s.Status,
			Graded:           s.Status.Graded(),
			Passed:           s.Grade >= e.PointsToPass,
			Unofficial:       unofficial,
			Date:             s.SubmissionTime,
			FeedbackRevealed: true,
		})

		switch {
		case e.ForcedPoints:
			// a forced submission stays final
		case s.ForcePoints:
			a.setBest(e, s, ready, false)
			e.Graded = true
			e.ForcedPoints = true
			final = s
		case ready && (e.Unofficial || better(s, final)),
			unofficial && !e.Graded && better(s, final):
			a.setBest(e, s, ready, unofficial)
			final = s
		}

		if last == nil || (last.Status == StatusUnofficial && !unofficial) {
			last = s
		}
	}
	a.last[i] = last
}

func (a *aggregator) setBest(e *Entry, s *Submission, ready, unofficial bool) {
	id := s.ID
	e.BestSubmission = &id
	e.Points = s.Grade
	e.Passed = ready && s.Grade >= e.PointsToPass
	e.Graded = ready
	e.Unofficial = unofficial
}

// applyReveal evaluates each exercise's reveal rule. Students get the points
// of unrevealed exercises zeroed; staff only see the flag. The nearest future
// reveal time becomes the view's soft expiry.
func (a *aggregator) applyReveal() {
	for i := range a.view.Entries {
		e := &a.view.Entries[i]
		if !e.Submittable {
			continue
		}
		rule, ok := a.in.RevealRules[e.ID]
		if !ok {
			rule = reveal.Default()
		}
		state := reveal.State{
			Points:         e.Points,
			MaxPoints:      e.MaxPoints,
			Submissions:    e.SubmissionCount,
			MaxSubmissions: e.MaxSubmissionsFor(),
			Deadline:       reveal.Deadline(e.Schedule, e.PersonalDeadline),
			LatestDeadline: reveal.LatestDeadline(e.Schedule, a.maxExtraMinutes[i]),
		}
		revealed := rule.IsRevealed(state, a.now)
		at := rule.RevealTime(state)

		e.FeedbackRevealed = revealed
		e.FeedbackRevealTime = at
		for k := range e.Submissions {
			e.Submissions[k].FeedbackRevealed = revealed
			e.Submissions[k].FeedbackRevealTime = at
		}
		if revealed {
			continue
		}
		a.updateSoftExpiry(at)

		last := a.last[i]
		if a.in.Staff || last == nil {
			continue
		}
		id := last.ID
		e.BestSubmission = &id
		e.Points = 0
		e.Passed = false
		for k := range e.Submissions {
			e.Submissions[k].Points = 0
			e.Submissions[k].Passed = false
		}
	}
}

// applyModelSolutionReveal hides the model answer chapter of each module from
// students until the module's rule reveals it. Modules without a rule reveal
// at their deadline.
func (a *aggregator) applyModelSolutionReveal() {
	if a.in.Staff {
		return
	}
	for _, m := range a.view.Modules {
		me := &a.view.Entries[m]
		if me.ModelAnswer == 0 {
			continue
		}
		chapter, ok := a.view.ObjectIndex[me.ModelAnswer]
		if !ok {
			continue
		}
		rule, ok := a.in.ModelSolutionRules[me.ID]
		if !ok {
			rule = reveal.Rule{Trigger: reveal.TriggerAtDeadline}
		}
		state := a.moduleState(m)
		if rule.IsRevealed(state, a.now) {
			continue
		}
		a.view.Entries[chapter].IsRevealed = false
		a.view.walk(chapter, func(e *Entry) { e.IsRevealed = false })
		a.updateSoftExpiry(rule.RevealTime(state))
	}
}

// moduleState sums the module's exercises into one reveal state.
func (a *aggregator) moduleState(m int) reveal.State {
	me := &a.view.Entries[m]
	state := reveal.State{MaxPoints: me.MaxPoints}
	latest := reveal.CommonDeadlines(me.Schedule)

	var exercises []int
	for _, i := range a.tree.FlatModule(m) {
		if a.view.Entries[i].Submittable {
			exercises = append(exercises, i)
		}
	}

	widest, widestMinutes := -1, 0
	for _, i := range exercises {
		e := &a.view.Entries[i]
		limit := e.MaxSubmissionsFor()
		state.Points += e.Points
		state.Submissions += min(e.SubmissionCount, limit)
		state.MaxSubmissions += limit
		if d := reveal.Deadline(e.Schedule, e.PersonalDeadline); d.After(state.Deadline) {
			state.Deadline = d
		}
		latest = append(latest, reveal.CommonDeadlines(e.Schedule)...)
		if extra := a.maxExtraMinutes[i]; extra > widestMinutes {
			widest, widestMinutes = i, extra
		}
	}
	if len(exercises) == 0 {
		state.Deadline = reveal.Latest(reveal.CommonDeadlines(me.Schedule))
	}
	if widest >= 0 {
		closing := a.view.Entries[widest].Schedule.ClosingTime
		latest = append(latest, closing.Add(time.Duration(widestMinutes)*time.Minute))
	}
	state.LatestDeadline = reveal.Latest(latest)
	return state
}

func (a *aggregator) updateSoftExpiry(at *time.Time) {
	if at == nil || !at.After(a.now) {
		return
	}
	if a.view.SoftExpiry == nil || at.Before(*a.view.SoftExpiry) {
		t := *at
		a.view.SoftExpiry = &t
	}
}

// markUnconfirmed flags the parent and siblings of every confirm-level
// exercise that is not passed yet.
func (a *aggregator) markUnconfirmed() {
	for i := range a.view.Entries {
		e := &a.view.Entries[i]
		if !e.Submittable || !e.Withheld() {
			continue
		}
		parent := &a.view.Entries[e.Parent]
		parent.Unconfirmed = true
		for _, c := range parent.Children {
			a.view.Entries[c].Unconfirmed = true
		}
	}
}

type target struct {
	points       *int
	submissions  *int
	revealed     *bool
	byDifficulty *map[string]int
	unconfirmed  *map[string]int
}

func addByDifficulty(m *map[string]int, difficulty string, points int) {
	if *m == nil {
		*m = make(map[string]int)
	}
	(*m)[difficulty] += points
}

func (t target) add(e *Entry) {
	*t.submissions += e.SubmissionCount
	*t.revealed = *t.revealed && e.FeedbackRevealed
	switch {
	case e.Unofficial:
		// attempts only
	case e.Withheld():
		addByDifficulty(t.unconfirmed, e.Difficulty, e.Points)
	default:
		*t.points += e.Points
		addByDifficulty(t.byDifficulty, e.Difficulty, e.Points)
	}
}

// collect propagates exercise results to chapters, modules, categories and
// the course total, then settles pass status of modules and categories.
func (a *aggregator) collect() {
	v := a.view
	total := target{&v.Total.Points, &v.Total.SubmissionCount, &v.Total.FeedbackRevealed,
		&v.Total.PointsByDifficulty, &v.Total.UnconfirmedPointsByDifficulty}

	categories := make(map[int64]*CategoryEntry, len(v.Categories))
	for id, c := range v.Categories {
		categories[id] = &c
	}

	for _, m := range v.Modules {
		me := &v.Entries[m]
		module := target{&me.Points, &me.SubmissionCount, &me.FeedbackRevealed,
			&me.PointsByDifficulty, &me.UnconfirmedPointsByDifficulty}

		var walk func(idx int) (points, submissions int)
		walk = func(idx int) (int, int) {
			points, submissions := 0, 0
			for _, c := range v.Entries[idx].Children {
				e := &v.Entries[c]
				if e.Submittable {
					// chapters count every attempt, the rest only graded exercises
					submissions += e.SubmissionCount
					if e.Graded {
						module.add(e)
						total.add(e)
						if ce, ok := categories[e.CategoryID]; ok {
							target{&ce.Points, &ce.SubmissionCount, &ce.FeedbackRevealed,
								&ce.PointsByDifficulty, &ce.UnconfirmedPointsByDifficulty}.add(e)
						}
						if !e.Unofficial && !e.Withheld() {
							points += e.Points
						}
					}
				}
				p, s := walk(c)
				if !e.Submittable {
					e.Points, e.SubmissionCount = p, s
				}
				points += p
				submissions += s
			}
			return points, submissions
		}
		walk(m)
		me.Passed = me.Points >= me.PointsToPass
	}

	for id, c := range categories {
		c.Passed = c.Points >= c.PointsToPass
		v.Categories[id] = *c
	}
}
