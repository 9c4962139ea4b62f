package points

// SubmissionQuery narrows the exercises SubmissionIDs looks at. Nil filters
// match everything.
type SubmissionQuery struct {
	ModuleID   *int64
	ExerciseID *int64
	CategoryID *int64
	// Best returns only the counted submission of each exercise.
	Best bool
	// FallbackToLast uses the newest submission when Best finds none.
	FallbackToLast bool
}

// SubmissionIDs lists submission ids of the exercises matching q, in content
// order.
func (v *View) SubmissionIDs(q SubmissionQuery) []int64 {
	var ids []int64
	for _, m := range v.Modules {
		if q.ModuleID != nil && v.Entries[m].ID != *q.ModuleID {
			continue
		}
		v.walk(m, func(e *Entry) {
			if !e.Submittable {
				return
			}
			if q.ExerciseID != nil && e.ID != *q.ExerciseID {
				return
			}
			if q.CategoryID != nil && e.CategoryID != *q.CategoryID {
				return
			}
			switch {
			case !q.Best:
				for _, s := range e.Submissions {
					ids = append(ids, s.ID)
				}
			case e.BestSubmission != nil:
				ids = append(ids, *e.BestSubmission)
			case q.FallbackToLast && len(e.Submissions) > 0:
				ids = append(ids, e.Submissions[0].ID)
			}
		})
	}
	return ids
}

func (v *View) walk(idx int, fn func(*Entry)) {
	for _, c := range v.Entries[idx].Children {
		fn(&v.Entries[c])
		v.walk(c, fn)
	}
}
