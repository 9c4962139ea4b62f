package points

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/coursecache/internal/content"
)

func twoModuleView(t *testing.T) *View {
	t.Helper()
	tree, err := content.Build(content.Source{
		CourseID: 1,
		Modules: []content.ModuleSource{
			{ID: 1, Order: 1, Schedule: schedule()},
			{ID: 2, Order: 2, Schedule: schedule()},
		},
		Categories: []content.CategorySource{{ID: 1}, {ID: 2}},
		LearningObjects: []content.LearningObjectSource{
			{ID: 11, ModuleID: 1, CategoryID: 1, Order: 1, URL: "a", Submittable: true, MaxPoints: 10},
			{ID: 12, ModuleID: 1, CategoryID: 2, Order: 2, URL: "b", Submittable: true, MaxPoints: 10},
			{ID: 21, ModuleID: 2, CategoryID: 1, Order: 1, URL: "c", Submittable: true, MaxPoints: 10},
		},
	}, now)
	require.NoError(t, err)

	return Aggregate(tree, Input{UserID: userID, Submissions: []Submission{
		sub(1, 11, StatusReady, 2, 3*time.Hour),
		sub(2, 11, StatusReady, 9, 2*time.Hour),
		sub(3, 11, StatusReady, 4, time.Hour),
		sub(4, 12, StatusWaiting, 0, time.Hour),
		sub(5, 21, StatusReady, 7, time.Hour),
	}}, now)
}

func ptr(v int64) *int64 { return &v }

func TestView_SubmissionIDs(t *testing.T) {
	v := twoModuleView(t)

	tests := []struct {
		name string
		q    SubmissionQuery
		want []int64
	}{
		{"all", SubmissionQuery{}, []int64{3, 2, 1, 4, 5}},
		{"best", SubmissionQuery{Best: true}, []int64{2, 5}},
		{"best with fallback", SubmissionQuery{Best: true, FallbackToLast: true}, []int64{2, 4, 5}},
		{"module", SubmissionQuery{ModuleID: ptr(2)}, []int64{5}},
		{"exercise", SubmissionQuery{ExerciseID: ptr(11), Best: true}, []int64{2}},
		{"category", SubmissionQuery{CategoryID: ptr(2)}, []int64{4}},
		{"no match", SubmissionQuery{ModuleID: ptr(99)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.SubmissionIDs(tt.q))
		})
	}
}
