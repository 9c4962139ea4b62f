package content

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/coursecache/internal/common"
)

func ptr[T any](v T) *T { return &v }

var buildTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// sampleSource is two modules; the second has a chapter with two exercises
// and a confirm-level exercise in its own category.
func sampleSource() Source {
	sched := Schedule{
		OpeningTime: buildTime.Add(-24 * time.Hour),
		ClosingTime: buildTime.Add(24 * time.Hour),
	}
	return Source{
		CourseID:  1,
		Watermark: buildTime.Add(-time.Hour),
		Modules: []ModuleSource{
			{ID: 20, Order: 2, Status: StatusReady, URL: "week2", Name: "Week 2", PointsToPass: 10, Schedule: sched},
			{ID: 10, Order: 1, Status: StatusReady, URL: "week1", Name: "Week 1", Schedule: sched},
		},
		Categories: []CategorySource{
			{ID: 1, Name: "Exercises", Status: StatusReady},
			{ID: 2, Name: "Confirm", Status: StatusReady, ConfirmTheLevel: true},
		},
		LearningObjects: []LearningObjectSource{
			{ID: 100, ModuleID: 10, CategoryID: 1, Order: 1, Status: StatusReady, URL: "intro", Submittable: true, MaxPoints: 5, Difficulty: "A", MinGroupSize: 1, MaxGroupSize: 1},
			{ID: 200, ModuleID: 20, CategoryID: 1, Order: 1, Status: StatusReady, URL: "chapter"},
			{ID: 202, ModuleID: 20, CategoryID: 1, ParentID: ptr(int64(200)), Order: 2, Status: StatusReady, URL: "ex2", Submittable: true, MaxPoints: 20, Difficulty: "B", MinGroupSize: 2, MaxGroupSize: 3},
			{ID: 201, ModuleID: 20, CategoryID: 1, ParentID: ptr(int64(200)), Order: 1, Status: StatusUnlisted, URL: "ex1", Submittable: true, MaxPoints: 10, Difficulty: "A", MinGroupSize: 1, MaxGroupSize: 2, GradingMode: GradingLast},
			{ID: 203, ModuleID: 20, CategoryID: 2, Order: 2, Status: StatusReady, URL: "confirm", Submittable: true, MaxPoints: 7, Difficulty: "A"},
		},
	}
}

func TestBuild_StructureNumbersAndPaths(t *testing.T) {
	tree, err := Build(sampleSource(), buildTime)
	require.NoError(t, err)

	require.Len(t, tree.Modules, 2)
	assert.Equal(t, int64(10), tree.Nodes[tree.Modules[0]].ID, "modules are ordered by their order field")
	assert.Equal(t, "1", tree.Nodes[tree.Modules[0]].Number)
	assert.Equal(t, "2", tree.Nodes[tree.Modules[1]].Number)

	ex1, err := tree.LearningObject(201)
	require.NoError(t, err)
	assert.Equal(t, "2.1.1", tree.Nodes[ex1].Number)
	assert.Equal(t, "chapter/ex1", tree.Nodes[ex1].Path)
	assert.Equal(t, GradingLast, tree.Nodes[ex1].GradingMode)

	ex2, err := tree.LearningObject(202)
	require.NoError(t, err)
	assert.Equal(t, "2.1.2", tree.Nodes[ex2].Number)
	assert.Equal(t, GradingBest, tree.Nodes[ex2].GradingMode, "grading mode defaults to best")

	found, err := tree.FindNumber("2.1.2")
	require.NoError(t, err)
	assert.Equal(t, ex2, found)
	_, err = tree.FindNumber("2.9")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	found, err = tree.FindPath(20, "chapter/ex1")
	require.NoError(t, err)
	assert.Equal(t, ex1, found)
	_, err = tree.FindPath(10, "chapter/ex1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	m2, err := tree.Module(20)
	require.NoError(t, err)
	chapter, err := tree.LearningObject(200)
	require.NoError(t, err)
	assert.Equal(t, []int{m2, chapter, ex1}, tree.Ancestors(ex1))
	assert.Equal(t, m2, tree.Nodes[ex1].Module)
}

func TestBuild_Capacities(t *testing.T) {
	tree, err := Build(sampleSource(), buildTime)
	require.NoError(t, err)

	m2 := tree.Nodes[tree.ModuleIndex[20]]
	assert.Equal(t, 30, m2.MaxPoints, "the confirm-level exercise is excluded")
	assert.Equal(t, 2, m2.ExerciseCount)
	assert.Equal(t, map[string]int{"A": 10, "B": 20}, m2.MaxPointsByDifficulty)

	chapter := tree.Nodes[tree.ObjectIndex[200]]
	assert.Equal(t, 30, chapter.MaxPoints)

	cat, err := tree.Category(1)
	require.NoError(t, err)
	assert.Equal(t, 35, cat.MaxPoints)
	assert.Equal(t, 3, cat.ExerciseCount)

	confirm, err := tree.Category(2)
	require.NoError(t, err)
	assert.Equal(t, 0, confirm.MaxPoints)
	assert.Nil(t, confirm.MaxPointsByDifficulty, "difficulty buckets are never pre-seeded")

	assert.Equal(t, 35, tree.Total.MaxPoints)
	assert.Equal(t, 3, tree.Total.ExerciseCount)
	assert.Equal(t, map[string]int{"A": 15, "B": 20}, tree.Total.MaxPointsByDifficulty)
	assert.Equal(t, 1, tree.Total.MinGroupSize)
	assert.Equal(t, 3, tree.Total.MaxGroupSize)
}

func TestBuild_GroupSizeCollapsesWithoutGroups(t *testing.T) {
	src := Source{
		CourseID:        1,
		Modules:         []ModuleSource{{ID: 1, Order: 1}},
		Categories:      []CategorySource{{ID: 1}},
		LearningObjects: []LearningObjectSource{{ID: 1, ModuleID: 1, CategoryID: 1, URL: "a", Submittable: true, MaxPoints: 1, MinGroupSize: 1, MaxGroupSize: 1}},
	}
	tree, err := Build(src, buildTime)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Total.MinGroupSize)
	assert.Equal(t, 1, tree.Total.MaxGroupSize)
}

func TestBuild_EmptyModuleHasZeroCapacity(t *testing.T) {
	tree, err := Build(Source{CourseID: 1, Modules: []ModuleSource{{ID: 1}}}, buildTime)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Nodes[tree.Modules[0]].MaxPoints)
	assert.Nil(t, tree.Nodes[tree.Modules[0]].MaxPointsByDifficulty)
}

func TestBuild_ModelAnswer(t *testing.T) {
	src := sampleSource()
	src.Modules[0].ModelAnswerID = ptr(int64(200))
	tree, err := Build(src, buildTime)
	require.NoError(t, err)

	m, err := tree.Module(20)
	require.NoError(t, err)
	assert.Equal(t, int64(200), tree.Nodes[m].ModelAnswer)
	other, err := tree.Module(10)
	require.NoError(t, err)
	assert.Zero(t, tree.Nodes[other].ModelAnswer)
}

func TestBuild_StructuralInconsistency(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Source)
	}{
		{"unknown module", func(s *Source) { s.LearningObjects[0].ModuleID = 999 }},
		{"unknown category", func(s *Source) { s.LearningObjects[0].CategoryID = 999 }},
		{"unknown parent", func(s *Source) { s.LearningObjects[2].ParentID = ptr(int64(999)) }},
		{"parent in another module", func(s *Source) { s.LearningObjects[2].ParentID = ptr(int64(100)) }},
		{"cycle", func(s *Source) {
			s.LearningObjects[1].ParentID = ptr(int64(202))
		}},
		{"unknown model answer", func(s *Source) { s.Modules[0].ModelAnswerID = ptr(int64(999)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := sampleSource()
			tt.mutate(&src)
			_, err := Build(src, buildTime)
			assert.ErrorIs(t, err, common.ErrStructuralInconsistency)
		})
	}
}

func TestTree_Navigation(t *testing.T) {
	tree, err := Build(sampleSource(), buildTime)
	require.NoError(t, err)

	ids := func(idx []int) []int64 {
		out := make([]int64, len(idx))
		for i, n := range idx {
			out[i] = tree.Nodes[n].ID
		}
		return out
	}
	assert.Equal(t, []int64{10, 100, 20, 200, 201, 202, 203}, ids(tree.Flat()))
	assert.Equal(t, []int64{200, 201, 202, 203}, ids(tree.FlatModule(tree.ModuleIndex[20])))

	m2 := tree.ModuleIndex[20]
	prev, ok := tree.Previous(m2)
	require.True(t, ok)
	assert.Equal(t, int64(100), tree.Nodes[prev].ID)
	next, ok := tree.Next(m2)
	require.True(t, ok)
	assert.Equal(t, int64(200), tree.Nodes[next].ID)

	chapter := tree.ObjectIndex[200]
	next, ok = tree.Next(chapter)
	require.True(t, ok)
	assert.Equal(t, int64(202), tree.Nodes[next].ID, "unlisted exercises are skipped")

	_, ok = tree.Next(tree.ObjectIndex[203])
	assert.False(t, ok)
	_, ok = tree.Previous(tree.ModuleIndex[10])
	assert.False(t, ok)

	begin, ok := tree.Begin()
	require.True(t, ok)
	assert.Equal(t, int64(100), tree.Nodes[begin].ID)

	order, err := tree.AbsoluteOrder(202)
	require.NoError(t, err)
	assert.Equal(t, 4, order)

	assert.Equal(t, []int64{100, 201, 202, 203}, ids(tree.Exercises()))
	cats := tree.SortedCategories()
	require.Len(t, cats, 2)
	assert.Equal(t, "Confirm", cats[0].Name)
}

func TestNode_ListedAndVisible(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		listed  bool
		visible bool
	}{
		{"ready module", Node{Kind: KindModule, Status: StatusReady}, true, true},
		{"unlisted module", Node{Kind: KindModule, Status: StatusUnlisted}, false, true},
		{"exercise in unlisted module", Node{Kind: KindLearningObject, Status: StatusReady, ModuleStatus: StatusUnlisted}, false, true},
		{"hidden exercise", Node{Kind: KindLearningObject, Status: StatusHidden}, false, false},
		{"hidden category", Node{Kind: KindLearningObject, Status: StatusReady, CategoryStatus: StatusHidden}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.listed, tt.node.Listed())
			assert.Equal(t, tt.visible, tt.node.Visible())
		})
	}
}

func TestNode_CloneIsIndependent(t *testing.T) {
	n := Node{Children: []int{1}, MaxPointsByDifficulty: map[string]int{"A": 1}}
	c := n.Clone()
	c.Children[0] = 9
	c.MaxPointsByDifficulty["A"] = 9
	assert.Equal(t, 1, n.Children[0])
	assert.Equal(t, 1, n.MaxPointsByDifficulty["A"])
}

func TestTree_JSONRoundTrip(t *testing.T) {
	tree, err := Build(sampleSource(), buildTime)
	require.NoError(t, err)

	raw, err := json.Marshal(tree)
	require.NoError(t, err)
	var decoded Tree
	require.NoError(t, json.Unmarshal(raw, &decoded))

	idx, err := decoded.FindPath(20, "chapter/ex2")
	require.NoError(t, err)
	assert.Equal(t, int64(202), decoded.Nodes[idx].ID)
	assert.Equal(t, tree.Total, decoded.Total)
}
