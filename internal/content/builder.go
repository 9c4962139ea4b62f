package content

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/dmitrijs2005/coursecache/internal/common"
)

const initialMinGroupSize = 100000

// Build assembles the tree for src. Learning objects that reference an
// unknown module, category or parent, or that are unreachable from a module
// root, make the source structurally inconsistent.
func Build(src Source, now time.Time) (*Tree, error) {
	t := &Tree{
		CourseID:    src.CourseID,
		Created:     now,
		Watermark:   src.Watermark,
		Categories:  make(map[int64]Category, len(src.Categories)),
		ModuleIndex: make(map[int64]int, len(src.Modules)),
		ObjectIndex: make(map[int64]int, len(src.LearningObjects)),
		Paths:       make(map[int64]map[string]int, len(src.Modules)),
		Total:       Totals{MinGroupSize: initialMinGroupSize, MaxGroupSize: 1},
	}

	for _, c := range src.Categories {
		t.Categories[c.ID] = Category{
			ID:              c.ID,
			Name:            c.Name,
			Status:          c.Status,
			PointsToPass:    c.PointsToPass,
			ConfirmTheLevel: c.ConfirmTheLevel,
		}
	}

	modules := make(map[int64]bool, len(src.Modules))
	for _, m := range src.Modules {
		modules[m.ID] = true
	}
	objects := make(map[int64]LearningObjectSource, len(src.LearningObjects))
	for _, lo := range src.LearningObjects {
		objects[lo.ID] = lo
	}

	// children keyed by parent object id; roots keyed by module id
	roots := make(map[int64][]LearningObjectSource)
	children := make(map[int64][]LearningObjectSource)
	for _, lo := range src.LearningObjects {
		if !modules[lo.ModuleID] {
			return nil, fmt.Errorf("%w: learning object %d references unknown module %d", common.ErrStructuralInconsistency, lo.ID, lo.ModuleID)
		}
		if _, ok := t.Categories[lo.CategoryID]; !ok {
			return nil, fmt.Errorf("%w: learning object %d references unknown category %d", common.ErrStructuralInconsistency, lo.ID, lo.CategoryID)
		}
		if lo.ParentID == nil {
			roots[lo.ModuleID] = append(roots[lo.ModuleID], lo)
			continue
		}
		parent, ok := objects[*lo.ParentID]
		if !ok || parent.ModuleID != lo.ModuleID {
			return nil, fmt.Errorf("%w: learning object %d has invalid parent %d", common.ErrStructuralInconsistency, lo.ID, *lo.ParentID)
		}
		children[parent.ID] = append(children[parent.ID], lo)
	}

	ms := slices.Clone(src.Modules)
	slices.SortStableFunc(ms, func(a, b ModuleSource) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})

	b := &builder{tree: t, children: children}
	for pos, m := range ms {
		idx := len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{
			Kind:         KindModule,
			ID:           m.ID,
			Parent:       NoParent,
			Module:       idx,
			Order:        m.Order,
			Number:       strconv.Itoa(pos + 1),
			URL:          m.URL,
			Name:         m.Name,
			Status:       m.Status,
			PointsToPass: m.PointsToPass,
			Schedule:     m.Schedule,
		})
		t.Modules = append(t.Modules, idx)
		t.ModuleIndex[m.ID] = idx
		t.Paths[m.ID] = make(map[string]int)

		for _, child := range sortObjects(roots[m.ID]) {
			b.add(child, idx, idx, m, "")
		}
	}

	if len(t.ObjectIndex) != len(src.LearningObjects) {
		return nil, fmt.Errorf("%w: %d learning objects unreachable from any module", common.ErrStructuralInconsistency, len(src.LearningObjects)-len(t.ObjectIndex))
	}

	for _, m := range ms {
		if m.ModelAnswerID == nil {
			continue
		}
		if _, ok := t.ObjectIndex[*m.ModelAnswerID]; !ok {
			return nil, fmt.Errorf("%w: module %d has unknown model answer %d", common.ErrStructuralInconsistency, m.ID, *m.ModelAnswerID)
		}
		t.Nodes[t.ModuleIndex[m.ID]].ModelAnswer = *m.ModelAnswerID
	}

	if t.Total.MinGroupSize == initialMinGroupSize {
		t.Total.MinGroupSize = 1
	}
	return t, nil
}

type builder struct {
	tree     *Tree
	children map[int64][]LearningObjectSource
}

func sortObjects(in []LearningObjectSource) []LearningObjectSource {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b LearningObjectSource) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// add appends lo under parent and recurses into its children. It returns the
// max points lo contributes to a chapter above it.
func (b *builder) add(lo LearningObjectSource, parent, module int, m ModuleSource, parentPath string) int {
	t := b.tree
	if _, seen := t.ObjectIndex[lo.ID]; seen {
		return 0
	}
	cat := t.Categories[lo.CategoryID]

	path := lo.URL
	if parentPath != "" {
		path = parentPath + "/" + lo.URL
	}
	position := len(t.Nodes[parent].Children) + 1

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Kind:            KindLearningObject,
		ID:              lo.ID,
		Parent:          parent,
		Module:          module,
		Order:           lo.Order,
		Number:          t.Nodes[parent].Number + "." + strconv.Itoa(position),
		Path:            path,
		URL:             lo.URL,
		Name:            lo.Name,
		Status:          lo.Status,
		ModuleStatus:    m.Status,
		CategoryID:      lo.CategoryID,
		CategoryStatus:  cat.Status,
		ConfirmTheLevel: cat.ConfirmTheLevel,
		Submittable:     lo.Submittable,
		MaxPoints:       lo.MaxPoints,
		PointsToPass:    lo.PointsToPass,
		MaxSubmissions:  lo.MaxSubmissions,
		Difficulty:      lo.Difficulty,
		MinGroupSize:    lo.MinGroupSize,
		MaxGroupSize:    lo.MaxGroupSize,
		GradingMode:     lo.GradingMode,
		Schedule:        m.Schedule,
	})
	t.Nodes[parent].Children = append(t.Nodes[parent].Children, idx)
	t.ObjectIndex[lo.ID] = idx
	t.Paths[m.ID][path] = idx

	contributes := 0
	if lo.Submittable {
		if lo.GradingMode == "" {
			t.Nodes[idx].GradingMode = GradingBest
		}
		if lo.MaxGroupSize > 1 {
			t.Total.MinGroupSize = min(t.Total.MinGroupSize, lo.MinGroupSize)
			t.Total.MaxGroupSize = max(t.Total.MaxGroupSize, lo.MaxGroupSize)
		}
		// confirm-level exercises only count once they are passed
		if !cat.ConfirmTheLevel {
			contributes = lo.MaxPoints
			b.addCapacity(&t.Nodes[module].ExerciseCount, &t.Nodes[module].MaxPoints, &t.Nodes[module].MaxPointsByDifficulty, lo)
			b.addCapacity(&cat.ExerciseCount, &cat.MaxPoints, &cat.MaxPointsByDifficulty, lo)
			b.addCapacity(&t.Total.ExerciseCount, &t.Total.MaxPoints, &t.Total.MaxPointsByDifficulty, lo)
			t.Categories[lo.CategoryID] = cat
		}
	}

	below := 0
	for _, child := range sortObjects(b.children[lo.ID]) {
		below += b.add(child, idx, module, m, path)
	}
	if !lo.Submittable {
		t.Nodes[idx].MaxPoints = below
	}
	return contributes + below
}

func (b *builder) addCapacity(count, maxPoints *int, byDifficulty *map[string]int, lo LearningObjectSource) {
	*count++
	*maxPoints += lo.MaxPoints
	if *byDifficulty == nil {
		*byDifficulty = make(map[string]int)
	}
	(*byDifficulty)[lo.Difficulty] += lo.MaxPoints
}
