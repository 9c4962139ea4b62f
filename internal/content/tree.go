// Package content builds the static, user independent hierarchy of a course
// instance: modules, their learning objects and the point capacities of every
// level.
//
// A Tree is immutable once built and may be shared between goroutines.
// Nodes live in one flat slice and refer to each other by index.
package content

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/coursecache/internal/common"
)

type Kind string

const (
	KindModule         Kind = "module"
	KindLearningObject Kind = "learning_object"
)

// NoParent is the Parent of a module. Top level learning objects have their
// module as parent.
const NoParent = -1

type Node struct {
	Kind     Kind   `json:"kind"`
	ID       int64  `json:"id"`
	Parent   int    `json:"parent"`
	Module   int    `json:"module"`
	Children []int  `json:"children,omitempty"`
	Order    int    `json:"order"`
	Number   string `json:"number"`
	Path     string `json:"path,omitempty"`
	URL      string `json:"url"`
	Name     string `json:"name"`
	Status   string `json:"status"`

	ModuleStatus    string `json:"module_status,omitempty"`
	CategoryID      int64  `json:"category_id,omitempty"`
	CategoryStatus  string `json:"category_status,omitempty"`
	ConfirmTheLevel bool   `json:"confirm_the_level,omitempty"`

	Submittable    bool        `json:"submittable"`
	MaxPoints      int         `json:"max_points"`
	PointsToPass   int         `json:"points_to_pass"`
	MaxSubmissions int         `json:"max_submissions,omitempty"`
	Difficulty     string      `json:"difficulty,omitempty"`
	MinGroupSize   int         `json:"min_group_size,omitempty"`
	MaxGroupSize   int         `json:"max_group_size,omitempty"`
	GradingMode    GradingMode `json:"grading_mode,omitempty"`

	ExerciseCount         int            `json:"exercise_count,omitempty"`
	MaxPointsByDifficulty map[string]int `json:"max_points_by_difficulty,omitempty"`

	Schedule Schedule `json:"schedule"`

	// ModelAnswer is set on modules only.
	ModelAnswer int64 `json:"model_answer,omitempty"`
}

// Clone returns a copy sharing no slices or maps with n.
func (n Node) Clone() Node {
	n.Children = slices.Clone(n.Children)
	n.MaxPointsByDifficulty = maps.Clone(n.MaxPointsByDifficulty)
	return n
}

// Listed reports whether the node shows up in navigation.
func (n Node) Listed() bool {
	if n.Status == StatusHidden || n.Status == StatusUnlisted {
		return false
	}
	if n.Kind == KindModule {
		return true
	}
	return n.ModuleStatus != StatusHidden && n.ModuleStatus != StatusUnlisted && n.CategoryStatus != StatusHidden
}

// Visible reports whether students may open the node at all.
func (n Node) Visible() bool {
	return n.Status != StatusHidden && n.ModuleStatus != StatusHidden && n.CategoryStatus != StatusHidden
}

type Category struct {
	ID                    int64          `json:"id"`
	Name                  string         `json:"name"`
	Status                string         `json:"status"`
	PointsToPass          int            `json:"points_to_pass"`
	ConfirmTheLevel       bool           `json:"confirm_the_level"`
	ExerciseCount         int            `json:"exercise_count"`
	MaxPoints             int            `json:"max_points"`
	MaxPointsByDifficulty map[string]int `json:"max_points_by_difficulty,omitempty"`
}

func (c Category) Clone() Category {
	c.MaxPointsByDifficulty = maps.Clone(c.MaxPointsByDifficulty)
	return c
}

type Totals struct {
	ExerciseCount         int            `json:"exercise_count"`
	MaxPoints             int            `json:"max_points"`
	MaxPointsByDifficulty map[string]int `json:"max_points_by_difficulty,omitempty"`
	MinGroupSize          int            `json:"min_group_size"`
	MaxGroupSize          int            `json:"max_group_size"`
}

func (t Totals) Clone() Totals {
	t.MaxPointsByDifficulty = maps.Clone(t.MaxPointsByDifficulty)
	return t
}

// Tree is the built hierarchy. Its exported fields exist so the tree can be
// serialized by a shared cache backend; treat them as read-only.
type Tree struct {
	CourseID   int64              `json:"course_id"`
	Created    time.Time          `json:"created"`
	Watermark  time.Time          `json:"watermark"`
	Nodes      []Node             `json:"nodes"`
	Modules    []int              `json:"modules"`
	Categories map[int64]Category `json:"categories"`
	Total      Totals             `json:"total"`

	ModuleIndex map[int64]int            `json:"module_index"`
	ObjectIndex map[int64]int            `json:"object_index"`
	Paths       map[int64]map[string]int `json:"paths"`
}

// Module returns the node index of a module.
func (t *Tree) Module(id int64) (int, error) {
	if i, ok := t.ModuleIndex[id]; ok {
		return i, nil
	}
	return NoParent, common.ErrorNotFound
}

// LearningObject returns the node index of a chapter or exercise.
func (t *Tree) LearningObject(id int64) (int, error) {
	if i, ok := t.ObjectIndex[id]; ok {
		return i, nil
	}
	return NoParent, common.ErrorNotFound
}

func (t *Tree) Category(id int64) (Category, error) {
	if c, ok := t.Categories[id]; ok {
		return c, nil
	}
	return Category{}, common.ErrorNotFound
}

// SortedCategories returns the categories ordered by name.
func (t *Tree) SortedCategories() []Category {
	out := make([]Category, 0, len(t.Categories))
	for _, c := range t.Categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindPath resolves a slash separated url path inside a module.
func (t *Tree) FindPath(moduleID int64, path string) (int, error) {
	if i, ok := t.Paths[moduleID][path]; ok {
		return i, nil
	}
	return NoParent, common.ErrorNotFound
}

// FindNumber resolves a dotted number such as "3.2.5": the fifth object in
// the second object of the third module.
func (t *Tree) FindNumber(number string) (int, error) {
	parts := strings.Split(number, ".")
	level := t.Modules
	found := NoParent
	prefix := ""
	for i, part := range parts {
		if i > 0 {
			prefix += "."
		}
		prefix += part
		found = NoParent
		for _, idx := range level {
			if t.Nodes[idx].Number == prefix {
				found = idx
				break
			}
		}
		if found == NoParent {
			return NoParent, common.ErrorNotFound
		}
		level = t.Nodes[found].Children
	}
	return found, nil
}

// Ancestors returns the chain from the module down to the node itself.
func (t *Tree) Ancestors(idx int) []int {
	var chain []int
	for cur := idx; cur != NoParent; cur = t.Nodes[cur].Parent {
		chain = append(chain, cur)
	}
	slices.Reverse(chain)
	return chain
}

// Flat returns every node in depth-first order, each module before its
// learning objects.
func (t *Tree) Flat() []int {
	out := make([]int, 0, len(t.Nodes))
	for _, m := range t.Modules {
		out = t.appendDescendants(out, m)
	}
	return out
}

// FlatModule returns the learning objects of a module in depth-first order.
func (t *Tree) FlatModule(moduleIdx int) []int {
	out := t.appendDescendants(nil, moduleIdx)
	return out[1:]
}

func (t *Tree) appendDescendants(out []int, idx int) []int {
	out = append(out, idx)
	for _, c := range t.Nodes[idx].Children {
		out = t.appendDescendants(out, c)
	}
	return out
}

// Next returns the nearest listed node after idx in depth-first order.
func (t *Tree) Next(idx int) (int, bool) {
	flat := t.Flat()
	pos := slices.Index(flat, idx)
	if pos < 0 {
		return NoParent, false
	}
	for _, n := range flat[pos+1:] {
		if t.Nodes[n].Listed() {
			return n, true
		}
	}
	return NoParent, false
}

// Previous returns the nearest listed node before idx in depth-first order.
func (t *Tree) Previous(idx int) (int, bool) {
	flat := t.Flat()
	pos := slices.Index(flat, idx)
	for i := pos - 1; i >= 0; i-- {
		if t.Nodes[flat[i]].Listed() {
			return flat[i], true
		}
	}
	return NoParent, false
}

// Begin returns the first learning object of the course.
func (t *Tree) Begin() (int, bool) {
	for _, idx := range t.Flat() {
		if t.Nodes[idx].Kind == KindLearningObject {
			return idx, true
		}
	}
	return NoParent, false
}

// Exercises returns the indices of all submittable nodes.
func (t *Tree) Exercises() []int {
	var out []int
	for i, n := range t.Nodes {
		if n.Submittable {
			out = append(out, i)
		}
	}
	return out
}

// AbsoluteOrder returns the 1-based position of a learning object among all
// learning objects of the course.
func (t *Tree) AbsoluteOrder(objectID int64) (int, error) {
	n := 0
	for _, idx := range t.Flat() {
		node := t.Nodes[idx]
		if node.Kind != KindLearningObject {
			continue
		}
		n++
		if node.ID == objectID {
			return n, nil
		}
	}
	return 0, common.ErrorNotFound
}
