package cache

import (
	"slices"
	"strconv"
	"strings"
)

// Key addresses one cache entry. Two keys are equal iff the namespace, the
// ordered ids and the ordered modifiers are all equal.
type Key struct {
	Namespace string
	IDs       []int64
	Modifiers []string
}

func NewKey(namespace string, ids []int64, modifiers ...string) Key {
	return Key{Namespace: namespace, IDs: slices.Clone(ids), Modifiers: slices.Clone(modifiers)}
}

// String renders the key as namespace:id1,id2:mod1,mod2. The form is stable
// and doubles as the backend storage key.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Namespace)
	b.WriteByte(':')
	for i, id := range k.IDs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	b.WriteByte(':')
	b.WriteString(strings.Join(k.Modifiers, ","))
	return b.String()
}

func (k Key) Equal(other Key) bool {
	return k.Namespace == other.Namespace &&
		slices.Equal(k.IDs, other.IDs) &&
		slices.Equal(k.Modifiers, other.Modifiers)
}
