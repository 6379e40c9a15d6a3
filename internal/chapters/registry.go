package chapters

import "fmt"

// Key identifies a chapter inside one branch. Tokens are compared verbatim.
type Key struct {
	Volume string
	Number string
}

// Registry tracks which keys are taken in each branch and mints
// "<label> (n)" lanes when a key is already occupied.
type Registry struct {
	labels   []string
	occupied map[string]map[Key]struct{}
}

func NewRegistry() *Registry {
	return &Registry{occupied: make(map[string]map[Key]struct{})}
}

// Place puts key into the first branch, starting at label, where it is still
// free. It returns the branch used and the chapter count of that branch after
// insertion. The suffix counter has no upper bound.
func (r *Registry) Place(label string, key Key) (string, int) {
	for n := 0; ; n++ {
		branch := laneLabel(label, n)

		taken, ok := r.occupied[branch]
		if !ok {
			taken = make(map[Key]struct{})
			r.occupied[branch] = taken
			r.labels = append(r.labels, branch)
		}

		if _, dup := taken[key]; dup {
			continue
		}

		taken[key] = struct{}{}
		return branch, len(taken)
	}
}

func (r *Registry) Occupied(label string, key Key) bool {
	_, ok := r.occupied[label][key]
	return ok
}

func (r *Registry) Len(label string) int {
	return len(r.occupied[label])
}

// Labels returns branches in the order they were first created.
func (r *Registry) Labels() []string {
	out := make([]string, len(r.labels))
	copy(out, r.labels)
	return out
}

func laneLabel(base string, n int) string {
	switch {
	case n == 0:
		return base
	case base == "":
		return fmt.Sprintf("(%d)", n)
	default:
		return fmt.Sprintf("%s (%d)", base, n)
	}
}
