package optimize

import (
	"sort"
	"strconv"
	"strings"
)

// term is a multiset of cell offsets (relative to the loop's entry
// pointer) being multiplied together: {} is the constant 1, {5} is the
// cell at offset 5, {0,0} is cell 0 squared, and so on. Always kept
// sorted ascending so two terms with the same multiset compare equal via
// key().
type term []int32

func sortedTerm(offs ...int32) term {
	t := make(term, len(offs))
	copy(t, offs)
	sort.Slice(t, func(a, b int) bool { return t[a] < t[b] })
	return t
}

func (t term) key() string {
	if len(t) == 0 {
		return ""
	}
	parts := make([]string, len(t))
	for i, o := range t {
		parts[i] = strconv.FormatInt(int64(o), 10)
	}
	return strings.Join(parts, ",")
}

func (t term) degree() int { return len(t) }

// termSet is an insertion-ordered, deduplicated collection of terms. The
// insertion order becomes the column order of the fitting matrix, so it
// must be deterministic across runs for reproducible codegen.
type termSet struct {
	order []term
	seen  map[string]bool
}

func newTermSet() *termSet {
	return &termSet{seen: map[string]bool{}}
}

func (s *termSet) add(t term) {
	k := t.key()
	if s.seen[k] {
		return
	}
	s.seen[k] = true
	s.order = append(s.order, t)
}

func (s *termSet) indexOf(t term) (int, bool) {
	k := t.key()
	for i, existing := range s.order {
		if existing.key() == k {
			return i, true
		}
	}
	return 0, false
}
