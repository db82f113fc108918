package selection

import (
	"slices"
	"sync"
)

// Selection is the set of selected row indices of a list. Listeners hear
// about activation only when the selection turns empty or non-empty, and
// about the indices only when they actually changed.
type Selection struct {
	mu       sync.Mutex
	selected []int
	onActive func(active bool)
	onChange func(selected []int)
}

// NewSelection creates an empty selection. Either callback may be nil.
func NewSelection(onActive func(bool), onChange func([]int)) *Selection {
	return &Selection{onActive: onActive, onChange: onChange}
}

// Select adds index
func (s *Selection) Select(index int) {
	s.update(func(cur []int) []int {
		if slices.Contains(cur, index) {
			return cur
		}
		return append(cur, index)
	})
}

// Deselect removes index
func (s *Selection) Deselect(index int) {
	s.update(func(cur []int) []int {
		return slices.DeleteFunc(cur, func(i int) bool { return i == index })
	})
}

// Toggle flips index
func (s *Selection) Toggle(index int) {
	s.update(func(cur []int) []int {
		if i := slices.Index(cur, index); i >= 0 {
			return slices.Delete(cur, i, i+1)
		}
		return append(cur, index)
	})
}

// SelectAll selects 0..n-1
func (s *Selection) SelectAll(n int) {
	s.update(func([]int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	})
}

// Reset clears the selection
func (s *Selection) Reset() {
	s.update(func([]int) []int { return nil })
}

// IsSelected reports whether index is selected
func (s *Selection) IsSelected(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.selected, index)
}

// IsActive reports whether anything is selected
func (s *Selection) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected) > 0
}

// Selected returns the indices in selection order
func (s *Selection) Selected() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selected)
}

// SelectedDescending returns the indices from highest to lowest, the order
// in which rows can be removed without shifting the remaining ones
func (s *Selection) SelectedDescending() []int {
	out := s.Selected()
	slices.Sort(out)
	slices.Reverse(out)
	return out
}

// DeleteSelected calls remove for every selected index from highest to
// lowest, then resets the selection
func (s *Selection) DeleteSelected(remove func(index int)) {
	for _, i := range s.SelectedDescending() {
		remove(i)
	}
	s.Reset()
}

func (s *Selection) update(fn func([]int) []int) {
	s.mu.Lock()
	before := s.selected
	after := fn(slices.Clone(before))
	if slices.Equal(before, after) {
		s.mu.Unlock()
		return
	}
	s.selected = after
	wasActive, isActive := len(before) > 0, len(after) > 0
	snapshot := slices.Clone(after)
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snapshot)
	}
	if wasActive != isActive && s.onActive != nil {
		s.onActive(isActive)
	}
}
