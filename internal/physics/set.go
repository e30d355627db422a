package physics

// Handle is a typed reference into a Set. Handles are never reused.
type Handle[T any] struct {
	id uint64
}

// ID returns the raw numeric id of the handle.
func (h Handle[T]) ID() uint64 {
	return h.id
}

// HandleOf rebuilds a handle from a raw id, e.g. one read back from storage.
func HandleOf[T any](id uint64) Handle[T] {
	return Handle[T]{id: id}
}

type entry[T any] struct {
	id    uint64
	value T
}

// Set stores values in insertion order behind stable handles.
// Removal keeps the relative order of the remaining values.
type Set[T any] struct {
	nextID  uint64
	entries []entry[T]
	index   map[uint64]int
}

// NewSet creates an empty set.
func NewSet[T any]() *Set[T] {
	return &Set[T]{index: make(map[uint64]int)}
}

// Insert appends value and returns its handle.
func (s *Set[T]) Insert(value T) Handle[T] {
	id := s.nextID
	s.nextID++
	s.index[id] = len(s.entries)
	s.entries = append(s.entries, entry[T]{id: id, value: value})
	return Handle[T]{id: id}
}

// Get returns a pointer to the stored value or nil.
func (s *Set[T]) Get(h Handle[T]) *T {
	i, ok := s.index[h.id]
	if !ok {
		return nil
	}
	return &s.entries[i].value
}

// Contains reports whether h refers to a stored value.
func (s *Set[T]) Contains(h Handle[T]) bool {
	_, ok := s.index[h.id]
	return ok
}

// Remove deletes the value behind h, returning it.
func (s *Set[T]) Remove(h Handle[T]) (T, bool) {
	var zero T
	i, ok := s.index[h.id]
	if !ok {
		return zero, false
	}
	value := s.entries[i].value
	copy(s.entries[i:], s.entries[i+1:])
	s.entries[len(s.entries)-1] = entry[T]{}
	s.entries = s.entries[:len(s.entries)-1]
	delete(s.index, h.id)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].id] = j
	}
	return value, true
}

// Pair returns pointers to two distinct values, or nils when either is missing.
func (s *Set[T]) Pair(h1, h2 Handle[T]) (*T, *T) {
	if h1 == h2 {
		return nil, nil
	}
	a, b := s.Get(h1), s.Get(h2)
	if a == nil || b == nil {
		return nil, nil
	}
	return a, b
}

// Len returns the number of stored values.
func (s *Set[T]) Len() int {
	return len(s.entries)
}

// Each calls fn for every value in insertion order until fn returns false.
// fn must not insert into or remove from the set.
func (s *Set[T]) Each(fn func(Handle[T], *T) bool) {
	for i := range s.entries {
		if !fn(Handle[T]{id: s.entries[i].id}, &s.entries[i].value) {
			return
		}
	}
}

// At returns the handle and value at position i in insertion order.
func (s *Set[T]) At(i int) (Handle[T], *T) {
	return Handle[T]{id: s.entries[i].id}, &s.entries[i].value
}

// Handles returns all handles in insertion order.
func (s *Set[T]) Handles() []Handle[T] {
	handles := make([]Handle[T], len(s.entries))
	for i, e := range s.entries {
		handles[i] = Handle[T]{id: e.id}
	}
	return handles
}
