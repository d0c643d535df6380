package query

// colSet is an insertion-ordered string set. Extraction relies on it so
// column lists keep first-appearance order without duplicates.
type colSet struct {
	items []string
	seen  map[string]struct{}
}

func newColSet() *colSet {
	return &colSet{seen: make(map[string]struct{})}
}

func (s *colSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *colSet) values() []string {
	if s.items == nil {
		return []string{}
	}
	return s.items
}
