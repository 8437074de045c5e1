package table

// Sectioned is a Table backed by ordered, named entry collections. Codecs
// embed it and convert entries to their concrete record types on encode.
type Sectioned struct {
	order []string
	data  map[string][]Entry
}

// NewSectioned creates an empty Sectioned table.
func NewSectioned() *Sectioned {
	return &Sectioned{data: make(map[string][]Entry)}
}

// Sections returns section names in insertion order.
func (s *Sectioned) Sections() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Entries returns the entries of a section.
func (s *Sectioned) Entries(section string) ([]Entry, bool) {
	entries, ok := s.data[section]
	return entries, ok
}

// SetEntries replaces the entries of a section, creating it if needed.
func (s *Sectioned) SetEntries(section string, entries []Entry) {
	if s.data == nil {
		s.data = make(map[string][]Entry)
	}
	if _, ok := s.data[section]; !ok {
		s.order = append(s.order, section)
	}
	if entries == nil {
		entries = []Entry{}
	}
	s.data[section] = entries
}
