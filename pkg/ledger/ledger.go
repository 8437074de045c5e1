package ledger

import (
	"sort"
)

// Ledger maps mod names to what each installed mod touched.
type Ledger struct {
	Mods map[string]*Mod `toml:"mods"`
}

// Mod is the record of one installed mod.
type Mod struct {
	Name    string         `toml:"name"`
	Version string         `toml:"version"`
	Files   []*TrackedFile `toml:"files"`
}

// TrackedFile lists the sections a mod touched in one table. Raw files
// were copied byte for byte and carry no sections. Kind names the table
// kind used at install when it was not inferred from the extension.
type TrackedFile struct {
	Path     string            `toml:"path"`
	Kind     string            `toml:"kind,omitempty"`
	Raw      bool              `toml:"raw,omitempty"`
	Sections []*TrackedSection `toml:"sections,omitempty"`
}

// TrackedSection is the ordered set of indexes a mod added or overwrote in
// one entry collection, plus the symbolic keys it had resolved there.
type TrackedSection struct {
	Key      string            `toml:"key"`
	IDs      []string          `toml:"ids"`
	Bindings map[string]string `toml:"bindings,omitempty"`
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{Mods: make(map[string]*Mod)}
}

// Mod returns the record for name.
func (l *Ledger) Mod(name string) (*Mod, bool) {
	m, ok := l.Mods[name]
	return m, ok
}

// GetOrCreateMod returns the record for name, creating it if needed. The
// version is updated either way.
func (l *Ledger) GetOrCreateMod(name, version string) *Mod {
	if l.Mods == nil {
		l.Mods = make(map[string]*Mod)
	}
	m, ok := l.Mods[name]
	if !ok {
		m = &Mod{Name: name}
		l.Mods[name] = m
	}
	m.Version = version
	return m
}

// RemoveMod deletes the record for name.
func (l *Ledger) RemoveMod(name string) {
	delete(l.Mods, name)
}

// Names returns installed mod names, sorted.
func (l *Ledger) Names() []string {
	names := make([]string, 0, len(l.Mods))
	for n := range l.Mods {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Owners returns the mods, other than except, that track id in the given
// file section.
func (l *Ledger) Owners(path, section, id, except string) []string {
	var owners []string
	for _, name := range l.Names() {
		if name == except {
			continue
		}
		f, ok := l.Mods[name].FindFile(path)
		if !ok {
			continue
		}
		if s, ok := f.FindSection(section); ok && s.Has(id) {
			owners = append(owners, name)
		}
	}
	return owners
}

// FindFile returns the tracked file for path.
func (m *Mod) FindFile(path string) (*TrackedFile, bool) {
	for _, f := range m.Files {
		if f.Path == path {
			return f, true
		}
	}
	return nil, false
}

// File returns the tracked file for path, creating it if needed.
func (m *Mod) File(path string) *TrackedFile {
	if f, ok := m.FindFile(path); ok {
		return f
	}
	f := &TrackedFile{Path: path}
	m.Files = append(m.Files, f)
	return f
}

// RemoveFile drops the tracked file for path.
func (m *Mod) RemoveFile(path string) {
	for i, f := range m.Files {
		if f.Path == path {
			m.Files = append(m.Files[:i], m.Files[i+1:]...)
			return
		}
	}
}

// Paths returns the tracked file paths in order.
func (m *Mod) Paths() []string {
	out := make([]string, len(m.Files))
	for i, f := range m.Files {
		out[i] = f.Path
	}
	return out
}

// Prune removes empty sections and files that track nothing.
func (m *Mod) Prune() {
	files := m.Files[:0]
	for _, f := range m.Files {
		f.Prune()
		if f.Raw || len(f.Sections) > 0 {
			files = append(files, f)
		}
	}
	m.Files = files
}

// Empty reports whether the mod tracks nothing.
func (m *Mod) Empty() bool {
	return len(m.Files) == 0
}

// FindSection returns the tracked section for key.
func (f *TrackedFile) FindSection(key string) (*TrackedSection, bool) {
	for _, s := range f.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return nil, false
}

// Section returns the tracked section for key, creating it if needed.
func (f *TrackedFile) Section(key string) *TrackedSection {
	if s, ok := f.FindSection(key); ok {
		return s
	}
	s := &TrackedSection{Key: key}
	f.Sections = append(f.Sections, s)
	return s
}

// Prune removes sections with no indexes.
func (f *TrackedFile) Prune() {
	sections := f.Sections[:0]
	for _, s := range f.Sections {
		if len(s.IDs) > 0 {
			sections = append(sections, s)
		}
	}
	f.Sections = sections
}

// Has reports whether id is tracked.
func (s *TrackedSection) Has(id string) bool {
	for _, v := range s.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// Add tracks id. Adding a tracked id is a no-op.
func (s *TrackedSection) Add(id string) {
	if !s.Has(id) {
		s.IDs = append(s.IDs, id)
	}
}

// Remove untracks id.
func (s *TrackedSection) Remove(id string) {
	for i, v := range s.IDs {
		if v == id {
			s.IDs = append(s.IDs[:i], s.IDs[i+1:]...)
			break
		}
	}
	for sym, bound := range s.Bindings {
		if bound == id {
			delete(s.Bindings, sym)
		}
	}
}

// Bind records that symbol resolved to id in this section.
func (s *TrackedSection) Bind(symbol, id string) {
	if s.Bindings == nil {
		s.Bindings = make(map[string]string)
	}
	s.Bindings[symbol] = id
}

// Binding returns the id symbol resolved to on a previous install.
func (s *TrackedSection) Binding(symbol string) (string, bool) {
	id, ok := s.Bindings[symbol]
	return id, ok
}
