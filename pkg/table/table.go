package table

import "strings"

// Entry is a record addressable by a unique, table-scoped key.
type Entry interface {
	Index() string
}

// Parent is a root entry owning a nested keyed collection.
type Parent interface {
	Entry
	SubEntries() []Entry
	SetSubEntries(entries []Entry)
}

// Rekeyable entries can have their key rewritten by the ID resolver.
type Rekeyable interface {
	Entry
	SetIndex(index string)
}

// Referencer entries carry keys of other entries in their payload.
type Referencer interface {
	References() []string
	RewriteReferences(mapping map[string]string)
}

// Table is a decoded table exposing its keyed collections by section.
type Table interface {
	// Sections lists the section names present in the table.
	Sections() []string

	// Entries returns the collection for a section. The boolean is false
	// when the section was never initialized, which is different from an
	// initialized empty collection.
	Entries(section string) ([]Entry, bool)

	// SetEntries replaces (or initializes) the collection for a section.
	SetEntries(section string, entries []Entry)
}

// subSectionSep separates a section name from a parent index in ledger
// section keys.
const subSectionSep = "#"

// SubSectionKey returns the ledger section key for the children of the
// root entry rootIndex within section.
func SubSectionKey(section, rootIndex string) string {
	return section + subSectionSep + rootIndex
}

// SplitSectionKey splits a ledger section key. For a flat section key the
// root index is empty and hierarchical is false.
func SplitSectionKey(key string) (section, rootIndex string, hierarchical bool) {
	i := strings.LastIndex(key, subSectionSep)
	if i < 0 {
		return key, "", false
	}
	return key[:i], key[i+1:], true
}

// Find returns the position of the entry with the given index, or -1.
func Find(entries []Entry, index string) int {
	for i, e := range entries {
		if e.Index() == index {
			return i
		}
	}
	return -1
}

// Remove deletes the entry with the given index, preserving order.
func Remove(entries []Entry, index string) ([]Entry, bool) {
	i := Find(entries, index)
	if i < 0 {
		return entries, false
	}
	return append(entries[:i:i], entries[i+1:]...), true
}

// Indexes returns the keys of entries in order.
func Indexes(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Index()
	}
	return out
}
