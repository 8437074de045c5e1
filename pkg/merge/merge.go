// Package merge unions mod-supplied entries into destination collections
// by Index, recording every merged key in the ledger.
package merge

import (
	"strings"

	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/table"
)

// Tracker receives the index of every merged entry.
type Tracker interface {
	Add(id string)
}

// TrackerFor returns the tracker for a ledger section key.
type TrackerFor func(sectionKey string) Tracker

// Prepare runs over incoming entries before they are merged into existing,
// typically to resolve symbolic keys.
type Prepare func(sectionKey string, incoming, existing []table.Entry) ([]table.Entry, error)

// Entries merges toInstall into destination: an entry whose Index is
// already present overwrites it in place, anything else is appended in
// input order. A nil destination is a collection that was never
// initialized and is fatal when there is something to merge.
func Entries(toInstall, destination []table.Entry, track Tracker) ([]table.Entry, error) {
	if len(toInstall) == 0 {
		return destination, nil
	}
	if destination == nil {
		return nil, errors.New(errors.ErrConfig, "destination collection is not initialized")
	}

	// Position of the first entry per key; later duplicates never match,
	// same as a front-to-back scan.
	pos := make(map[string]int, len(destination)+len(toInstall))
	for i, e := range destination {
		if _, ok := pos[e.Index()]; !ok {
			pos[e.Index()] = i
		}
	}

	for _, e := range toInstall {
		idx := e.Index()
		if track != nil {
			track.Add(idx)
		}
		if i, ok := pos[idx]; ok {
			destination[i] = e
			continue
		}
		pos[idx] = len(destination)
		destination = append(destination, e)
	}
	return destination, nil
}

// Section merges toInstall into one flat section of t.
func Section(t table.Table, section string, toInstall []table.Entry, track Tracker, prepare Prepare) error {
	destination, ok := t.Entries(section)
	if !ok {
		destination = nil
	}
	if prepare != nil && len(toInstall) > 0 {
		var err error
		if toInstall, err = prepare(section, toInstall, destination); err != nil {
			return err
		}
	}
	merged, err := Entries(toInstall, destination, track)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfig, "section %s", section).WithDetail("section", section)
	}
	if len(toInstall) > 0 {
		t.SetEntries(section, merged)
	}
	return nil
}

// Tree merges hierarchical roots into one section of t. Each incoming
// root is matched by Index, or created with newRoot when the destination
// has none; its sub-entries are then merged into the matched root's. The
// payload of an existing root is left alone. Only sub-entries are tracked,
// under table.SubSectionKey, and only they go through prepare: root keys
// must be concrete.
func Tree(t table.Table, section string, toInstall []table.Entry, newRoot func(section string, incoming table.Parent) table.Parent, trackFor TrackerFor, prepare Prepare) error {
	if len(toInstall) == 0 {
		return nil
	}
	roots, ok := t.Entries(section)
	if !ok {
		return errors.Newf(errors.ErrConfig, "destination section %s is not initialized", section).
			WithDetail("section", section)
	}

	for _, e := range toInstall {
		incoming, ok := e.(table.Parent)
		if !ok {
			return errors.Newf(errors.ErrConfig, "entry %s in section %s is not a root", e.Index(), section)
		}
		if len(incoming.SubEntries()) == 0 {
			continue
		}
		if strings.HasPrefix(incoming.Index(), "@") {
			return errors.Newf(errors.ErrConflict, "root %s in section %s: root keys cannot be symbolic", incoming.Index(), section).
				WithDetail("section", section)
		}

		var root table.Parent
		if i := table.Find(roots, incoming.Index()); i >= 0 {
			if root, ok = roots[i].(table.Parent); !ok {
				return errors.Newf(errors.ErrConfig, "destination entry %s in section %s is not a root", roots[i].Index(), section)
			}
		} else {
			if newRoot == nil {
				return errors.Newf(errors.ErrConfig, "no default root for section %s", section)
			}
			root = newRoot(section, incoming)
			roots = append(roots, root)
		}

		key := table.SubSectionKey(section, root.Index())
		children := incoming.SubEntries()
		existing := root.SubEntries()
		if existing == nil {
			existing = []table.Entry{}
		}
		if prepare != nil && len(children) > 0 {
			var err error
			if children, err = prepare(key, children, existing); err != nil {
				return err
			}
		}

		var track Tracker
		if trackFor != nil {
			track = trackFor(key)
		}
		merged, err := Entries(children, existing, track)
		if err != nil {
			return err
		}
		root.SetSubEntries(merged)
	}

	t.SetEntries(section, roots)
	return nil
}
