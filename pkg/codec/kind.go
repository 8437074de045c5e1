package codec

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/table"
)

// Codec converts between a table's bytes and its decoded form.
type Codec interface {
	Decode(data []byte) (table.Table, error)
	Encode(t table.Table) ([]byte, error)
}

// CategoryUninstaller is implemented by kinds whose records cannot simply
// be deleted on uninstall (slot tables, positional message rows). The
// reference table may be nil.
type CategoryUninstaller interface {
	UninstallByCategory(live, reference table.Table, section string, ids []string) error
}

// Kind describes one table format.
type Kind struct {
	Name       string
	Extensions []string
	Codec      Codec

	// Hierarchical kinds hold Parent entries; the ledger tracks their
	// children under table.SubSectionKey.
	Hierarchical bool

	// NewRoot builds the root created when a hierarchical section has no
	// root for an incoming one. It copies the incoming root's own payload
	// but none of its children.
	NewRoot func(section string, incoming table.Parent) table.Parent

	// Category, when set, replaces the generic by-index reversal.
	Category CategoryUninstaller
}

// Decode decodes data, tagging failures with the kind and path.
func (k *Kind) Decode(path string, data []byte) (table.Table, error) {
	t, err := k.Codec.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDecode, "cannot decode %s table", k.Name).
			WithDetail("kind", k.Name).
			WithDetail("path", path)
	}
	return t, nil
}

// Encode encodes t, tagging failures with the kind and path.
func (k *Kind) Encode(path string, t table.Table) ([]byte, error) {
	data, err := k.Codec.Encode(t)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDecode, "cannot encode %s table", k.Name).
			WithDetail("kind", k.Name).
			WithDetail("path", path)
	}
	return data, nil
}

// Registry selects kinds by file extension.
type Registry struct {
	byName map[string]*Kind
	byExt  map[string]*Kind
}

// NewRegistry creates a registry holding kinds.
func NewRegistry(kinds ...*Kind) *Registry {
	r := &Registry{
		byName: make(map[string]*Kind),
		byExt:  make(map[string]*Kind),
	}
	for _, k := range kinds {
		r.byName[k.Name] = k
		for _, ext := range k.Extensions {
			r.byExt[strings.ToLower(ext)] = k
		}
	}
	return r
}

// DefaultRegistry returns a registry with every built-in kind.
func DefaultRegistry() *Registry {
	return NewRegistry(RecordsKind(), TreeKind(), MessageKind(), SlotsKind())
}

// KindFor returns the kind for path's extension. Files without a kind are
// raw files, copied byte for byte.
func (r *Registry) KindFor(path string) (*Kind, bool) {
	k, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return k, ok
}

// Lookup returns a kind by its declared name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	k, ok := r.byName[name]
	return k, ok
}

// Names lists registered kind names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RawKind is the kind name that forces a byte-for-byte copy.
const RawKind = "raw"

// Classify picks the kind for path. A declared name wins over the
// extension. A nil kind means the file is raw.
func (r *Registry) Classify(path, declared string) (*Kind, error) {
	switch declared {
	case RawKind:
		return nil, nil
	case "":
		k, _ := r.KindFor(path)
		return k, nil
	}
	k, ok := r.Lookup(declared)
	if !ok {
		return nil, errors.Newf(errors.ErrManifest, "unknown table kind %q for %s", declared, path).
			WithDetail("path", path).
			WithDetail("kind", declared)
	}
	return k, nil
}
