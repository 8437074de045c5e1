// Package resolver rewrites symbolic keys in mod-supplied entries to
// concrete, collision-free keys before they are merged.
//
// A symbolic key starts with "@". The first install of a mod binds each
// symbol to the lowest unused non-negative integer (not taken by an
// existing entry, a reserved key, or another incoming entry) and the
// binding is kept in the ledger, so reinstalling reuses the same key
// instead of allocating a new one.
package resolver

import (
	"math"
	"strconv"
	"strings"

	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/table"
)

// SymbolPrefix marks a symbolic key.
const SymbolPrefix = "@"

// IsSymbol reports whether key is symbolic.
func IsSymbol(key string) bool {
	return strings.HasPrefix(key, SymbolPrefix) && len(key) > len(SymbolPrefix)
}

// Bindings stores symbol assignments across runs.
type Bindings interface {
	Binding(symbol string) (string, bool)
	Bind(symbol, id string)
}

// Resolver assigns concrete keys. It holds no per-run state.
type Resolver struct {
	reserved map[string]bool
	firstID  int
}

// New creates a resolver that never hands out reserved keys and starts
// allocating at firstID.
func New(reserved []string, firstID int) *Resolver {
	r := &Resolver{reserved: make(map[string]bool), firstID: firstID}
	for _, k := range reserved {
		r.reserved[k] = true
	}
	return r
}

// Resolve rewrites symbolic keys of incoming in place and returns it.
// Symbolic references inside payloads are rewritten to match.
func (r *Resolver) Resolve(incoming, existing []table.Entry, filePath, sectionKey string, bindings Bindings, additionalReserved ...string) ([]table.Entry, error) {
	used := make(map[string]bool, len(existing)+len(incoming))
	for k := range r.reserved {
		used[k] = true
	}
	for _, k := range additionalReserved {
		used[k] = true
	}
	for _, e := range existing {
		used[e.Index()] = true
	}
	for _, e := range incoming {
		if !IsSymbol(e.Index()) {
			used[e.Index()] = true
		}
	}

	mapping := make(map[string]string)
	next := r.firstID
	for _, e := range incoming {
		sym := e.Index()
		if !IsSymbol(sym) {
			continue
		}
		if _, dup := mapping[sym]; dup {
			return nil, conflict(filePath, sectionKey, "symbol %s is declared twice", sym)
		}
		rk, ok := e.(table.Rekeyable)
		if !ok {
			return nil, conflict(filePath, sectionKey, "entry %s cannot be rekeyed", sym)
		}

		id, bound := "", false
		if bindings != nil {
			id, bound = bindings.Binding(sym)
		}
		if !bound {
			var err error
			id, next, err = lowestUnused(used, next)
			if err != nil {
				return nil, conflict(filePath, sectionKey, "no free key for %s", sym)
			}
		}
		used[id] = true

		mapping[sym] = id
		rk.SetIndex(id)
		if bindings != nil {
			bindings.Bind(sym, id)
		}
	}

	for _, e := range incoming {
		ref, ok := e.(table.Referencer)
		if !ok {
			continue
		}
		for _, target := range ref.References() {
			if !IsSymbol(target) {
				continue
			}
			if _, ok := mapping[target]; ok {
				continue
			}
			if bindings != nil {
				if id, ok := bindings.Binding(target); ok {
					mapping[target] = id
					continue
				}
			}
			return nil, conflict(filePath, sectionKey, "entry %s references unknown symbol %s", e.Index(), target)
		}
		ref.RewriteReferences(mapping)
	}

	return incoming, nil
}

func lowestUnused(used map[string]bool, from int) (string, int, error) {
	for n := from; n < math.MaxInt32; n++ {
		id := strconv.Itoa(n)
		if !used[id] {
			return id, n + 1, nil
		}
	}
	return "", from, errors.New(errors.ErrConflict, "key space exhausted")
}

func conflict(filePath, sectionKey, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrConflict, format, args...).
		WithDetail("path", filePath).
		WithDetail("section", sectionKey)
}
