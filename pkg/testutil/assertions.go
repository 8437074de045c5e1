package testutil

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/filesystem"
	"github.com/arthur-debert/tablepatch/pkg/table"
)

// AssertLedgerAgrees checks that every index the saved ledger records for
// mod is present in the live table.
func (env *TestEnvironment) AssertLedgerAgrees(t *testing.T, mod string) {
	t.Helper()
	m, ok := env.Ledger().Mod(mod)
	if !assert.True(t, ok, "mod %s not in ledger", mod) {
		return
	}
	kinds := codec.DefaultRegistry()
	for _, tf := range m.Files {
		if tf.Raw {
			assert.True(t, env.Exists(tf.Path), "raw file %s missing", tf.Path)
			continue
		}
		kind, err := kinds.Classify(tf.Path, tf.Kind)
		if !assert.NoError(t, err) || !assert.NotNil(t, kind) {
			continue
		}
		live := Decode(t, env.Game, tf.Path, kind)
		for _, sec := range tf.Sections {
			entries := sectionEntries(live, sec.Key)
			for _, id := range sec.IDs {
				assert.GreaterOrEqual(t, table.Find(entries, id), 0, "%s %s: %s tracked but absent", tf.Path, sec.Key, id)
			}
		}
	}
}

func sectionEntries(t table.Table, key string) []table.Entry {
	section, root, sub := table.SplitSectionKey(key)
	entries, _ := t.Entries(section)
	if !sub {
		return entries
	}
	i := table.Find(entries, root)
	if i < 0 {
		return nil
	}
	if p, ok := entries[i].(table.Parent); ok {
		return p.SubEntries()
	}
	return nil
}

// FailingFS fails writes to one path.
type FailingFS struct {
	afero.Fs
	Path string
}

func (f *FailingFS) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 && filesystem.Clean(name) == f.Path {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *FailingFS) Create(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}
