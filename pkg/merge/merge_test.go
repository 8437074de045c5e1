package merge_test

import (
	"testing"

	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/ledger"
	"github.com/arthur-debert/tablepatch/pkg/merge"
	"github.com/arthur-debert/tablepatch/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(key, data string) *codec.Record {
	return &codec.Record{Key: key, Data: []byte(data)}
}

func data(t *testing.T, entries []table.Entry) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, e := range entries {
		out[e.Index()] = string(e.(*codec.Record).Data)
	}
	return out
}

func TestEntries_OverwriteAndAppend(t *testing.T) {
	section := &ledger.TrackedSection{Key: "entries"}
	dest := []table.Entry{rec("1", "one"), rec("2", "two")}

	merged, err := merge.Entries([]table.Entry{rec("2", "TWO"), rec("5", "five")}, dest, section)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "5"}, table.Indexes(merged))
	assert.Equal(t, map[string]string{"1": "one", "2": "TWO", "5": "five"}, data(t, merged))
	assert.Equal(t, []string{"2", "5"}, section.IDs)
}

func TestEntries_Idempotent(t *testing.T) {
	section := &ledger.TrackedSection{Key: "entries"}
	incoming := func() []table.Entry { return []table.Entry{rec("2", "TWO"), rec("5", "five")} }

	once, err := merge.Entries(incoming(), []table.Entry{rec("1", "one"), rec("2", "two")}, section)
	require.NoError(t, err)
	twice, err := merge.Entries(incoming(), once, section)
	require.NoError(t, err)

	assert.Equal(t, table.Indexes(once), table.Indexes(twice))
	assert.Equal(t, data(t, once), data(t, twice))
	assert.Equal(t, []string{"2", "5"}, section.IDs)
}

func TestEntries_DuplicateIncomingKeys(t *testing.T) {
	merged, err := merge.Entries([]table.Entry{rec("7", "a"), rec("7", "b")}, []table.Entry{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, table.Indexes(merged))
	assert.Equal(t, "b", data(t, merged)["7"])
}

func TestEntries_UninitializedDestination(t *testing.T) {
	_, err := merge.Entries([]table.Entry{rec("1", "")}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))

	// Nothing to merge is never an error.
	out, err := merge.Entries(nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSection(t *testing.T) {
	tbl := codec.NewRecordTable()
	tbl.SetEntries("entries", []table.Entry{rec("1", "one")})

	var prepared string
	prepare := func(key string, incoming, existing []table.Entry) ([]table.Entry, error) {
		prepared = key
		return incoming, nil
	}

	require.NoError(t, merge.Section(tbl, "entries", []table.Entry{rec("2", "two")}, nil, prepare))
	entries, _ := tbl.Entries("entries")
	assert.Equal(t, []string{"1", "2"}, table.Indexes(entries))
	assert.Equal(t, "entries", prepared)

	err := merge.Section(tbl, "missing", []table.Entry{rec("2", "two")}, nil, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))
}

func TestTree(t *testing.T) {
	kind := codec.TreeKind()
	tbl := table.NewSectioned()
	tbl.SetEntries("chars", []table.Entry{
		&codec.Node{Key: "10", Data: []byte("root"), Children: []table.Entry{rec("0", "a")}},
	})

	l := &ledger.Mod{Name: "m"}
	file := l.File("chars.htb")
	trackFor := func(key string) merge.Tracker { return file.Section(key) }

	incoming := []table.Entry{
		&codec.Node{Key: "10", Data: []byte("ignored"), Children: []table.Entry{rec("0", "A"), rec("1", "b")}},
		&codec.Node{Key: "20", Data: []byte("payload"), Children: []table.Entry{rec("0", "new")}},
		&codec.Node{Key: "30"},
	}
	require.NoError(t, merge.Tree(tbl, "chars", incoming, kind.NewRoot, trackFor, nil))

	roots, _ := tbl.Entries("chars")
	require.Equal(t, []string{"10", "20"}, table.Indexes(roots), "childless incoming roots are not created")

	existing := roots[0].(*codec.Node)
	assert.Equal(t, "root", string(existing.Data), "root payload is not merged")
	assert.Equal(t, map[string]string{"0": "A", "1": "b"}, data(t, existing.Children))

	created := roots[1].(*codec.Node)
	assert.Equal(t, "payload", string(created.Data), "created root keeps the incoming payload")
	assert.Equal(t, []string{"0"}, table.Indexes(created.Children))

	s, ok := file.FindSection("chars#10")
	require.True(t, ok)
	assert.Equal(t, []string{"0", "1"}, s.IDs)
	s, ok = file.FindSection("chars#20")
	require.True(t, ok)
	assert.Equal(t, []string{"0"}, s.IDs)
}

func TestTree_Errors(t *testing.T) {
	tbl := table.NewSectioned()
	node := &codec.Node{Key: "1", Children: []table.Entry{rec("0", "")}}

	err := merge.Tree(tbl, "chars", []table.Entry{node}, nil, nil, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig), "uninitialized section")

	tbl.SetEntries("chars", nil)
	err = merge.Tree(tbl, "chars", []table.Entry{node}, nil, nil, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig), "no default root")

	err = merge.Tree(tbl, "chars", []table.Entry{rec("1", "")}, codec.TreeKind().NewRoot, nil, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig), "flat entry in a tree")

	symbolic := &codec.Node{Key: "@hat", Children: []table.Entry{rec("0", "")}}
	err = merge.Tree(tbl, "chars", []table.Entry{symbolic}, codec.TreeKind().NewRoot, nil, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflict), "symbolic root key")
}
