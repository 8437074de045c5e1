package testutil

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/table"
)

// Rec builds a record from "key=data" with optional references.
func Rec(key, data string, refs ...string) *codec.Record {
	return &codec.Record{Key: key, Data: []byte(data), Refs: refs}
}

// Records encodes a records table with one section.
func Records(t *testing.T, section string, recs ...*codec.Record) []byte {
	t.Helper()
	tbl := codec.NewRecordTable()
	entries := make([]table.Entry, len(recs))
	for i, r := range recs {
		entries[i] = r
	}
	tbl.SetEntries(section, entries)
	data, err := codec.RecordsKind().Encode(section, tbl)
	require.NoError(t, err)
	return data
}

// Root builds a tree root.
func Root(key, data string, children ...*codec.Record) *codec.Node {
	n := &codec.Node{Key: key, Data: []byte(data)}
	for _, c := range children {
		n.Children = append(n.Children, c)
	}
	return n
}

// Tree encodes a tree table with one section.
func Tree(t *testing.T, section string, roots ...*codec.Node) []byte {
	t.Helper()
	tbl := table.NewSectioned()
	entries := make([]table.Entry, len(roots))
	for i, r := range roots {
		entries[i] = r
	}
	tbl.SetEntries(section, entries)
	data, err := codec.TreeKind().Encode(section, tbl)
	require.NoError(t, err)
	return data
}

// Messages encodes a message table whose rows are texts, with ids equal
// to positions.
func Messages(t *testing.T, texts ...string) []byte {
	t.Helper()
	mt := &codec.MessageTable{}
	for i, s := range texts {
		mt.Rows = append(mt.Rows, &codec.Message{ID: int32(i), Name: fmt.Sprintf("row_%03d", i), Lines: []string{s}})
	}
	data, err := codec.MessageKind().Encode("messages", mt)
	require.NoError(t, err)
	return data
}

// Decode reads and decodes a table from fs.
func Decode(t *testing.T, fs afero.Fs, path string, kind *codec.Kind) table.Table {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	tbl, err := kind.Decode(path, data)
	require.NoError(t, err)
	return tbl
}

// Dump lists a records section as "key=data".
func Dump(t *testing.T, fs afero.Fs, path, section string) []string {
	t.Helper()
	entries, _ := Decode(t, fs, path, codec.RecordsKind()).Entries(section)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		r := e.(*codec.Record)
		out = append(out, r.Key+"="+string(r.Data))
	}
	return out
}

// DumpTree lists a tree section as "root:child=data".
func DumpTree(t *testing.T, fs afero.Fs, path, section string) []string {
	t.Helper()
	roots, _ := Decode(t, fs, path, codec.TreeKind()).Entries(section)
	var out []string
	for _, e := range roots {
		n := e.(*codec.Node)
		for _, c := range n.Children {
			r := c.(*codec.Record)
			out = append(out, n.Key+":"+r.Key+"="+string(r.Data))
		}
	}
	return out
}

// MessageRows lists the texts of a message table.
func MessageRows(t *testing.T, fs afero.Fs, path string) []string {
	t.Helper()
	mt := Decode(t, fs, path, codec.MessageKind()).(*codec.MessageTable)
	out := make([]string, len(mt.Rows))
	for i, r := range mt.Rows {
		out[i] = r.Text()
	}
	return out
}
