package cache_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/arthur-debert/tablepatch/pkg/cache"
	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/table"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	game, ref, backups afero.Fs
	cache              *cache.Cache
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mem := afero.NewMemMapFs()
	e := &env{
		game:    afero.NewBasePathFs(mem, "/game"),
		ref:     afero.NewBasePathFs(mem, "/ref"),
		backups: afero.NewBasePathFs(mem, "/backup"),
	}
	e.cache = cache.New(e.game, e.ref, e.backups)
	return e
}

func encodeRecords(t *testing.T, keys ...string) []byte {
	t.Helper()
	tbl := codec.NewRecordTable()
	var entries []table.Entry
	for _, k := range keys {
		entries = append(entries, &codec.Record{Key: k, Data: []byte("v" + k)})
	}
	tbl.SetEntries("entries", entries)
	data, err := codec.RecordsKind().Encode("", tbl)
	require.NoError(t, err)
	return data
}

func opener(data string) cache.Opener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewBufferString(data)), nil
	}
}

func TestGetParsed_CachesAndFallsBack(t *testing.T) {
	e := newEnv(t)
	kind := codec.RecordsKind()
	require.NoError(t, afero.WriteFile(e.game, "system/live.rtb", encodeRecords(t, "1"), 0644))
	require.NoError(t, afero.WriteFile(e.ref, "system/only_ref.rtb", encodeRecords(t, "9"), 0644))

	live, err := e.cache.GetParsed("system/live.rtb", kind)
	require.NoError(t, err)
	again, err := e.cache.GetParsed("/system//live.rtb", kind)
	require.NoError(t, err)
	assert.Same(t, live, again, "tables are parsed once per path")

	fromRef, err := e.cache.GetParsed("system/only_ref.rtb", kind)
	require.NoError(t, err)
	entries, _ := fromRef.Entries("entries")
	assert.Equal(t, []string{"9"}, table.Indexes(entries))

	_, err = e.cache.GetParsed("system/missing.rtb", kind)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))

	require.NoError(t, afero.WriteFile(e.game, "system/bad.rtb", []byte("junk"), 0644))
	_, err = e.cache.GetParsed("system/bad.rtb", kind)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDecode))

	assert.False(t, e.cache.CommitStarted(), "reading never starts a commit")
}

func TestReference(t *testing.T) {
	e := newEnv(t)
	kind := codec.RecordsKind()
	require.NoError(t, afero.WriteFile(e.ref, "t.rtb", encodeRecords(t, "1"), 0644))

	ref, err := e.cache.Reference("t.rtb", kind)
	require.NoError(t, err)
	require.NotNil(t, ref)

	missing, err := e.cache.Reference("other.rtb", kind)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.True(t, e.cache.HasReference("t.rtb"))
	assert.False(t, e.cache.HasReference("other.rtb"))

	noRef := cache.New(e.game, nil, e.backups)
	got, err := noRef.Reference("t.rtb", kind)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveAllParsed_WritesOnlyDirtyTables(t *testing.T) {
	e := newEnv(t)
	kind := codec.RecordsKind()
	original := encodeRecords(t, "1")
	require.NoError(t, afero.WriteFile(e.game, "a.rtb", original, 0644))
	require.NoError(t, afero.WriteFile(e.game, "b.rtb", original, 0644))

	a, err := e.cache.GetParsed("a.rtb", kind)
	require.NoError(t, err)
	_, err = e.cache.GetParsed("b.rtb", kind)
	require.NoError(t, err)

	a.SetEntries("entries", []table.Entry{&codec.Record{Key: "2"}})
	e.cache.MarkDirty("a.rtb")
	assert.Equal(t, []string{"a.rtb"}, e.cache.Dirty())

	require.NoError(t, e.cache.SaveAllParsed())
	assert.True(t, e.cache.CommitStarted())

	written, _ := afero.ReadFile(e.game, "a.rtb")
	assert.NotEqual(t, original, written)
	untouched, _ := afero.ReadFile(e.game, "b.rtb")
	assert.Equal(t, original, untouched)

	backup, err := afero.ReadFile(e.backups, "files/a.rtb")
	require.NoError(t, err)
	assert.Equal(t, original, backup)
	exists, _ := afero.Exists(e.backups, "journal.toml")
	assert.True(t, exists)
}

func TestSaveAllParsed_EncodeFailureWritesNothing(t *testing.T) {
	e := newEnv(t)
	good := codec.NewRecordTable()
	good.SetEntries("entries", []table.Entry{&codec.Record{Key: "1"}})
	bad := table.NewSectioned()
	bad.SetEntries("entries", []table.Entry{&codec.Slot{Key: "x"}})

	e.cache.AddParsed("good.rtb", codec.RecordsKind(), good)
	e.cache.AddParsed("bad.rtb", codec.RecordsKind(), bad)

	err := e.cache.SaveAllParsed()
	require.Error(t, err)
	assert.False(t, e.cache.CommitStarted())
	exists, _ := afero.Exists(e.game, "good.rtb")
	assert.False(t, exists)
}

func TestRestoreBackups(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, afero.WriteFile(e.game, "data/existing.bin", []byte("old"), 0644))

	e.cache.AddRawFile("data/existing.bin", opener("new"), true)
	e.cache.AddRawFile("data/added.bin", opener("added"), true)
	require.NoError(t, e.cache.SaveAllRaw())

	got, _ := afero.ReadFile(e.game, "data/existing.bin")
	assert.Equal(t, "new", string(got))

	require.NoError(t, e.cache.RestoreBackups())

	got, _ = afero.ReadFile(e.game, "data/existing.bin")
	assert.Equal(t, "old", string(got))
	exists, _ := afero.Exists(e.game, "data/added.bin")
	assert.False(t, exists, "files created by the commit are deleted on restore")
	exists, _ = afero.Exists(e.backups, "journal.toml")
	assert.False(t, exists, "journal is discarded after restore")
}

func TestRestoreBackups_FailureIsRollbackError(t *testing.T) {
	mem := afero.NewMemMapFs()
	game := afero.NewBasePathFs(mem, "/game")
	backups := afero.NewBasePathFs(mem, "/backup")
	c := cache.New(game, nil, backups)

	require.NoError(t, afero.WriteFile(game, "x.bin", []byte("old"), 0644))
	c.AddRawFile("x.bin", opener("new"), true)
	require.NoError(t, c.SaveAllRaw())

	// Lose the backup copy behind the cache's back.
	require.NoError(t, backups.Remove("files/x.bin"))

	err := c.RestoreBackups()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrRollback))
	assert.Equal(t, errors.OutcomeInconsistent, errors.OutcomeOf(err))
}

func TestSaveAllRaw_NoOverwrite(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, afero.WriteFile(e.game, "keep.bin", []byte("mine"), 0644))

	e.cache.AddRawFile("keep.bin", opener("theirs"), false)
	require.NoError(t, e.cache.SaveAllRaw())

	got, _ := afero.ReadFile(e.game, "keep.bin")
	assert.Equal(t, "mine", string(got))
	assert.False(t, e.cache.CommitStarted())
}

func TestRemoveFileAndPurge(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, afero.WriteFile(e.game, "mods/a/b/file.bin", []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(e.game, "mods/keep.bin", []byte("y"), 0644))

	e.cache.RemoveFile("mods/a/b/file.bin")
	e.cache.RemoveFile("mods/never_existed.bin")
	require.NoError(t, e.cache.SaveAllRaw())
	e.cache.PurgeEmptyDirectories()

	exists, _ := afero.DirExists(e.game, "mods/a")
	assert.False(t, exists)
	exists, _ = afero.Exists(e.game, "mods/keep.bin")
	assert.True(t, exists)
}

func TestRecover(t *testing.T) {
	mem := afero.NewMemMapFs()
	game := afero.NewBasePathFs(mem, "/game")
	backups := afero.NewBasePathFs(mem, "/backup")
	require.NoError(t, afero.WriteFile(game, "t.bin", []byte("before"), 0644))

	crashed := cache.New(game, nil, backups)
	crashed.AddRawFile("t.bin", opener("half-written"), true)
	require.NoError(t, crashed.SaveAllRaw())
	// The process dies here: no restore, no discard.

	next := cache.New(game, nil, backups)
	recovered, err := next.Recover()
	require.NoError(t, err)
	assert.True(t, recovered)

	got, _ := afero.ReadFile(game, "t.bin")
	assert.Equal(t, "before", string(got))

	recovered, err = next.Recover()
	require.NoError(t, err)
	assert.False(t, recovered)
}
