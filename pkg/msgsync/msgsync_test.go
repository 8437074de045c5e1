package msgsync_test

import (
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/tablepatch/pkg/cache"
	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/config"
	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/msgsync"
)

var languages = []string{"en", "fr", "de"}

var groups = map[string]config.MessageGroup{
	"accessory_name": {Base: "msg/accessory_name_", Template: "accessory_%03d"},
	"accessory_info": {Base: "msg/accessory_info_", Template: "accessory_eff_%03d"},
}

type tracked map[string][]string

func (t tracked) Track(path, _, id string) { t[path] = append(t[path], id) }

func (t tracked) Untrack(path, _, id string) {
	ids := t[path][:0]
	for _, v := range t[path] {
		if v != id {
			ids = append(ids, v)
		}
	}
	t[path] = ids
}

func rows(names ...string) *codec.MessageTable {
	mt := &codec.MessageTable{}
	for i, n := range names {
		mt.Rows = append(mt.Rows, &codec.Message{ID: int32(i), Name: n, Lines: []string{n}})
	}
	return mt
}

func writeTable(t *testing.T, fs afero.Fs, path string, mt *codec.MessageTable) {
	t.Helper()
	data, err := codec.MessageKind().Encode(path, mt)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func setup(t *testing.T, sizes map[string]int) (*cache.Cache, tracked, *msgsync.Synchronizer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, g := range groups {
		for _, lang := range languages {
			n := 2
			if v, ok := sizes[lang]; ok {
				n = v
			}
			names := make([]string, n)
			for i := range names {
				names[i] = lang
			}
			writeTable(t, fs, g.Path(lang), rows(names...))
		}
	}
	c := cache.New(fs, nil, afero.NewMemMapFs())
	tr := tracked{}
	return c, tr, msgsync.New(c, codec.MessageKind(), languages, groups, tr)
}

func table(t *testing.T, c *cache.Cache, group, lang string) *codec.MessageTable {
	t.Helper()
	tb, err := c.GetParsed(groups[group].Path(lang), codec.MessageKind())
	require.NoError(t, err)
	return tb.(*codec.MessageTable)
}

func TestWriteMessage_IndexModeKeepsParity(t *testing.T) {
	c, tr, s := setup(t, nil)

	id, err := s.WriteMessage(msgsync.Text{"en": "Hat", "fr": "Chapeau", "de": "Hut"}, "accessory_name", msgsync.ModeIndex, msgsync.Args{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), id)

	want := map[string]string{"en": "Hat", "fr": "Chapeau", "de": "Hut"}
	for _, lang := range languages {
		mt := table(t, c, "accessory_name", lang)
		require.Equal(t, 3, mt.Len())
		assert.Equal(t, want[lang], mt.Rows[2].Text())
		assert.Equal(t, "accessory_002", mt.Rows[2].Name)
		assert.Equal(t, []string{"2"}, tr[groups["accessory_name"].Path(lang)])
	}
	assert.Len(t, c.Dirty(), 3)
}

func TestWriteMessage_FillsMissingLanguages(t *testing.T) {
	c, _, s := setup(t, nil)

	_, err := s.WriteMessage(msgsync.Text{"fr": "Chapeau"}, "accessory_name", msgsync.ModeIndex, msgsync.Args{})
	require.NoError(t, err)
	for _, lang := range languages {
		assert.Equal(t, "Chapeau", table(t, c, "accessory_name", lang).Rows[2].Text(), lang)
	}
}

func TestWriteMessage_RepairsMismatchedTables(t *testing.T) {
	c, _, s := setup(t, map[string]int{"en": 4, "fr": 2, "de": 3})

	id, err := s.WriteMessage(msgsync.Text{"en": "Hat"}, "accessory_name", msgsync.ModeIndex, msgsync.Args{})
	require.NoError(t, err)
	assert.Equal(t, int32(4), id)

	for _, lang := range languages {
		mt := table(t, c, "accessory_name", lang)
		assert.Equal(t, 5, mt.Len(), lang)
	}
	// Padding copies the rows of the longest table.
	assert.Equal(t, "en", table(t, c, "accessory_name", "fr").Rows[3].Text())
}

func TestWriteMessage_KeyedModeRemovesOrphans(t *testing.T) {
	c, tr, s := setup(t, nil)
	n := 7

	first, err := s.WriteMessage(msgsync.Text{"en": "old"}, "accessory_info", msgsync.ModeKeyed, msgsync.Args{Number: &n})
	require.NoError(t, err)
	second, err := s.WriteMessage(msgsync.Text{"en": "new"}, "accessory_info", msgsync.ModeKeyed, msgsync.Args{Number: &n})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	for _, lang := range languages {
		mt := table(t, c, "accessory_info", lang)
		assert.Equal(t, 3, mt.Len())
		assert.Equal(t, -1, mt.ByID(first))
		pos := mt.ByID(second)
		require.GreaterOrEqual(t, pos, 0)
		assert.Equal(t, "accessory_eff_007", mt.Rows[pos].Name)
		assert.Equal(t, "new", mt.Rows[pos].Text())
		assert.Equal(t, []string{"3"}, tr[groups["accessory_info"].Path(lang)])
	}
}

func TestWriteMessage_Errors(t *testing.T) {
	tests := []struct {
		name  string
		text  msgsync.Text
		group string
		mode  msgsync.Mode
		code  errors.ErrorCode
	}{
		{"unknown group", msgsync.Text{"en": "x"}, "nope", msgsync.ModeIndex, errors.ErrConfig},
		{"unknown mode", msgsync.Text{"en": "x"}, "accessory_name", "sideways", errors.ErrInvalidInput},
		{"no text", msgsync.Text{"xx": "x"}, "accessory_name", msgsync.ModeIndex, errors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, s := setup(t, nil)
			_, err := s.WriteMessage(tt.text, tt.group, tt.mode, msgsync.Args{})
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.code), "got %v", err)
		})
	}
}

func TestWriteMessage_MissingTable(t *testing.T) {
	c := cache.New(afero.NewMemMapFs(), nil, afero.NewMemMapFs())
	s := msgsync.New(c, codec.MessageKind(), languages, groups, nil)
	_, err := s.WriteMessage(msgsync.Text{"en": "x"}, "accessory_name", msgsync.ModeIndex, msgsync.Args{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestWriteRecords_DependentsAfterPrimaries(t *testing.T) {
	c, _, s := setup(t, nil)

	records := []msgsync.Record{
		{ID: "hat", Components: []msgsync.Component{
			{Name: "info", Group: "accessory_info", Mode: msgsync.ModeKeyed, Text: msgsync.Text{"en": "Hat info"}, DependsOn: "name"},
			{Name: "name", Group: "accessory_name", Mode: msgsync.ModeIndex, Text: msgsync.Text{"en": "Hat"}},
		}},
		{ID: "scarf", Components: []msgsync.Component{
			{Name: "name", Group: "accessory_name", Mode: msgsync.ModeIndex, Text: msgsync.Text{"en": "Scarf"}},
		}},
	}
	res, err := s.WriteRecords(records)
	require.NoError(t, err)

	hat, _ := res.ID("hat", "name")
	scarf, _ := res.ID("scarf", "name")
	assert.Equal(t, int32(2), hat)
	assert.Equal(t, int32(3), scarf)

	info, ok := res.ID("hat", "info")
	require.True(t, ok)
	mt := table(t, c, "accessory_info", "en")
	pos := mt.ByID(info)
	require.GreaterOrEqual(t, pos, 0)
	assert.Equal(t, "accessory_eff_002", mt.Rows[pos].Name)
}

func TestWriteRecords_MissingDependency(t *testing.T) {
	_, _, s := setup(t, nil)
	_, err := s.WriteRecords([]msgsync.Record{{ID: "hat", Components: []msgsync.Component{
		{Name: "info", Group: "accessory_info", Mode: msgsync.ModeKeyed, Text: msgsync.Text{"en": "x"}, DependsOn: "name"},
	}}})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "depends on name")
}

type sectionRecorder map[string]string

func (r sectionRecorder) Track(path, section, _ string) { r[path] = section }
func (r sectionRecorder) Untrack(path, _, _ string)     { delete(r, path) }

func TestWriteMessage_TracksModeSection(t *testing.T) {
	c, _, _ := setup(t, nil)
	rec := sectionRecorder{}
	s := msgsync.New(c, codec.MessageKind(), languages, groups, rec)

	_, err := s.WriteMessage(msgsync.Text{"en": "Hat"}, "accessory_name", msgsync.ModeIndex, msgsync.Args{})
	require.NoError(t, err)
	_, err = s.WriteMessage(msgsync.Text{"en": "Hat info"}, "accessory_info", msgsync.ModeKeyed, msgsync.Args{})
	require.NoError(t, err)

	for _, lang := range languages {
		assert.Equal(t, codec.MessagesSection, rec[groups["accessory_name"].Path(lang)])
		assert.Equal(t, codec.KeyedSection, rec[groups["accessory_info"].Path(lang)])
	}
}

func TestReuse_RewritesRowsInPlace(t *testing.T) {
	tests := []struct {
		name  string
		group string
		mode  msgsync.Mode
	}{
		{"index", "accessory_name", msgsync.ModeIndex},
		{"keyed", "accessory_info", msgsync.ModeKeyed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, first := setup(t, nil)
			mine, err := first.WriteMessage(msgsync.Text{"en": "mine"}, tt.group, tt.mode, msgsync.Args{})
			require.NoError(t, err)
			// Another mod's row comes after it.
			_, err = first.WriteMessage(msgsync.Text{"en": "theirs"}, tt.group, tt.mode, msgsync.Args{})
			require.NoError(t, err)

			tr := tracked{}
			again := msgsync.New(c, codec.MessageKind(), languages, groups, tr)
			again.Reuse(tt.group, tt.mode, []int32{mine})
			id, err := again.WriteMessage(msgsync.Text{"en": "mine v2"}, tt.group, tt.mode, msgsync.Args{})
			require.NoError(t, err)
			require.NoError(t, again.ReleaseUnused())

			assert.Equal(t, mine, id)
			mt := table(t, c, tt.group, "en")
			require.Equal(t, 4, mt.Len(), "no row is added")
			assert.Equal(t, "mine v2", mt.Rows[2].Text())
			assert.Equal(t, "theirs", mt.Rows[3].Text())
			assert.Equal(t, []string{strconv.Itoa(int(mine))}, tr[groups[tt.group].Path("en")])
		})
	}
}

func TestReleaseUnused(t *testing.T) {
	c, _, first := setup(t, nil)
	name, err := first.WriteMessage(msgsync.Text{"en": "gone"}, "accessory_name", msgsync.ModeIndex, msgsync.Args{})
	require.NoError(t, err)
	_, err = first.WriteMessage(msgsync.Text{"en": "theirs"}, "accessory_name", msgsync.ModeIndex, msgsync.Args{})
	require.NoError(t, err)
	info, err := first.WriteMessage(msgsync.Text{"en": "gone"}, "accessory_info", msgsync.ModeKeyed, msgsync.Args{})
	require.NoError(t, err)

	tr := tracked{}
	for _, lang := range languages {
		tr[groups["accessory_name"].Path(lang)] = []string{"2"}
	}
	again := msgsync.New(c, codec.MessageKind(), languages, groups, tr)
	again.Reuse("accessory_name", msgsync.ModeIndex, []int32{name})
	again.Reuse("accessory_info", msgsync.ModeKeyed, []int32{info})
	require.NoError(t, again.ReleaseUnused())

	for _, lang := range languages {
		names := table(t, c, "accessory_name", lang)
		require.Equal(t, 4, names.Len(), lang)
		assert.Equal(t, "", names.Rows[2].Text(), "row before another mod's row is blanked")
		assert.Equal(t, int32(2), names.Rows[2].ID)

		infos := table(t, c, "accessory_info", lang)
		assert.Equal(t, 2, infos.Len(), "keyed row is deleted")
		assert.Empty(t, tr[groups["accessory_name"].Path(lang)])
	}
}
