package msgsync

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/config"
	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/logging"
	"github.com/arthur-debert/tablepatch/pkg/table"
)

// Mode selects how a message id is allocated.
type Mode string

const (
	// ModeIndex appends the row; its id is its position.
	ModeIndex Mode = "index"
	// ModeKeyed allocates the next key of the group's key namespace.
	ModeKeyed Mode = "keyed"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeIndex || m == ModeKeyed
}

// Section is the message table section rows of this mode are tracked in.
func (m Mode) Section() string {
	if m == ModeKeyed {
		return codec.KeyedSection
	}
	return codec.MessagesSection
}

// Text maps a language code to the message in that language.
type Text map[string]string

// Args carries the optional numeric argument used to derive the row name.
// When Number is nil the allocated id is used.
type Args struct {
	Number *int
}

// Tables gives access to parsed message tables.
type Tables interface {
	GetParsed(path string, kind *codec.Kind) (table.Table, error)
	Reference(path string, kind *codec.Kind) (table.Table, error)
	MarkDirty(path string)
}

// Tracker records which message ids were written to which table, under
// the section of the mode they were written in.
type Tracker interface {
	Track(path, section, id string)
	Untrack(path, section, id string)
}

// Synchronizer writes messages across the language tables of a group.
type Synchronizer struct {
	tables    Tables
	kind      *codec.Kind
	languages []string
	groups    map[string]config.MessageGroup
	tracker   Tracker
	reuse     map[reuseKey][]int32
	log       zerolog.Logger
}

type reuseKey struct {
	group string
	mode  Mode
}

// New creates a synchronizer for the configured languages and groups.
// tracker may be nil.
func New(tables Tables, kind *codec.Kind, languages []string, groups map[string]config.MessageGroup, tracker Tracker) *Synchronizer {
	return &Synchronizer{
		tables:    tables,
		kind:      kind,
		languages: languages,
		groups:    groups,
		tracker:   tracker,
		reuse:     make(map[reuseKey][]int32),
		log:       logging.GetLogger("msgsync"),
	}
}

type langTable struct {
	path  string
	table *codec.MessageTable
}

// WriteMessage allocates one logical message in group and writes it into
// every language table. It returns the shared id.
func (s *Synchronizer) WriteMessage(text Text, group string, mode Mode, args Args) (int32, error) {
	g, ok := s.groups[group]
	if !ok {
		return 0, errors.Newf(errors.ErrConfig, "cannot derive name: unknown message group %s", group).
			WithDetail("group", group)
	}
	if !mode.Valid() {
		return 0, errors.Newf(errors.ErrInvalidInput, "unknown message mode %q", mode)
	}

	tables, err := s.load(g)
	if err != nil {
		return 0, err
	}

	if err := s.ensureParity(group, tables); err != nil {
		return 0, err
	}

	lines, err := s.fill(text)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrInvalidInput, "message for group %s", group)
	}

	id, reused := s.take(group, mode, tables)
	if !reused {
		if mode == ModeIndex {
			id = int32(tables[0].table.Len())
		} else {
			for _, lt := range tables {
				if next := lt.table.NextKey(); next > id {
					id = next
				}
			}
		}
	}

	n := int(id)
	if args.Number != nil {
		n = *args.Number
	}
	name := fmt.Sprintf(g.Template, n)

	if mode == ModeKeyed {
		s.removeByName(tables, name, id)
	}

	for i, lt := range tables {
		row := &codec.Message{ID: id, Name: name, Lines: []string{lines[i]}}
		switch pos := lt.table.ByID(id); {
		case mode == ModeIndex && int(id) < lt.table.Len():
			lt.table.Rows[id] = row
		case mode == ModeKeyed && pos >= 0:
			lt.table.Rows[pos] = row
		default:
			lt.table.Rows = append(lt.table.Rows, row)
		}
		s.tables.MarkDirty(lt.path)
		if s.tracker != nil {
			s.tracker.Track(lt.path, mode.Section(), row.Index())
		}
	}

	s.log.Debug().
		Str("group", group).
		Str("mode", string(mode)).
		Int32("id", id).
		Bool("reused", reused).
		Str("name", name).
		Msg("Message written")
	return id, nil
}

func (s *Synchronizer) load(g config.MessageGroup) ([]langTable, error) {
	tables := make([]langTable, 0, len(s.languages))
	for _, lang := range s.languages {
		p := g.Path(lang)
		t, err := s.tables.GetParsed(p, s.kind)
		if err != nil {
			return nil, err
		}
		mt, ok := t.(*codec.MessageTable)
		if !ok {
			return nil, errors.Newf(errors.ErrDecode, "%s is not a message table", p).WithDetail("path", p)
		}
		tables = append(tables, langTable{path: p, table: mt})
	}
	return tables, nil
}

// ensureParity validates row counts, repairing once. A second mismatch is
// fatal.
func (s *Synchronizer) ensureParity(group string, tables []langTable) error {
	for attempt := 0; ; attempt++ {
		if parallel(tables) {
			return nil
		}
		if attempt > 0 {
			return errors.Newf(errors.ErrConsistency, "message tables of group %s are out of sync after repair", group).
				WithDetail("group", group)
		}
		s.log.Warn().Str("group", group).Msg("Message tables out of sync, repairing")
		s.repair(tables)
	}
}

func parallel(tables []langTable) bool {
	for _, lt := range tables[1:] {
		if lt.table.Len() != tables[0].table.Len() {
			return false
		}
	}
	return true
}

// repair pads every shorter table with copies of the longest table's
// trailing rows.
func (s *Synchronizer) repair(tables []langTable) {
	longest := tables[0]
	for _, lt := range tables[1:] {
		if lt.table.Len() > longest.table.Len() {
			longest = lt
		}
	}
	for _, lt := range tables {
		if lt.table.Len() == longest.table.Len() {
			continue
		}
		for _, row := range longest.table.Rows[lt.table.Len():] {
			cp := *row
			cp.Lines = append([]string(nil), row.Lines...)
			lt.table.Rows = append(lt.table.Rows, &cp)
		}
		s.tables.MarkDirty(lt.path)
		s.log.Debug().Str("path", lt.path).Str("from", longest.path).Msg("Padded message table")
	}
}

// fill returns one line per configured language, copying the first
// available language for missing ones.
func (s *Synchronizer) fill(text Text) ([]string, error) {
	first, found := "", false
	for _, lang := range s.languages {
		if v, ok := text[lang]; ok {
			first, found = v, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("no text in any configured language")
	}
	lines := make([]string, len(s.languages))
	for i, lang := range s.languages {
		if v, ok := text[lang]; ok {
			lines[i] = v
		} else {
			lines[i] = first
		}
	}
	return lines, nil
}

// removeByName drops orphaned rows left by a previous install of the same
// logical item, except the row with id keep. Only used in keyed mode,
// where position carries no meaning.
func (s *Synchronizer) removeByName(tables []langTable, name string, keep int32) {
	for _, lt := range tables {
		rows := lt.table.Rows[:0]
		removed := 0
		for _, row := range lt.table.Rows {
			if row.Name == name && row.ID != keep {
				removed++
				if s.tracker != nil {
					s.tracker.Untrack(lt.path, ModeKeyed.Section(), row.Index())
				}
				continue
			}
			rows = append(rows, row)
		}
		lt.table.Rows = rows
		if removed > 0 {
			s.tables.MarkDirty(lt.path)
			s.log.Debug().Str("path", lt.path).Str("name", name).Int("rows", removed).Msg("Removed orphaned message rows")
		}
	}
}

// Reuse hands ids written by a previous install back to the synchronizer.
// Writes to group in mode take them in order before allocating new ones,
// so reinstalling the same messages rewrites the same rows.
func (s *Synchronizer) Reuse(group string, mode Mode, ids []int32) {
	if len(ids) == 0 {
		return
	}
	k := reuseKey{group: group, mode: mode}
	s.reuse[k] = append(s.reuse[k], ids...)
}

// take pops the next reusable id, skipping ids no longer present in every
// table.
func (s *Synchronizer) take(group string, mode Mode, tables []langTable) (int32, bool) {
	k := reuseKey{group: group, mode: mode}
	for len(s.reuse[k]) > 0 {
		id := s.reuse[k][0]
		s.reuse[k] = s.reuse[k][1:]
		if present(tables, mode, id) {
			return id, true
		}
		s.log.Debug().Str("group", group).Int32("id", id).Msg("Previous message row is gone, allocating a new one")
	}
	return 0, false
}

func present(tables []langTable, mode Mode, id int32) bool {
	for _, lt := range tables {
		if mode == ModeIndex && int(id) >= lt.table.Len() {
			return false
		}
		if lt.table.ByID(id) < 0 {
			return false
		}
	}
	return true
}

// ReleaseUnused reverts the rows of every reusable id no write took, and
// untracks them.
func (s *Synchronizer) ReleaseUnused() error {
	for k, ids := range s.reuse {
		if len(ids) == 0 {
			continue
		}
		delete(s.reuse, k)
		g, ok := s.groups[k.group]
		if !ok || s.kind.Category == nil {
			continue
		}
		tables, err := s.load(g)
		if err != nil {
			return err
		}
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = strconv.Itoa(int(id))
		}
		for _, lt := range tables {
			ref, err := s.tables.Reference(lt.path, s.kind)
			if err != nil {
				return err
			}
			if err := s.kind.Category.UninstallByCategory(lt.table, ref, k.mode.Section(), keys); err != nil {
				return errors.Wrapf(err, errors.ErrConsistency, "cannot release messages in %s", lt.path).
					WithDetail("path", lt.path)
			}
			s.tables.MarkDirty(lt.path)
			if s.tracker != nil {
				for _, key := range keys {
					s.tracker.Untrack(lt.path, k.mode.Section(), key)
				}
			}
		}
		s.log.Debug().Str("group", k.group).Str("mode", string(k.mode)).Strs("ids", keys).Msg("Released unused message rows")
	}
	return nil
}
