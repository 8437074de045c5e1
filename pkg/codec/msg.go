package codec

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/arthur-debert/tablepatch/pkg/table"
)

const msgMagic = "MSG1"

// Message tables have a single collection of rows. It is addressed as
// MessagesSection for positional rows and as KeyedSection for rows whose
// id is a key, so the ledger can tell the two apart.
const (
	MessagesSection = "messages"
	KeyedSection    = "keyed"
)

func isMessageSection(section string) bool {
	return section == MessagesSection || section == KeyedSection
}

// Message is one row of a per-language message table.
type Message struct {
	ID    int32
	Name  string
	Lines []string
}

func (m *Message) Index() string { return strconv.Itoa(int(m.ID)) }

func (m *Message) blank() bool { return m.Name == "" && len(m.Lines) == 0 }

// Text returns the first line, or "" for a blank row.
func (m *Message) Text() string {
	if len(m.Lines) == 0 {
		return ""
	}
	return m.Lines[0]
}

// MessageTable is the decoded form of one language's message file.
type MessageTable struct {
	Rows []*Message
}

func (t *MessageTable) Sections() []string { return []string{MessagesSection} }

func (t *MessageTable) Entries(section string) ([]table.Entry, bool) {
	if !isMessageSection(section) {
		return nil, false
	}
	out := make([]table.Entry, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r
	}
	return out, true
}

func (t *MessageTable) SetEntries(section string, entries []table.Entry) {
	if !isMessageSection(section) {
		return
	}
	t.Rows = t.Rows[:0]
	for _, e := range entries {
		if m, ok := e.(*Message); ok {
			t.Rows = append(t.Rows, m)
		}
	}
}

// Len returns the row count.
func (t *MessageTable) Len() int { return len(t.Rows) }

// ByID returns the position of the row with id, or -1.
func (t *MessageTable) ByID(id int32) int {
	for i, r := range t.Rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// NextKey returns the next id in the keyed namespace: one past the
// largest id in use, and never below the row count.
func (t *MessageTable) NextKey() int32 {
	next := int32(len(t.Rows))
	for _, r := range t.Rows {
		if r.ID >= next {
			next = r.ID + 1
		}
	}
	return next
}

type msgCodec struct{}

// MessageKind returns the message table kind.
func MessageKind() *Kind {
	return &Kind{
		Name:       "msg",
		Extensions: []string{".msg"},
		Codec:      msgCodec{},
		Category:   msgCodec{},
	}
}

func (msgCodec) Decode(data []byte) (table.Table, error) {
	r := newReader(data)
	r.expectMagic(msgMagic)
	t := &MessageTable{}
	n := r.u32()
	for i := 0; i < n && r.err == nil; i++ {
		t.Rows = append(t.Rows, &Message{ID: r.i32(), Name: r.str(), Lines: r.strs()})
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return t, nil
}

func (msgCodec) Encode(t table.Table) ([]byte, error) {
	mt, ok := t.(*MessageTable)
	if !ok {
		return nil, fmt.Errorf("unexpected table type %T", t)
	}
	w := &writer{}
	w.magic(msgMagic)
	w.u32(len(mt.Rows))
	for _, m := range mt.Rows {
		w.i32(m.ID)
		w.str(m.Name)
		w.strs(m.Lines)
	}
	return w.bytes()
}

// UninstallByCategory reverts message rows. Rows with a reference
// counterpart are restored. Otherwise a keyed row is deleted, while a
// positional row is only removed when it is the last row and is blanked in
// place elsewhere, so later rows keep their ids.
func (msgCodec) UninstallByCategory(live, reference table.Table, section string, ids []string) error {
	mt, ok := live.(*MessageTable)
	if !ok {
		return fmt.Errorf("unexpected table type %T", live)
	}
	if !isMessageSection(section) {
		return fmt.Errorf("message tables have no section %s", section)
	}
	var ref *MessageTable
	if reference != nil {
		ref, _ = reference.(*MessageTable)
	}

	nums := make([]int, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			return fmt.Errorf("message id %q is not numeric", id)
		}
		nums = append(nums, n)
	}
	// Highest first so trailing rows truncate in cascade.
	sort.Sort(sort.Reverse(sort.IntSlice(nums)))

	for _, n := range nums {
		id := int32(n)
		pos := mt.ByID(id)
		if pos < 0 {
			continue
		}
		if ref != nil {
			if rp := ref.ByID(id); rp >= 0 {
				orig := *ref.Rows[rp]
				mt.Rows[pos] = &orig
				continue
			}
		}
		switch {
		case section == KeyedSection, pos == len(mt.Rows)-1:
			mt.Rows = append(mt.Rows[:pos], mt.Rows[pos+1:]...)
		case int(id) == pos:
			mt.Rows[pos] = &Message{ID: id}
		default:
			mt.Rows = append(mt.Rows[:pos], mt.Rows[pos+1:]...)
		}
	}

	// Rows blanked earlier become removable once nothing follows them.
	if section == MessagesSection {
		for n := len(mt.Rows); n > 0; n = len(mt.Rows) {
			last := mt.Rows[n-1]
			if !last.blank() || (ref != nil && ref.ByID(last.ID) >= 0) {
				break
			}
			mt.Rows = mt.Rows[:n-1]
		}
	}
	return nil
}
