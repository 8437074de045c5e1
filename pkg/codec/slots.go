package codec

import (
	"fmt"

	"github.com/arthur-debert/tablepatch/pkg/table"
)

const slotsMagic = "SLT1"

// SlotsSection is the only section of a slot table.
const SlotsSection = "slots"

// Slot is one position of a fixed slot table. A slot with no data is free.
type Slot struct {
	Key  string
	Data []byte
}

func (s *Slot) Index() string { return s.Key }

// Free reports whether the slot holds nothing.
func (s *Slot) Free() bool { return len(s.Data) == 0 }

type slotsCodec struct{}

// SlotsKind returns the slot table kind. Slots are never deleted on
// uninstall, they are freed.
func SlotsKind() *Kind {
	return &Kind{
		Name:       "slots",
		Extensions: []string{".slt"},
		Codec:      slotsCodec{},
		Category:   slotsCodec{},
	}
}

func (slotsCodec) Decode(data []byte) (table.Table, error) {
	r := newReader(data)
	r.expectMagic(slotsMagic)
	n := r.u32()
	var slots []table.Entry
	for i := 0; i < n && r.err == nil; i++ {
		slots = append(slots, &Slot{Key: r.str(), Data: r.blob()})
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	t := table.NewSectioned()
	t.SetEntries(SlotsSection, slots)
	return t, nil
}

func (slotsCodec) Encode(t table.Table) ([]byte, error) {
	entries, _ := t.Entries(SlotsSection)
	w := &writer{}
	w.magic(slotsMagic)
	w.u32(len(entries))
	for _, e := range entries {
		s, ok := e.(*Slot)
		if !ok {
			return nil, fmt.Errorf("unexpected slot type %T", e)
		}
		w.str(s.Key)
		w.blob(s.Data)
	}
	return w.bytes()
}

// UninstallByCategory frees the slots in ids, or restores them from the
// reference table when it has them.
func (slotsCodec) UninstallByCategory(live, reference table.Table, section string, ids []string) error {
	entries, ok := live.Entries(section)
	if !ok {
		return nil
	}
	var refEntries []table.Entry
	if reference != nil {
		refEntries, _ = reference.Entries(section)
	}
	for _, id := range ids {
		pos := table.Find(entries, id)
		if pos < 0 {
			continue
		}
		if rp := table.Find(refEntries, id); rp >= 0 {
			orig := *refEntries[rp].(*Slot)
			entries[pos] = &orig
			continue
		}
		entries[pos] = &Slot{Key: id}
	}
	live.SetEntries(section, entries)
	return nil
}
