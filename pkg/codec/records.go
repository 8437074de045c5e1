package codec

import (
	"fmt"

	"github.com/arthur-debert/tablepatch/pkg/table"
)

const recordsMagic = "RTB1"

// Record is a flat keyed record. Refs holds keys of other records the
// payload points at, so the resolver can follow a renumbered key.
type Record struct {
	Key  string
	Refs []string
	Data []byte
}

func (r *Record) Index() string { return r.Key }
func (r *Record) SetIndex(index string) { r.Key = index }
func (r *Record) References() []string { return r.Refs }

func (r *Record) RewriteReferences(mapping map[string]string) {
	for i, ref := range r.Refs {
		if to, ok := mapping[ref]; ok {
			r.Refs[i] = to
		}
	}
}

// RecordTable is the decoded form of a records table.
type RecordTable struct {
	*table.Sectioned
}

// NewRecordTable creates an empty records table.
func NewRecordTable() *RecordTable {
	return &RecordTable{Sectioned: table.NewSectioned()}
}

type recordsCodec struct{}

// RecordsKind returns the flat records kind.
func RecordsKind() *Kind {
	return &Kind{
		Name:       "records",
		Extensions: []string{".rtb"},
		Codec:      recordsCodec{},
	}
}

func (recordsCodec) Decode(data []byte) (table.Table, error) {
	r := newReader(data)
	r.expectMagic(recordsMagic)
	t := NewRecordTable()
	sections := r.u16()
	for s := 0; s < sections && r.err == nil; s++ {
		name := r.str()
		n := r.u32()
		var entries []table.Entry
		for i := 0; i < n && r.err == nil; i++ {
			entries = append(entries, readRecord(r))
		}
		t.SetEntries(name, entries)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return t, nil
}

func (recordsCodec) Encode(t table.Table) ([]byte, error) {
	w := &writer{}
	w.magic(recordsMagic)
	sections := t.Sections()
	w.u16(len(sections))
	for _, name := range sections {
		entries, _ := t.Entries(name)
		w.str(name)
		w.u32(len(entries))
		for _, e := range entries {
			rec, ok := e.(*Record)
			if !ok {
				return nil, fmt.Errorf("section %q: unexpected entry type %T", name, e)
			}
			writeRecord(w, rec)
		}
	}
	return w.bytes()
}

func readRecord(r *reader) *Record {
	return &Record{Key: r.str(), Refs: r.strs(), Data: r.blob()}
}

func writeRecord(w *writer, rec *Record) {
	w.str(rec.Key)
	w.strs(rec.Refs)
	w.blob(rec.Data)
}
