package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// writer accumulates little-endian fields, remembering the first value
// that does not fit its field.
type writer struct {
	buf bytes.Buffer
	err error
}

func (w *writer) write(v interface{}) {
	if w.err != nil {
		return
	}
	if err := binary.Write(&w.buf, binary.LittleEndian, v); err != nil {
		w.err = err
	}
}

func (w *writer) u16(v int) {
	if v < 0 || v > math.MaxUint16 {
		w.fail("%d does not fit a 16-bit field at offset %d", v, w.buf.Len())
		return
	}
	w.write(uint16(v))
}

func (w *writer) u32(v int) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		w.fail("%d does not fit a 32-bit field at offset %d", v, w.buf.Len())
		return
	}
	w.write(uint32(v))
}

func (w *writer) i32(v int32) { w.write(v) }
func (w *writer) magic(m string) { w.buf.WriteString(m) }

func (w *writer) fail(format string, args ...interface{}) {
	if w.err == nil {
		w.err = fmt.Errorf(format, args...)
	}
}

func (w *writer) str(s string) {
	w.u16(len(s))
	if w.err == nil {
		w.buf.WriteString(s)
	}
}

func (w *writer) blob(b []byte) {
	w.u32(len(b))
	if w.err == nil {
		w.buf.Write(b)
	}
}

func (w *writer) strs(ss []string) {
	w.u16(len(ss))
	for _, s := range ss {
		w.str(s)
	}
}

func (w *writer) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// reader consumes little-endian fields, remembering the first error.
type reader struct {
	r   *bytes.Reader
	err error
}

func newReader(b []byte) *reader { return &reader{r: bytes.NewReader(b)} }

func (r *reader) read(v interface{}) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		r.err = fmt.Errorf("truncated table at offset %d: %w", r.offset(), err)
	}
}

func (r *reader) offset() int64 { return r.r.Size() - int64(r.r.Len()) }

func (r *reader) u16() int {
	var v uint16
	r.read(&v)
	return int(v)
}

func (r *reader) u32() int {
	var v uint32
	r.read(&v)
	return int(v)
}

func (r *reader) i32() int32 {
	var v int32
	r.read(&v)
	return v
}

func (r *reader) raw(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > r.r.Len() {
		r.err = fmt.Errorf("truncated table at offset %d: need %d bytes, have %d", r.offset(), n, r.r.Len())
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = err
		return nil
	}
	return b
}

func (r *reader) str() string { return string(r.raw(r.u16())) }

func (r *reader) blob() []byte { return r.raw(r.u32()) }

func (r *reader) strs() []string {
	n := r.u16()
	if r.err != nil || n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.str())
	}
	return out
}

func (r *reader) expectMagic(m string) {
	got := r.raw(len(m))
	if r.err == nil && string(got) != m {
		r.err = fmt.Errorf("bad magic %q, want %q", got, m)
	}
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes after table", r.r.Len())
	}
	return nil
}
