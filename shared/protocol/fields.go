package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// errShortBuffer is returned (wrapped) when a decode reads past the end
// of the supplied byte slice.
var errShortBuffer = fmt.Errorf("protocol: short buffer")

// fieldReader walks a byte slice field by field, tracking position and
// latching the first short-read error so callers can chain reads
// without checking after every call.
type fieldReader struct {
	buf []byte
	pos int
	err error
}

func newFieldReader(buf []byte) *fieldReader {
	return &fieldReader{buf: buf}
}

func (r *fieldReader) need(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = errShortBuffer
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *fieldReader) u8() uint8 {
	b := r.need(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *fieldReader) boolean() bool {
	return r.u8() != 0
}

func (r *fieldReader) u16() uint16 {
	b := r.need(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *fieldReader) u32() uint32 {
	b := r.need(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *fieldReader) i32() int32 {
	return int32(r.u32())
}

func (r *fieldReader) f32() float32 {
	b := r.need(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *fieldReader) f64() float64 {
	b := r.need(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// fixedString reads n bytes and trims trailing NULs, per the type-tag
// encoding rule (UTF-8, NUL-padded, NULs trimmed on decode).
func (r *fieldReader) fixedString(n int) string {
	b := r.need(n)
	if b == nil {
		return ""
	}
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

// fieldWriter appends fields to a growing byte slice.
type fieldWriter struct {
	buf []byte
}

func (w *fieldWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *fieldWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *fieldWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *fieldWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *fieldWriter) i32(v int32) {
	w.u32(uint32(v))
}

func (w *fieldWriter) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *fieldWriter) f64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf = append(w.buf, b[:]...)
}

// fixedString writes s NUL-padded/truncated to exactly n bytes.
func (w *fieldWriter) fixedString(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	w.buf = append(w.buf, b...)
}
