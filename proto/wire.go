// Package proto implements the tagged binary message schema carried inside
// each frame payload: Packet, Request, Response, and the NVS/AppFS/FS value
// types.
//
// The wire schema is a flat sequence of tag-length-value fields, terminated
// by a zero tag. Unknown fields are ignored, not rejected, because an
// unrecognised tag is simply skipped by its length; "field absent" vs "field
// present with zero value" are distinguished because absence just means the
// tag never appears.
package proto

import (
	"encoding/binary"

	"github.com/juju/errors"
)

// tlvWriter accumulates tag-length-value fields into a byte buffer.
type tlvWriter struct {
	buf []byte
}

func (w *tlvWriter) field(tag byte, value []byte) {
	w.buf = append(w.buf, tag)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(value)))
	w.buf = append(w.buf, lenBuf[:]...)
	w.buf = append(w.buf, value...)
}

func (w *tlvWriter) bytes() []byte {
	return append(w.buf, 0x00)
}

// tlvField is one decoded tag/value pair.
type tlvField struct {
	tag   byte
	value []byte
}

// readTLV parses buf as a sequence of tag-length-value fields terminated by a
// zero tag, returning every field found. Unknown tags are returned like any
// other; it's the caller's job to ignore the ones it doesn't recognise,
// which is what gives the schema its forward-compatibility.
func readTLV(buf []byte) ([]tlvField, error) {
	var fields []tlvField
	for len(buf) > 0 {
		tag := buf[0]
		buf = buf[1:]
		if tag == 0x00 {
			return fields, nil
		}
		if len(buf) < 4 {
			return nil, errors.New("truncated field length")
		}
		n := binary.LittleEndian.Uint32(buf[:4])
		buf = buf[4:]
		if uint32(len(buf)) < n {
			return nil, errors.New("truncated field value")
		}
		fields = append(fields, tlvField{tag: tag, value: buf[:n]})
		buf = buf[n:]
	}
	return nil, errors.New("missing end-of-fields marker")
}

// --- primitive helpers shared by the domain codecs ---

func putUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func putUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putInt64(buf []byte, v int64) []byte {
	return putUint64(buf, uint64(v))
}

// putShortString appends a length-prefixed (1-byte length) string. Callers
// must keep s under 256 bytes themselves; this just truncates the length
// prefix mod 256 rather than catching an oversized string, since by the time
// a value reaches the wire codec it's too late to reject it cleanly.
func putShortString(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

// putString appends a length-prefixed (2-byte length) string.
func putString(buf []byte, s string) []byte {
	buf = putUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func putBlob(buf []byte, b []byte) []byte {
	buf = putUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

// reader walks a byte slice consuming primitives front-to-back.
type reader struct {
	buf []byte
	err error
}

func newReader(buf []byte) *reader { return &reader{buf: buf} }

func (r *reader) fail(msg string) {
	if r.err == nil {
		r.err = errors.New(msg)
	}
}

func (r *reader) need(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.fail("truncated message")
		return nil
	}
	v := r.buf[:n]
	r.buf = r.buf[n:]
	return v
}

func (r *reader) byte() byte {
	v := r.need(1)
	if v == nil {
		return 0
	}
	return v[0]
}

func (r *reader) uint16() uint16 {
	v := r.need(2)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(v)
}

func (r *reader) uint32() uint32 {
	v := r.need(4)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(v)
}

func (r *reader) uint64() uint64 {
	v := r.need(8)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(v)
}

func (r *reader) int64() int64 {
	return int64(r.uint64())
}

func (r *reader) shortString() string {
	n := int(r.byte())
	v := r.need(n)
	return string(v)
}

func (r *reader) string() string {
	n := int(r.uint16())
	v := r.need(n)
	return string(v)
}

func (r *reader) blob() []byte {
	n := int(r.uint32())
	v := r.need(n)
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if len(r.buf) != 0 {
		return errors.Errorf("%d trailing bytes in message", len(r.buf))
	}
	return nil
}
