package gvm

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"
)

func float32FromBits(bits uint32) float32 { return math.Float32frombits(bits) }
func float32Bits(v float32) uint32        { return math.Float32bits(v) }

// reader wraps an io.Reader with the big-endian fixed-width and
// length-prefixed-string primitives module files are built from.
type reader struct {
	r io.Reader
}

func newReader(r io.Reader) *reader { return &reader{r: r} }

func (r *reader) u8() (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, wrapIO(err, "read u8")
	}
	return buf[0], nil
}

func (r *reader) u16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, wrapIO(err, "read u16")
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (r *reader) u32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, wrapIO(err, "read u32")
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (r *reader) f32() (float32, error) {
	bits, err := r.u32()
	if err != nil {
		return 0, err
	}
	return float32FromBits(bits), nil
}

// str reads a u16 byte count followed by that many UTF-8 bytes, rejecting
// non-UTF-8 with MalformedModule.
func (r *reader) str() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", wrapIO(err, "read string body")
	}
	if !utf8.Valid(buf) {
		return "", newErr(MalformedModule, "string is not valid utf-8")
	}
	return string(buf), nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, wrapIO(err, "read bytes")
	}
	return buf, nil
}

// writer is the encode-side counterpart, used by the assembler-builder test
// helpers to produce module files in the exact layout reader expects.
type writer struct {
	w io.Writer
}

func newWriter(w io.Writer) *writer { return &writer{w: w} }

func (w *writer) u8(v uint8) error {
	if _, err := w.w.Write([]byte{v}); err != nil {
		return wrapIO(err, "write u8")
	}
	return nil
}

func (w *writer) u16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	if _, err := w.w.Write(buf[:]); err != nil {
		return wrapIO(err, "write u16")
	}
	return nil
}

func (w *writer) u32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	if _, err := w.w.Write(buf[:]); err != nil {
		return wrapIO(err, "write u32")
	}
	return nil
}

func (w *writer) f32(v float32) error {
	return w.u32(float32Bits(v))
}

func (w *writer) str(s string) error {
	if err := w.u16(uint16(len(s))); err != nil {
		return err
	}
	if _, err := w.w.Write([]byte(s)); err != nil {
		return wrapIO(err, "write string body")
	}
	return nil
}

func (w *writer) bytes(b []byte) error {
	if _, err := w.w.Write(b); err != nil {
		return wrapIO(err, "write bytes")
	}
	return nil
}

// Magic is the 4-byte ASCII "uvas" module-file magic number.
const Magic uint32 = 0x75766173
