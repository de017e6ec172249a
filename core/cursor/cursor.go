// Package cursor provides position-tracked binary reading and writing over
// an in-memory byte buffer.
//
// All multi-byte values are little-endian, matching the byte order of the
// target engine revision. The cursor is the only place in the codebase that
// touches raw bytes; every higher-level codec goes through it.
//
// An optional instrumentation hook can be attached to observe every
// primitive operation as (offset, length, label). External byte-trace
// tooling needs nothing beyond this hook.
package cursor

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// MaxStringSize is the largest serialized string the cursor will accept,
// in bytes. Anything larger indicates a corrupt length prefix.
const MaxStringSize = 16 * 1024 * 1024

// Hook observes a single primitive operation. It receives the offset at
// which the operation started, the number of bytes consumed or produced,
// and the semantic label supplied by the caller.
type Hook func(offset, length int, label string)

// EOFError is returned when a read would run past the end of the buffer.
type EOFError struct {
	// Offset is the position at which the read was attempted.
	Offset int

	// Want is the number of bytes the read required.
	Want int

	// Remaining is the number of bytes that were actually left.
	Remaining int
}

func (e *EOFError) Error() string {
	return fmt.Sprintf("unexpected end of stream at offset %d: need %d bytes, %d remain",
		e.Offset, e.Want, e.Remaining)
}

// Cursor is a sequential reader/writer over a byte buffer.
//
// A cursor created with New reads from the given buffer; a cursor created
// with NewWriter appends to an internal buffer retrievable via Bytes.
// The zero value is a writer positioned at offset 0.
type Cursor struct {
	buf  []byte
	pos  int
	hook Hook
}

// New returns a cursor reading from buf, positioned at offset 0.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// NewWriter returns an empty cursor for encoding.
func NewWriter() *Cursor {
	return &Cursor{}
}

// SetHook installs the instrumentation hook. A nil hook disables
// instrumentation entirely.
func (c *Cursor) SetHook(h Hook) {
	c.hook = h
}

// Offset returns the current position in the buffer.
func (c *Cursor) Offset() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// Bytes returns the underlying buffer. For writers this is the encoded
// output accumulated so far.
func (c *Cursor) Bytes() []byte {
	return c.buf
}

func (c *Cursor) emit(offset, length int, label string) {
	if c.hook != nil {
		c.hook(offset, length, label)
	}
}

func (c *Cursor) take(n int, label string) ([]byte, error) {
	if c.pos+n > len(c.buf) {
		return nil, &EOFError{Offset: c.pos, Want: n, Remaining: len(c.buf) - c.pos}
	}
	b := c.buf[c.pos : c.pos+n]
	c.emit(c.pos, n, label)
	c.pos += n
	return b, nil
}

// ReadU8 reads one unsigned byte.
func (c *Cursor) ReadU8(label string) (uint8, error) {
	b, err := c.take(1, label)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a little-endian uint16.
func (c *Cursor) ReadU16(label string) (uint16, error) {
	b, err := c.take(2, label)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32.
func (c *Cursor) ReadU32(label string) (uint32, error) {
	b, err := c.take(4, label)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64.
func (c *Cursor) ReadU64(label string) (uint64, error) {
	b, err := c.take(8, label)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadI32 reads a little-endian int32.
func (c *Cursor) ReadI32(label string) (int32, error) {
	v, err := c.ReadU32(label)
	return int32(v), err
}

// ReadI64 reads a little-endian int64.
func (c *Cursor) ReadI64(label string) (int64, error) {
	v, err := c.ReadU64(label)
	return int64(v), err
}

// ReadF32 reads a little-endian float32.
func (c *Cursor) ReadF32(label string) (float32, error) {
	v, err := c.ReadU32(label)
	return math.Float32frombits(v), err
}

// ReadF64 reads a little-endian float64.
func (c *Cursor) ReadF64(label string) (float64, error) {
	v, err := c.ReadU64(label)
	return math.Float64frombits(v), err
}

// ReadBytes reads exactly n raw bytes. The returned slice aliases the
// underlying buffer and must not be mutated.
func (c *Cursor) ReadBytes(n int, label string) ([]byte, error) {
	return c.take(n, label)
}

func (c *Cursor) put(b []byte, label string) {
	c.emit(c.pos, len(b), label)
	c.buf = append(c.buf, b...)
	c.pos += len(b)
}

// WriteU8 writes one unsigned byte.
func (c *Cursor) WriteU8(v uint8, label string) {
	c.put([]byte{v}, label)
}

// WriteU16 writes a little-endian uint16.
func (c *Cursor) WriteU16(v uint16, label string) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	c.put(b[:], label)
}

// WriteU32 writes a little-endian uint32.
func (c *Cursor) WriteU32(v uint32, label string) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	c.put(b[:], label)
}

// WriteU64 writes a little-endian uint64.
func (c *Cursor) WriteU64(v uint64, label string) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	c.put(b[:], label)
}

// WriteI32 writes a little-endian int32.
func (c *Cursor) WriteI32(v int32, label string) {
	c.WriteU32(uint32(v), label)
}

// WriteI64 writes a little-endian int64.
func (c *Cursor) WriteI64(v int64, label string) {
	c.WriteU64(uint64(v), label)
}

// WriteF32 writes a little-endian float32.
func (c *Cursor) WriteF32(v float32, label string) {
	c.WriteU32(math.Float32bits(v), label)
}

// WriteF64 writes a little-endian float64.
func (c *Cursor) WriteF64(v float64, label string) {
	c.WriteU64(math.Float64bits(v), label)
}

// WriteBytes writes raw bytes as-is.
func (c *Cursor) WriteBytes(b []byte, label string) {
	c.put(b, label)
}

// ReadString reads an engine-serialized string: an int32 element count
// followed by the character data including its NUL terminator. A positive
// count means ANSI bytes; a negative count means UTF-16 code units. A zero
// count is the empty string.
func (c *Cursor) ReadString(label string) (string, error) {
	n, err := c.ReadI32(label + ".len")
	if err != nil {
		return "", err
	}
	switch {
	case n == 0:
		return "", nil
	case n == math.MinInt32:
		return "", fmt.Errorf("corrupt string length %#x at offset %d", n, c.pos-4)
	case n > 0:
		if n > MaxStringSize {
			return "", fmt.Errorf("string too large at offset %d: %d bytes", c.pos-4, n)
		}
		b, err := c.take(int(n), label)
		if err != nil {
			return "", err
		}
		if b[n-1] != 0 {
			return "", fmt.Errorf("string at offset %d is not NUL-terminated", c.pos-int(n))
		}
		return string(b[:n-1]), nil
	default:
		units := int(-int64(n))
		if units*2 > MaxStringSize {
			return "", fmt.Errorf("string too large at offset %d: %d code units", c.pos-4, units)
		}
		b, err := c.take(units*2, label)
		if err != nil {
			return "", err
		}
		u := make([]uint16, units)
		for i := range u {
			u[i] = binary.LittleEndian.Uint16(b[i*2:])
		}
		if u[units-1] != 0 {
			return "", fmt.Errorf("wide string at offset %d is not NUL-terminated", c.pos-units*2)
		}
		return string(utf16.Decode(u[:units-1])), nil
	}
}

// WriteString writes an engine-serialized string. Pure seven-bit strings
// are written as ANSI, everything else as UTF-16, matching the encoding
// rule the engine applies on save so that unmodified data round-trips
// byte-for-byte.
func (c *Cursor) WriteString(s string, label string) {
	if s == "" {
		c.WriteI32(0, label+".len")
		return
	}
	if isPureANSI(s) {
		c.WriteI32(int32(len(s)+1), label+".len")
		c.put(append([]byte(s), 0), label)
		return
	}
	u := utf16.Encode([]rune(s))
	u = append(u, 0)
	c.WriteI32(int32(-len(u)), label+".len")
	b := make([]byte, len(u)*2)
	for i, v := range u {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	c.put(b, label)
}

func isPureANSI(s string) bool {
	for _, r := range s {
		if r >= 0x80 {
			return false
		}
	}
	return true
}
