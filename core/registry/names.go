package registry

import "github.com/uetools/regcache/core/cursor"

// StringPool is the table of pooled strings (the engine's interned-name
// mechanism). Every other section references strings only by index into
// this pool. The index space is dense, zero-based and stable within one
// file; the pool is populated incrementally and never shrunk.
//
// Interning on the write path never creates a duplicate slot. The decode
// path stores slots exactly as encoded, so a source file that physically
// repeats a string keeps its index space and re-encodes byte-for-byte.
type StringPool struct {
	strings []string
	index   map[string]uint32
}

// NewStringPool returns an empty pool.
func NewStringPool() *StringPool {
	return &StringPool{index: make(map[string]uint32)}
}

// Len returns the number of pooled strings.
func (p *StringPool) Len() int {
	return len(p.strings)
}

// Get returns the string at index. Unknown indices fail with *IndexError.
func (p *StringPool) Get(index uint32) (string, error) {
	if int(index) >= len(p.strings) {
		return "", &IndexError{Index: int(index), Size: len(p.strings)}
	}
	return p.strings[index], nil
}

// Intern returns the index of s, appending it to the pool if it is not
// already present. Interning the same value repeatedly never produces a
// second slot.
func (p *StringPool) Intern(s string) uint32 {
	if i, ok := p.index[s]; ok {
		return i
	}
	i := uint32(len(p.strings))
	p.strings = append(p.strings, s)
	p.index[s] = i
	return i
}

// Strings returns the pooled strings in slot order.
func (p *StringPool) Strings() []string {
	return p.strings
}

// add appends a decoded slot as-is. A repeated value keeps its extra slot;
// the lookup map points at the first occurrence, so later interning reuses
// that index.
func (p *StringPool) add(s string) {
	if _, ok := p.index[s]; !ok {
		p.index[s] = uint32(len(p.strings))
	}
	p.strings = append(p.strings, s)
}

// DecodeStringPool reads the count-prefixed string table, preserving slots
// exactly as encoded.
func DecodeStringPool(c *cursor.Cursor) (*StringPool, error) {
	count, err := c.ReadU32("names.count")
	if err != nil {
		return nil, err
	}
	p := NewStringPool()
	for i := uint32(0); i < count; i++ {
		s, err := c.ReadString("names.entry")
		if err != nil {
			return nil, err
		}
		p.add(s)
	}
	return p, nil
}

// Encode writes the pool back in slot order.
func (p *StringPool) Encode(c *cursor.Cursor) {
	c.WriteU32(uint32(len(p.strings)), "names.count")
	for _, s := range p.strings {
		c.WriteString(s, "names.entry")
	}
}
