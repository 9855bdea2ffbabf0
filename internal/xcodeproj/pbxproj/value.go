// Package pbxproj reads and writes the OpenStep-style property list used by
// Xcode's project.pbxproj files.
//
// Decoded values remember how they were spelled, so a document that is
// decoded and re-encoded without changes produces the same bytes for every
// value that was not replaced. Dictionaries keep their key order.
package pbxproj

import "sort"

// Value is one node of a decoded property list: *String, *Array, *Dict or *Data.
type Value interface {
	value()
}

// Pos is a 1-based line and column in the source text.
type Pos struct {
	Line   int
	Column int
}

// String is a quoted or bare string token.
type String struct {
	Text string
	// Comment is the /* annotation */ that followed the token, without delimiters.
	Comment string

	lexeme string
	pos    Pos
}

// Str returns a new string value that is not tied to any source text.
func Str(text string) *String {
	return &String{Text: text}
}

// Parsed reports whether the string was read from source text.
func (s *String) Parsed() bool { return s.lexeme != "" }

// Pos returns the source position of a parsed string.
func (s *String) Pos() Pos { return s.pos }

// Array is an ordered list of values.
type Array struct {
	Items []Value
	pos   Pos
}

// Dict is an ordered mapping from string keys to values.
type Dict struct {
	entries []Entry
	pos     Pos
}

// Entry is one key/value pair of a Dict.
type Entry struct {
	Key   *String
	Value Value
}

// Data is a <hex> literal.
type Data struct {
	Bytes  []byte
	lexeme string
}

func (*String) value() {}
func (*Array) value()  {}
func (*Dict) value()   {}
func (*Data) value()   {}

// NewDict returns an empty dictionary.
func NewDict() *Dict { return &Dict{} }

// StrArray builds an array of fresh strings.
func StrArray(items ...string) *Array {
	a := &Array{Items: make([]Value, 0, len(items))}
	for _, it := range items {
		a.Items = append(a.Items, Str(it))
	}
	return a
}

// Pos returns the position of the opening brace of a parsed dictionary.
func (d *Dict) Pos() Pos { return d.pos }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.entries) }

// Entries returns the entries in order. The slice must not be modified.
func (d *Dict) Entries() []Entry { return d.entries }

// Keys returns the keys in order.
func (d *Dict) Keys() []string {
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.Key.Text
	}
	return keys
}

func (d *Dict) index(key string) int {
	for i, e := range d.entries {
		if e.Key.Text == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under key, or nil.
func (d *Dict) Get(key string) Value {
	if i := d.index(key); i >= 0 {
		return d.entries[i].Value
	}
	return nil
}

// Has reports whether key is present.
func (d *Dict) Has(key string) bool { return d.index(key) >= 0 }

// GetString returns the text of a string value.
func (d *Dict) GetString(key string) (string, bool) {
	s, ok := d.Get(key).(*String)
	if !ok {
		return "", false
	}
	return s.Text, true
}

// String returns the text of a string value or "" if absent.
func (d *Dict) String(key string) string {
	s, _ := d.GetString(key)
	return s
}

// GetArray returns an array value.
func (d *Dict) GetArray(key string) (*Array, bool) {
	a, ok := d.Get(key).(*Array)
	return a, ok
}

// GetDict returns a dictionary value.
func (d *Dict) GetDict(key string) (*Dict, bool) {
	sub, ok := d.Get(key).(*Dict)
	return sub, ok
}

// Strings returns the string items of an array value.
func (d *Dict) Strings(key string) []string {
	a, ok := d.GetArray(key)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(a.Items))
	for _, it := range a.Items {
		if s, ok := it.(*String); ok {
			out = append(out, s.Text)
		}
	}
	return out
}

// Set stores v under key. An existing key keeps its position; a new key is
// inserted before the first non-isa key that sorts after it.
func (d *Dict) Set(key string, v Value) {
	if i := d.index(key); i >= 0 {
		d.entries[i].Value = v
		return
	}
	e := Entry{Key: Str(key), Value: v}
	at := len(d.entries)
	for i, cur := range d.entries {
		if cur.Key.Text == "isa" {
			continue
		}
		if key == "isa" || cur.Key.Text > key {
			at = i
			break
		}
	}
	d.entries = append(d.entries, Entry{})
	copy(d.entries[at+1:], d.entries[at:])
	d.entries[at] = e
}

// SetString stores a fresh string under key unless the current value already
// has the same text, in which case the original spelling is kept.
func (d *Dict) SetString(key, text string) {
	if cur, ok := d.Get(key).(*String); ok && cur.Text == text {
		return
	}
	d.Set(key, Str(text))
}

// Delete removes key and reports whether it was present.
func (d *Dict) Delete(key string) bool {
	i := d.index(key)
	if i < 0 {
		return false
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	return true
}

// Append adds an entry at the end without reordering, as the decoder does.
func (d *Dict) Append(key *String, v Value) {
	d.entries = append(d.entries, Entry{Key: key, Value: v})
}

// SortedDict builds a dictionary whose keys are written isa-first, then in
// lexical order, which is how Xcode lays out new records.
func SortedDict(fields map[string]Value) *Dict {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "isa" || keys[j] == "isa" {
			return keys[i] == "isa"
		}
		return keys[i] < keys[j]
	})
	d := NewDict()
	for _, k := range keys {
		d.Append(Str(k), fields[k])
	}
	return d
}

// Clone returns a deep copy of v. Parsed spellings are kept.
func Clone(v Value) Value {
	switch t := v.(type) {
	case *String:
		c := *t
		return &c
	case *Data:
		c := *t
		c.Bytes = append([]byte(nil), t.Bytes...)
		return &c
	case *Array:
		c := &Array{Items: make([]Value, len(t.Items)), pos: t.pos}
		for i, it := range t.Items {
			c.Items[i] = Clone(it)
		}
		return c
	case *Dict:
		c := &Dict{entries: make([]Entry, len(t.entries)), pos: t.pos}
		for i, e := range t.entries {
			c.entries[i] = Entry{Key: Clone(e.Key).(*String), Value: Clone(e.Value)}
		}
		return c
	}
	return v
}

// Equal reports whether two values have the same content, ignoring spelling,
// comments and dictionary key order.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case *String:
		y, ok := b.(*String)
		return ok && x.Text == y.Text
	case *Data:
		y, ok := b.(*Data)
		return ok && string(x.Bytes) == string(y.Bytes)
	case *Array:
		y, ok := b.(*Array)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, e := range x.entries {
			if !Equal(e.Value, y.Get(e.Key.Text)) {
				return false
			}
		}
		return true
	}
	return a == nil && b == nil
}

// Document is a decoded project file.
type Document struct {
	// Header is the leading "// !$*UTF8*$!" line, without its newline.
	Header string
	Root   *Dict
}

// Objects returns the objects table of the document.
func (doc *Document) Objects() *Dict {
	objs, _ := doc.Root.GetDict("objects")
	return objs
}
