package pbxproj

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Annotator chooses the comment written after a string token. field is the
// key of the enclosing dictionary entry; it is "" for the identifiers that key
// the objects table. Returning "" writes no comment.
type Annotator interface {
	Comment(field string, s *String) string
}

type preserveComments struct{}

func (preserveComments) Comment(_ string, s *String) string { return s.Comment }

// singleLineIsa lists the record types Xcode writes on one line.
var singleLineIsa = map[string]bool{
	"PBXBuildFile":     true,
	"PBXFileReference": true,
}

const defaultHeader = "// !$*UTF8*$!"

// Encode serializes a document. A nil annotator re-emits parsed comments as is.
func Encode(doc *Document, ann Annotator) []byte {
	if ann == nil {
		ann = preserveComments{}
	}
	e := &encoder{ann: ann}
	header := doc.Header
	if header == "" {
		header = defaultHeader
	}
	e.sb.WriteString(header)
	e.sb.WriteByte('\n')
	e.rootDict(doc.Root)
	e.sb.WriteByte('\n')
	return []byte(e.sb.String())
}

// EncodeValue renders a single value in multi-line form, as the detail view of
// a record.
func EncodeValue(v Value, ann Annotator) string {
	if ann == nil {
		ann = preserveComments{}
	}
	e := &encoder{ann: ann}
	e.value("", v, 0, false)
	return e.sb.String()
}

type encoder struct {
	sb  strings.Builder
	ann Annotator
}

func (e *encoder) indent(n int) {
	for i := 0; i < n; i++ {
		e.sb.WriteByte('\t')
	}
}

func (e *encoder) rootDict(root *Dict) {
	e.sb.WriteString("{\n")
	for _, entry := range root.Entries() {
		e.indent(1)
		e.str("", entry.Key)
		e.sb.WriteString(" = ")
		if objs, ok := entry.Value.(*Dict); ok && entry.Key.Text == "objects" {
			e.objects(objs)
		} else {
			e.value(entry.Key.Text, entry.Value, 1, false)
		}
		e.sb.WriteString(";\n")
	}
	e.sb.WriteString("}")
}

type objectEntry struct {
	isa string
	Entry
}

func (e *encoder) objects(objs *Dict) {
	records := make([]objectEntry, 0, objs.Len())
	for _, entry := range objs.Entries() {
		isa := ""
		if rec, ok := entry.Value.(*Dict); ok {
			isa = rec.String("isa")
		}
		records = append(records, objectEntry{isa: isa, Entry: entry})
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].isa != records[j].isa {
			return records[i].isa < records[j].isa
		}
		return records[i].Key.Text < records[j].Key.Text
	})

	e.sb.WriteString("{\n")
	for i, rec := range records {
		if i == 0 || records[i-1].isa != rec.isa {
			fmt.Fprintf(&e.sb, "\n/* Begin %s section */\n", rec.isa)
		}
		e.indent(2)
		e.str("", rec.Key)
		e.sb.WriteString(" = ")
		e.value(rec.Key.Text, rec.Value, 2, singleLineIsa[rec.isa])
		e.sb.WriteString(";\n")
		if i == len(records)-1 || records[i+1].isa != rec.isa {
			fmt.Fprintf(&e.sb, "/* End %s section */\n", rec.isa)
		}
	}
	e.indent(1)
	e.sb.WriteString("}")
}

func (e *encoder) value(field string, v Value, depth int, inline bool) {
	switch t := v.(type) {
	case *String:
		e.str(field, t)
	case *Data:
		if t.lexeme != "" {
			e.sb.WriteString(t.lexeme)
		} else {
			e.sb.WriteString("<" + hex.EncodeToString(t.Bytes) + ">")
		}
	case *Array:
		e.array(field, t, depth, inline)
	case *Dict:
		e.dict(t, depth, inline)
	}
}

func (e *encoder) array(field string, a *Array, depth int, inline bool) {
	if inline {
		e.sb.WriteByte('(')
		for _, it := range a.Items {
			e.value(field, it, depth, true)
			e.sb.WriteString(", ")
		}
		e.sb.WriteByte(')')
		return
	}
	e.sb.WriteString("(\n")
	for _, it := range a.Items {
		e.indent(depth + 1)
		e.value(field, it, depth+1, false)
		e.sb.WriteString(",\n")
	}
	e.indent(depth)
	e.sb.WriteByte(')')
}

func (e *encoder) dict(d *Dict, depth int, inline bool) {
	if inline {
		e.sb.WriteByte('{')
		for _, entry := range d.Entries() {
			e.str("", entry.Key)
			e.sb.WriteString(" = ")
			e.value(entry.Key.Text, entry.Value, depth, true)
			e.sb.WriteString("; ")
		}
		e.sb.WriteByte('}')
		return
	}
	e.sb.WriteString("{\n")
	for _, entry := range d.Entries() {
		e.indent(depth + 1)
		e.str("", entry.Key)
		e.sb.WriteString(" = ")
		e.value(entry.Key.Text, entry.Value, depth+1, false)
		e.sb.WriteString(";\n")
	}
	e.indent(depth)
	e.sb.WriteByte('}')
}

// str writes a string token. Dictionary keys other than object identifiers
// are passed with field "" and never carry comments unless they were parsed
// with one.
func (e *encoder) str(field string, s *String) {
	if s.lexeme != "" {
		e.sb.WriteString(s.lexeme)
	} else {
		e.sb.WriteString(Quote(s.Text))
	}
	if c := e.ann.Comment(field, s); c != "" {
		e.sb.WriteString(" /* ")
		e.sb.WriteString(c)
		e.sb.WriteString(" */")
	}
}

func isUnquotedChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '$' || c == '.' || c == '/' || c == ':' || c == '-'
}

// Quote returns s as Xcode writes it: bare when every byte is a plain
// identifier character, otherwise double-quoted with escapes.
func Quote(s string) string {
	bare := s != "" && !strings.Contains(s, "//") && !strings.Contains(s, "___")
	for i := 0; bare && i < len(s); i++ {
		bare = isUnquotedChar(s[i])
	}
	if bare {
		return s
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\U%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
