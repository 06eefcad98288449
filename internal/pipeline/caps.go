package pipeline

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// Field is one typed capability parameter. An empty Type renders the value bare.
type Field struct {
	Name  string
	Type  string
	Value string
}

// IntField returns an (int) typed field.
func IntField(name string, v int) Field {
	return Field{Name: name, Type: "int", Value: strconv.Itoa(v)}
}

// StringField returns a (string) typed field.
func StringField(name, v string) Field {
	return Field{Name: name, Type: "string", Value: v}
}

// RawField returns an untyped field; the engine infers the type.
func RawField(name, v string) Field {
	return Field{Name: name, Value: v}
}

// BufferField returns a (buffer) field holding a binary blob, hex encoded.
func BufferField(name string, blob []byte) Field {
	return Field{Name: name, Type: "buffer", Value: hex.EncodeToString(blob)}
}

// Caps is the buffer format an input is told to expect.
type Caps struct {
	Media  string
	Fields []Field
}

// NewCaps returns caps for the media type with the given fields, in order.
func NewCaps(media string, fields ...Field) Caps {
	return Caps{Media: media, Fields: fields}
}

// Field looks up a field by name.
func (c Caps) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// String renders the caps in the media/type,name=(type)value form.
func (c Caps) String() string {
	var b strings.Builder
	b.WriteString(c.Media)
	for _, f := range c.Fields {
		b.WriteByte(',')
		b.WriteString(f.Name)
		b.WriteByte('=')
		if f.Type != "" {
			b.WriteByte('(')
			b.WriteString(f.Type)
			b.WriteByte(')')
		}
		b.WriteString(f.Value)
	}
	return b.String()
}
