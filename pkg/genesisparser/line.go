package genesisparser

import (
	"strconv"
	"strings"
)

// ValueKind tells how a value is rendered back into the file.
type ValueKind int

const (
	// ValueNone marks structural lines ({, [, }, ]) and object/array openers.
	ValueNone ValueKind = iota
	// ValueString is a quoted JSON string.
	ValueString
	// ValueLiteral is a bare scalar: a number, true, false or null.
	ValueLiteral
)

const indentUnit = "  "

// Line is one key/value observation from the exported state. Key is the
// last explicit JSON key seen, so array elements carry the key of the array.
type Line struct {
	Key   string
	Value string
	Kind  ValueKind
}

// HasValue reports whether the line carries a non-empty value.
func (l Line) HasValue() bool {
	return l.Kind != ValueNone && l.Value != ""
}

// StringLine builds a line whose value is rendered quoted.
func StringLine(key, value string) Line {
	return Line{Key: key, Value: value, Kind: ValueString}
}

// NumberLine builds a line whose value is rendered as a bare number.
func NumberLine(key string, value uint64) Line {
	return Line{Key: key, Value: strconv.FormatUint(value, 10), Kind: ValueLiteral}
}

// LineMeta is the formatting of a physical line.
type LineMeta struct {
	EndWithComma bool
	IndentSpaces int
}

// Classifier turns physical lines into Lines. It carries the last key seen
// between calls, so one Classifier must be used per pass.
type Classifier struct {
	lastKey string
}

// Classify parses one raw line. Structural lines yield a Line with Kind
// ValueNone.
func (c *Classifier) Classify(raw string) (Line, LineMeta) {
	meta := LineMeta{
		EndWithComma: strings.HasSuffix(raw, ","),
		IndentSpaces: indentOf(raw),
	}

	parts := strings.SplitN(raw, `": `, 2)
	if len(parts) == 1 {
		body := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ","))
		if body == "" || strings.ContainsAny(body[:1], "{}[]") {
			return Line{Key: c.lastKey}, meta
		}
		value, kind := parseScalar(body)
		return Line{Key: c.lastKey, Value: value, Kind: kind}, meta
	}

	c.lastKey = strings.TrimPrefix(strings.TrimSpace(parts[0]), `"`)
	body := strings.TrimSpace(parts[1])
	if body == "" || body[0] == '{' || body[0] == '[' {
		return Line{Key: c.lastKey}, meta
	}
	value, kind := parseScalar(body)
	return Line{Key: c.lastKey, Value: value, Kind: kind}, meta
}

// parseScalar reads a quoted string or a bare scalar up to the next comma.
func parseScalar(body string) (string, ValueKind) {
	if body[0] == '"' {
		end := strings.LastIndexByte(body, '"')
		if end <= 0 {
			return body[1:], ValueString
		}
		return body[1:end], ValueString
	}
	if i := strings.IndexByte(body, ','); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body), ValueLiteral
}

func indentOf(raw string) int {
	n := 0
	for strings.HasPrefix(raw[n:], indentUnit) {
		n += len(indentUnit)
	}
	return n
}

// Render formats l as a "key": value line with the given indentation.
func (l Line) Render(indentSpaces int, comma bool) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", indentSpaces))
	b.WriteByte('"')
	b.WriteString(l.Key)
	b.WriteString(`": `)
	if l.Kind == ValueString {
		b.WriteByte('"')
		b.WriteString(l.Value)
		b.WriteByte('"')
	} else {
		b.WriteString(l.Value)
	}
	if comma {
		b.WriteByte(',')
	}
	return b.String()
}
