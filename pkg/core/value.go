package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ValueKind
// =============================================================================

// ValueKind identifies which variant a Value holds.
type ValueKind uint8

// Value kinds. KindMissing is the zero value.
const (
	KindMissing ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindTime
	KindBool
	// KindList and KindMap are composite cells (DuckDB LIST/STRUCT, JSON arrays/objects).
	KindList
	KindMap
)

// String returns the string representation of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "timestamp"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// =============================================================================
// Value
// =============================================================================

// Field is one named entry of a map Value. Field order is significant.
type Field struct {
	Name  string
	Value Value
}

// Value is a single dataset cell.
//
// The zero Value is Missing, which is distinct from zero, the empty string
// and false. Values are immutable; composite values must not be mutated after
// construction.
type Value struct {
	kind   ValueKind
	i      int64
	f      float64
	s      string
	t      time.Time
	b      bool
	list   []Value
	fields []Field
}

// Missing returns the missing-value sentinel.
func Missing() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value. NaN is normalized to Missing.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Value{kind: KindFloat, f: f}
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Time returns a timestamp value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a composite list value.
func List(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

// Map returns a composite map value with fields kept in the given order.
func Map(fields ...Field) Value {
	return Value{kind: KindMap, fields: append([]Field(nil), fields...)}
}

// FromGo converts a Go value, as produced by database/sql drivers or
// decoders, into a Value. Unknown types are rendered with fmt.
func FromGo(v any) Value {
	switch val := v.(type) {
	case nil:
		return Missing()
	case Value:
		return val
	case int:
		return Int(int64(val))
	case int8:
		return Int(int64(val))
	case int16:
		return Int(int64(val))
	case int32:
		return Int(int64(val))
	case int64:
		return Int(val)
	case uint8:
		return Int(int64(val))
	case uint16:
		return Int(int64(val))
	case uint32:
		return Int(int64(val))
	case uint64:
		if val > math.MaxInt64 {
			return Float(float64(val))
		}
		return Int(int64(val))
	case float32:
		return Float(float64(val))
	case float64:
		return Float(val)
	case string:
		return String(val)
	case []byte:
		return String(string(val))
	case bool:
		return Bool(val)
	case time.Time:
		return Time(val)
	case *time.Time:
		if val == nil {
			return Missing()
		}
		return Time(*val)
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			items[i] = FromGo(item)
		}
		return Value{kind: KindList, list: items}
	case []string:
		items := make([]Value, len(val))
		for i, item := range val {
			items[i] = String(item)
		}
		return Value{kind: KindList, list: items}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Name: k, Value: FromGo(val[k])}
		}
		return Value{kind: KindMap, fields: fields}
	case fmt.Stringer:
		return String(val.String())
	default:
		return String(fmt.Sprint(val))
	}
}

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// IsMissing reports whether v is the missing sentinel.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// IsComposite reports whether v is a list or map rather than a scalar.
func (v Value) IsComposite() bool { return v.kind == KindList || v.kind == KindMap }

// Items returns the elements of a list value.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return append([]Value(nil), v.list...)
}

// Fields returns the fields of a map value in order.
func (v Value) Fields() []Field {
	if v.kind != KindMap {
		return nil
	}
	return append([]Field(nil), v.fields...)
}

// Raw returns the underlying Go value: nil, int64, float64, string,
// time.Time, bool, []any or map[string]any.
func (v Value) Raw() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindTime:
		return v.t
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Raw()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			out[f.Name] = f.Value.Raw()
		}
		return out
	default:
		return nil
	}
}

// =============================================================================
// Coercions
// =============================================================================

// AsNumber coerces v to a float64. Strings are parsed after trimming
// surrounding whitespace; booleans count as 1 and 0. Missing, timestamps,
// composites and unparseable strings fail.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		return ParseNumber(v.s)
	default:
		return 0, false
	}
}

// AsTime coerces v to a timestamp. Strings go through ParseTime; every other
// kind fails. Numbers are not read as epoch offsets because their unit
// cannot be known, so a numeric column never conforms to datetime.
func (v Value) AsTime() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.t, true
	case KindString:
		return ParseTime(v.s)
	default:
		return time.Time{}, false
	}
}

// AsText returns the textual form of v. It fails only for Missing.
func (v Value) AsText() (string, bool) {
	if v.kind == KindMissing {
		return "", false
	}
	return v.Text(), true
}

// Text returns the textual form of v. Missing renders as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindTime:
		return formatTime(v.t)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList, KindMap:
		b, err := v.MarshalJSON()
		if err != nil {
			return fmt.Sprint(v.Raw())
		}
		return string(b)
	default:
		return ""
	}
}

// String implements fmt.Stringer. Missing renders as <missing>.
func (v Value) String() string {
	if v.kind == KindMissing {
		return "<missing>"
	}
	return v.Text()
}

// ParseNumber parses s as a decimal number after trimming whitespace.
// Hex literals, digit separators and NaN are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	// Overflow still yields ±Inf, which is a number.
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if math.Abs(f) < 1e15 && f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatTime(t time.Time) string {
	if _, off := t.Zone(); off == 0 {
		return t.Format("2006-01-02 15:04:05.999999999")
	}
	return t.Format("2006-01-02 15:04:05.999999999-07:00")
}

// =============================================================================
// Equality
// =============================================================================

// Equal reports exact, type-sensitive equality. Missing equals Missing;
// Int(1) does not equal Float(1).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindMissing:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Name != o.fields[i].Name || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Key returns a canonical encoding of v such that a.Key() == b.Key()
// exactly when a.Equal(b). Used to group rows.
func (v Value) Key() string {
	var b strings.Builder
	v.appendKey(&b)
	return b.String()
}

// RowKey returns the grouping key for a tuple of values.
func RowKey(values []Value) string {
	var b strings.Builder
	for _, v := range values {
		v.appendKey(&b)
	}
	return b.String()
}

func (v Value) appendKey(b *strings.Builder) {
	b.WriteByte(byte('0' + v.kind))
	switch v.kind {
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		f := v.f
		if f == 0 {
			f = 0 // folds -0 into 0
		}
		b.WriteString(strconv.FormatUint(math.Float64bits(f), 16))
	case KindString:
		b.WriteString(strconv.Itoa(len(v.s)))
		b.WriteByte(':')
		b.WriteString(v.s)
	case KindTime:
		b.WriteString(strconv.FormatInt(v.t.Unix(), 10))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(v.t.Nanosecond()))
	case KindBool:
		if v.b {
			b.WriteByte('t')
		} else {
			b.WriteByte('f')
		}
	case KindList:
		b.WriteString(strconv.Itoa(len(v.list)))
		for _, item := range v.list {
			item.appendKey(b)
		}
	case KindMap:
		b.WriteString(strconv.Itoa(len(v.fields)))
		for _, f := range v.fields {
			b.WriteString(strconv.Itoa(len(f.Name)))
			b.WriteByte(':')
			b.WriteString(f.Name)
			f.Value.appendKey(b)
		}
	}
	b.WriteByte(';')
}

// =============================================================================
// JSON
// =============================================================================

// MarshalJSON encodes v as its natural JSON form. Map fields keep their
// order; infinities are encoded as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindMissing:
		return []byte("null"), nil
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsInf(v.f, 0) {
			return json.Marshal(formatFloat(v.f))
		}
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMap:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(f.Name)
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			b, err := f.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

// UnmarshalJSON decodes any JSON document into a Value. Integral numbers
// become Int, other numbers Float; object key order is preserved.
// Timestamps come back as strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Missing(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Float(f), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindList, list: items}, nil
		case '{':
			var fields []Field
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, Field{Name: key, Value: item})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindMap, fields: fields}, nil
		}
	}
	return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}
