package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// The natural JSON form written by MarshalJSON is lossy: Float(30) and
// Int(30) encode alike and timestamps become strings. MarshalTagged keeps
// the variant of every value, nested ones included, so stored issues read
// back exactly as they were recorded.

type taggedValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

type taggedField struct {
	K string          `json:"k"`
	V json.RawMessage `json:"v"`
}

// MarshalTagged encodes v with its kind, e.g. {"t":"float","v":"-5"}.
func MarshalTagged(v Value) ([]byte, error) {
	var (
		payload any
		err     error
	)
	switch v.kind {
	case KindMissing:
		return json.Marshal(taggedValue{T: v.kind.String()})
	case KindInt:
		payload = v.i
	case KindFloat:
		payload = strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		payload = v.s
	case KindTime:
		payload = v.t.Format(time.RFC3339Nano)
	case KindBool:
		payload = v.b
	case KindList:
		items := make([]json.RawMessage, len(v.list))
		for i, item := range v.list {
			if items[i], err = MarshalTagged(item); err != nil {
				return nil, err
			}
		}
		payload = items
	case KindMap:
		fields := make([]taggedField, len(v.fields))
		for i, f := range v.fields {
			fields[i].K = f.Name
			if fields[i].V, err = MarshalTagged(f.Value); err != nil {
				return nil, err
			}
		}
		payload = fields
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedValue{T: v.kind.String(), V: raw})
}

// UnmarshalTagged decodes the output of MarshalTagged.
func UnmarshalTagged(data []byte) (Value, error) {
	var tv taggedValue
	if err := json.Unmarshal(data, &tv); err != nil {
		return Value{}, fmt.Errorf("invalid tagged value: %w", err)
	}

	switch tv.T {
	case "missing":
		return Missing(), nil
	case "int":
		var i int64
		if err := json.Unmarshal(tv.V, &i); err != nil {
			return Value{}, fmt.Errorf("invalid int: %w", err)
		}
		return Int(i), nil
	case "float":
		var s string
		if err := json.Unmarshal(tv.V, &s); err != nil {
			return Value{}, fmt.Errorf("invalid float: %w", err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid float %q: %w", s, err)
		}
		return Float(f), nil
	case "string":
		var s string
		if err := json.Unmarshal(tv.V, &s); err != nil {
			return Value{}, fmt.Errorf("invalid string: %w", err)
		}
		return String(s), nil
	case "timestamp":
		var s string
		if err := json.Unmarshal(tv.V, &s); err != nil {
			return Value{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Value{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		return Time(t), nil
	case "bool":
		var b bool
		if err := json.Unmarshal(tv.V, &b); err != nil {
			return Value{}, fmt.Errorf("invalid bool: %w", err)
		}
		return Bool(b), nil
	case "list":
		var raw []json.RawMessage
		if err := json.Unmarshal(tv.V, &raw); err != nil {
			return Value{}, fmt.Errorf("invalid list: %w", err)
		}
		items := make([]Value, len(raw))
		for i, r := range raw {
			item, err := UnmarshalTagged(r)
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return List(items...), nil
	case "map":
		var raw []taggedField
		if err := json.Unmarshal(tv.V, &raw); err != nil {
			return Value{}, fmt.Errorf("invalid map: %w", err)
		}
		fields := make([]Field, len(raw))
		for i, f := range raw {
			item, err := UnmarshalTagged(f.V)
			if err != nil {
				return Value{}, err
			}
			fields[i] = Field{Name: f.K, Value: item}
		}
		return Map(fields...), nil
	}
	return Value{}, fmt.Errorf("unknown value kind %q", tv.T)
}
