// Package starlark evaluates user-defined row checks written as Starlark
// expressions.
package starlark

import (
	"regexp"
	"time"

	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// ToStarlark converts a dataset value to a Starlark value.
// Missing becomes None; timestamps use the time module's type.
func ToStarlark(v core.Value) starlark.Value {
	switch v.Kind() {
	case core.KindMissing:
		return starlark.None
	case core.KindInt, core.KindFloat, core.KindString, core.KindBool:
		switch raw := v.Raw().(type) {
		case int64:
			return starlark.MakeInt64(raw)
		case float64:
			return starlark.Float(raw)
		case string:
			return starlark.String(raw)
		case bool:
			return starlark.Bool(raw)
		}
	case core.KindTime:
		t, _ := v.AsTime()
		return startime.Time(t)
	case core.KindList:
		items := v.Items()
		list := make([]starlark.Value, len(items))
		for i, item := range items {
			list[i] = ToStarlark(item)
		}
		return starlark.NewList(list)
	case core.KindMap:
		fields := v.Fields()
		dict := starlark.NewDict(len(fields))
		for _, f := range fields {
			_ = dict.SetKey(starlark.String(f.Name), ToStarlark(f.Value))
		}
		return dict
	}
	return starlark.String(v.Text())
}

// FromStarlark converts a Starlark value back to a dataset value.
// Unsupported types are kept as their string representation.
func FromStarlark(v starlark.Value) core.Value {
	switch val := v.(type) {
	case starlark.NoneType:
		return core.Missing()
	case starlark.String:
		return core.String(string(val))
	case starlark.Int:
		if i64, ok := val.Int64(); ok {
			return core.Int(i64)
		}
		// too large for int64
		return core.String(val.String())
	case starlark.Float:
		return core.Float(float64(val))
	case starlark.Bool:
		return core.Bool(bool(val))
	case startime.Time:
		return core.Time(time.Time(val))
	case starlark.Indexable:
		items := make([]core.Value, val.Len())
		for i := range items {
			items[i] = FromStarlark(val.Index(i))
		}
		return core.List(items...)
	case *starlark.Dict:
		fields := make([]core.Field, 0, val.Len())
		for _, item := range val.Items() {
			name := item[0].String()
			if s, ok := item[0].(starlark.String); ok {
				name = string(s)
			}
			fields = append(fields, core.Field{Name: name, Value: FromStarlark(item[1])})
		}
		return core.Map(fields...)
	default:
		return core.String(v.String())
	}
}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// rowGlobals binds the cells of row i: every column whose name is a valid
// identifier becomes a global, and the whole row is available as the dict
// "row". Predeclared names win over columns.
func rowGlobals(ds *core.Dataset, i int, predeclared starlark.StringDict) starlark.StringDict {
	cols := ds.Columns()
	env := make(starlark.StringDict, len(predeclared)+len(cols)+1)
	row := starlark.NewDict(len(cols))
	for j, name := range cols {
		v := ToStarlark(ds.Cell(i, j))
		_ = row.SetKey(starlark.String(name), v)
		if identRE.MatchString(name) {
			env[name] = v
		}
	}
	row.Freeze()
	env["row"] = row
	for k, v := range predeclared {
		env[k] = v
	}
	return env
}

