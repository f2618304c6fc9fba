package starlark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

func TestToStarlark(t *testing.T) {
	ts := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		input   core.Value
		wantStr string
	}{
		{name: "missing", input: core.Missing(), wantStr: "None"},
		{name: "int", input: core.Int(42), wantStr: "42"},
		{name: "float", input: core.Float(1.5), wantStr: "1.5"},
		{name: "string", input: core.String("SK"), wantStr: `"SK"`},
		{name: "bool", input: core.Bool(true), wantStr: "True"},
		{name: "list", input: core.List(core.Int(1), core.Missing()), wantStr: "[1, None]"},
		{name: "map", input: core.Map(core.Field{Name: "b", Value: core.Int(2)}, core.Field{Name: "a", Value: core.Int(1)}), wantStr: `{"b": 2, "a": 1}`},
		{name: "time", input: core.Time(ts), wantStr: startime.Time(ts).String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStr, ToStarlark(tt.input).String())
		})
	}
}

func TestFromStarlark_RoundTrip(t *testing.T) {
	values := []core.Value{
		core.Missing(),
		core.Int(-7),
		core.Float(2.25),
		core.String("x"),
		core.Bool(false),
		core.Time(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
		core.List(core.String("a"), core.Int(1)),
		core.Map(core.Field{Name: "id", Value: core.Int(1)}),
	}
	for _, v := range values {
		back := FromStarlark(ToStarlark(v))
		assert.True(t, v.Equal(back), "%s came back as %s", v, back)
	}

	assert.Equal(t, core.KindList, FromStarlark(starlark.Tuple{starlark.MakeInt(1)}).Kind())
}

func TestRowGlobals(t *testing.T) {
	ds := core.MustDataset([]string{"id", "first name", "num"}, []core.Value{core.Int(1), core.String("Ann"), core.Int(5)})
	env := rowGlobals(ds, 0, Predeclared())

	assert.Equal(t, "1", env["id"].String())
	_, hasSpaced := env["first name"]
	assert.False(t, hasSpaced, "non-identifier columns are only reachable through row")
	_, isBuiltin := env["num"].(*starlark.Builtin)
	assert.True(t, isBuiltin, "builtins shadow columns")

	row, ok := env["row"].(*starlark.Dict)
	require.True(t, ok)
	v, found, err := row.Get(starlark.String("first name"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `"Ann"`, v.String())
}
