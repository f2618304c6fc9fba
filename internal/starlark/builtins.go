package starlark

import (
	"fmt"
	"regexp"
	"sync"

	"go.starlark.net/lib/math"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
)

// Predeclared returns the globals available to every check expression:
//
//	is_missing(x)       True when the cell is missing
//	num(x)              x as a float, or None when it is not numeric
//	date(x)             x as a time, or None when it is not a date
//	matches(pat, x)     regular expression search on text
//	time, math          the standard Starlark modules
func Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"is_missing": starlark.NewBuiltin("is_missing", isMissing),
		"num":        starlark.NewBuiltin("num", num),
		"date":       starlark.NewBuiltin("date", date),
		"matches":    starlark.NewBuiltin("matches", matches),
		"time":       startime.Module,
		"math":       math.Module,
	}
}

func isMissing(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	return starlark.Bool(x == starlark.None), nil
}

func num(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	f, ok := FromStarlark(x).AsNumber()
	if !ok {
		return starlark.None, nil
	}
	return starlark.Float(f), nil
}

func date(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	t, ok := FromStarlark(x).AsTime()
	if !ok {
		return starlark.None, nil
	}
	return startime.Time(t), nil
}

var patterns sync.Map // string -> *regexp.Regexp

func matches(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pattern string
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &pattern, &x); err != nil {
		return nil, err
	}

	var re *regexp.Regexp
	if cached, ok := patterns.Load(pattern); ok {
		re = cached.(*regexp.Regexp)
	} else {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		patterns.Store(pattern, compiled)
		re = compiled
	}

	text, ok := FromStarlark(x).AsText()
	if !ok {
		return starlark.False, nil
	}
	return starlark.Bool(re.MatchString(text)), nil
}
