package starlark

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestRowThreads_Reuse(t *testing.T) {
	threads := newRowThreads(2, 0)
	env := starlark.StringDict{"age": starlark.MakeInt(30)}

	v, err := threads.eval("adult", "age >= 18", env)
	require.NoError(t, err)
	assert.Equal(t, starlark.True, v)
	assert.Equal(t, 1, threads.idleCount(), "successful thread goes back to the pool")

	_, err = threads.eval("adult", "age >= 18", env)
	require.NoError(t, err)
	assert.Equal(t, 1, threads.idleCount(), "idle thread was reused")
}

func TestRowThreads_FailedThreadIsDropped(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"step limit", "len([x for x in range(100000)]) > 0"},
		{"runtime error", "1 // 0"},
		{"unknown name", "missing_column > 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threads := newRowThreads(1, 1000)
			_, err := threads.eval("check", "True", nil)
			require.NoError(t, err)
			require.Equal(t, 1, threads.idleCount())

			_, err = threads.eval("check", tt.expr, nil)
			require.Error(t, err)
			assert.Equal(t, 0, threads.idleCount())

			v, err := threads.eval("check", "True", nil)
			require.NoError(t, err, "a fresh thread replaces the dropped one")
			assert.Equal(t, starlark.True, v)
		})
	}
}

func TestRowThreads_BudgetIsPerEval(t *testing.T) {
	threads := newRowThreads(1, 5000)
	for i := 0; i < 200; i++ {
		_, err := threads.eval("loop", "len([x for x in range(100)]) == 100", nil)
		require.NoError(t, err, "eval %d", i)
	}
	assert.Equal(t, 1, threads.idleCount())
}

func TestRowThreads_Size(t *testing.T) {
	assert.Equal(t, 1, newRowThreads(0, 0).size)

	threads := newRowThreads(4, 0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := threads.eval("concurrent", "1 + 1", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, threads.idleCount(), 4)
	assert.Positive(t, threads.idleCount())
}
