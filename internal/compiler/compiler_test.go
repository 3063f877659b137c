/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package compiler

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tschaefer/pfqlang/internal/dsl"
	"github.com/tschaefer/pfqlang/internal/lang"
	"github.com/tschaefer/pfqlang/internal/metrics"
	"github.com/tschaefer/pfqlang/internal/registry"
	"github.com/tschaefer/pfqlang/internal/wire"
)

const expression = "(when is_tcp (forward 1)) >-> kernel"

func __newCompiler(t *testing.T, opts Options) *Compiler {
	reg, err := registry.New()
	require.NoError(t, err)

	c, err := New(reg, opts)
	require.NoError(t, err)

	return c
}

func compileProducesDecodableImage(t *testing.T) {
	c := __newCompiler(t, Options{})

	r, err := c.Compile(expression)
	require.NoError(t, err)

	assert.Equal(t, expression, r.Expression)
	assert.Equal(t, 4, r.Program.Len())
	assert.False(t, r.Cached)
	assert.Equal(t, []string{"when", "is_tcp", "forward", "kernel"}, r.Program.Symbols())

	prog, err := wire.Decode(r.Image)
	require.NoError(t, err)
	assert.Equal(t, r.Program.String(), prog.String())
}

func compilePredicateLowersCondition(t *testing.T) {
	c := __newCompiler(t, Options{})

	r, err := c.CompilePredicate("is_tcp & has_port 80")
	require.NoError(t, err)

	_, ok := r.Term.(lang.Predicate)
	assert.True(t, ok)
	assert.Equal(t, []string{"and", "is_tcp", "has_port"}, r.Program.Symbols())
}

func compileReportsErrors(t *testing.T) {
	c := __newCompiler(t, Options{MaxDescriptors: 2})

	_, err := c.Compile("when is_tcp")
	var syntaxErr *dsl.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)

	_, err = c.Compile(expression)
	assert.ErrorIs(t, err, wire.ErrTooManyDescriptors)
}

func compileServesRepeatsFromCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := __newCompiler(t, Options{CacheSize: 2, Metrics: m})

	first, err := c.Compile(expression)
	require.NoError(t, err)
	second, err := c.Compile(expression)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Image, second.Image)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Compilations.WithLabelValues(metrics.ResultOk)))

	_, err = c.CompilePredicate("is_tcp")
	require.NoError(t, err)
	r, err := c.Compile("is_tcp")
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Compilations.WithLabelValues(metrics.ResultErr)))
}

func compileIsSafeForConcurrentUse(t *testing.T) {
	c := __newCompiler(t, Options{CacheSize: 4})

	expressions := []string{
		expression,
		"conditional (is_udp | is_icmp) drop kernel",
		"filter (less ip_ttl 2) >-> log_packet",
	}

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(expr string) {
			defer wg.Done()
			_, err := c.Compile(expr)
			assert.NoError(t, err)
		}(expressions[i%len(expressions)])
	}
	wg.Wait()

	assert.Equal(t, len(expressions), c.Len())
}

func TestCompiler(t *testing.T) {
	t.Run("Compile produces decodable image", compileProducesDecodableImage)
	t.Run("CompilePredicate lowers condition", compilePredicateLowersCondition)
	t.Run("Compile reports errors", compileReportsErrors)
	t.Run("Compile serves repeats from cache", compileServesRepeatsFromCache)
	t.Run("Compile is safe for concurrent use", compileIsSafeForConcurrentUse)
}
