/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package compiler turns pipeline expressions into checked wire images.
package compiler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/arc/v2"
	"github.com/tschaefer/pfqlang/internal/dsl"
	"github.com/tschaefer/pfqlang/internal/lang"
	"github.com/tschaefer/pfqlang/internal/metrics"
	"github.com/tschaefer/pfqlang/internal/registry"
	"github.com/tschaefer/pfqlang/internal/wire"
)

// Result is a compiled expression. Results may be shared through the cache
// and must not be modified.
type Result struct {
	Expression string
	Term       lang.Term
	Program    *lang.Program
	Image      []byte
	Cached     bool
	Duration   time.Duration
}

type Options struct {
	MaxDescriptors int
	// CacheSize is the number of results kept; zero disables the cache.
	CacheSize int
	Metrics   *metrics.Metrics
}

type Compiler struct {
	registry *registry.Registry
	encoder  wire.Encoder
	cache    *arc.ARCCache[string, *Result]
	metrics  *metrics.Metrics
}

func New(reg *registry.Registry, opts Options) (*Compiler, error) {
	c := &Compiler{
		registry: reg,
		encoder:  wire.Encoder{MaxDescriptors: opts.MaxDescriptors},
		metrics:  opts.Metrics,
	}

	if opts.CacheSize > 0 {
		cache, err := arc.NewARC[string, *Result](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating compile cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

func (c *Compiler) Registry() *registry.Registry {
	return c.registry
}

// Compile parses a pipeline, lowers it from index 0, checks it against the
// registry and encodes it.
func (c *Compiler) Compile(expression string) (*Result, error) {
	return c.compile("pipeline:", expression, func() (lang.Term, *lang.Program, error) {
		comp, err := dsl.Parse(expression, c.registry)
		if err != nil {
			return nil, nil, err
		}
		return comp, lang.Compile(comp), nil
	})
}

// CompilePredicate does the same for a bare predicate, which is useful to
// inspect the layout of a condition.
func (c *Compiler) CompilePredicate(expression string) (*Result, error) {
	return c.compile("predicate:", expression, func() (lang.Term, *lang.Program, error) {
		pred, err := dsl.ParsePredicate(expression, c.registry)
		if err != nil {
			return nil, nil, err
		}
		descrs, _ := lang.Lower(0, pred)
		return pred, &lang.Program{Descriptors: descrs}, nil
	})
}

func (c *Compiler) compile(prefix, expression string, build func() (lang.Term, *lang.Program, error)) (*Result, error) {
	key := prefix + expression

	if c.cache != nil {
		if r, ok := c.cache.Get(key); ok {
			c.metrics.ObserveCompile(0, true, nil)
			cached := *r
			cached.Cached = true
			return &cached, nil
		}
	}

	start := time.Now()
	r, err := c.build(expression, build)
	duration := time.Since(start)
	c.metrics.ObserveCompile(duration, false, err)
	if err != nil {
		return nil, err
	}
	r.Duration = duration

	if c.cache != nil {
		c.cache.Add(key, r)
	}

	slog.Debug("Compiled expression.", "expression", expression,
		"descriptors", r.Program.Len(), "duration", duration)

	return r, nil
}

func (c *Compiler) build(expression string, build func() (lang.Term, *lang.Program, error)) (*Result, error) {
	term, prog, err := build()
	if err != nil {
		return nil, err
	}

	if err := c.registry.Check(prog); err != nil {
		return nil, err
	}

	image, err := c.encoder.Encode(prog)
	if err != nil {
		return nil, err
	}

	return &Result{
		Expression: expression,
		Term:       term,
		Program:    prog,
		Image:      image,
	}, nil
}

// Len returns the number of cached results.
func (c *Compiler) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}
