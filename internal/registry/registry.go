/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/tschaefer/pfqlang/internal/lang"
)

var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrMismatch      = errors.New("descriptor does not match symbol")
)

const (
	sigPredicate     = "SkBuff -> Bool"
	sigCombinator    = "(SkBuff -> Bool) -> (SkBuff -> Bool) -> SkBuff -> Bool"
	sigPropPredicate = "(SkBuff -> Word64) -> Word64 -> SkBuff -> Bool"
	sigProperty      = "SkBuff -> Word64"
	sigFunction      = "SkBuff -> Action SkBuff"
	sigFilter        = "(SkBuff -> Bool) -> SkBuff -> Action SkBuff"
	sigBranch        = "(SkBuff -> Bool) -> (SkBuff -> Action SkBuff) -> SkBuff -> Action SkBuff"
	sigChoice        = "(SkBuff -> Bool) -> (SkBuff -> Action SkBuff) -> (SkBuff -> Action SkBuff) -> SkBuff -> Action SkBuff"
)

// Entry declares a primitive by name and type signature.
type Entry struct {
	Name      string `mapstructure:"name"`
	Signature string `mapstructure:"signature"`
}

// Builtin is the symbol table of the stock executor.
var Builtin = []Entry{
	{"or", sigCombinator},
	{"and", sigCombinator},
	{"xor", sigCombinator},

	{"is_ip", sigPredicate},
	{"is_ip6", sigPredicate},
	{"is_udp", sigPredicate},
	{"is_tcp", sigPredicate},
	{"is_icmp", sigPredicate},
	{"is_frag", sigPredicate},
	{"has_vlan", sigPredicate},
	{"has_vid", "Word32 -> SkBuff -> Bool"},
	{"has_port", "Word16 -> SkBuff -> Bool"},
	{"has_src_port", "Word16 -> SkBuff -> Bool"},
	{"has_dst_port", "Word16 -> SkBuff -> Bool"},
	{"has_addr", "CIDR4 -> SkBuff -> Bool"},
	{"has_src_addr", "CIDR4 -> SkBuff -> Bool"},
	{"has_dst_addr", "CIDR4 -> SkBuff -> Bool"},

	{"equal", sigPropPredicate},
	{"less", sigPropPredicate},
	{"greater", sigPropPredicate},
	{"any_bit", sigPropPredicate},
	{"all_bit", sigPropPredicate},

	{"ip_tos", sigProperty},
	{"ip_ttl", sigProperty},
	{"ip_tot_len", sigProperty},
	{"tcp_source", sigProperty},
	{"tcp_dest", sigProperty},
	{"udp_source", sigProperty},
	{"udp_dest", sigProperty},

	{"drop", sigFunction},
	{"kernel", sigFunction},
	{"broadcast", sigFunction},
	{"log_packet", sigFunction},
	{"steer_ip", sigFunction},
	{"steer_flow", sigFunction},
	{"forward", "Word32 -> SkBuff -> Action SkBuff"},
	{"mark", "Word32 -> SkBuff -> Action SkBuff"},
	{"steer_net", "CIDR4 -> SkBuff -> Action SkBuff"},
	{"inc", "Int -> SkBuff -> Action SkBuff"},
	{"dec", "Int -> SkBuff -> Action SkBuff"},

	{"filter", sigFilter},
	{"when", sigBranch},
	{"unless", sigBranch},
	{"conditional", sigChoice},
}

// Symbol is a resolved registry entry.
type Symbol struct {
	Name      string
	Signature string
	Kind      Kind
	Arg       ArgType
}

// Registry maps symbol names to primitives the executor knows.
type Registry struct {
	symbols map[string]Symbol
}

// New builds a registry from the builtin table and extra entries. An extra
// entry may repeat a builtin only with the same signature.
func New(extra ...Entry) (*Registry, error) {
	r := &Registry{symbols: make(map[string]Symbol, len(Builtin)+len(extra))}

	for _, e := range Builtin {
		if err := r.add(e); err != nil {
			return nil, err
		}
	}
	for _, e := range extra {
		if err := r.add(e); err != nil {
			return nil, err
		}
		slog.Debug("Registered symbol.", "name", e.Name, "signature", e.Signature)
	}

	return r, nil
}

func (r *Registry) add(e Entry) error {
	if e.Name == "" {
		return errors.New("symbol without name")
	}

	kind, arg, err := ParseSignature(e.Signature)
	if err != nil {
		return fmt.Errorf("symbol %q: %w", e.Name, err)
	}

	if prev, ok := r.symbols[e.Name]; ok {
		if normalize(prev.Signature) != normalize(e.Signature) {
			return fmt.Errorf("symbol %q already registered with signature %q", e.Name, prev.Signature)
		}
		return nil
	}

	r.symbols[e.Name] = Symbol{Name: e.Name, Signature: e.Signature, Kind: kind, Arg: arg}
	return nil
}

func normalize(sig string) string {
	return strings.Join(strings.Fields(sig), " ")
}

func (r *Registry) Lookup(name string) (Symbol, bool) {
	s, ok := r.symbols[name]
	return s, ok
}

// Symbols returns all symbols ordered by kind and name.
func (r *Registry) Symbols() []Symbol {
	symbols := make([]Symbol, 0, len(r.symbols))
	for _, s := range r.symbols {
		symbols = append(symbols, s)
	}
	slices.SortFunc(symbols, func(a, b Symbol) int {
		if a.Kind != b.Kind {
			return int(a.Kind) - int(b.Kind)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return symbols
}

// Check verifies that every descriptor of prog names a known symbol of the
// matching type and carries a constant of exactly the declared size.
func (r *Registry) Check(prog *lang.Program) error {
	var errs []error
	for i, d := range prog.Descriptors {
		s, ok := r.symbols[d.Symbol]
		if !ok {
			errs = append(errs, fmt.Errorf("descriptor %d: %w %q", i, ErrUnknownSymbol, d.Symbol))
			continue
		}
		if s.Kind.FunctionalType() != d.Type {
			errs = append(errs, fmt.Errorf("descriptor %d: %w: %q is a %s, not %s",
				i, ErrMismatch, d.Symbol, s.Kind, d.Type))
			continue
		}
		if d.Arg.Len() != s.Arg.Size {
			errs = append(errs, fmt.Errorf("descriptor %d: %w: %q expects %d argument bytes, got %d",
				i, ErrMismatch, d.Symbol, s.Arg.Size, d.Arg.Len()))
		}
	}
	return errors.Join(errs...)
}
