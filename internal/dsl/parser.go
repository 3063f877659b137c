/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package dsl

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/tschaefer/pfqlang/internal/lang"
	"github.com/tschaefer/pfqlang/internal/registry"
)

// SyntaxError reports malformed input together with the byte offset it was
// found at.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// Symbols resolves identifiers to primitives.
type Symbols interface {
	Lookup(name string) (registry.Symbol, bool)
}

type Parser struct {
	lexer   *Lexer
	symbols Symbols
	current Token
	peek    Token
}

func NewParser(input string, symbols Symbols) (*Parser, error) {
	p := &Parser{lexer: NewLexer(input), symbols: symbols}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse parses a complete pipeline.
func Parse(input string, symbols Symbols) (lang.Computation, error) {
	p, err := NewParser(input, symbols)
	if err != nil {
		return nil, err
	}
	return p.ParseComputation()
}

// ParsePredicate parses a standalone predicate expression.
func ParsePredicate(input string, symbols Symbols) (lang.Predicate, error) {
	p, err := NewParser(input, symbols)
	if err != nil {
		return nil, err
	}
	return p.ParsePredicate()
}

func (p *Parser) nextToken() error {
	p.current = p.peek
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.current.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(tokType TokenType) error {
	if p.current.Type != tokType {
		return p.errorf("expected %s, got %s", tokType, p.describe())
	}
	return p.nextToken()
}

func (p *Parser) describe() string {
	if p.current.Type == TokenEOF {
		return p.current.Type.String()
	}
	return fmt.Sprintf("%s '%s'", p.current.Type, p.current.Value)
}

func (p *Parser) expectEOF() error {
	if p.current.Type != TokenEOF {
		return p.errorf("unexpected %s after expression", p.describe())
	}
	return nil
}

func (p *Parser) ParseComputation() (lang.Computation, error) {
	comp, err := p.parseComputation()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return comp, nil
}

func (p *Parser) ParsePredicate() (lang.Predicate, error) {
	pred, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return pred, nil
}

// parseComputation parses: step { ">->" step }
func (p *Parser) parseComputation() (lang.Computation, error) {
	comp, err := p.parseStep()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenArrow {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		next, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		comp = comp.Then(next)
	}

	return comp, nil
}

// parseStep parses: "(" computation ")" | FUN [arg] | FILTER predicate
// | BRANCH predicate step | CHOICE predicate step step
func (p *Parser) parseStep() (lang.Computation, error) {
	if p.current.Type == TokenLParen {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		comp, err := p.parseComputation()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return comp, nil
	}

	sym, pos, err := p.symbol("computation")
	if err != nil {
		return nil, err
	}

	switch sym.Kind {
	case registry.KindFunction:
		arg, err := p.parseArg(sym)
		if err != nil {
			return nil, err
		}
		return lang.FunArg(sym.Name, arg), nil
	case registry.KindFilter:
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		return lang.Filter(sym.Name, pred), nil
	case registry.KindBranch:
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		comp, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		return lang.Branch(sym.Name, pred, comp), nil
	case registry.KindChoice:
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		comp, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		alt, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		return lang.Choice(sym.Name, pred, comp, alt), nil
	default:
		return nil, &SyntaxError{Pos: pos, Msg: fmt.Sprintf("expected computation, got %s '%s'", sym.Kind, sym.Name)}
	}
}

// parsePredicate parses: xor { "|" xor }
func (p *Parser) parsePredicate() (lang.Predicate, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenOr {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = lang.Or(left, right)
	}

	return left, nil
}

// parseXor parses: and { "^" and }
func (p *Parser) parseXor() (lang.Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenXor {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = lang.Xor(left, right)
	}

	return left, nil
}

// parseAnd parses: primary { "&" primary }
func (p *Parser) parseAnd() (lang.Predicate, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenAnd {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = lang.And(left, right)
	}

	return left, nil
}

// parsePrimary parses: "(" predicate ")" | PRED [arg] | PROPPRED property [arg]
func (p *Parser) parsePrimary() (lang.Predicate, error) {
	if p.current.Type == TokenLParen {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return pred, nil
	}

	sym, pos, err := p.symbol("predicate")
	if err != nil {
		return nil, err
	}

	switch sym.Kind {
	case registry.KindPredicate:
		arg, err := p.parseArg(sym)
		if err != nil {
			return nil, err
		}
		return lang.PredArg(sym.Name, arg), nil
	case registry.KindPropertyPredicate:
		prop, err := p.parseProperty()
		if err != nil {
			return nil, err
		}
		arg, err := p.parseArg(sym)
		if err != nil {
			return nil, err
		}
		return lang.PredOfArg(sym.Name, prop, arg), nil
	default:
		return nil, &SyntaxError{Pos: pos, Msg: fmt.Sprintf("expected predicate, got %s '%s'", sym.Kind, sym.Name)}
	}
}

// parseProperty parses: PROP [arg] | "(" PROP [arg] ")"
func (p *Parser) parseProperty() (lang.Property, error) {
	parens := p.current.Type == TokenLParen
	if parens {
		if err := p.nextToken(); err != nil {
			return lang.Property{}, err
		}
	}

	sym, pos, err := p.symbol("property")
	if err != nil {
		return lang.Property{}, err
	}
	if sym.Kind != registry.KindProperty {
		return lang.Property{}, &SyntaxError{Pos: pos, Msg: fmt.Sprintf("expected property, got %s '%s'", sym.Kind, sym.Name)}
	}

	arg, err := p.parseArg(sym)
	if err != nil {
		return lang.Property{}, err
	}

	if parens {
		if err := p.expect(TokenRParen); err != nil {
			return lang.Property{}, err
		}
	}

	return lang.PropArg(sym.Name, arg), nil
}

// symbol consumes an identifier and resolves it. It also returns the
// identifier's position.
func (p *Parser) symbol(expected string) (registry.Symbol, int, error) {
	pos := p.current.Pos
	if p.current.Type != TokenIdent {
		return registry.Symbol{}, pos, p.errorf("expected %s, got %s", expected, p.describe())
	}

	sym, ok := p.symbols.Lookup(p.current.Value)
	if !ok {
		return registry.Symbol{}, pos, p.errorf("unknown symbol '%s'", p.current.Value)
	}

	if err := p.nextToken(); err != nil {
		return registry.Symbol{}, pos, err
	}
	return sym, pos, nil
}

// parseArg parses the constant declared by sym, if any.
func (p *Parser) parseArg(sym registry.Symbol) (lang.Arg, error) {
	if sym.Arg.IsZero() {
		return lang.Arg{}, nil
	}

	pos := p.current.Pos
	switch p.current.Type {
	case TokenHex:
		b, err := hex.DecodeString(p.current.Value[2:])
		if err != nil {
			return lang.Arg{}, p.errorf("invalid hex constant '%s'", p.current.Value)
		}
		if len(b) != sym.Arg.Size {
			return lang.Arg{}, p.errorf("'%s' expects %d bytes, got %d", sym.Name, sym.Arg.Size, len(b))
		}
		if err := p.nextToken(); err != nil {
			return lang.Arg{}, err
		}
		return lang.RawArg(b), nil
	case TokenNumber, TokenIdent, TokenColon:
		if sym.Arg.Class == registry.ArgNumber {
			if p.current.Type != TokenNumber {
				break
			}
			value := p.current.Value
			arg, err := encodeNumber(value, sym.Arg)
			if err != nil {
				return lang.Arg{}, &SyntaxError{Pos: pos, Msg: fmt.Sprintf("'%s': %s", sym.Name, err)}
			}
			if err := p.nextToken(); err != nil {
				return lang.Arg{}, err
			}
			return arg, nil
		}

		literal, err := p.parseAddress()
		if err != nil {
			return lang.Arg{}, err
		}
		arg, err := encodeAddress(literal, sym.Arg)
		if err != nil {
			return lang.Arg{}, &SyntaxError{Pos: pos, Msg: fmt.Sprintf("'%s': %s", sym.Name, err)}
		}
		return arg, nil
	}

	return lang.Arg{}, p.errorf("'%s' expects a %s argument, got %s", sym.Name, sym.Arg.Name, p.describe())
}

// parseAddress joins adjacent tokens into an IP address or CIDR literal.
func (p *Parser) parseAddress() (string, error) {
	var parts []string
	end := p.current.Pos

	for p.current.Pos == end {
		switch p.current.Type {
		case TokenNumber, TokenIdent, TokenDot, TokenColon, TokenSlash:
			parts = append(parts, p.current.Value)
			end = p.current.End()
			if err := p.nextToken(); err != nil {
				return "", err
			}
			continue
		}
		break
	}

	if len(parts) == 0 {
		return "", p.errorf("expected IP address, got %s", p.describe())
	}

	return strings.Join(parts, ""), nil
}

func encodeNumber(value string, typ registry.ArgType) (lang.Arg, error) {
	bits := typ.Size * 8
	signed := strings.HasPrefix(typ.Name, "Int")

	var v any
	if signed {
		n, err := strconv.ParseInt(value, 10, bits)
		if err != nil {
			return lang.Arg{}, fmt.Errorf("number %s does not fit %s", value, typ.Name)
		}
		switch typ.Size {
		case 1:
			v = int8(n)
		case 2:
			v = int16(n)
		case 4:
			v = int32(n)
		default:
			v = n
		}
	} else {
		n, err := strconv.ParseUint(value, 10, bits)
		if err != nil {
			return lang.Arg{}, fmt.Errorf("number %s does not fit %s", value, typ.Name)
		}
		switch typ.Size {
		case 1:
			v = uint8(n)
		case 2:
			v = uint16(n)
		case 4:
			v = uint32(n)
		default:
			v = n
		}
	}

	return lang.NewArg(v)
}

func encodeAddress(literal string, typ registry.ArgType) (lang.Arg, error) {
	width := typ.Size
	if typ.Class == registry.ArgCIDR {
		width -= 4
	}

	prefix, err := parsePrefix(literal, typ.Class == registry.ArgCIDR)
	if err != nil {
		return lang.Arg{}, err
	}

	addr := prefix.Addr()
	if addr.BitLen()/8 != width {
		return lang.Arg{}, fmt.Errorf("address %s is not a %s", literal, typ.Name)
	}

	b := addr.AsSlice()
	if typ.Class == registry.ArgCIDR {
		b = binary.NativeEndian.AppendUint32(b, uint32(prefix.Bits()))
	}
	return lang.RawArg(b), nil
}

func parsePrefix(literal string, cidr bool) (netip.Prefix, error) {
	if cidr && strings.Contains(literal, "/") {
		prefix, err := netip.ParsePrefix(literal)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid network %s", literal)
		}
		return prefix.Masked(), nil
	}

	addr, err := netip.ParseAddr(literal)
	if err != nil {
		if cidr {
			return netip.Prefix{}, fmt.Errorf("invalid network %s", literal)
		}
		return netip.Prefix{}, fmt.Errorf("invalid address %s", literal)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
