/*
Package expression holds the policy language used in darc rules. The
grammar, in extended-BNF notation:

	expr = term, [ '&', term ]*
	term = factor, [ '|', factor ]*
	factor = '(', expr, ')' | id
	id = [0-9a-z]+, ':', [0-9a-f]+

Examples:

	ed25519:deadbeef // every id evaluates to a boolean
	(a:a & b:b) | (c:c & d:d)

In the simplest case, an expression is evaluated against a set of
valid ids: with the expression (a:a & b:b) | (c:c & d:d) and the valid
ids [a:a, b:b] the result is true, with [a:a, c:c] it is false. The
caller can supply its own ValueCheckFn to change how single ids are
decided, which is how darc delegation is plugged in.
*/
package expression

import (
	"strings"

	parsec "github.com/prataprc/goparsec"
	"golang.org/x/xerrors"
)

// OR and AND are the operators accepted between ids.
const (
	OR  = "|"
	AND = "&"
)

var errScannerNotEmpty = xerrors.New("parsing failed - scanner is not empty")
var errNotBool = xerrors.New("evaluation failed - result is not a boolean")

// ValueCheckFn decides whether a single id of the expression counts as
// satisfied.
type ValueCheckFn func(string) bool

// Expr is the raw, unparsed text of an expression.
type Expr []byte

// InitParser creates the root parser with the given id-checking
// function.
func InitParser(fn ValueCheckFn) parsec.Parser {
	var Y parsec.Parser
	var sum, value parsec.Parser

	// terminals
	openparan := parsec.Token(`\(`, "OPENPARAN")
	closeparan := parsec.Token(`\)`, "CLOSEPARAN")
	andop := parsec.Token(`&`, "AND")
	orop := parsec.Token(`\|`, "OR")

	// sumOp -> "&" | "|"
	sumOp := parsec.OrdChoice(first, andop, orop)

	// group -> "(" expr ")"
	group := parsec.And(insideGroup, openparan, &sum, closeparan)

	// rest -> (sumOp value)*
	rest := parsec.Kleene(nil, parsec.And(nodes, sumOp, &value), nil)

	// sum -> value (sumOp value)*
	sum = parsec.And(fold, &value, rest)
	// value -> id | group
	value = parsec.OrdChoice(checkValue(fn), id(), group)
	Y = parsec.OrdChoice(first, sum)
	return Y
}

// Evaluate runs the parser over the expression and returns the boolean
// result. The result is only valid if the error is nil.
func Evaluate(parser parsec.Parser, expr Expr) (bool, error) {
	v, s := parser(parsec.NewScanner(expr))
	_, s = s.SkipWS()
	if !s.Endof() {
		return false, errScannerNotEmpty
	}
	vv, ok := v.(bool)
	if !ok {
		return false, errNotBool
	}
	return vv, nil
}

// DefaultParser evaluates the expression where every id present in ids
// evaluates to true.
func DefaultParser(expr Expr, ids ...string) (bool, error) {
	return Evaluate(InitParser(func(s string) bool {
		for _, k := range ids {
			if k == s {
				return true
			}
		}
		return false
	}), expr)
}

// InitAndExpr joins all ids with the AND operator.
func InitAndExpr(ids ...string) Expr {
	return Expr(strings.Join(ids, " "+AND+" "))
}

// InitOrExpr joins all ids with the OR operator.
func InitOrExpr(ids ...string) Expr {
	return Expr(strings.Join(ids, " "+OR+" "))
}

func id() parsec.Parser {
	return func(s parsec.Scanner) (parsec.ParsecNode, parsec.Scanner) {
		_, s = s.SkipAny(`^[ \n\t]+`)
		p := parsec.Token(`[0-9a-z]+:[0-9a-f]+`, "ID")
		return p(s)
	}
}

// fold combines a value with the trailing (op value)* list into a
// single boolean.
func fold(ns []parsec.ParsecNode) parsec.ParsecNode {
	if len(ns) == 0 {
		return nil
	}
	val := ns[0].(bool)
	for _, x := range ns[1].([]parsec.ParsecNode) {
		y := x.([]parsec.ParsecNode)
		n := y[1].(bool)
		switch y[0].(*parsec.Terminal).Name {
		case "AND":
			val = val && n
		case "OR":
			val = val || n
		}
	}
	return val
}

// checkValue resolves a terminal id through fn, everything else is
// passed through (already a boolean from a group).
func checkValue(fn ValueCheckFn) func(ns []parsec.ParsecNode) parsec.ParsecNode {
	return func(ns []parsec.ParsecNode) parsec.ParsecNode {
		if len(ns) == 0 {
			return nil
		}
		if term, ok := ns[0].(*parsec.Terminal); ok {
			return fn(term.Value)
		}
		return ns[0]
	}
}

func insideGroup(ns []parsec.ParsecNode) parsec.ParsecNode {
	if len(ns) == 0 {
		return nil
	}
	return ns[1]
}

func first(ns []parsec.ParsecNode) parsec.ParsecNode {
	if len(ns) == 0 {
		return nil
	}
	return ns[0]
}

func nodes(ns []parsec.ParsecNode) parsec.ParsecNode {
	if len(ns) == 0 {
		return nil
	}
	return ns
}
