// This file is part of Gopher2600.
//
// Gopher2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopher2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopher2600.  If not, see <https://www.gnu.org/licenses/>.

// Package expr evaluates GNU-LD linker-script expressions over a variable
// environment. It deliberately never shells out to a general expression
// evaluator (no eval): arithmetic is handled by a small recursive-descent
// parser restricted to a safe character set.
package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	membrowseerrors "github.com/jetsetilly/membrowse/errors"
)

// Variable is a linker-script variable: either already resolved to an
// integer, or still a pending expression string awaiting resolution.
type Variable struct {
	Int     int64
	Expr    string
	Resolved bool
}

// IntVar returns a resolved integer Variable.
func IntVar(v int64) Variable { return Variable{Int: v, Resolved: true} }

// ExprVar returns an unresolved expression Variable.
func ExprVar(e string) Variable { return Variable{Expr: e} }

// RegionLookup resolves ORIGIN(name)/LENGTH(name) against the partial
// region map being built by the Linker-Script Parser.
type RegionLookup interface {
	Origin(name string) (uint64, bool)
	Length(name string) (uint64, bool)
}

// Env is the environment an expression is evaluated against.
type Env struct {
	Variables map[string]Variable
	Regions   RegionLookup
}

var sizeSuffix = regexp.MustCompile(`(?i)^(.*?[0-9a-fA-Fx])\s*([KMG])B?$`)

// Evaluate resolves expr to an integer. resolving carries the set of
// variable names currently being expanded, so a reference cycle
// (A = B; B = A) fails instead of recursing forever; callers evaluating
// a fresh top-level expression should pass an empty/nil set.
func Evaluate(expr string, env *Env, resolving map[string]bool) (int64, error) {
	e := strings.TrimSpace(expr)
	if e == "" {
		return 0, membrowseerrors.Errorf(membrowseerrors.ExpressionEvaluationError, "empty expression")
	}

	if v, ok, err := evalFunction(e, env, resolving); ok {
		return v, err
	}

	// DEFINED/ORIGIN/LENGTH calls inside a larger expression are replaced
	// by their values before variable substitution.
	var callErr error
	e = functionCallRe.ReplaceAllStringFunc(e, func(call string) string {
		v, _, err := evalFunction(call, env, resolving)
		if err != nil && callErr == nil {
			callErr = err
		}
		return strconv.FormatInt(v, 10)
	})
	if callErr != nil {
		return 0, callErr
	}

	substituted, err := substituteVariables(e, env, resolving)
	if err != nil {
		return 0, err
	}

	substituted = applySizeSuffixes(substituted)

	if !isSafeArithmetic(substituted) {
		return 0, membrowseerrors.Errorf(membrowseerrors.ExpressionEvaluationError, fmt.Sprintf("unsafe expression %q", expr))
	}

	p := &arithParser{src: substituted}
	v, err := p.parseExpr()
	if err != nil {
		return 0, membrowseerrors.Errorf(membrowseerrors.ExpressionEvaluationError, err.Error())
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, membrowseerrors.Errorf(membrowseerrors.ExpressionEvaluationError, fmt.Sprintf("trailing input in %q", expr))
	}
	return v, nil
}

// evalFunction handles DEFINED/ORIGIN/LENGTH and the ternary operator, the
// constructs that must be recognised before generic variable substitution.
func evalFunction(e string, env *Env, resolving map[string]bool) (int64, bool, error) {
	if m := ternaryRe.FindStringSubmatch(e); m != nil {
		cond := strings.TrimSpace(m[1])
		truthy, _ := evalCond(cond, env)
		if truthy {
			v, err := Evaluate(m[2], env, resolving)
			return v, true, err
		}
		v, err := Evaluate(m[3], env, resolving)
		return v, true, err
	}

	if m := definedRe.FindStringSubmatch(e); m != nil {
		_, ok := env.Variables[m[1]]
		if ok {
			return 1, true, nil
		}
		return 0, true, nil
	}

	if m := originRe.FindStringSubmatch(e); m != nil {
		if env.Regions == nil {
			return 0, true, membrowseerrors.Errorf(membrowseerrors.ExpressionEvaluationError, fmt.Sprintf("ORIGIN(%s): no region map available", m[1]))
		}
		v, ok := env.Regions.Origin(m[1])
		if !ok {
			return 0, true, membrowseerrors.Errorf(membrowseerrors.ExpressionEvaluationError, fmt.Sprintf("ORIGIN(%s): region not yet known", m[1]))
		}
		return int64(v), true, nil
	}

	if m := lengthRe.FindStringSubmatch(e); m != nil {
		if env.Regions == nil {
			return 0, true, membrowseerrors.Errorf(membrowseerrors.ExpressionEvaluationError, fmt.Sprintf("LENGTH(%s): no region map available", m[1]))
		}
		v, ok := env.Regions.Length(m[1])
		if !ok {
			return 0, true, membrowseerrors.Errorf(membrowseerrors.ExpressionEvaluationError, fmt.Sprintf("LENGTH(%s): region not yet known", m[1]))
		}
		return int64(v), true, nil
	}

	return 0, false, nil
}

var (
	ternaryRe = regexp.MustCompile(`^(.+?)\?(.+):(.+)$`)
	definedRe = regexp.MustCompile(`(?i)^DEFINED\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)$`)
	originRe  = regexp.MustCompile(`(?i)^ORIGIN\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)$`)
	lengthRe  = regexp.MustCompile(`(?i)^LENGTH\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)$`)

	functionCallRe = regexp.MustCompile(`(?i)\b(?:DEFINED|ORIGIN|LENGTH)\(\s*[A-Za-z_][A-Za-z0-9_]*\s*\)`)
)

// evalCond evaluates a ternary condition: a variable name (truthy when
// non-zero), DEFINED(sym), or the literal 0/1. Anything else is false.
func evalCond(cond string, env *Env) (truthy bool, supported bool) {
	switch cond {
	case "0":
		return false, true
	case "1":
		return true, true
	}
	if m := definedRe.FindStringSubmatch(cond); m != nil {
		_, ok := env.Variables[m[1]]
		return ok, true
	}
	if v, ok := env.Variables[cond]; ok && v.Resolved {
		return v.Int != 0, true
	}
	return false, false
}

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// substituteVariables textually replaces identifiers with their resolved
// integer values (or recursively evaluates pending string expressions,
// guarding against cycles).
func substituteVariables(e string, env *Env, resolving map[string]bool) (string, error) {
	var outerErr error
	result := identifierRe.ReplaceAllStringFunc(e, func(name string) string {
		if outerErr != nil {
			return name
		}
		v, ok := env.Variables[name]
		if !ok {
			// not a known variable; leave as-is, it may be a size suffix
			// letter handled later, or it's simply unresolved and will
			// fail the safe-arithmetic check below.
			return name
		}
		if v.Resolved {
			return strconv.FormatInt(v.Int, 10)
		}
		if resolving[name] {
			// cycle: skip re-entry, leave unresolved so the caller's
			// safe-arithmetic check rejects the expression rather than
			// looping forever.
			return name
		}
		nextResolving := make(map[string]bool, len(resolving)+1)
		for k := range resolving {
			nextResolving[k] = true
		}
		nextResolving[name] = true

		resolved, err := Evaluate(v.Expr, env, nextResolving)
		if err != nil {
			outerErr = err
			return name
		}
		return strconv.FormatInt(resolved, 10)
	})
	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}

var suffixMul = map[byte]int64{
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
}

// applySizeSuffixes expands a single trailing K/KB, M/MB or G/GB suffix
// (case-insensitive) on an otherwise-numeric token. Applied before
// arithmetic, so "512K" becomes "(512*1024)".
func applySizeSuffixes(e string) string {
	m := sizeSuffix.FindStringSubmatch(strings.TrimSpace(e))
	if m == nil {
		return e
	}
	mult := suffixMul[strings.ToUpper(m[2])[0]]
	return fmt.Sprintf("(%s*%d)", m[1], mult)
}

var safeCharset = regexp.MustCompile(`^[0-9A-Fa-fxX+\-*/() \t]+$`)

func isSafeArithmetic(e string) bool {
	return safeCharset.MatchString(e)
}

// arithParser is a recursive-descent parser for the restricted grammar
// expr := term (('+'|'-') term)*, term := factor (('*'|'/') factor)*,
// factor := '-'? ( '(' expr ')' | number ).
type arithParser struct {
	src string
	pos int
}

func (p *arithParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *arithParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *arithParser) parseExpr() (int64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (p *arithParser) parseTerm() (int64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case '/':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v = floorDiv(v, rhs)
		default:
			return v, nil
		}
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (p *arithParser) parseFactor() (int64, error) {
	neg := false
	if p.peek() == '-' {
		neg = true
		p.pos++
	}
	if p.peek() == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("expected ')'")
		}
		p.pos++
		if neg {
			v = -v
		}
		return v, nil
	}
	v, err := p.parseNumber()
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}

func (p *arithParser) parseNumber() (int64, error) {
	p.skipSpace()
	start := p.pos
	if strings.HasPrefix(p.src[p.pos:], "0x") || strings.HasPrefix(p.src[p.pos:], "0X") {
		p.pos += 2
		digitsStart := p.pos
		for p.pos < len(p.src) && isHexDigit(p.src[p.pos]) {
			p.pos++
		}
		if p.pos == digitsStart {
			return 0, fmt.Errorf("malformed hex literal")
		}
		v, err := strconv.ParseInt(p.src[start+2:p.pos], 16, 64)
		return v, err
	}

	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected number at %q", p.src[p.pos:])
	}
	lit := p.src[start:p.pos]
	if len(lit) >= 2 && lit[0] == '0' {
		v, err := strconv.ParseInt(lit, 8, 64)
		return v, err
	}
	v, err := strconv.ParseInt(lit, 10, 64)
	return v, err
}

func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isHexDigit(c byte) bool { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }
