package expr_test

import (
	"testing"

	"github.com/jetsetilly/membrowse/errors"
	"github.com/jetsetilly/membrowse/internal/expr"
	"github.com/jetsetilly/membrowse/test"
)

func env(vars map[string]expr.Variable) *expr.Env {
	return &expr.Env{Variables: vars}
}

func TestArithmetic(t *testing.T) {
	v, err := expr.Evaluate("2 + 3 * 4", env(nil), nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(14))

	v, err = expr.Evaluate("(2 + 3) * 4", env(nil), nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(20))

	v, err = expr.Evaluate("7 / 2", env(nil), nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(3))
}

func TestDivisionByZero(t *testing.T) {
	_, err := expr.Evaluate("1 / 0", env(nil), nil)
	test.ExpectFailure(t, err)
	test.Equate(t, errors.Is(err, errors.ExpressionEvaluationError), true)
}

func TestHexLiteral(t *testing.T) {
	v, err := expr.Evaluate("0x08000000", env(nil), nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(0x08000000))
}

func TestSizeSuffix(t *testing.T) {
	v, err := expr.Evaluate("512K", env(nil), nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(512*1024))

	v, err = expr.Evaluate("1M", env(nil), nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(1<<20))
}

func TestVariableSubstitution(t *testing.T) {
	e := env(map[string]expr.Variable{
		"_size": expr.IntVar(512 * 1024),
	})
	v, err := expr.Evaluate("_size", e, nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(512*1024))
}

func TestRecursiveExpressionVariable(t *testing.T) {
	e := env(map[string]expr.Variable{
		"A": expr.ExprVar("B + 1"),
		"B": expr.IntVar(10),
	})
	v, err := expr.Evaluate("A", e, nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(11))
}

func TestCyclicVariablesDoNotInfiniteLoop(t *testing.T) {
	e := env(map[string]expr.Variable{
		"A": expr.ExprVar("B"),
		"B": expr.ExprVar("A"),
	})
	_, err := expr.Evaluate("A", e, nil)
	test.ExpectFailure(t, err)
}

func TestDefined(t *testing.T) {
	e := env(map[string]expr.Variable{"FOO": expr.IntVar(1)})
	v, err := expr.Evaluate("DEFINED(FOO)", e, nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(1))

	v, err = expr.Evaluate("DEFINED(BAR)", e, nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(0))
}

func TestTernary(t *testing.T) {
	e := env(map[string]expr.Variable{"FOO": expr.IntVar(1)})
	v, err := expr.Evaluate("DEFINED(FOO) ? 100 : 200", e, nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(100))

	v, err = expr.Evaluate("DEFINED(BAR) ? 100 : 200", e, nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(200))
}

type fakeRegions struct {
	origin, length map[string]uint64
}

func (f fakeRegions) Origin(name string) (uint64, bool) { v, ok := f.origin[name]; return v, ok }
func (f fakeRegions) Length(name string) (uint64, bool) { v, ok := f.length[name]; return v, ok }

func TestOriginLength(t *testing.T) {
	e := env(nil)
	e.Regions = fakeRegions{
		origin: map[string]uint64{"FLASH": 0x08000000},
		length: map[string]uint64{"FLASH": 512 * 1024},
	}
	v, err := expr.Evaluate("ORIGIN(FLASH)", e, nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(0x08000000))

	v, err = expr.Evaluate("LENGTH(FLASH) + 1", e, nil)
	test.ExpectSuccess(t, err)
	test.Equate(t, v, int64(512*1024+1))
}
