package strand

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// Expr is one node of a query expression tree. Expressions are immutable and
// compose freely; the constructor functions in this package are the only way
// to build them. Constructing an invalid node does not panic: the error is
// recorded on the node, reported by Err, and refused by Serialize and by the
// client engines, so a malformed tree never reaches the wire.
type Expr struct {
	kind   exprKind
	name   string
	value  Value
	items  []Expr
	fields []exprField
	err    error
}

// Obj is a convenience mapping literal for query arguments. Keys serialize
// in lexicographic order; use ObjectV when the key order itself matters.
type Obj map[string]any

// Arr is a convenience sequence literal for query arguments.
type Arr []any

type exprKind int

const (
	exprInvalid exprKind = iota
	exprLiteral
	exprArray
	exprObject
	exprBare
	exprNamed
	exprVariadic
	exprBindings
)

type exprField struct {
	key   string
	child Expr
}

// Err reports the first construction error recorded in this expression tree,
// or nil when the tree is well-formed.
func (e Expr) Err() error {
	return e.err
}

func malformedExpr(format string, args ...any) Expr {
	return Expr{err: errors.Join(ErrMalformedExpression, fmt.Errorf(format, args...))}
}

// toExpr converts an argument into an expression node. Expressions pass
// through, values become literal leaves, and plain Go data converts to the
// matching value kind. Anything else poisons the node.
func toExpr(argument any) Expr {
	switch a := argument.(type) {
	case Expr:
		return a
	case Value:
		return Expr{kind: exprLiteral, value: a}
	case nil:
		return Expr{kind: exprLiteral, value: NullV{}}
	case bool:
		return Expr{kind: exprLiteral, value: BoolV(a)}
	case int:
		return Expr{kind: exprLiteral, value: IntV(int64(a))}
	case int8:
		return Expr{kind: exprLiteral, value: IntV(int64(a))}
	case int16:
		return Expr{kind: exprLiteral, value: IntV(int64(a))}
	case int32:
		return Expr{kind: exprLiteral, value: IntV(int64(a))}
	case int64:
		return Expr{kind: exprLiteral, value: IntV(a)}
	case uint8:
		return Expr{kind: exprLiteral, value: IntV(int64(a))}
	case uint16:
		return Expr{kind: exprLiteral, value: IntV(int64(a))}
	case uint32:
		return Expr{kind: exprLiteral, value: IntV(int64(a))}
	case uint:
		if uint64(a) > math.MaxInt64 {
			return malformedExpr("integer literal %d overflows the wire integer range", a)
		}

		return Expr{kind: exprLiteral, value: IntV(int64(a))}
	case uint64:
		if a > math.MaxInt64 {
			return malformedExpr("integer literal %d overflows the wire integer range", a)
		}

		return Expr{kind: exprLiteral, value: IntV(int64(a))}
	case float32:
		return doubleExpr(float64(a))
	case float64:
		return doubleExpr(a)
	case string:
		return Expr{kind: exprLiteral, value: StringV(a)}
	case []byte:
		return Expr{kind: exprLiteral, value: BytesV(append([]byte(nil), a...))}
	case time.Time:
		return Expr{kind: exprLiteral, value: TimeOf(a)}
	case Obj:
		return objExpr(a)
	case map[string]any:
		return objExpr(Obj(a))
	case Arr:
		return arrExpr(a)
	case []any:
		return arrExpr(Arr(a))
	case []Expr:
		items := make([]Expr, len(a))
		copy(items, a)

		return Expr{kind: exprArray, items: items, err: firstItemErr(items)}
	case []string:
		elements := make(Arr, len(a))
		for i, s := range a {
			elements[i] = s
		}

		return arrExpr(elements)
	default:
		return malformedExpr("argument type %T has no query form", argument)
	}
}

func doubleExpr(value float64) Expr {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return malformedExpr("double literal %v has no wire form", value)
	}

	return Expr{kind: exprLiteral, value: DoubleV(value)}
}

// objExpr builds a mapping literal node. Map iteration order is random, so
// the keys are sorted to keep serialization deterministic.
func objExpr(object Obj) Expr {
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	fields := make([]exprField, 0, len(keys))

	var err error

	for _, key := range keys {
		child := toExpr(object[key])
		if child.err != nil && err == nil {
			err = child.err
		}

		fields = append(fields, exprField{key: key, child: child})
	}

	return Expr{kind: exprObject, fields: fields, err: err}
}

func arrExpr(elements Arr) Expr {
	items := make([]Expr, 0, len(elements))

	var err error

	for _, element := range elements {
		child := toExpr(element)
		if child.err != nil && err == nil {
			err = child.err
		}

		items = append(items, child)
	}

	return Expr{kind: exprArray, items: items, err: err}
}

// requiredArg converts a required argument slot. A nil argument is treated
// as a missing argument, not as a null literal; pass NullV explicitly to
// send a null.
func requiredArg(slot string, argument any) Expr {
	if argument == nil {
		return malformedExpr("%s is required", slot)
	}

	return toExpr(argument)
}

func firstItemErr(items []Expr) error {
	for _, item := range items {
		if item.err != nil {
			return item.err
		}
	}

	return nil
}

func firstFieldErr(fields []exprField) error {
	for _, field := range fields {
		if field.child.err != nil {
			return field.child.err
		}
	}

	return nil
}

func bareNode(name string, child Expr) Expr {
	return Expr{kind: exprBare, name: name, items: []Expr{child}, err: child.err}
}

func namedNode(name string, fields []exprField) Expr {
	return Expr{kind: exprNamed, name: name, fields: fields, err: firstFieldErr(fields)}
}

func variadicNode(name string, items []Expr) Expr {
	return Expr{kind: exprVariadic, name: name, items: items, err: firstItemErr(items)}
}

// LetBuilder accumulates the bindings of a let expression. Start with Let,
// chain Bind for further bindings, and complete the expression with In.
type LetBuilder struct {
	bindings []exprField
	err      error
}

// Let starts a let expression with its first binding.
func Let(name string, value any) LetBuilder {
	var builder LetBuilder

	return builder.Bind(name, value)
}

// Bind adds one binding. Bindings are evaluated in order, and later bindings
// may reference earlier ones through Var.
func (b LetBuilder) Bind(name string, value any) LetBuilder {
	if b.err != nil {
		return b
	}

	if name == "" {
		b.err = errors.Join(ErrMalformedExpression, errors.New("let binding requires a name"))

		return b
	}

	child := requiredArg("let binding value", value)
	if child.err != nil {
		b.err = child.err

		return b
	}

	b.bindings = append(slices.Clip(b.bindings), exprField{key: name, child: child})

	return b
}

// In completes the let expression with the body evaluated under the bindings.
func (b LetBuilder) In(body any) Expr {
	if b.err != nil {
		return Expr{err: b.err}
	}

	bodyExpr := requiredArg("let body", body)
	if bodyExpr.err != nil {
		return Expr{err: bodyExpr.err}
	}

	return namedNode(wireLet, []exprField{
		{key: wireBindings, child: Expr{kind: exprBindings, fields: b.bindings}},
		{key: wireIn, child: bodyExpr},
	})
}
