package strand_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strand-db/strand-client-go/strand"
)

//nolint:funlen
func Test_ExprConstruction_ErrorCases(t *testing.T) {
	tests := []struct {
		name        string
		build       func() strand.Expr
		expectedMsg string
	}{
		{
			name:        "empty_collection_name",
			build:       func() strand.Expr { return strand.Collection("") },
			expectedMsg: "collection requires a name",
		},
		{
			name:        "empty_index_name",
			build:       func() strand.Expr { return strand.Index("") },
			expectedMsg: "index requires a name",
		},
		{
			name:        "empty_database_name",
			build:       func() strand.Expr { return strand.Database("") },
			expectedMsg: "database requires a name",
		},
		{
			name:        "empty_var_name",
			build:       func() strand.Expr { return strand.Var("") },
			expectedMsg: "var requires a name",
		},
		{
			name:        "ref_without_id",
			build:       func() strand.Expr { return strand.Ref(strand.Collection("users"), "") },
			expectedMsg: "ref requires an id",
		},
		{
			name:        "ref_without_collection",
			build:       func() strand.Expr { return strand.Ref(nil, "42") },
			expectedMsg: "ref collection is required",
		},
		{
			name:        "get_without_reference",
			build:       func() strand.Expr { return strand.Get(nil) },
			expectedMsg: "get reference is required",
		},
		{
			name:        "variadic_without_arguments",
			build:       func() strand.Expr { return strand.Add() },
			expectedMsg: "add requires at least one argument",
		},
		{
			name:        "variadic_with_nil_argument",
			build:       func() strand.Expr { return strand.Add(1, nil) },
			expectedMsg: "add argument 1 is required",
		},
		{
			name:        "lambda_without_parameters",
			build:       func() strand.Expr { return strand.Lambda([]string{}, strand.Var("x")) },
			expectedMsg: "lambda requires at least one parameter",
		},
		{
			name:        "lambda_with_empty_parameter_name",
			build:       func() strand.Expr { return strand.Lambda([]string{"x", ""}, strand.Var("x")) },
			expectedMsg: "lambda parameter names must not be empty",
		},
		{
			name: "paginate_size_not_positive",
			build: func() strand.Expr {
				return strand.Paginate(strand.Match(strand.Index("all_users")), strand.Size(0))
			},
			expectedMsg: "page size must be positive",
		},
		{
			name: "paginate_option_supplied_twice",
			build: func() strand.Expr {
				return strand.Paginate(strand.Match(strand.Index("all_users")), strand.Size(1), strand.Size(2))
			},
			expectedMsg: "paginate option size supplied twice",
		},
		{
			name:        "match_with_nil_term",
			build:       func() strand.Expr { return strand.Match(strand.Index("all_users"), nil) },
			expectedMsg: "match term is required",
		},
		{
			name:        "if_with_missing_branch",
			build:       func() strand.Expr { return strand.If(true, nil, "fallback") },
			expectedMsg: "if then branch is required",
		},
		{
			name:        "argument_type_without_query_form",
			build:       func() strand.Expr { return strand.Get(struct{}{}) },
			expectedMsg: "has no query form",
		},
		{
			name:        "uint64_overflowing_wire_integer_range",
			build:       func() strand.Expr { return strand.Do(uint64(math.MaxInt64) + 1) },
			expectedMsg: "overflows the wire integer range",
		},
		{
			name:        "nan_double_literal",
			build:       func() strand.Expr { return strand.Do(math.NaN()) },
			expectedMsg: "has no wire form",
		},
		{
			name:        "infinite_double_literal",
			build:       func() strand.Expr { return strand.Do(math.Inf(1)) },
			expectedMsg: "has no wire form",
		},
		{
			name:        "let_binding_without_name",
			build:       func() strand.Expr { return strand.Let("", 1).In(strand.Var("x")) },
			expectedMsg: "let binding requires a name",
		},
		{
			name:        "let_binding_without_value",
			build:       func() strand.Expr { return strand.Let("a", nil).In(strand.Var("a")) },
			expectedMsg: "let binding value is required",
		},
		{
			name:        "let_without_body",
			build:       func() strand.Expr { return strand.Let("a", 1).In(nil) },
			expectedMsg: "let body is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := tt.build()

			assert.ErrorIs(t, expr.Err(), strand.ErrMalformedExpression)
			assert.ErrorContains(t, expr.Err(), tt.expectedMsg)

			wire, err := strand.Serialize(expr)
			assert.ErrorIs(t, err, strand.ErrMalformedExpression, "a poisoned tree must never serialize")
			assert.Nil(t, wire)
		})
	}
}

func Test_ExprConstruction_ErrorsPropagateThroughNesting(t *testing.T) {
	expr := strand.Map(
		strand.Paginate(strand.Match(strand.Index("")), strand.Size(5)),
		strand.Lambda([]string{"x"}, strand.Get(strand.Var("x"))),
	)

	assert.ErrorIs(t, expr.Err(), strand.ErrMalformedExpression)
	assert.ErrorContains(t, expr.Err(), "index requires a name",
		"the innermost construction error must surface at the root")
}

func Test_ExprConstruction_ValidTreesCarryNoError(t *testing.T) {
	exprs := []strand.Expr{
		strand.Get(strand.Ref(strand.Collection("users"), "42")),
		strand.Paginate(strand.Match(strand.Index("all_users")), strand.Size(10)),
		strand.Map(
			strand.Paginate(strand.Match(strand.Index("all_users"))),
			strand.Lambda([]string{"ref"}, strand.Get(strand.Var("ref"))),
		),
		strand.Let("a", 1).Bind("b", strand.Var("a")).In(strand.Add(strand.Var("a"), strand.Var("b"))),
		strand.If(strand.Exists(strand.Ref(strand.Collection("users"), "42")), "present", "absent"),
		strand.Do(strand.CreateCollection(strand.Obj{"name": "users"}), strand.Collection("users")),
	}

	for _, expr := range exprs {
		assert.NoError(t, expr.Err())
	}
}

func Test_Serialize_RefusesZeroExpression(t *testing.T) {
	wire, err := strand.Serialize(strand.Expr{})

	assert.ErrorIs(t, err, strand.ErrMalformedExpression)
	assert.Nil(t, wire)
}

func Test_LetBuilder_ForksStayIndependent(t *testing.T) {
	base := strand.Let("a", 1)

	left := base.Bind("b", 2).In(strand.Var("b"))
	right := base.Bind("c", 3).In(strand.Var("c"))

	leftWire, err := strand.Serialize(left)
	require.NoError(t, err)

	rightWire, err := strand.Serialize(right)
	require.NoError(t, err)

	assert.Equal(t,
		`{"let":{"bindings":[{"a":1},{"b":2}],"in":{"var":"b"}}}`,
		string(leftWire))
	assert.Equal(t,
		`{"let":{"bindings":[{"a":1},{"c":3}],"in":{"var":"c"}}}`,
		string(rightWire),
		"binding a fork must not leak into its sibling")
}

func Test_LetBuilder_ShadowingKeepsBothBindings(t *testing.T) {
	expr := strand.Let("x", 1).Bind("x", 2).In(strand.Var("x"))

	wire, err := strand.Serialize(expr)
	require.NoError(t, err)

	assert.Equal(t,
		`{"let":{"bindings":[{"x":1},{"x":2}],"in":{"var":"x"}}}`,
		string(wire),
		"shadowed names stay as separate ordered bindings")
}

func Test_ExprArguments_ByteSlicesAreCopied(t *testing.T) {
	blob := []byte{1, 2, 3}
	expr := strand.Do(blob)

	blob[0] = 9

	wire, err := strand.Serialize(expr)
	require.NoError(t, err)

	assert.Equal(t, `{"do":[{"@bytes":"AQID"}]}`, string(wire),
		"mutating the argument after construction must not change the expression")
}
