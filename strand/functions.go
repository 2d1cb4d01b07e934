package strand

import (
	"errors"
	"fmt"
)

// Wire names of the query primitives and their argument keys. Every
// expression node serializes to a single-key JSON object named after its
// primitive.
const (
	wireObject = "object"

	wireCollection       = "collection"
	wireIndex            = "index"
	wireDatabase         = "database"
	wireVar              = "var"
	wireGet              = "get"
	wireExists           = "exists"
	wireDelete           = "delete"
	wireCreateCollection = "create_collection"
	wireCreateIndex      = "create_index"
	wireQuery            = "query"

	wireRef      = "ref"
	wireMatch    = "match"
	wirePaginate = "paginate"
	wireIf       = "if"
	wireLet      = "let"
	wireLambda   = "lambda"
	wireMap      = "map"
	wireFilter   = "filter"
	wireAt       = "at"
	wireCreate   = "create"
	wireUpdate   = "update"
	wireReplace  = "replace"
	wireLogin    = "login"
	wireIdentify = "identify"

	wireAdd    = "add"
	wireUnion  = "union"
	wireAnd    = "and"
	wireOr     = "or"
	wireEquals = "equals"
	wireDo     = "do"

	wireID       = "id"
	wireTerms    = "terms"
	wireInput    = "input"
	wireSize     = "size"
	wireAfter    = "after"
	wireBefore   = "before"
	wireEvents   = "events"
	wireSources  = "sources"
	wireCond     = "cond"
	wireThen     = "then"
	wireElse     = "else"
	wireBindings = "bindings"
	wireIn       = "in"
	wireParams   = "params"
	wireBody     = "body"
	wireFn       = "fn"
	wireTS       = "ts"
	wirePassword = "password"
)

// Collection names the collection called name in the current database.
func Collection(name string) Expr {
	if name == "" {
		return malformedExpr("collection requires a name")
	}

	return bareNode(wireCollection, toExpr(name))
}

// Index names the index called name in the current database.
func Index(name string) Expr {
	if name == "" {
		return malformedExpr("index requires a name")
	}

	return bareNode(wireIndex, toExpr(name))
}

// Database names a child database.
func Database(name string) Expr {
	if name == "" {
		return malformedExpr("database requires a name")
	}

	return bareNode(wireDatabase, toExpr(name))
}

// Var reads the binding called name introduced by an enclosing Let or
// Lambda.
func Var(name string) Expr {
	if name == "" {
		return malformedExpr("var requires a name")
	}

	return bareNode(wireVar, toExpr(name))
}

// Ref builds a reference to the document with the given id inside a
// collection, usually one built with Collection.
func Ref(collection any, id string) Expr {
	if id == "" {
		return malformedExpr("ref requires an id")
	}

	return namedNode(wireRef, []exprField{
		{key: wireCollection, child: requiredArg("ref collection", collection)},
		{key: wireID, child: toExpr(id)},
	})
}

// Get retrieves the document a reference points at.
func Get(ref any) Expr {
	return bareNode(wireGet, requiredArg("get reference", ref))
}

// Exists tests whether the document a reference points at is present.
func Exists(ref any) Expr {
	return bareNode(wireExists, requiredArg("exists reference", ref))
}

// Delete removes the document a reference points at.
func Delete(ref any) Expr {
	return bareNode(wireDelete, requiredArg("delete reference", ref))
}

// CreateCollection creates a collection from a parameter mapping.
func CreateCollection(params any) Expr {
	return bareNode(wireCreateCollection, requiredArg("create_collection params", params))
}

// CreateIndex creates an index from a parameter mapping.
func CreateIndex(params any) Expr {
	return bareNode(wireCreateIndex, requiredArg("create_index params", params))
}

// Query wraps a lambda so it can be stored or passed around as data instead
// of being evaluated in place.
func Query(lambda any) Expr {
	return bareNode(wireQuery, requiredArg("query lambda", lambda))
}

// Match selects the entries of an index. Term arguments narrow the match; a
// single term is carried as-is, several terms as a sequence.
func Match(index any, terms ...any) Expr {
	fields := []exprField{
		{key: wireIndex, child: requiredArg("match index", index)},
	}

	switch len(terms) {
	case 0:
		// No terms key at all.
	case 1:
		fields = append(fields, exprField{key: wireTerms, child: requiredArg("match term", terms[0])})
	default:
		fields = append(fields, exprField{key: wireTerms, child: toExpr(Arr(terms))})
	}

	return namedNode(wireMatch, fields)
}

// PaginateOption configures one optional argument of a Paginate expression.
type PaginateOption func(*paginateArgs) error

type paginateArgs struct {
	fields []exprField
}

func (p *paginateArgs) set(key string, child Expr) error {
	if child.err != nil {
		return child.err
	}

	for _, field := range p.fields {
		if field.key == key {
			return errors.Join(ErrMalformedExpression, fmt.Errorf("paginate option %s supplied twice", key))
		}
	}

	p.fields = append(p.fields, exprField{key: key, child: child})

	return nil
}

// Size limits the page to at most size entries.
func Size(size int) PaginateOption {
	return func(p *paginateArgs) error {
		if size <= 0 {
			return errors.Join(ErrMalformedExpression, fmt.Errorf("page size must be positive, got %d", size))
		}

		return p.set(wireSize, toExpr(size))
	}
}

// After resumes the page at the given cursor, inclusive.
func After(cursor any) PaginateOption {
	return func(p *paginateArgs) error {
		return p.set(wireAfter, requiredArg("paginate after cursor", cursor))
	}
}

// Before ends the page at the given cursor, exclusive.
func Before(cursor any) PaginateOption {
	return func(p *paginateArgs) error {
		return p.set(wireBefore, requiredArg("paginate before cursor", cursor))
	}
}

// Events switches the page to the event history of the paginated set.
func Events(include bool) PaginateOption {
	return func(p *paginateArgs) error {
		return p.set(wireEvents, toExpr(include))
	}
}

// Sources includes the source set of every entry in the page.
func Sources(include bool) PaginateOption {
	return func(p *paginateArgs) error {
		return p.set(wireSources, toExpr(include))
	}
}

// Paginate walks the given set page by page. Options that are not supplied
// are omitted from the wire form entirely, they are never sent as null.
func Paginate(input any, options ...PaginateOption) Expr {
	inputExpr := requiredArg("paginate input", input)
	if inputExpr.err != nil {
		return Expr{err: inputExpr.err}
	}

	var args paginateArgs

	for _, option := range options {
		if optionErr := option(&args); optionErr != nil {
			return Expr{err: optionErr}
		}
	}

	fields := append([]exprField{{key: wireInput, child: inputExpr}}, orderedPaginateFields(args.fields)...)

	return namedNode(wirePaginate, fields)
}

// orderedPaginateFields fixes the option order on the wire regardless of the
// order options were supplied in, keeping serialization canonical.
func orderedPaginateFields(fields []exprField) []exprField {
	ordered := make([]exprField, 0, len(fields))

	for _, key := range []string{wireSize, wireAfter, wireBefore, wireEvents, wireSources} {
		for _, field := range fields {
			if field.key == key {
				ordered = append(ordered, field)
			}
		}
	}

	return ordered
}

// If evaluates cond and then evaluates exactly one of the two branches.
func If(cond any, then any, otherwise any) Expr {
	return namedNode(wireIf, []exprField{
		{key: wireCond, child: requiredArg("if condition", cond)},
		{key: wireThen, child: requiredArg("if then branch", then)},
		{key: wireElse, child: requiredArg("if else branch", otherwise)},
	})
}

// Lambda builds an anonymous function of the named parameters. The body
// reads them back through Var.
func Lambda(params []string, body any) Expr {
	if len(params) == 0 {
		return malformedExpr("lambda requires at least one parameter")
	}

	for _, param := range params {
		if param == "" {
			return malformedExpr("lambda parameter names must not be empty")
		}
	}

	return namedNode(wireLambda, []exprField{
		{key: wireParams, child: toExpr(params)},
		{key: wireBody, child: requiredArg("lambda body", body)},
	})
}

// Map applies fn to every entry of input and yields the results.
func Map(input any, fn any) Expr {
	return namedNode(wireMap, []exprField{
		{key: wireInput, child: requiredArg("map input", input)},
		{key: wireFn, child: requiredArg("map fn", fn)},
	})
}

// Filter keeps the entries of input for which fn yields true.
func Filter(input any, fn any) Expr {
	return namedNode(wireFilter, []exprField{
		{key: wireInput, child: requiredArg("filter input", input)},
		{key: wireFn, child: requiredArg("filter fn", fn)},
	})
}

// At evaluates an expression against the dataset as it was at the given
// point in time.
func At(timestamp any, expr any) Expr {
	return namedNode(wireAt, []exprField{
		{key: wireTS, child: requiredArg("at timestamp", timestamp)},
		{key: wireIn, child: requiredArg("at expression", expr)},
	})
}

// Create stores a new document in a collection.
func Create(collection any, params any) Expr {
	return namedNode(wireCreate, []exprField{
		{key: wireCollection, child: requiredArg("create collection", collection)},
		{key: wireParams, child: requiredArg("create params", params)},
	})
}

// Update merges new data into the document a reference points at.
func Update(ref any, params any) Expr {
	return namedNode(wireUpdate, []exprField{
		{key: wireRef, child: requiredArg("update reference", ref)},
		{key: wireParams, child: requiredArg("update params", params)},
	})
}

// Replace swaps the document a reference points at for new data.
func Replace(ref any, params any) Expr {
	return namedNode(wireReplace, []exprField{
		{key: wireRef, child: requiredArg("replace reference", ref)},
		{key: wireParams, child: requiredArg("replace params", params)},
	})
}

// Login obtains a session secret for the identity a reference points at.
func Login(ref any, params any) Expr {
	return namedNode(wireLogin, []exprField{
		{key: wireRef, child: requiredArg("login reference", ref)},
		{key: wireParams, child: requiredArg("login params", params)},
	})
}

// Identify checks credentials against the identity a reference points at.
func Identify(ref any, password any) Expr {
	return namedNode(wireIdentify, []exprField{
		{key: wireRef, child: requiredArg("identify reference", ref)},
		{key: wirePassword, child: requiredArg("identify password", password)},
	})
}

// Add sums the given numbers.
func Add(values ...any) Expr {
	return variadic(wireAdd, values)
}

// Union merges the given sets.
func Union(sets ...any) Expr {
	return variadic(wireUnion, sets)
}

// And is true when every condition is true.
func And(conditions ...any) Expr {
	return variadic(wireAnd, conditions)
}

// Or is true when at least one condition is true.
func Or(conditions ...any) Expr {
	return variadic(wireOr, conditions)
}

// Equals is true when all values are equal.
func Equals(values ...any) Expr {
	return variadic(wireEquals, values)
}

// Do evaluates the expressions in order and yields the last result.
func Do(exprs ...any) Expr {
	return variadic(wireDo, exprs)
}

func variadic(name string, arguments []any) Expr {
	if len(arguments) == 0 {
		return malformedExpr("%s requires at least one argument", name)
	}

	items := make([]Expr, 0, len(arguments))

	for i, argument := range arguments {
		child := requiredArg(fmt.Sprintf("%s argument %d", name, i), argument)
		items = append(items, child)
	}

	return variadicNode(name, items)
}
