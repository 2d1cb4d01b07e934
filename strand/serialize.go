package strand

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

// Serialize renders an expression tree to its canonical wire form. The same
// tree always serializes to identical bytes: argument order is fixed per
// primitive, mapping literals keep or sort their key order, and omitted
// optional arguments leave no trace. A tree carrying a construction error is
// refused with that error before anything is written.
func Serialize(expr Expr) ([]byte, error) {
	if expr.err != nil {
		return nil, expr.err
	}

	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)

	if writeErr := writeExpr(stream, expr); writeErr != nil {
		return nil, writeErr
	}

	if stream.Error != nil {
		return nil, errors.Join(ErrSerializationFailed, stream.Error)
	}

	wire := make([]byte, len(stream.Buffer()))
	copy(wire, stream.Buffer())

	return wire, nil
}

// Fingerprint returns a stable fingerprint of an expression in the form
// "sha256:<hex>", computed over the canonical serialization. Trees that
// serialize identically share a fingerprint, which makes it usable as a
// cache or replay key.
func Fingerprint(expr Expr) (string, error) {
	wire, serializeErr := Serialize(expr)
	if serializeErr != nil {
		return "", serializeErr
	}

	digest := sha256.Sum256(wire)

	return "sha256:" + hex.EncodeToString(digest[:]), nil
}

func writeExpr(stream *jsoniter.Stream, expr Expr) error {
	if expr.err != nil {
		return expr.err
	}

	switch expr.kind {
	case exprLiteral:
		return encodeValue(stream, expr.value, literalMode)
	case exprArray:
		return writeExprItems(stream, expr.items)
	case exprObject:
		stream.WriteObjectStart()
		stream.WriteObjectField(wireObject)

		if writeErr := writeExprFields(stream, expr.fields); writeErr != nil {
			return writeErr
		}

		stream.WriteObjectEnd()
	case exprBare:
		stream.WriteObjectStart()
		stream.WriteObjectField(expr.name)

		if writeErr := writeExpr(stream, expr.items[0]); writeErr != nil {
			return writeErr
		}

		stream.WriteObjectEnd()
	case exprNamed:
		stream.WriteObjectStart()
		stream.WriteObjectField(expr.name)

		if writeErr := writeExprFields(stream, expr.fields); writeErr != nil {
			return writeErr
		}

		stream.WriteObjectEnd()
	case exprVariadic:
		stream.WriteObjectStart()
		stream.WriteObjectField(expr.name)

		if writeErr := writeExprItems(stream, expr.items); writeErr != nil {
			return writeErr
		}

		stream.WriteObjectEnd()
	case exprBindings:
		return writeBindings(stream, expr.fields)
	default:
		return errors.Join(ErrMalformedExpression, errors.New("empty expression"))
	}

	return nil
}

func writeExprItems(stream *jsoniter.Stream, items []Expr) error {
	stream.WriteArrayStart()

	for i, item := range items {
		if i > 0 {
			stream.WriteMore()
		}

		if writeErr := writeExpr(stream, item); writeErr != nil {
			return writeErr
		}
	}

	stream.WriteArrayEnd()

	return nil
}

func writeExprFields(stream *jsoniter.Stream, fields []exprField) error {
	stream.WriteObjectStart()

	for i, field := range fields {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(field.key)

		if writeErr := writeExpr(stream, field.child); writeErr != nil {
			return writeErr
		}
	}

	stream.WriteObjectEnd()

	return nil
}

// writeBindings renders let bindings as an ordered sequence of one-pair
// objects, which keeps both the binding order and name shadowing intact.
func writeBindings(stream *jsoniter.Stream, bindings []exprField) error {
	stream.WriteArrayStart()

	for i, binding := range bindings {
		if i > 0 {
			stream.WriteMore()
		}

		stream.WriteObjectStart()
		stream.WriteObjectField(binding.key)

		if writeErr := writeExpr(stream, binding.child); writeErr != nil {
			return writeErr
		}

		stream.WriteObjectEnd()
	}

	stream.WriteArrayEnd()

	return nil
}
