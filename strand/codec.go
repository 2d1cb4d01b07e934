package strand

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	tagRef   = "@ref"
	tagTS    = "@ts"
	tagDate  = "@date"
	tagBytes = "@bytes"
	tagQuery = "@query"
	tagObj   = "@obj"

	refFieldID         = "id"
	refFieldCollection = "collection"

	dateWireFormat = "2006-01-02"
)

var jsonAPI = jsoniter.ConfigFastest

// encodeMode selects how mappings are written. The value codec writes them
// verbatim and escapes reserved single-key shapes with @obj; the expression
// serializer wraps every mapping in {"object": ...} so literal data can never
// collide with the query primitive namespace.
type encodeMode int

const (
	plainMode encodeMode = iota
	literalMode
)

// Encode serializes a value to its canonical wire form. Encoding the same
// value twice yields identical bytes.
func Encode(value Value) ([]byte, error) {
	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)

	if encodeErr := encodeValue(stream, value, plainMode); encodeErr != nil {
		return nil, encodeErr
	}

	if stream.Error != nil {
		return nil, errors.Join(ErrSerializationFailed, stream.Error)
	}

	wire := make([]byte, len(stream.Buffer()))
	copy(wire, stream.Buffer())

	return wire, nil
}

func encodeValue(stream *jsoniter.Stream, value Value, mode encodeMode) error {
	switch v := value.(type) {
	case NullV:
		stream.WriteNil()
	case BoolV:
		stream.WriteBool(bool(v))
	case IntV:
		stream.WriteInt64(int64(v))
	case DoubleV:
		return encodeDouble(stream, float64(v))
	case StringV:
		stream.WriteString(string(v))
	case ArrayV:
		return encodeArray(stream, v, mode)
	case ObjectV:
		return encodeObject(stream, v, mode)
	case RefV:
		return encodeRef(stream, v)
	case TimeV:
		encodeTagged(stream, tagTS, time.Time(v).UTC().Format(time.RFC3339Nano))
	case DateV:
		encodeTagged(stream, tagDate, time.Time(v).UTC().Format(dateWireFormat))
	case BytesV:
		encodeTagged(stream, tagBytes, base64.StdEncoding.EncodeToString(v))
	case QueryV:
		return encodeQuery(stream, v)
	default:
		return errors.Join(ErrSerializationFailed, fmt.Errorf("value kind %T has no wire form", value))
	}

	return nil
}

// encodeDouble always emits a decimal point or an exponent, so that the
// int/double distinction survives a decode of the emitted literal.
func encodeDouble(stream *jsoniter.Stream, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.Join(ErrSerializationFailed, fmt.Errorf("double %v has no wire form", value))
	}

	literal := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.ContainsAny(literal, ".eE") {
		literal += ".0"
	}

	stream.WriteRaw(literal)

	return nil
}

func encodeArray(stream *jsoniter.Stream, elements ArrayV, mode encodeMode) error {
	stream.WriteArrayStart()

	for i, element := range elements {
		if i > 0 {
			stream.WriteMore()
		}
		if encodeErr := encodeValue(stream, element, mode); encodeErr != nil {
			return encodeErr
		}
	}

	stream.WriteArrayEnd()

	return nil
}

func encodeObject(stream *jsoniter.Stream, object ObjectV, mode encodeMode) error {
	switch {
	case mode == literalMode:
		stream.WriteObjectStart()
		stream.WriteObjectField(wireObject)

		if encodeErr := encodeFields(stream, object, mode); encodeErr != nil {
			return encodeErr
		}

		stream.WriteObjectEnd()
	case needsObjEscape(object):
		stream.WriteObjectStart()
		stream.WriteObjectField(tagObj)

		if encodeErr := encodeFields(stream, object, mode); encodeErr != nil {
			return encodeErr
		}

		stream.WriteObjectEnd()
	default:
		return encodeFields(stream, object, mode)
	}

	return nil
}

// needsObjEscape reports whether a plain mapping would be mistaken for a
// tagged special value when decoded again, which is the case for a
// single-key mapping whose key is one of the reserved tags.
func needsObjEscape(object ObjectV) bool {
	return len(object) == 1 && isReservedTag(object[0].Key)
}

func isReservedTag(key string) bool {
	switch key {
	case tagRef, tagTS, tagDate, tagBytes, tagQuery, tagObj:
		return true
	default:
		return false
	}
}

func encodeFields(stream *jsoniter.Stream, object ObjectV, mode encodeMode) error {
	seen := make(map[string]struct{}, len(object))

	stream.WriteObjectStart()

	for i, field := range object {
		if _, duplicate := seen[field.Key]; duplicate {
			return errors.Join(ErrSerializationFailed, fmt.Errorf("duplicate object key %q", field.Key))
		}
		seen[field.Key] = struct{}{}

		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(field.Key)

		if encodeErr := encodeValue(stream, field.Value, mode); encodeErr != nil {
			return encodeErr
		}
	}

	stream.WriteObjectEnd()

	return nil
}

func encodeRef(stream *jsoniter.Stream, ref RefV) error {
	stream.WriteObjectStart()
	stream.WriteObjectField(tagRef)
	stream.WriteObjectStart()
	stream.WriteObjectField(refFieldID)
	stream.WriteString(ref.ID)

	if ref.Collection != nil {
		stream.WriteMore()
		stream.WriteObjectField(refFieldCollection)

		if encodeErr := encodeRef(stream, *ref.Collection); encodeErr != nil {
			return encodeErr
		}
	}

	stream.WriteObjectEnd()
	stream.WriteObjectEnd()

	return nil
}

func encodeQuery(stream *jsoniter.Stream, query QueryV) error {
	if !jsonAPI.Valid(query) {
		return errors.Join(ErrSerializationFailed, errors.New("embedded query is not valid JSON"))
	}

	stream.WriteObjectStart()
	stream.WriteObjectField(tagQuery)
	stream.WriteRaw(string(query))
	stream.WriteObjectEnd()

	return nil
}

func encodeTagged(stream *jsoniter.Stream, tag string, literal string) {
	stream.WriteObjectStart()
	stream.WriteObjectField(tag)
	stream.WriteString(literal)
	stream.WriteObjectEnd()
}

// Decode parses canonical wire JSON into its typed value form. Tagged
// single-key objects decode as their special kinds, {"@obj": ...} unwraps to
// the plain inner mapping, and any other object decodes as a plain ObjectV
// with its key order preserved.
func Decode(wire []byte) (Value, error) {
	iter := jsonAPI.BorrowIterator(wire)
	defer jsonAPI.ReturnIterator(iter)

	value, decodeErr := decodeValue(iter)
	if decodeErr != nil {
		return nil, errors.Join(ErrDecodingValueFailed, decodeErr)
	}

	if iter.WhatIsNext() != jsoniter.InvalidValue || !errors.Is(iter.Error, io.EOF) {
		return nil, errors.Join(ErrDecodingValueFailed, errors.New("trailing data after wire value"))
	}

	return value, nil
}

func decodeValue(iter *jsoniter.Iterator) (Value, error) {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()

		return NullV{}, iter.Error
	case jsoniter.BoolValue:
		value := iter.ReadBool()

		return BoolV(value), iter.Error
	case jsoniter.NumberValue:
		return decodeNumber(iter)
	case jsoniter.StringValue:
		value := iter.ReadString()

		return StringV(value), iter.Error
	case jsoniter.ArrayValue:
		return decodeArray(iter)
	case jsoniter.ObjectValue:
		return decodeObject(iter)
	default:
		if iter.Error != nil {
			return nil, iter.Error
		}

		return nil, errors.New("input is not a JSON value")
	}
}

// decodeNumber keeps the int/double distinction by inspecting the literal: a
// decimal point or an exponent makes it a double. Integers beyond the int64
// range fall back to the closest double.
func decodeNumber(iter *jsoniter.Iterator) (Value, error) {
	number := iter.ReadNumber()
	// A number at the very end of the input leaves the iterator at io.EOF
	// even though the literal was read completely.
	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return nil, iter.Error
	}

	literal := number.String()
	if strings.ContainsAny(literal, ".eE") {
		value, parseErr := number.Float64()
		if parseErr != nil {
			return nil, parseErr
		}

		return DoubleV(value), nil
	}

	if value, parseErr := number.Int64(); parseErr == nil {
		return IntV(value), nil
	}

	value, parseErr := strconv.ParseFloat(literal, 64)
	if parseErr != nil {
		return nil, parseErr
	}

	return DoubleV(value), nil
}

func decodeArray(iter *jsoniter.Iterator) (Value, error) {
	elements := ArrayV{}

	var innerErr error

	iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		element, decodeErr := decodeValue(it)
		if decodeErr != nil {
			innerErr = decodeErr

			return false
		}

		elements = append(elements, element)

		return true
	})

	if innerErr != nil {
		return nil, innerErr
	}
	if iter.Error != nil {
		return nil, iter.Error
	}

	return elements, nil
}

// decodeObject reads all key/value pairs in order. When the first key is a
// reserved tag its payload is captured raw, so that the object can still
// become either a tagged special value (single-key case) or a plain mapping
// (when more keys follow).
func decodeObject(iter *jsoniter.Iterator) (Value, error) {
	var (
		innerErr   error
		object     ObjectV
		tagKey     string
		tagPayload []byte
	)

	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		if len(object) == 0 && tagPayload == nil && isReservedTag(key) {
			raw := it.SkipAndReturnBytes()
			if it.Error != nil {
				innerErr = it.Error

				return false
			}

			// The capture starts right behind the colon, so it can carry
			// leading whitespace.
			tagKey = key
			tagPayload = append([]byte(nil), bytes.TrimSpace(raw)...)

			return true
		}

		if tagPayload != nil {
			// More keys follow, so the leading tag candidate was plain data.
			payloadValue, payloadErr := decodePayload(tagPayload)
			if payloadErr != nil {
				innerErr = payloadErr

				return false
			}

			object = setField(object, tagKey, payloadValue)
			tagKey, tagPayload = "", nil
		}

		value, decodeErr := decodeValue(it)
		if decodeErr != nil {
			innerErr = decodeErr

			return false
		}

		object = setField(object, key, value)

		return true
	})

	if innerErr != nil {
		return nil, innerErr
	}
	if iter.Error != nil {
		return nil, iter.Error
	}

	if tagPayload != nil {
		return decodeTagged(tagKey, tagPayload)
	}

	if object == nil {
		object = ObjectV{}
	}

	return object, nil
}

// setField keeps keys unique: a duplicate key replaces the value while the
// key keeps its original position.
func setField(object ObjectV, key string, value Value) ObjectV {
	for i := range object {
		if object[i].Key == key {
			object[i].Value = value

			return object
		}
	}

	return append(object, Field{Key: key, Value: value})
}

func decodePayload(raw []byte) (Value, error) {
	it := jsonAPI.BorrowIterator(raw)
	defer jsonAPI.ReturnIterator(it)

	value, decodeErr := decodeValue(it)
	if decodeErr != nil {
		return nil, decodeErr
	}
	if it.Error != nil && !errors.Is(it.Error, io.EOF) {
		return nil, it.Error
	}

	return value, nil
}

func decodeTagged(tag string, raw []byte) (Value, error) {
	switch tag {
	case tagRef:
		return decodeRefPayload(raw)
	case tagTS:
		return decodeTimePayload(raw)
	case tagDate:
		return decodeDatePayload(raw)
	case tagBytes:
		return decodeBytesPayload(raw)
	case tagQuery:
		return QueryV(raw), nil
	case tagObj:
		return decodeObjPayload(raw)
	default:
		return nil, fmt.Errorf("unhandled tag %q", tag)
	}
}

func decodeRefPayload(raw []byte) (Value, error) {
	it := jsonAPI.BorrowIterator(raw)
	defer jsonAPI.ReturnIterator(it)

	if it.WhatIsNext() != jsoniter.ObjectValue {
		return nil, fmt.Errorf("%s payload must be an object", tagRef)
	}

	var (
		innerErr error
		ref      RefV
		sawID    bool
	)

	it.ReadObjectCB(func(inner *jsoniter.Iterator, key string) bool {
		switch key {
		case refFieldID:
			ref.ID = inner.ReadString()
			sawID = true

			if inner.Error != nil {
				innerErr = inner.Error

				return false
			}
		case refFieldCollection:
			value, decodeErr := decodeValue(inner)
			if decodeErr != nil {
				innerErr = decodeErr

				return false
			}

			collection, isRef := value.(RefV)
			if !isRef {
				innerErr = fmt.Errorf("%s collection must be a reference", tagRef)

				return false
			}

			ref.Collection = &collection
		default:
			inner.Skip()
		}

		return true
	})

	if innerErr != nil {
		return nil, innerErr
	}
	if it.Error != nil && !errors.Is(it.Error, io.EOF) {
		return nil, it.Error
	}
	if !sawID {
		return nil, fmt.Errorf("%s payload lacks an id", tagRef)
	}

	return ref, nil
}

func decodeTimePayload(raw []byte) (Value, error) {
	literal, payloadErr := payloadString(raw, tagTS)
	if payloadErr != nil {
		return nil, payloadErr
	}

	instant, parseErr := time.Parse(time.RFC3339Nano, literal)
	if parseErr != nil {
		return nil, fmt.Errorf("%s payload %q: %w", tagTS, literal, parseErr)
	}

	return TimeOf(instant), nil
}

func decodeDatePayload(raw []byte) (Value, error) {
	literal, payloadErr := payloadString(raw, tagDate)
	if payloadErr != nil {
		return nil, payloadErr
	}

	day, parseErr := time.Parse(dateWireFormat, literal)
	if parseErr != nil {
		return nil, fmt.Errorf("%s payload %q: %w", tagDate, literal, parseErr)
	}

	return DateV(day), nil
}

func decodeBytesPayload(raw []byte) (Value, error) {
	literal, payloadErr := payloadString(raw, tagBytes)
	if payloadErr != nil {
		return nil, payloadErr
	}

	blob, decodeErr := base64.StdEncoding.DecodeString(literal)
	if decodeErr != nil {
		return nil, fmt.Errorf("%s payload: %w", tagBytes, decodeErr)
	}

	return BytesV(blob), nil
}

// decodeObjPayload unwraps the @obj escape: the inner object decodes as a
// plain mapping with no tag sniffing at its top level, while nested values
// decode normally.
func decodeObjPayload(raw []byte) (Value, error) {
	it := jsonAPI.BorrowIterator(raw)
	defer jsonAPI.ReturnIterator(it)

	if it.WhatIsNext() != jsoniter.ObjectValue {
		return nil, fmt.Errorf("%s payload must be an object", tagObj)
	}

	object := ObjectV{}

	var innerErr error

	it.ReadObjectCB(func(inner *jsoniter.Iterator, key string) bool {
		value, decodeErr := decodeValue(inner)
		if decodeErr != nil {
			innerErr = decodeErr

			return false
		}

		object = setField(object, key, value)

		return true
	})

	if innerErr != nil {
		return nil, innerErr
	}
	if it.Error != nil && !errors.Is(it.Error, io.EOF) {
		return nil, it.Error
	}

	return object, nil
}

func payloadString(raw []byte, tag string) (string, error) {
	it := jsonAPI.BorrowIterator(raw)
	defer jsonAPI.ReturnIterator(it)

	if it.WhatIsNext() != jsoniter.StringValue {
		return "", fmt.Errorf("%s payload must be a string", tag)
	}

	literal := it.ReadString()
	if it.Error != nil && !errors.Is(it.Error, io.EOF) {
		return "", it.Error
	}

	return literal, nil
}
