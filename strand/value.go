package strand

import (
	"time"
)

// Value is the typed form of every datum the Strand wire protocol can carry.
// Values are plain data: constructing one never fails, and the codec in this
// package converts between values and their canonical wire JSON.
type Value interface {
	isValue()
}

// NullV is the JSON null.
type NullV struct{}

// BoolV is a boolean value.
type BoolV bool

// IntV is a 64-bit integer. Integers and doubles are distinct kinds and the
// codec never converts one into the other, even where the JSON text alone
// would be ambiguous.
type IntV int64

// DoubleV is a 64-bit float. NaN and the infinities have no wire
// representation and are rejected during encoding.
type DoubleV float64

// StringV is a string value.
type StringV string

// ArrayV is an ordered sequence of values.
type ArrayV []Value

// Field is one key/value pair of an ObjectV.
type Field struct {
	Key   string
	Value Value
}

// ObjectV is an ordered mapping. Keys are unique; encoding follows the field
// order, and decoding preserves the order in which keys appear on the wire.
type ObjectV []Field

// Get returns the value stored under key and whether the key is present.
func (o ObjectV) Get(key string) (Value, bool) {
	for _, field := range o {
		if field.Key == key {
			return field.Value, true
		}
	}

	return nil, false
}

// Keys returns the object's keys in field order.
func (o ObjectV) Keys() []string {
	keys := make([]string, len(o))
	for i, field := range o {
		keys[i] = field.Key
	}

	return keys
}

// RefV points at a document, collection or database. A document reference
// nests the reference of the collection that contains it.
type RefV struct {
	ID         string
	Collection *RefV
}

// Equal reports whether both references address the same resource, comparing
// the id and the full collection path.
func (r RefV) Equal(other RefV) bool {
	if r.ID != other.ID {
		return false
	}

	switch {
	case r.Collection == nil && other.Collection == nil:
		return true
	case r.Collection == nil || other.Collection == nil:
		return false
	default:
		return r.Collection.Equal(*other.Collection)
	}
}

// TimeV is an instant with nanosecond precision, normalized to UTC.
// Construct it through TimeOf so that decoded and locally built values
// compare equal.
type TimeV time.Time

// TimeOf builds a TimeV from t, converting to UTC and stripping the
// monotonic clock reading.
func TimeOf(t time.Time) TimeV {
	return TimeV(t.UTC().Round(0))
}

// Time returns the underlying instant.
func (t TimeV) Time() time.Time {
	return time.Time(t)
}

// DateV is a calendar date, carried as midnight UTC of that day.
type DateV time.Time

// DateOf builds a DateV from t, truncating to the calendar day in UTC.
func DateOf(t time.Time) DateV {
	u := t.UTC()

	return DateV(time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC))
}

// Time returns the underlying day as midnight UTC.
func (d DateV) Time() time.Time {
	return time.Time(d)
}

// BytesV is a binary blob, base64-encoded on the wire.
type BytesV []byte

// QueryV carries a query expression as opaque data. The raw JSON is kept
// verbatim, so an embedded query travels through decode and encode without
// being reinterpreted.
type QueryV []byte

func (NullV) isValue()   {}
func (BoolV) isValue()   {}
func (IntV) isValue()    {}
func (DoubleV) isValue() {}
func (StringV) isValue() {}
func (ArrayV) isValue()  {}
func (ObjectV) isValue() {}
func (RefV) isValue()    {}
func (TimeV) isValue()   {}
func (DateV) isValue()   {}
func (BytesV) isValue()  {}
func (QueryV) isValue()  {}
