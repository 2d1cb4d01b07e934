package strand

import (
	"errors"
)

// Construction and serialization failures. These are client-side defects:
// they are detected before any bytes reach the wire.
var ErrMalformedExpression = errors.New("malformed query expression")
var ErrSerializationFailed = errors.New("wire serialization failed")

// Decode failures. ErrDecodingValueFailed covers a single wire value that
// cannot be turned into its typed form; ErrMalformedResponse covers a
// response body that does not follow the envelope contract.
var ErrDecodingValueFailed = errors.New("decoding wire value failed")
var ErrMalformedResponse = errors.New("malformed response body")

// ErrNoResourcePresent is returned by Envelope.Resource when the envelope is
// the error variant. Service-reported failures are data on the envelope, not
// Go errors.
var ErrNoResourcePresent = errors.New("no resource present in response")

// ErrRequestFailed marks transport-level failures: the request never
// completed an HTTP exchange, so there is no envelope to inspect.
var ErrRequestFailed = errors.New("request transport failed")

// Client configuration failures.
var ErrEmptySecret = errors.New("empty secret supplied")
var ErrEmptyEndpoint = errors.New("empty endpoint supplied")
var ErrEmptyAPIVersion = errors.New("empty api version supplied")
var ErrNilHTTPClient = errors.New("nil http client supplied")
var ErrNilSendFunc = errors.New("nil send function supplied")
var ErrInvalidHTTPTimeout = errors.New("invalid http timeout supplied")
