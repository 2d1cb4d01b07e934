package strand

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

const (
	responseFieldResource = "resource"
	responseFieldErrors   = "errors"

	errorFieldCode        = "code"
	errorFieldDescription = "description"
	errorFieldPosition    = "position"
)

// Well-known error codes the service reports in error envelopes. The set is
// open: clients must be prepared for codes outside this list.
const (
	ErrCodeInvalidArgument    = "invalid argument"
	ErrCodeInstanceNotFound   = "instance not found"
	ErrCodePermissionDenied   = "permission denied"
	ErrCodeTransactionAborted = "transaction aborted"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeValidationFailed   = "validation failed"
)

// ErrorDetail is one service-reported query failure. Position segments
// locate the failing argument inside the query document; they are strings
// and integers.
type ErrorDetail struct {
	Code        string
	Description string
	Position    []Value
}

// Envelope is the decoded form of one service response: either a resource
// payload or a list of service-reported failures, never both. Failures the
// service reports are data on the envelope, not Go errors; Go errors are
// reserved for exchanges that produced no decodable envelope at all.
type Envelope struct {
	resource       Value
	hasResource    bool
	errorDetails   []ErrorDetail
	httpStatus     int
	statusMismatch bool
}

// ParseResponse decodes one HTTP exchange into an Envelope. The body is
// authoritative: a body carrying errors decodes as the error variant even
// under a 2xx status code. Such a disagreement, in either direction, is
// reported through StatusMismatch instead of overriding the body.
func ParseResponse(statusCode int, body []byte) (Envelope, error) {
	var empty Envelope

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return empty, errors.Join(ErrMalformedResponse, errors.New("empty response body"))
	}

	iter := jsonAPI.BorrowIterator(trimmed)
	defer jsonAPI.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return empty, errors.Join(ErrMalformedResponse, errors.New("response body is not a JSON object"))
	}

	var (
		innerErr     error
		resourceRaw  []byte
		errorsRaw    []byte
		sawResource  bool
		sawErrorsKey bool
	)

	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		switch key {
		case responseFieldResource:
			raw := it.SkipAndReturnBytes()
			if it.Error != nil {
				innerErr = it.Error

				return false
			}

			resourceRaw = append([]byte(nil), bytes.TrimSpace(raw)...)
			sawResource = true
		case responseFieldErrors:
			raw := it.SkipAndReturnBytes()
			if it.Error != nil {
				innerErr = it.Error

				return false
			}

			errorsRaw = append([]byte(nil), bytes.TrimSpace(raw)...)
			sawErrorsKey = true
		default:
			it.Skip()
		}

		return true
	})

	if innerErr != nil {
		return empty, errors.Join(ErrMalformedResponse, innerErr)
	}
	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return empty, errors.Join(ErrMalformedResponse, iter.Error)
	}

	switch {
	case sawResource && sawErrorsKey:
		return empty, errors.Join(ErrMalformedResponse, errors.New("response carries both a resource and errors"))
	case sawErrorsKey:
		return parseErrorEnvelope(statusCode, errorsRaw)
	case sawResource:
		return parseResourceEnvelope(statusCode, resourceRaw)
	default:
		return empty, errors.Join(ErrMalformedResponse, errors.New("response carries neither a resource nor errors"))
	}
}

func parseResourceEnvelope(statusCode int, resourceRaw []byte) (Envelope, error) {
	resource, decodeErr := Decode(resourceRaw)
	if decodeErr != nil {
		return Envelope{}, errors.Join(ErrMalformedResponse, decodeErr)
	}

	return Envelope{
		resource:       resource,
		hasResource:    true,
		httpStatus:     statusCode,
		statusMismatch: !statusIsSuccess(statusCode),
	}, nil
}

func parseErrorEnvelope(statusCode int, errorsRaw []byte) (Envelope, error) {
	details, parseErr := parseErrorDetails(errorsRaw)
	if parseErr != nil {
		return Envelope{}, errors.Join(ErrMalformedResponse, parseErr)
	}

	return Envelope{
		errorDetails:   details,
		httpStatus:     statusCode,
		statusMismatch: statusIsSuccess(statusCode),
	}, nil
}

// parseErrorDetails decodes the errors sequence. An error report with no
// entries, or an entry without its code and description, does not follow the
// envelope contract.
func parseErrorDetails(raw []byte) ([]ErrorDetail, error) {
	iter := jsonAPI.BorrowIterator(raw)
	defer jsonAPI.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ArrayValue {
		return nil, errors.New("errors must be a sequence")
	}

	var (
		innerErr error
		details  []ErrorDetail
	)

	iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		detail, detailErr := parseErrorDetail(it)
		if detailErr != nil {
			innerErr = detailErr

			return false
		}

		details = append(details, detail)

		return true
	})

	if innerErr != nil {
		return nil, innerErr
	}
	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return nil, iter.Error
	}
	if len(details) == 0 {
		return nil, errors.New("error report carries no errors")
	}

	return details, nil
}

func parseErrorDetail(iter *jsoniter.Iterator) (ErrorDetail, error) {
	var empty ErrorDetail

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return empty, errors.New("error entry is not a JSON object")
	}

	var (
		innerErr       error
		detail         ErrorDetail
		sawCode        bool
		sawDescription bool
	)

	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		switch key {
		case errorFieldCode:
			detail.Code = it.ReadString()
			sawCode = true
		case errorFieldDescription:
			detail.Description = it.ReadString()
			sawDescription = true
		case errorFieldPosition:
			position, positionErr := parsePosition(it)
			if positionErr != nil {
				innerErr = positionErr

				return false
			}

			detail.Position = position
		default:
			it.Skip()
		}

		if it.Error != nil {
			innerErr = it.Error

			return false
		}

		return true
	})

	if innerErr != nil {
		return empty, innerErr
	}
	if iter.Error != nil {
		return empty, iter.Error
	}
	if !sawCode || detail.Code == "" {
		return empty, errors.New("error entry lacks a code")
	}
	if !sawDescription {
		return empty, errors.New("error entry lacks a description")
	}

	return detail, nil
}

func parsePosition(iter *jsoniter.Iterator) ([]Value, error) {
	if iter.WhatIsNext() != jsoniter.ArrayValue {
		return nil, errors.New("error position must be a sequence")
	}

	var (
		innerErr error
		position []Value
	)

	iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		segment, segmentErr := decodeValue(it)
		if segmentErr != nil {
			innerErr = segmentErr

			return false
		}

		switch segment.(type) {
		case StringV, IntV:
			position = append(position, segment)
		default:
			innerErr = fmt.Errorf("error position segment %v is neither a string nor an integer", segment)

			return false
		}

		return true
	})

	if innerErr != nil {
		return nil, innerErr
	}
	if iter.Error != nil {
		return nil, iter.Error
	}

	return position, nil
}

func statusIsSuccess(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

// HasErrors reports whether the service reported query failures.
func (e Envelope) HasErrors() bool {
	return len(e.errorDetails) > 0
}

// Errors returns the service-reported failures, empty for success envelopes.
func (e Envelope) Errors() []ErrorDetail {
	return e.errorDetails
}

// Resource returns the success payload. It fails with ErrNoResourcePresent
// when the envelope is the error variant.
func (e Envelope) Resource() (Value, error) {
	if !e.hasResource {
		return nil, ErrNoResourcePresent
	}

	return e.resource, nil
}

// HTTPStatus returns the status code of the exchange this envelope came
// from.
func (e Envelope) HTTPStatus() int {
	return e.httpStatus
}

// StatusMismatch reports a disagreement between the HTTP status code and the
// body variant: errors under a success status, or a resource under a failure
// status. The body wins; the flag only surfaces the disagreement.
func (e Envelope) StatusMismatch() bool {
	return e.statusMismatch
}
