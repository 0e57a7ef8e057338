package http

import (
	"bytes"
	"encoding/json"
	"io"
)

// Body is a request or response payload. It is one of Text, Bytes or Value.
type Body interface {
	isBody()
}

// Text is a string payload sent and returned verbatim
type Text string

// Bytes is a raw binary payload
type Bytes []byte

// Value is a structured payload, sent as JSON
type Value struct {
	V any
}

func (Text) isBody()  {}
func (Bytes) isBody() {}
func (Value) isBody() {}

// JSON wraps v as a structured body
func JSON(v any) Value {
	return Value{V: v}
}

func isBinary(b Body) bool {
	_, ok := b.(Bytes)
	return ok
}

// encodeBody converts a body into the bytes put on the wire
func encodeBody(b Body) ([]byte, error) {
	switch v := b.(type) {
	case nil:
		return nil, nil
	case Text:
		return []byte(v), nil
	case Bytes:
		return []byte(v), nil
	case Value:
		return json.Marshal(v.V)
	default:
		return nil, &ValidationError{Message: "request body must be text, bytes or a structured value"}
	}
}

func bodyReader(payload []byte) io.Reader {
	if payload == nil {
		return nil
	}
	return bytes.NewReader(payload)
}
