// pkg/queue/serializer.go
package queue

import (
	"bytes"
	"encoding/gob"
)

// Serializer is the user-supplied element codec. Encode must never
// return a nil byte slice. Implementations may be called concurrently
// from multiple goroutines and must be safe for that.
type Serializer interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte) (interface{}, error)
}

// gobSerializer is the default object codec used when Options.Serializer
// is left nil. It round-trips arbitrary registered Go values through
// encoding/gob without pulling in a third-party marshaling library for a
// concern most callers will want to override in a real deployment.
type gobSerializer struct{}

func (gobSerializer) Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobSerializer) Decode(data []byte) (interface{}, error) {
	var v interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// BytesSerializer is an identity codec for callers whose elements are
// already raw []byte; it avoids the gob envelope entirely.
type BytesSerializer struct{}

func (BytesSerializer) Encode(v interface{}) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, checkArgument(false, "BytesSerializer.Encode: value is not []byte")
	}
	return b, nil
}

func (BytesSerializer) Decode(data []byte) (interface{}, error) {
	return data, nil
}
