package types

import (
	"encoding/json"
	"fmt"

	collcodec "cosmossdk.io/collections/codec"
)

// normalizer is implemented by stored values whose amounts may decode as nil.
type normalizer interface {
	Normalize()
}

// jsonValueCodec stores a value as JSON. Struct fields marshal in
// declaration order and math.Int as a decimal string, so the encoding is
// deterministic.
type jsonValueCodec[T any] struct {
	name string
}

// JSONValue returns a collections value codec that stores T as JSON.
func JSONValue[T any](name string) collcodec.ValueCodec[T] {
	return jsonValueCodec[T]{name: name}
}

func (c jsonValueCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (c jsonValueCodec[T]) Decode(b []byte) (T, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decoding %s: %w", c.name, err)
	}
	if n, ok := any(&v).(normalizer); ok {
		n.Normalize()
	}
	return v, nil
}

func (c jsonValueCodec[T]) EncodeJSON(value T) ([]byte, error) {
	return c.Encode(value)
}

func (c jsonValueCodec[T]) DecodeJSON(b []byte) (T, error) {
	return c.Decode(b)
}

func (c jsonValueCodec[T]) Stringify(value T) string {
	bz, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("<%s: %s>", c.name, err)
	}
	return string(bz)
}

func (c jsonValueCodec[T]) ValueType() string {
	return "epochvault/" + c.name
}
