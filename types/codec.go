package types

import (
	"encoding/json"
	"fmt"

	collcodec "cosmossdk.io/collections/codec"
	sdkmath "cosmossdk.io/math"
)

// IntValue is a collections value codec for math.Int using its compact
// big-endian binary encoding. The keeper stores share balances and
// allowances with it.
var IntValue collcodec.ValueCodec[sdkmath.Int] = intValueCodec{}

type intValueCodec struct{}

func (intValueCodec) Encode(value sdkmath.Int) ([]byte, error) {
	return value.Marshal()
}

func (intValueCodec) Decode(b []byte) (sdkmath.Int, error) {
	v := new(sdkmath.Int)
	if err := v.Unmarshal(b); err != nil {
		return sdkmath.Int{}, err
	}
	return *v, nil
}

func (intValueCodec) EncodeJSON(value sdkmath.Int) ([]byte, error) {
	return value.MarshalJSON()
}

func (intValueCodec) DecodeJSON(b []byte) (sdkmath.Int, error) {
	v := new(sdkmath.Int)
	if err := v.UnmarshalJSON(b); err != nil {
		return sdkmath.Int{}, err
	}
	return *v, nil
}

func (intValueCodec) Stringify(value sdkmath.Int) string {
	return value.String()
}

func (intValueCodec) ValueType() string {
	return "math.Int"
}

// JSONValue returns a collections value codec that stores T as JSON. The
// vault record and pending withdrawal entries have no generated codecs, so
// their state encoding is their (stable) JSON form.
func JSONValue[T any](name string) collcodec.ValueCodec[T] {
	return jsonValueCodec[T]{name: name}
}

type jsonValueCodec[T any] struct {
	name string
}

func (c jsonValueCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (c jsonValueCodec[T]) Decode(b []byte) (T, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return v, err
	}
	return v, nil
}

func (c jsonValueCodec[T]) EncodeJSON(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (c jsonValueCodec[T]) DecodeJSON(b []byte) (T, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return v, err
	}
	return v, nil
}

func (c jsonValueCodec[T]) Stringify(value T) string {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(b)
}

func (c jsonValueCodec[T]) ValueType() string {
	return c.name
}
