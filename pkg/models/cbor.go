package models

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// RecordIDTag is the CBOR tag wrapping a [container, id] pair.
const RecordIDTag uint64 = 8

// CborMarshaler encodes element fields so that they decode back into plain
// Go maps with string keys.
type CborMarshaler struct{}

func (c CborMarshaler) Marshal(v any) ([]byte, error) {
	return getCborEncoder().Marshal(v)
}

func (c CborMarshaler) NewEncoder(w io.Writer) *cbor.Encoder {
	return getCborEncoder().NewEncoder(w)
}

type CborUnmarshaler struct{}

func (c CborUnmarshaler) Unmarshal(data []byte, dst any) error {
	return getCborDecoder().Unmarshal(data, dst)
}

func (c CborUnmarshaler) NewDecoder(r io.Reader) *cbor.Decoder {
	return getCborDecoder().NewDecoder(r)
}

func getCborEncoder() cbor.EncMode {
	em, err := cbor.EncOptions{
		Time:    cbor.TimeRFC3339,
		TimeTag: cbor.EncTagRequired,
		Sort:    cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	return em
}

func getCborDecoder() cbor.DecMode {
	dm, err := cbor.DecOptions{
		TimeTagToAny:   cbor.TimeTagToTime,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(err)
	}

	return dm
}
