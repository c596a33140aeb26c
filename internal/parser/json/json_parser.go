// Package json decodes and encodes the row-oriented JSON payloads exchanged
// between pipeline stages.
//
// The boundary contract is a JSON array of flat objects, one object per
// record:
//
//	[{"region":"1","county":"10","Q608_total":5}, ...]
//
// Newline-delimited objects (NDJSON) are accepted on input as well, since
// some upstream producers emit that shape. Numbers are decoded with
// UseNumber so that downstream coercion, not the decoder, decides numeric
// precision.
package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"surveyagg/pkg/records"
)

// Decode reads every record from r. A top-level array of objects is
// expanded; bare objects (one per line or concatenated) are consumed as a
// stream. Non-object elements are an error, not skipped: a malformed payload
// must fail loudly rather than lose rows.
func Decode(r io.Reader) (records.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var out records.Table
	for {
		var root any
		if err := dec.Decode(&root); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, fmt.Errorf("json payload: decode: %w", err)
		}
		switch v := root.(type) {
		case map[string]any:
			out = append(out, records.Record(v))
		case []any:
			for i, elem := range v {
				obj, ok := elem.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("json payload: element %d is not an object", i)
				}
				out = append(out, records.Record(obj))
			}
		default:
			return nil, fmt.Errorf("json payload: unsupported top-level JSON type %T", v)
		}
	}
}

// DecodeBytes is Decode over an in-memory payload.
func DecodeBytes(b []byte) (records.Table, error) {
	return Decode(bytes.NewReader(b))
}

// Encode serializes t as a row-oriented JSON array. A nil table encodes as
// an empty array, never JSON null, so consumers can always range over it.
func Encode(t records.Table) ([]byte, error) {
	if t == nil {
		t = records.Table{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("json payload: encode: %w", err)
	}
	return b, nil
}
