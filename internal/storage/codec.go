package storage

import (
	"bytes"
	"encoding/json"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeSeries packs a series into a msgpack blob; nil encodes to nil
func EncodeSeries(s *galaxy.Series) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSeries unpacks a blob written by EncodeSeries; an empty blob decodes to nil
func DecodeSeries(b []byte) (*galaxy.Series, error) {
	if len(b) == 0 {
		return nil, nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	s := &galaxy.Series{}
	if err := dec.Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

// EncodeJSON marshals v for a text column, writing "null" as an empty string
func EncodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "", nil
	}
	return string(b), nil
}

// DecodeJSON unmarshals a text column written by EncodeJSON
func DecodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
