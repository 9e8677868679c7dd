package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Row is one object of a generic feed table as decoded from JSON.
type Row map[string]interface{}

func DecodeRow(raw json.RawMessage) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	row := Row{}
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMessageParse, err)
	}
	return row, nil
}

// Number reads a numeric field regardless of how it was decoded.
func (r Row) Number(key string) (float64, bool) {
	switch v := r[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

func (r Row) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// RowIdentity tells how update and delete frames find the row they refer to.
type RowIdentity interface {
	// Validate checks that probe carries every identity field.
	Validate(probe Row) error
	Match(item, probe Row) bool
	String() string
}

// NumericID matches rows by their numeric "id" field, as book tables do.
type NumericID struct{}

func (NumericID) Validate(probe Row) error {
	if _, ok := probe.Number("id"); !ok {
		return fmt.Errorf("%w: row has no numeric id", ErrMessageParse)
	}
	return nil
}

func (NumericID) Match(item, probe Row) bool {
	a, okA := item.Number("id")
	b, okB := probe.Number("id")
	return okA && okB && a == b
}

func (NumericID) String() string { return "id" }

// CompositeKey matches rows on the key fields declared by the partial.
type CompositeKey struct {
	Fields []string
}

func (k CompositeKey) Validate(probe Row) error {
	for _, f := range k.Fields {
		if _, ok := probe[f]; !ok {
			return fmt.Errorf("%w: row misses key field %q", ErrMessageParse, f)
		}
	}
	return nil
}

func (k CompositeKey) Match(item, probe Row) bool {
	for _, f := range k.Fields {
		if !reflect.DeepEqual(item[f], probe[f]) {
			return false
		}
	}
	return true
}

func (k CompositeKey) String() string { return strings.Join(k.Fields, ",") }

// IdentityFor picks the identity variant from the keys sent with a partial.
func IdentityFor(keys []string) RowIdentity {
	if len(keys) == 0 || (len(keys) == 1 && keys[0] == "id") {
		return NumericID{}
	}
	fields := make([]string, len(keys))
	copy(fields, keys)
	return CompositeKey{Fields: fields}
}
