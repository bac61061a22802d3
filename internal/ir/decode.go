package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// ErrNotObject is returned by DecodeObject when the payload root is not a
// JSON object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Tags used by the stored encoding for values that have no JSON counterpart.
const (
	timeTag    = "$time"
	decimalTag = "$decimal"
)

// DecodeValue parses an arbitrary JSON document into an IRValue.
// Nulls become IRNull; integral literals become IRInt when they fit in
// int64 and IRFloat otherwise.
func DecodeValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}

	return FromGo(raw)
}

// DecodeObject parses a JSON document whose root must be an object.
func DecodeObject(data []byte) (IRObject, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(IRObject)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// DecodeObjects parses a JSON document holding either one object or an
// array of objects.
func DecodeObjects(data []byte) ([]IRObject, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}

	switch val := v.(type) {
	case IRObject:
		return []IRObject{val}, nil
	case IRArray:
		objs := make([]IRObject, 0, len(val))
		for i, elem := range val {
			obj, ok := elem.(IRObject)
			if !ok {
				return nil, fmt.Errorf("array[%d]: %w", i, ErrNotObject)
			}
			objs = append(objs, obj)
		}
		return objs, nil
	default:
		return nil, ErrNotObject
	}
}

// FromGo converts a decoded Go value (encoding/json with UseNumber, or
// gopkg.in/yaml.v3) into an IRValue.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return IRFloat(float64(val)), nil
		}
		return IRInt(int64(val)), nil
	case float64:
		return IRFloat(val), nil
	case json.Number:
		return numberToIRValue(val)
	case time.Time:
		return IRTime(val), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// numberToIRValue keeps integral literals exact and falls back to float64.
func numberToIRValue(n json.Number) (IRValue, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return IRInt(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return IRFloat(f), nil
}

// ToGo converts an IRValue into plain Go values suitable for encoding/json
// or text output. Times become RFC 3339 strings and decimals their text.
func ToGo(v IRValue) any {
	switch val := v.(type) {
	case IRNull, nil:
		return nil
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRFloat:
		return float64(val)
	case IRBool:
		return bool(val)
	case IRTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case IRDecimal:
		return val.String()
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	}
	return nil
}

// MarshalJSON implements json.Marshaler using the canonical encoding.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// UnmarshalJSON implements json.Unmarshaler for IRObject using the stored
// encoding, which understands tagged times and decimals.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeStored(data)
	if err != nil {
		return err
	}
	*obj = decoded
	return nil
}

// DecodeStored parses an object written by MarshalCanonical, restoring
// IRTime and IRDecimal values from their tagged form.
func DecodeStored(data []byte) (IRObject, error) {
	obj, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	restored, err := untag(obj)
	if err != nil {
		return nil, err
	}
	return restored.(IRObject), nil
}

// untag walks v and replaces single-key tag objects with typed values.
func untag(v IRValue) (IRValue, error) {
	switch val := v.(type) {
	case IRObject:
		if len(val) == 1 {
			if s, ok := val[timeTag].(IRString); ok {
				t, err := time.Parse(time.RFC3339Nano, string(s))
				if err != nil {
					return nil, fmt.Errorf("stored time %q: %w", s, err)
				}
				return IRTime(t), nil
			}
			if s, ok := val[decimalTag].(IRString); ok {
				d, _, err := apd.NewFromString(string(s))
				if err != nil {
					return nil, fmt.Errorf("stored decimal %q: %w", s, err)
				}
				return NewIRDecimal(d), nil
			}
		}
		out := make(IRObject, len(val))
		for k, elem := range val {
			restored, err := untag(elem)
			if err != nil {
				return nil, err
			}
			out[k] = restored
		}
		return out, nil
	case IRArray:
		out := make(IRArray, len(val))
		for i, elem := range val {
			restored, err := untag(elem)
			if err != nil {
				return nil, err
			}
			out[i] = restored
		}
		return out, nil
	default:
		return v, nil
	}
}
