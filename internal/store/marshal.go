package store

import (
	"fmt"
	"time"

	"github.com/roach88/entsync/internal/ir"
)

// marshalFields converts fields to canonical JSON TEXT for storage.
// Times and decimals are written in their tagged form.
func marshalFields(fields ir.IRObject) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses stored fields, restoring tagged values.
// Large integers keep full precision.
func unmarshalFields(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	obj, err := ir.DecodeStored([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return obj, nil
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n)
}
