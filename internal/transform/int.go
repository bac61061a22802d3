package transform

import (
	"math"
	"strconv"

	"github.com/roach88/entsync/internal/ir"
)

// StringToInt parses a base-10 integer string with an optional sign.
type StringToInt struct{}

// Transform implements Transformer.
func (StringToInt) Transform(v ir.IRValue) (ir.IRValue, bool) {
	s, ok := v.(ir.IRString)
	if !ok {
		return nil, false
	}
	n, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return nil, false
	}
	return ir.IRInt(n), true
}

// IntToString formats an integer in base 10. Floats with no fractional
// part are accepted, since JSON does not distinguish 5 from 5.0.
type IntToString struct{}

// Transform implements Transformer.
func (IntToString) Transform(v ir.IRValue) (ir.IRValue, bool) {
	switch n := v.(type) {
	case ir.IRInt:
		return ir.IRString(strconv.FormatInt(int64(n), 10)), true
	case ir.IRFloat:
		f := float64(n)
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, false
		}
		return ir.IRString(strconv.FormatInt(int64(f), 10)), true
	}
	return nil, false
}
