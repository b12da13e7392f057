package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// RoomKey is the canonical string form of a room identifier. Numeric thread IDs
// and identities share the same key space, so 42 and "42" name one room.
type RoomKey string

// CanonicalKey coerces a room key or identity supplied as a string or a number
// into its canonical string form. Integral numbers are rendered without a
// fractional part.
func CanonicalKey(v any) (RoomKey, error) {
	var s string
	switch k := v.(type) {
	case nil:
		return "", ErrInvalidRoom
	case RoomKey:
		s = string(k)
	case string:
		s = k
	case json.Number:
		if i, err := k.Int64(); err == nil {
			s = strconv.FormatInt(i, 10)
			break
		}
		f, err := k.Float64()
		if err != nil {
			return "", fmt.Errorf("room key %q: %w", k.String(), err)
		}
		s = formatFloat(f)
	case int:
		s = strconv.Itoa(k)
	case int32:
		s = strconv.FormatInt(int64(k), 10)
	case int64:
		s = strconv.FormatInt(k, 10)
	case uint:
		s = strconv.FormatUint(uint64(k), 10)
	case uint32:
		s = strconv.FormatUint(uint64(k), 10)
	case uint64:
		s = strconv.FormatUint(k, 10)
	case float32:
		s = formatFloat(float64(k))
	case float64:
		s = formatFloat(k)
	case fmt.Stringer:
		s = k.String()
	default:
		return "", fmt.Errorf("unsupported room key type %T", v)
	}
	if s == "" {
		return "", ErrInvalidRoom
	}
	return RoomKey(s), nil
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
