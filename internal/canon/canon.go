// Package canon implements deterministic canonicalization and fingerprinting
// of arbitrary JSON-compatible values, plus SQL statement normalization. It
// is the foundation every other primitive fingerprints against: two
// structurally equal values must canonicalize to identical bytes regardless
// of map iteration order, numeric representation, or insertion order.
package canon

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EncodingError is returned when a value cannot be canonicalized.
type EncodingError struct {
	TypeName string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("canon: value of type %s is not serializable", e.TypeName)
}

// floatPrecision is the fixed rounding applied to all floating point values
// before canonicalization, so representational drift below this precision
// never changes a fingerprint.
const floatPrecision = 6

// Canonicalize renders value as deterministic canonical JSON bytes. Map keys
// are sorted lexicographically at every level; floats are rounded to 6
// decimals; NaN becomes null; +/-Inf become the strings "Infinity" and
// "-Infinity"; byte slices are base64 encoded; time.Time is rendered as
// RFC3339 (ISO-8601) UTC.
func Canonicalize(value interface{}) ([]byte, error) {
	node, err := normalize(value)
	if err != nil {
		return nil, err
	}
	var buf strings.Builder
	if err := encode(&buf, node); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

// Fingerprint returns the hex-encoded SHA-256 digest of value's canonical
// encoding.
func Fingerprint(value interface{}) (string, error) {
	b, err := Canonicalize(value)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum), nil
}

// normalize converts value into a tree of json.Marshal-able primitives
// (map[string]interface{}, []interface{}, string, float64, bool, nil):
// narrow integer kinds widen to int64, floats round, byte slices become
// base64, timestamps become RFC3339 UTC.
func normalize(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return v, nil
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, &EncodingError{TypeName: "json.Number"}
		}
		return normalizeFloat(f), nil
	case float32:
		return normalizeFloat(float64(v)), nil
	case float64:
		return normalizeFloat(v), nil
	case int:
		return v, nil
	case int64:
		return v, nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			nv, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return sortedMap(out), nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			nv, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return normalizeReflective(value)
	}
}

// normalizeFloat rounds to floatPrecision decimals; NaN maps to null and
// the infinities to their string names, since JSON has no encoding for
// them.
func normalizeFloat(f float64) interface{} {
	if math.IsNaN(f) {
		return nil
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	scale := math.Pow(10, floatPrecision)
	return math.Round(f*scale) / scale
}

// normalizeReflective handles values that aren't directly one of the cases
// above (structs, pointers, custom map/slice types) by round-tripping
// through encoding/json, which already knows how to walk struct tags.
func normalizeReflective(value interface{}) (interface{}, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, &EncodingError{TypeName: fmt.Sprintf("%T", value)}
	}
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, &EncodingError{TypeName: fmt.Sprintf("%T", value)}
	}
	if generic == nil {
		return nil, nil
	}
	return normalize(generic)
}

// sortedMap is a map value that encodes its keys in sorted order.
type sortedMap map[string]interface{}

// encode writes node's canonical JSON form to buf: sorted keys, no
// extraneous whitespace, ':' and ',' as the only separators.
func encode(buf *strings.Builder, node interface{}) error {
	switch v := node.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
	case float64:
		buf.WriteString(formatFloat(v))
	case int:
		buf.WriteString(strconv.Itoa(v))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case sortedMap:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encode(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return &EncodingError{TypeName: fmt.Sprintf("%T", node)}
	}
	return nil
}

// formatFloat renders a rounded float without trailing zeros beyond what's
// needed, and without exponent notation, matching a stable textual form.
func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
