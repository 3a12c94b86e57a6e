// Package canon implements deterministic canonical serialization and
// content-addressed hashing for baselines, schemas, and fingerprints.
//
// Canonical form: object keys sorted lexicographically by code point, no
// insignificant whitespace, numbers in the shortest round-tripping decimal
// form, the four JSON literals for booleans/null, and the minimum escape set
// for strings. Arrays preserve order. Missing (Go: nil map/slice/pointer with
// `omitempty`) fields are omitted entirely, distinct from an explicit null.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// EncodingError is returned when a value cannot be canonicalized, e.g. a
// non-finite float (NaN/Inf) or an unsupported Go type.
type EncodingError struct {
	// GoType is the Go type name of the offending value.
	GoType string
	// Reason describes why the value could not be encoded.
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("canon: cannot encode value of type %s: %s", e.GoType, e.Reason)
}

// HashSize is the number of hex characters a content hash is truncated to
// (16 hex chars = 64 bits of a SHA-256 digest). Hashes are content-addressed
// identifiers, not security tokens.
const HashSize = 16

// Canonicalize renders v into its canonical byte sequence. v is first run
// through encoding/json marshal+unmarshal so that struct field tags,
// omitempty, and custom MarshalJSON methods are honored exactly as they
// would be on the wire, then the resulting generic value is re-encoded in
// canonical form.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		var unsupportedValue *json.UnsupportedValueError
		if errors.As(err, &unsupportedValue) {
			return nil, &EncodingError{GoType: unsupportedValue.Value.Type().String(), Reason: "unsupported value " + unsupportedValue.Str}
		}
		var unsupportedType *json.UnsupportedTypeError
		if errors.As(err, &unsupportedType) {
			return nil, &EncodingError{GoType: unsupportedType.Type.String(), Reason: "unsupported type for canonical encoding"}
		}
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}
	var generic any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canon: decode: %w", err)
	}
	var buf strings.Builder
	if err := encodeValue(&buf, generic); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

// Hash returns the first HashSize lowercase hex characters of the SHA-256
// digest of Canonicalize(v).
func Hash(v any) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:HashSize], nil
}

func encodeValue(buf *strings.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		return encodeNumber(buf, val)
	case string:
		encodeString(buf, val)
		return nil
	case []any:
		return encodeArray(buf, val)
	case map[string]any:
		return encodeObject(buf, val)
	default:
		return &EncodingError{GoType: fmt.Sprintf("%T", v), Reason: "unsupported type for canonical encoding"}
	}
}

func encodeNumber(buf *strings.Builder, n json.Number) error {
	if f, err := n.Float64(); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &EncodingError{GoType: "json.Number", Reason: "non-finite numbers (NaN/Infinity) cannot be canonicalized"}
		}
	}
	s := n.String()
	// Integers (no '.', 'e', 'E') round-trip verbatim save for "-0".
	if !strings.ContainsAny(s, ".eE") {
		if s == "-0" {
			buf.WriteString("0")
			return nil
		}
		buf.WriteString(s)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return &EncodingError{GoType: "json.Number", Reason: "not a valid float"}
	}
	if f == 0 {
		buf.WriteString("0")
		return nil
	}
	shortest := strconv.FormatFloat(f, 'g', -1, 64)
	buf.WriteString(shortest)
	return nil
}

func encodeString(buf *strings.Builder, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func encodeArray(buf *strings.Builder, arr []any) error {
	buf.WriteByte('[')
	for i, item := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeValue(buf, item); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func encodeObject(buf *strings.Builder, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodeString(buf, k)
		buf.WriteByte(':')
		if err := encodeValue(buf, obj[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
